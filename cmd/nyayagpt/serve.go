package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/nyayagpt/nyayagpt/config"
	"github.com/nyayagpt/nyayagpt/internal/conversation"
	"github.com/nyayagpt/nyayagpt/internal/llm"
	"github.com/nyayagpt/nyayagpt/internal/pipeline"
	"github.com/nyayagpt/nyayagpt/internal/respcache"
	"github.com/nyayagpt/nyayagpt/internal/retrieval"
	"github.com/nyayagpt/nyayagpt/internal/server"
	"github.com/nyayagpt/nyayagpt/internal/telemetry"
	"github.com/nyayagpt/nyayagpt/internal/vectorstore"
)

func serveCMD() *cobra.Command {
	var cfgPath string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the legal query API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
	serve.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default: ./config/nyayagpt.yaml)")
	return serve
}

func runServe(cfg *config.Config) error {
	logger := log.New(log.Writer(), "[SERVE] ", log.LstdFlags)
	ctx := context.Background()

	tele, err := telemetry.Setup(ctx, cfg.Telemetry, telemetry.Options{
		ServiceName:    "nyayagpt",
		ServiceVersion: server.Version,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tele.Shutdown(shutCtx); err != nil {
			logger.Printf("telemetry shutdown: %v", err)
		}
	}()

	if err := cfg.OpenAI.Validate(); err != nil {
		return err
	}
	llmClient := llm.NewClient(cfg.OpenAI.APIKey, log.New(log.Writer(), "[LLM] ", log.LstdFlags))

	// Redis is optional; without it the service answers queries with no
	// history and no response cache.
	var rdb *redis.Client
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, cfg.Redis.Timeout)
	err = client.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		logger.Printf("redis unavailable at %s, running degraded: %v", cfg.Redis.Addr(), err)
	} else {
		rdb = client
	}

	// The vector index is not optional: without it every answer would be
	// ungrounded.
	if err := cfg.Pinecone.Validate(); err != nil {
		return err
	}
	pc, err := vectorstore.NewPinecone(ctx, cfg.Pinecone.APIKey, cfg.Pinecone.IndexHost,
		cfg.OpenAI.EmbeddingModel, llmClient, cfg.Pinecone.Timeout)
	if err != nil {
		return err
	}

	conv := conversation.NewStore(rdb, cfg.Conversation.TTL, log.New(log.Writer(), "[CONV] ", log.LstdFlags))
	cache := respcache.New(rdb, cfg.Cache.TTL, log.New(log.Writer(), "[CACHE] ", log.LstdFlags))
	engine := retrieval.NewEngine(pc, llmClient, log.New(log.Writer(), "[RETRIEVAL] ", log.LstdFlags))
	pipe := pipeline.New(llmClient, engine, conv, cache, log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags))

	srv := server.New(cfg.Server, pipe, conv, cache, pc, log.New(log.Writer(), "[HTTP] ", log.LstdFlags))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Printf("received %s, shutting down", sig)
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	}
}
