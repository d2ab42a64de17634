// Package tokens counts prompt/response tokens for display metadata. Counting
// here is informational only; it never gates a request.
package tokens

import (
	"log"

	"github.com/pkoukk/tiktoken-go"
)

var logger = log.New(log.Writer(), "[TOKENS] ", log.LstdFlags)

// Count returns the exact token count for text under the given model's
// encoding, falling back to the character/4 approximation when the tokenizer
// is unavailable for the model.
func Count(text, model string) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		logger.Printf("tokenizer unavailable for %s, using approximation: %v", model, err)
		return Approximate(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// Approximate estimates tokens as len/4, the cheap path used where exact
// counting is not worth the latency.
func Approximate(text string) int {
	return len(text) / 4
}
