// Package greeting detects trivial conversational openers so the pipeline can
// answer them without touching retrieval or the model backend.
package greeting

import (
	"math/rand"
	"regexp"
	"strings"
)

var (
	salutationRe = regexp.MustCompile(`^(hi|hello|hey|greetings|namaste|howdy)[\s\W]*$`)
	morningRe    = regexp.MustCompile(`^(good\s*morning)[\s\W]*$`)
	afternoonRe  = regexp.MustCompile(`^(good\s*afternoon)[\s\W]*$`)
	eveningRe    = regexp.MustCompile(`^(good\s*evening)[\s\W]*$`)
	dayRe        = regexp.MustCompile(`^(good\s*day)[\s\W]*$`)
	wellBeingRe  = regexp.MustCompile(`^(how\s*(are\s*you|is\s*it\s*going|are\s*things))[\s\W]*$`)
	whatsUpRe    = regexp.MustCompile(`^(what'*s\s*up)[\s\W]*$`)
)

var patterns = []*regexp.Regexp{
	salutationRe, morningRe, afternoonRe, eveningRe, dayRe, wellBeingRe, whatsUpRe,
}

// The reply matchers are narrower than the detection set: "greetings" and
// "namaste" get the generic reply, and of the well-being forms only
// "how are you" has a dedicated answer.
var (
	casualHelloRe = regexp.MustCompile(`^(hi|hello|hey|howdy)[\s\W]*$`)
	howAreYouRe   = regexp.MustCompile(`^(how\s*are\s*you)[\s\W]*$`)
)

var salutationReplies = []string{
	"Hello! How can I help you with legal information today?",
	"Hi there! I'm NyayaGPT, your legal assistant. What legal questions can I help you with?",
	"Hello! I'm ready to assist with your legal queries.",
}

const genericReply = "Hello! I'm NyayaGPT, your legal assistant. How can I help you today?"

// IsGreeting reports whether text is a simple greeting that needs no retrieval.
func IsGreeting(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Reply returns a canned response for a greeting. For bare salutations one of a
// small set of variants is picked at random; other categories have a single
// fixed reply. Falls back to a generic reply when no sub-category matches.
func Reply(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))

	switch {
	case casualHelloRe.MatchString(text):
		return salutationReplies[rand.Intn(len(salutationReplies))]
	case morningRe.MatchString(text):
		return "Good morning! How can I assist you with legal matters today?"
	case afternoonRe.MatchString(text):
		return "Good afternoon! What legal questions can I help you with today?"
	case eveningRe.MatchString(text):
		return "Good evening! I'm here to help with any legal queries you might have."
	case howAreYouRe.MatchString(text):
		return "I'm functioning well, thank you for asking! I'm ready to assist with your legal questions."
	case whatsUpRe.MatchString(text):
		return "I'm here and ready to help with your legal queries! What can I assist you with today?"
	}
	return genericReply
}
