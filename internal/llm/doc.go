// Package llm groups the completion providers used by the content generator.
// Each provider implements blog.Completer for a single-turn prompt.
package llm

import "time"

// Config is shared by all providers.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	UserAgent   string
}
