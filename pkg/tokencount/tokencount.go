// Package tokencount provides approximate LLM token counting for chunk
// sizing and context-window budgeting.
package tokencount

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens using a cached tiktoken encoding.
type Counter struct {
	encoding *tiktoken.Tiktoken
	mu       sync.Mutex
}

var (
	sharedOnce sync.Once
	shared     *Counter
	sharedErr  error
)

// Shared returns the process-wide counter, lazily initialized on first use
// (guarded one-shot init, per the singleton discipline model handles use).
func Shared() (*Counter, error) {
	sharedOnce.Do(func() {
		shared, sharedErr = New()
	})
	return shared, sharedErr
}

// New creates a counter using the cl100k_base encoding, a reasonable
// approximation for the chat and embedding models this module stays
// vendor-agnostic about.
func New() (*Counter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return &Counter{encoding: enc}, nil
}

// Count returns the number of tokens text encodes to.
func (c *Counter) Count(text string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.encoding.Encode(text, nil, nil))
}
