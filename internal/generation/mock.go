package generation

import (
	"context"
	"strings"
	"sync"

	"github.com/hyperjump/askpdf/internal/models"
)

// Mock is a scripted Generator for tests and offline runs. It returns Replies
// in order, repeating the last one; with no replies it echoes the last
// non-empty line of the prompt.
type Mock struct {
	Replies []string
	Err     error

	mu      sync.Mutex
	prompts []string
	opts    []Options
}

// NewMock returns a Mock with the given scripted replies.
func NewMock(replies ...string) *Mock {
	return &Mock{Replies: replies}
}

// Generate records the call and returns the next reply.
func (m *Mock) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	if err := ctx.Err(); err != nil {
		return "", models.NewGenerationError(err)
	}
	if m.Err != nil {
		return "", models.NewGenerationError(m.Err)
	}
	if len(m.Replies) == 0 {
		return lastLine(prompt), nil
	}
	i := len(m.prompts) - 1
	if i >= len(m.Replies) {
		i = len(m.Replies) - 1
	}
	return m.Replies[i], nil
}

// Calls returns how many times Generate ran.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns the prompts seen so far.
func (m *Mock) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// LastOptions returns the options of the most recent call.
func (m *Mock) LastOptions() Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.opts) == 0 {
		return Options{}
	}
	return m.opts[len(m.opts)-1]
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
