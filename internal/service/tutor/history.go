package tutor

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/sandevgo/mualim/internal/core"
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

func countTokens(s string) int {
	encodingOnce.Do(func() {
		// Ignore the error: without the encoding we fall back to a
		// rough word count, which only makes the window smaller.
		encoding, _ = tiktoken.GetEncoding("cl100k_base")
	})
	if encoding == nil {
		return len(strings.Fields(s)) * 2
	}
	return len(encoding.Encode(s, nil, nil))
}

// TrimHistory bounds the conversation window: keep at most maxTurns of
// the most recent turns, then drop the oldest while the token budget
// is exceeded. The current question is not part of the window.
func TrimHistory(turns []core.Turn, maxTurns, tokenBudget int) []core.Turn {
	if maxTurns > 0 && len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	if tokenBudget <= 0 {
		return turns
	}

	total := 0
	for _, t := range turns {
		total += countTokens(t.Content)
	}
	for len(turns) > 0 && total > tokenBudget {
		total -= countTokens(turns[0].Content)
		turns = turns[1:]
	}
	return turns
}
