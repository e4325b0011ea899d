package core

import "context"

// StreamFunc receives the cumulative text so far, not the delta.
// Transports render it as-is without re-concatenation.
type StreamFunc func(total string)

type PromptRequest struct {
	Query      string
	Subject    Subject
	Grade      Grade
	History    []Turn
	Attachment *Attachment
}

type InferenceProvider interface {
	Stream(ctx context.Context, req PromptRequest, onDelta StreamFunc) (string, error)
}

type CrowdRepository interface {
	Search(ctx context.Context, query string, subject Subject, grade Grade) (*CacheRecord, error)
	SearchPartial(ctx context.Context, query string, subject Subject) (*CacheRecord, error)
	Add(ctx context.Context, question, answer string, subject Subject, grade Grade, requesterID string) error
	Stats(ctx context.Context) (CacheStats, error)
	Popular(ctx context.Context, limit int) ([]CacheRecord, error)
}

type TurnsRepository interface {
	AddTurn(ctx context.Context, sessionID string, turn Turn) error
	GetTurns(ctx context.Context, sessionID string, limit int) ([]Turn, error)
}
