package notifications

import "context"

// HistoryStore keeps the most recent notification payloads, newest first.
type HistoryStore interface {
	// Push prepends payload and drops everything past the configured limit.
	Push(ctx context.Context, payload string) error
	// Recent returns at most limit payloads, newest first.
	Recent(ctx context.Context, limit int) ([]string, error)
}
