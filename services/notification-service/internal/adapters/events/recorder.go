package events

import "context"

// Recorder stores one received notification.
type Recorder interface {
	Record(ctx context.Context, payload string) error
}
