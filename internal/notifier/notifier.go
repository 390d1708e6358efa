// Package notifier delivers signal lines to rate-limited chat webhooks.
package notifier

import (
	"context"
	"errors"
)

// ErrLineTooLong is returned for a single line that could never fit in one
// message.
var ErrLineTooLong = errors.New("line exceeds message ceiling")

type Notifier interface {
	// Notify queues text (one or more lines) and sends if the buffer is due.
	Notify(ctx context.Context, text string) error
	// Flush sends buffered content if due, without adding anything.
	Flush(ctx context.Context) error
}
