package storage

import (
	"context"
	"io"

	"github.com/aman-zulfiqar/pair-sweeper/internal/models"
)

// BlockList is the persisted set of pool addresses excluded from sweeps.
type BlockList interface {
	// IsBlocked reports whether the address is on the list
	IsBlocked(ctx context.Context, addr string) (bool, error)

	// Block adds the address; blocking twice is not an error
	Block(ctx context.Context, addr string) error

	// Unblock removes the address and reports whether it was present
	Unblock(ctx context.Context, addr string) (bool, error)

	// Close releases the underlying connection
	io.Closer
}

// SignalSink receives every detected signal in addition to the notifier.
type SignalSink interface {
	// Name identifies the sink in logs
	Name() string

	// Publish stores or forwards one signal
	Publish(ctx context.Context, sig *models.Signal) error

	// Close releases the underlying connection
	io.Closer
}
