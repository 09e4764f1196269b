package progress

import (
	"context"

	"github.com/trebuchet-org/govsync/internal/usecase"
)

// NopSink discards progress, used with --json and --non-interactive
type NopSink struct{}

func NewNopSink() *NopSink {
	return &NopSink{}
}

func (n *NopSink) OnProgress(ctx context.Context, event usecase.ProgressEvent) {}

func (n *NopSink) Info(message string) {}

func (n *NopSink) Error(message string) {}

var _ usecase.ProgressSink = (*NopSink)(nil)
