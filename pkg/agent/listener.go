package agent

import (
	"context"

	"github.com/0xrjw/file-agent/pkg/logger"
)

// sinkListener forwards settled change events to the sink. Sink
// failures are logged and dropped: a failed registration must not
// stop monitoring.
type sinkListener struct {
	ctx    context.Context
	sink   Sink
	logger logger.Logger
}

func newSinkListener(ctx context.Context, sink Sink, log logger.Logger) *sinkListener {
	return &sinkListener{ctx: ctx, sink: sink, logger: log}
}

func (l *sinkListener) OnCreated(path string) {
	if err := l.sink.Register(l.ctx, path); err != nil {
		l.logger.Error("failed to register created file", "path", path, "error", err)
	}
}

func (l *sinkListener) OnChanged(path string) {
	if err := l.sink.Register(l.ctx, path); err != nil {
		l.logger.Error("failed to register changed file", "path", path, "error", err)
	}
}

func (l *sinkListener) OnDeleted(path string) {
	if err := l.sink.Deregister(l.ctx, path); err != nil {
		l.logger.Error("failed to deregister deleted file", "path", path, "error", err)
	}
}

func (l *sinkListener) OnRenamed(oldPath, newPath string) {
	if oldPath != "" {
		if err := l.sink.Deregister(l.ctx, oldPath); err != nil {
			l.logger.Error("failed to deregister renamed file", "path", oldPath, "error", err)
		}
	}
	if newPath != "" {
		if err := l.sink.Register(l.ctx, newPath); err != nil {
			l.logger.Error("failed to register renamed file", "path", newPath, "error", err)
		}
	}
}
