package dispatch

import (
	"context"
	"log/slog"

	"github.com/seismowatch/quake-alert-service/internal/domain"
)

// LogSurface is the headless alert surface used by the daemon: alerts are
// written to the log instead of a desktop notification area. Presentation
// layers embedding the pipeline supply their own Surface.
type LogSurface struct {
	logger *slog.Logger
}

func NewLogSurface(logger *slog.Logger) *LogSurface {
	return &LogSurface{logger: logger}
}

func (s *LogSurface) Raise(_ context.Context, msg domain.AlertMessage, opts SurfaceOptions) (Handle, error) {
	s.logger.Info("alert",
		"title", msg.Title,
		"body", msg.Body,
		"origin", msg.Origin,
		"tag", opts.Tag,
		"require_interaction", opts.RequireInteraction,
	)
	return nopHandle{}, nil
}

type nopHandle struct{}

func (nopHandle) OnClick(func()) {}
func (nopHandle) Close()         {}
