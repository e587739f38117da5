package logging

import (
	"context"

	"go.uber.org/zap"

	"github.com/kirillkom/adaptive-retrieval/internal/core/diagnostics"
)

// DiagnosticsSink writes retrieval diagnostics as structured log entries.
// Verbosity gating happens before Emit is called.
type DiagnosticsSink struct {
	logger *zap.Logger
}

func NewDiagnosticsSink(logger *zap.Logger) *DiagnosticsSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiagnosticsSink{logger: logger.Named("diagnostics")}
}

func (s *DiagnosticsSink) Emit(_ context.Context, event string, fields ...diagnostics.Field) {
	zf := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		zf = append(zf, zap.Any(f.Key, f.Value))
	}
	s.logger.Info(event, zf...)
}
