package analysis

import (
	"context"
	"encoding/json"

	"gitlab-metrics/pkg/log"
)

type logSink struct {
	l log.Logger
}

// NewLogSink writes records to the structured log.
func NewLogSink(l log.Logger) Sink {
	return &logSink{l: l}
}

func (s *logSink) Record(ctx context.Context, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	s.l.Infof(ctx, "analysis record: %s", b)
	return nil
}
