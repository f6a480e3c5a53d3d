package history

import (
	"context"

	"github.com/inkhouse/copydesk/internal/pipeline"
)

// RecordRun implements pipeline.Recorder.
func (s *Store) RecordRun(ctx context.Context, rec pipeline.RunRecord) error {
	return s.Log(ctx, Record{
		ManuscriptID:      rec.ManuscriptID,
		Operation:         rec.Operation,
		RequestID:         rec.RequestID,
		Replayed:          rec.Replayed,
		OverallConfidence: rec.OverallConfidence,
		StagesRun:         rec.StagesRun,
		FailedStage:       rec.FailedStage,
		DurationMS:        rec.Duration.Milliseconds(),
	})
}
