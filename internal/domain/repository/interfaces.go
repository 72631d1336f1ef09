package repository

import (
	"context"
	"time"
)

// UploadStore keeps the last upload of each session. Entries expire with the session.
type UploadStore interface {
	Save(ctx context.Context, sessionID string, data []byte) error
	Load(ctx context.Context, sessionID string) ([]byte, bool, error)
	Close() error
}

type Metrics interface {
	RecordRun(asset, outcome string)
	RecordStage(stage string, d time.Duration)
	RecordHorizon(asset string, steps int)
}
