package recorder

import (
	"context"
	"encoding/json"
	"time"
)

// Calculation запись о выполненном расчете
type Calculation struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Params    json.RawMessage `json:"params"`
	Result    json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Recorder сохраняет историю расчетов
type Recorder interface {
	RecordCalculation(ctx context.Context, c Calculation) error
	Recent(ctx context.Context, limit int) ([]Calculation, error)
	Close() error
}

// NoopRecorder ничего не сохраняет, используется без SQLITE_PATH
type NoopRecorder struct{}

func (NoopRecorder) RecordCalculation(ctx context.Context, c Calculation) error { return nil }

func (NoopRecorder) Recent(ctx context.Context, limit int) ([]Calculation, error) {
	return []Calculation{}, nil
}

func (NoopRecorder) Close() error { return nil }
