package storage

import (
	"context"

	"sapientino/internal/model"
)

// Store defines persistence operations for run and episode aggregates.
// Lookups return found=false rather than an error when a record is absent.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveEpisodes(ctx context.Context, runID string, episodes []model.EpisodeRecord) error
	ListEpisodes(ctx context.Context, runID string) ([]model.EpisodeRecord, bool, error)
	DeleteRun(ctx context.Context, id string) error
	Reset(ctx context.Context) error
}
