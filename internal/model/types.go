package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord aggregates one batch of simulation episodes. It carries the
// resolved run parameters plus the outcome totals; per-step trajectories are
// never persisted.
type RunRecord struct {
	VersionedRecord
	RunID           string  `json:"run_id"`
	Scenario        string  `json:"scenario"`
	Model           string  `json:"model"`
	Agents          int     `json:"agents"`
	Episodes        int     `json:"episodes"`
	StepsPerEpisode int     `json:"steps_per_episode"`
	Seed            int64   `json:"seed"`
	Driver          string  `json:"driver"`
	MeanReturn      float64 `json:"mean_return"`
	BestReturn      float64 `json:"best_return"`
	TotalSteps      int     `json:"total_steps"`
	BoundaryHits    int     `json:"boundary_hits"`
	DuplicateBeeps  int     `json:"duplicate_beeps"`
	Blocked         int     `json:"blocked"`
	CellsVisited    int     `json:"cells_visited"`
	CreatedAtUTC    string  `json:"created_at_utc"`
}

// EpisodeRecord aggregates one episode inside a run.
type EpisodeRecord struct {
	VersionedRecord
	RunID          string  `json:"run_id"`
	Episode        int     `json:"episode"`
	Return         float64 `json:"return"`
	Steps          int     `json:"steps"`
	BoundaryHits   int     `json:"boundary_hits"`
	DuplicateBeeps int     `json:"duplicate_beeps"`
	Blocked        int     `json:"blocked"`
	CellsVisited   int     `json:"cells_visited"`
}
