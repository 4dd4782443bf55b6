package experiment

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
)

// Results is the metrics log of experiment runs: one row per run, one row
// per episode. DuckDB keeps the episode table cheap to aggregate over when
// a search process wants reward statistics across thousands of episodes.
type Results struct {
	db *sql.DB
}

// OpenResults opens (or creates) a results database. An empty path opens
// an in-memory database.
func OpenResults(path string) (*Results, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("experiment: opening results database: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			experiment  TEXT NOT NULL,
			environment TEXT NOT NULL,
			started_at  TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS episodes (
			run_id       TEXT NOT NULL,
			episode      INTEGER NOT NULL,
			program      TEXT NOT NULL,
			total_reward DOUBLE NOT NULL,
			steps        INTEGER NOT NULL,
			result       TEXT NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("experiment: creating results schema: %w", err)
		}
	}

	return &Results{db: db}, nil
}

// Close closes the results database.
func (r *Results) Close() error {
	return r.db.Close()
}

// BeginRun records the start of one experiment run and returns its id.
func (r *Results) BeginRun(ex *Experiment) (string, error) {
	id := uuid.NewString()
	_, err := r.db.Exec(`INSERT INTO runs (id, experiment, environment, started_at)
		VALUES (?, ?, ?, ?)`, id, ex.Name, ex.Environment, time.Now())
	if err != nil {
		return "", fmt.Errorf("experiment: begin run: %w", err)
	}
	return id, nil
}

// RecordEpisode logs one finished episode.
func (r *Results) RecordEpisode(runID string, episode int, program string, totalReward float64, steps int, result string) error {
	_, err := r.db.Exec(`INSERT INTO episodes (run_id, episode, program, total_reward, steps, result)
		VALUES (?, ?, ?, ?, ?, ?)`, runID, episode, program, totalReward, steps, result)
	if err != nil {
		return fmt.Errorf("experiment: record episode: %w", err)
	}
	return nil
}

// MeanReward returns the mean total reward of one program across every
// recorded episode of a run.
func (r *Results) MeanReward(runID, program string) (float64, error) {
	row := r.db.QueryRow(`SELECT AVG(total_reward) FROM episodes
		WHERE run_id = ? AND program = ?`, runID, program)
	var mean sql.NullFloat64
	if err := row.Scan(&mean); err != nil {
		return 0, fmt.Errorf("experiment: mean reward: %w", err)
	}
	return mean.Float64, nil
}
