package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/overridebot/internal/domain/model"
	"github.com/ericfisherdev/overridebot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RunStore = (*RunRepo)(nil)

// RunRepo is the SQLite implementation of the RunStore port interface.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new RunRepo backed by the given DB.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// justifyingLane is the JSON shape of one entry in run_candidates.justified_by.
type justifyingLane struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// SaveRun stores a run, its outcomes and their candidates in a single transaction.
func (r *RunRepo) SaveRun(ctx context.Context, report model.RunReport) (int64, error) {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	const runQuery = `
		INSERT INTO runs (repo, started_at, finished_at, dry_run)
		VALUES (?, ?, ?, ?)
	`
	res, err := tx.ExecContext(ctx, runQuery,
		report.Repo, formatTime(report.StartedAt), formatTime(report.FinishedAt), boolToInt(report.DryRun),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	const outcomeQuery = `
		INSERT INTO run_outcomes (run_id, position, pr_number, title, lanes, comment, posted, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	const candidateQuery = `
		INSERT INTO run_candidates (outcome_id, position, lane, test_group, provider, result, justified_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	for i, o := range report.Outcomes {
		var errText string
		if o.Err != nil {
			errText = o.Err.Error()
		}

		res, err := tx.ExecContext(ctx, outcomeQuery,
			runID, i, o.Number, o.Title, o.Lanes, o.Comment, boolToInt(o.Posted), errText,
		)
		if err != nil {
			return 0, fmt.Errorf("insert outcome for PR %d: %w", o.Number, err)
		}
		outcomeID, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("outcome id for PR %d: %w", o.Number, err)
		}

		for j, c := range o.Candidates {
			justified := make([]justifyingLane, 0, len(c.JustifiedBy))
			for _, l := range c.JustifiedBy {
				justified = append(justified, justifyingLane{Name: l.Name, Provider: l.Provider})
			}
			data, err := json.Marshal(justified)
			if err != nil {
				return 0, fmt.Errorf("marshal justification for %s: %w", c.Lane.Name, err)
			}

			if _, err := tx.ExecContext(ctx, candidateQuery,
				outcomeID, j, c.Lane.Name, c.Lane.TestGroup, c.Lane.Provider, string(c.Lane.Result), string(data),
			); err != nil {
				return 0, fmt.Errorf("insert candidate %s for PR %d: %w", c.Lane.Name, o.Number, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}

	return runID, nil
}

// ListRuns returns up to limit runs, newest first.
func (r *RunRepo) ListRuns(ctx context.Context, limit int) ([]driven.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	const query = `
		SELECT r.id, r.repo, r.started_at, r.finished_at, r.dry_run,
			(SELECT COUNT(*) FROM run_outcomes o WHERE o.run_id = r.id),
			(SELECT COUNT(*) FROM run_candidates c JOIN run_outcomes o ON c.outcome_id = o.id WHERE o.run_id = r.id),
			(SELECT COUNT(*) FROM run_outcomes o WHERE o.run_id = r.id AND o.error != '')
		FROM runs r
		ORDER BY r.id DESC
		LIMIT ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []driven.RunSummary{}
	for rows.Next() {
		var s driven.RunSummary
		var startedAt, finishedAt string
		var dryRun int
		if err := rows.Scan(&s.ID, &s.Repo, &startedAt, &finishedAt, &dryRun,
			&s.ChangeRequests, &s.Candidates, &s.Failures); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.DryRun = dryRun != 0
		if s.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if s.FinishedAt, err = parseTime(finishedAt); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		runs = append(runs, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// GetRun returns a stored run with its outcomes and candidates. Returns nil, nil if not found.
func (r *RunRepo) GetRun(ctx context.Context, id int64) (*model.RunReport, error) {
	const runQuery = `SELECT id, repo, started_at, finished_at, dry_run FROM runs WHERE id = ?`

	var report model.RunReport
	var startedAt, finishedAt string
	var dryRun int
	err := r.db.Reader.QueryRowContext(ctx, runQuery, id).Scan(&report.ID, &report.Repo, &startedAt, &finishedAt, &dryRun)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query run %d: %w", id, err)
	}
	report.DryRun = dryRun != 0
	if report.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if report.FinishedAt, err = parseTime(finishedAt); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}

	outcomes, ids, err := r.getOutcomes(ctx, id)
	if err != nil {
		return nil, err
	}

	for i := range outcomes {
		candidates, err := r.getCandidates(ctx, ids[i])
		if err != nil {
			return nil, err
		}
		outcomes[i].Candidates = candidates
	}
	report.Outcomes = outcomes

	return &report, nil
}

func (r *RunRepo) getOutcomes(ctx context.Context, runID int64) ([]model.Outcome, []int64, error) {
	const query = `
		SELECT id, pr_number, title, lanes, comment, posted, error
		FROM run_outcomes
		WHERE run_id = ?
		ORDER BY position
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("query outcomes for run %d: %w", runID, err)
	}
	defer rows.Close()

	var outcomes []model.Outcome
	var ids []int64
	for rows.Next() {
		var o model.Outcome
		var outcomeID int64
		var posted int
		var errText string
		if err := rows.Scan(&outcomeID, &o.Number, &o.Title, &o.Lanes, &o.Comment, &posted, &errText); err != nil {
			return nil, nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Posted = posted != 0
		if errText != "" {
			o.Err = errors.New(errText)
		}
		outcomes = append(outcomes, o)
		ids = append(ids, outcomeID)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate outcomes: %w", err)
	}

	return outcomes, ids, nil
}

func (r *RunRepo) getCandidates(ctx context.Context, outcomeID int64) ([]model.Candidate, error) {
	const query = `
		SELECT lane, test_group, provider, result, justified_by
		FROM run_candidates
		WHERE outcome_id = ?
		ORDER BY position
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, outcomeID)
	if err != nil {
		return nil, fmt.Errorf("query candidates for outcome %d: %w", outcomeID, err)
	}
	defer rows.Close()

	var candidates []model.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}

	return candidates, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCandidate(s scanner) (*model.Candidate, error) {
	var c model.Candidate
	var result, justifiedJSON string

	if err := s.Scan(&c.Lane.Name, &c.Lane.TestGroup, &c.Lane.Provider, &result, &justifiedJSON); err != nil {
		return nil, err
	}
	c.Lane.Result = model.LaneResult(result)

	var justified []justifyingLane
	if err := json.Unmarshal([]byte(justifiedJSON), &justified); err != nil {
		return nil, fmt.Errorf("unmarshal justified_by: %w", err)
	}
	for _, j := range justified {
		c.JustifiedBy = append(c.JustifiedBy, model.Lane{
			Name:      j.Name,
			TestGroup: c.Lane.TestGroup,
			Provider:  j.Provider,
			Result:    model.LaneResultSuccess,
		})
	}

	return &c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %q", s)
}
