// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/overridebot/internal/domain/model"
	"github.com/ericfisherdev/overridebot/internal/domain/port/driven"
)

// ErrForgeUnavailable is returned when no change request could be fetched at all.
var ErrForgeUnavailable = errors.New("forge unavailable")

// DefaultOverrideMarker is the status description text Prow sets on overridden contexts.
const DefaultOverrideMarker = "Overridden"

// DefaultPollInterval is used when OverrideOptions.Interval is not positive.
const DefaultPollInterval = 10 * time.Minute

// OverrideOptions configures an OverrideService.
type OverrideOptions struct {
	Repo           string // For logging and the run record only.
	OverrideMarker string
	DryRun         bool
	Concurrency    int
	Interval       time.Duration
	Adaptive       bool // Derive the poll interval from pull request activity instead of Interval.
}

// runRequest represents a manual run trigger.
type runRequest struct {
	done chan runResult
}

type runResult struct {
	report *model.RunReport
	err    error
}

// OverrideService drives the override pipeline over all open change requests:
// fetch statuses, classify lanes, nominate overrides and post the comment.
type OverrideService struct {
	forge      driven.ForgeClient
	runStore   driven.RunStore // Optional.
	classifier *Classifier
	reporter   *Reporter
	opts       OverrideOptions
	logger     *slog.Logger
	triggerCh  chan runRequest
	now        func() time.Time

	mu           sync.Mutex
	lastActivity time.Time
}

// NewOverrideService creates a new OverrideService. runStore may be nil, in
// which case runs are not recorded.
func NewOverrideService(
	forge driven.ForgeClient,
	runStore driven.RunStore,
	classifier *Classifier,
	reporter *Reporter,
	opts OverrideOptions,
	logger *slog.Logger,
) *OverrideService {
	if opts.OverrideMarker == "" {
		opts.OverrideMarker = DefaultOverrideMarker
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OverrideService{
		forge:      forge,
		runStore:   runStore,
		classifier: classifier,
		reporter:   reporter,
		opts:       opts,
		logger:     logger,
		triggerCh:  make(chan runRequest),
		now:        time.Now,
	}
}

// Start runs the pipeline immediately, then on the configured interval. It
// also serves TriggerRun requests. Start blocks until the context is canceled.
func (s *OverrideService) Start(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("initial override run failed", "error", err)
	}

	timer := time.NewTimer(s.nextInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("override service stopped")
			return
		case <-timer.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Error("override run failed", "error", err)
			}
			next := s.nextInterval()
			s.logger.Debug("next override run scheduled", "repo", s.opts.Repo, "in", next)
			timer.Reset(next)
		case req := <-s.triggerCh:
			report, err := s.RunOnce(ctx)
			req.done <- runResult{report: report, err: err}
		}
	}
}

// TriggerRun asks a started service to run now, bypassing the interval. It
// blocks until the run completes or the context is canceled.
func (s *OverrideService) TriggerRun(ctx context.Context) (*model.RunReport, error) {
	done := make(chan runResult, 1)

	select {
	case s.triggerCh <- runRequest{done: done}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-done:
		return res.report, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RunOnce performs a single pass over all open change requests. Failures of a
// single change request are recorded on its outcome and do not stop the run.
// An error is returned only when the forge could not be reached at all.
func (s *OverrideService) RunOnce(ctx context.Context) (*model.RunReport, error) {
	report := &model.RunReport{
		Repo:      s.opts.Repo,
		StartedAt: s.now().UTC(),
		DryRun:    s.opts.DryRun,
	}

	refs, err := s.forge.ListOpenChangeRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing open change requests for %s: %w", ErrForgeUnavailable, s.opts.Repo, err)
	}

	s.noteActivity(freshestActivity(refs))
	report.Outcomes = make([]model.Outcome, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			report.Outcomes[i] = s.process(gctx, ref)
			return nil
		})
	}
	_ = g.Wait() // Workers never return errors; failures live on the outcomes.

	report.FinishedAt = s.now().UTC()
	s.record(ctx, report)

	fetchFailures := 0
	for _, o := range report.Outcomes {
		if o.Err != nil && errors.Is(o.Err, errFetchStatuses) {
			fetchFailures++
		}
	}
	if len(refs) > 0 && fetchFailures == len(refs) {
		return report, fmt.Errorf("%w: statuses could not be fetched for any of %d change requests", ErrForgeUnavailable, len(refs))
	}

	s.logger.Info("override run complete",
		"repo", s.opts.Repo,
		"change_requests", len(report.Outcomes),
		"candidates", report.CandidateCount(),
		"errors", report.FailedCount(),
		"dry_run", s.opts.DryRun,
		"duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
	)

	return report, nil
}

var (
	errFetchStatuses = errors.New("fetching statuses")
	errPostComment   = errors.New("posting comment")
)

// process runs Fetch -> Classify -> Nominate -> Report for one change request.
func (s *OverrideService) process(ctx context.Context, ref model.ChangeRequestRef) model.Outcome {
	outcome := model.Outcome{Number: ref.Number, Title: ref.Title}

	if err := ctx.Err(); err != nil {
		outcome.Err = err
		return outcome
	}

	statuses, err := s.forge.ListStatuses(ctx, ref.HeadSHA)
	if err != nil {
		outcome.Err = fmt.Errorf("%w for #%d: %w", errFetchStatuses, ref.Number, err)
		s.logger.Error("fetch statuses failed", "repo", s.opts.Repo, "pr", ref.Number, "error", err)
		return outcome
	}

	cr := s.classify(ref, statuses)
	outcome.Lanes = cr.LaneCount()
	outcome.Candidates = Nominate(cr)

	comment, ok := s.reporter.Format(outcome.Candidates)
	if !ok {
		s.logger.Debug("no overrides nominated", "repo", s.opts.Repo, "pr", ref.Number, "lanes", outcome.Lanes)
		return outcome
	}
	outcome.Comment = comment

	if s.opts.DryRun {
		s.logger.Info("dry run, not posting override comment",
			"repo", s.opts.Repo,
			"pr", ref.Number,
			"candidates", len(outcome.Candidates),
		)
		return outcome
	}

	if err := s.forge.PostComment(ctx, ref.Number, comment); err != nil {
		outcome.Err = fmt.Errorf("%w on #%d: %w", errPostComment, ref.Number, err)
		s.logger.Error("post override comment failed", "repo", s.opts.Repo, "pr", ref.Number, "error", err)
		return outcome
	}
	outcome.Posted = true

	s.logger.Info("override comment posted",
		"repo", s.opts.Repo,
		"pr", ref.Number,
		"candidates", len(outcome.Candidates),
	)

	return outcome
}

// classify builds the ChangeRequest from the raw statuses. Malformed and
// non-lane entries are skipped.
func (s *OverrideService) classify(ref model.ChangeRequestRef, statuses []model.CommitStatus) *model.ChangeRequest {
	cr := model.NewChangeRequest(ref)

	var malformed, rejected, duplicates int
	for _, status := range statuses {
		run, ok := model.ParseCheckRun(status, s.opts.OverrideMarker)
		if !ok {
			malformed++
			continue
		}

		group, provider, ok := s.classifier.Classify(run.Context)
		if !ok {
			rejected++
			continue
		}

		if !cr.AddLane(group, provider, run) {
			duplicates++
		}
	}

	s.logger.Debug("statuses classified",
		"repo", s.opts.Repo,
		"pr", ref.Number,
		"statuses", len(statuses),
		"lanes", cr.LaneCount(),
		"groups", len(cr.Groups()),
		"malformed", malformed,
		"rejected", rejected,
		"duplicates", duplicates,
	)

	return cr
}

// noteActivity remembers the freshest pull request update seen by the last listing.
func (s *OverrideService) noteActivity(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = t
}

// nextInterval returns the delay before the next scheduled run.
func (s *OverrideService) nextInterval() time.Duration {
	if !s.opts.Adaptive {
		return s.opts.Interval
	}

	s.mu.Lock()
	last := s.lastActivity
	s.mu.Unlock()

	tier := classifyActivity(last, s.now())
	interval := tierInterval(tier)
	s.logger.Debug("adaptive poll interval",
		"repo", s.opts.Repo,
		"tier", tier,
		"last_activity", last,
		"interval", interval,
	)
	return interval
}

// record persists the run when a store is configured. Store failures are logged only.
func (s *OverrideService) record(ctx context.Context, report *model.RunReport) {
	if s.runStore == nil {
		return
	}

	id, err := s.runStore.SaveRun(ctx, *report)
	if err != nil {
		s.logger.Error("save run failed", "repo", s.opts.Repo, "error", err)
		return
	}
	report.ID = id
}
