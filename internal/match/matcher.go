package match

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"finmatch/internal/align"
	"finmatch/internal/catalog"
	"finmatch/internal/contour"
	"finmatch/internal/logging"
	"finmatch/internal/normalize"
	"finmatch/internal/textutil"
)

// Matcher ranks catalog entries against a query contour. It holds no per-run
// state and may be shared between goroutines.
type Matcher struct {
	policy     Policy
	aligner    pairAligner
	norm       normalize.Options
	categories map[string]struct{}
	logger     *slog.Logger
}

type pairAligner interface {
	Align(pair normalize.Pair) (align.Alignment, error)
}

// Option customises the Matcher.
type Option func(*Matcher)

// WithAligner replaces the aligner built from the policy.
func WithAligner(a pairAligner) Option {
	return func(m *Matcher) {
		if a != nil {
			m.aligner = a
		}
	}
}

// New builds a Matcher from the policy. A nil logger discards output.
func New(policy Policy, logger *slog.Logger, opts ...Option) (*Matcher, error) {
	policy = policy.normalized()
	cost, err := align.CostByName(policy.CostFunction, policy.CurvatureWeight)
	if err != nil {
		return nil, err
	}
	m := &Matcher{
		policy: policy,
		aligner: align.New(
			align.WithSamples(policy.Samples),
			align.WithBand(policy.Band),
			align.WithCost(cost),
			align.WithPenalty(policy.Penalty),
			align.WithRegistration(policy.Registration, policy.TrimFraction),
		),
		norm: normalize.Options{
			Anchor:        policy.Anchor,
			Size:          policy.SizeMeasure,
			CanonicalSize: policy.CanonicalSize,
		},
		categories: textutil.FoldSet(policy.Categories),
		logger:     logging.NewComponentLogger(logger, "matcher"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Policy returns the effective policy after defaults were applied.
func (m *Matcher) Policy() Policy {
	return m.policy
}

type job struct {
	position int
	entry    catalog.Entry
}

type workerOutput struct {
	results  []Result
	excluded []Exclusion
	// dropped is set when the worker discarded a job after cancellation.
	dropped bool
}

// Match compares query against every entry and returns the ranked run.
//
// An invalid query fails with an error wrapping contour.ErrInvalidContour and
// nothing is ranked. Entries that cannot be scored are reported in
// Run.Excluded. When ctx is cancelled the entries finished so far are ranked
// and returned with Run.Cancelled set and a nil error. The query identifier
// recorded on the run is taken from logging.WithQueryID.
func (m *Matcher) Match(ctx context.Context, query *contour.Contour, entries iter.Seq[catalog.Entry]) (*Run, error) {
	start := time.Now()
	run := &Run{ID: uuid.NewString()}
	run.QueryID, _ = logging.QueryID(ctx)
	ctx = logging.WithRunID(ctx, run.ID)
	logger := logging.WithContext(ctx, m.logger)

	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("query contour: %w", err)
	}
	if entries == nil {
		entries = catalog.Entries(nil)
	}

	logger.Debug("match run started",
		logging.Args(logging.Int("workers", m.policy.Workers), logging.Int("samples", m.policy.Samples))...)

	jobs := make(chan job)
	outputs := make([]workerOutput, m.policy.Workers)
	var wg sync.WaitGroup
	for w := range m.policy.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := &outputs[w]
			for j := range jobs {
				if ctx.Err() != nil {
					out.dropped = true
					continue
				}
				result, exclusion := m.evaluate(query, j)
				if exclusion != nil {
					out.excluded = append(out.excluded, *exclusion)
					continue
				}
				out.results = append(out.results, result)
			}
		}()
	}

	scanned, skipped, stopped := m.produce(ctx, entries, jobs)
	wg.Wait()

	run.Scanned = scanned
	run.Skipped = skipped
	run.Cancelled = stopped
	for _, out := range outputs {
		run.Results = append(run.Results, out.results...)
		run.Excluded = append(run.Excluded, out.excluded...)
		run.Cancelled = run.Cancelled || out.dropped
	}
	rank(run.Results)
	slices.SortFunc(run.Excluded, func(a, b Exclusion) int { return cmp.Compare(a.Position, b.Position) })
	run.Elapsed = time.Since(start)

	for _, ex := range run.Excluded {
		logging.WarnWithContext(logger, "catalog entry excluded", "catalog_entry_excluded",
			logging.String(logging.FieldIndividualID, ex.IndividualID),
			logging.String("reason", ex.Reason),
			logging.Error(ex.Err),
			logging.String(logging.FieldErrorHint, "re-trace the outline or fix its landmarks"),
			logging.String(logging.FieldImpact, "individual omitted from ranking"),
		)
	}
	if run.Cancelled {
		logging.WarnWithContext(logger, "match run cancelled", "match_cancelled",
			logging.Int("ranked", len(run.Results)),
			logging.String(logging.FieldImpact, "results cover only part of the catalog"),
			logging.String(logging.FieldErrorHint, "re-run the match to rank the full catalog"),
		)
	}
	logger.Info("match run complete", logging.Args(
		logging.Int("results", len(run.Results)),
		logging.Int("excluded", len(run.Excluded)),
		logging.Int("skipped", run.Skipped),
		logging.Duration("elapsed", run.Elapsed),
	)...)
	return run, nil
}

// produce numbers entries in catalog order and feeds the workers until the
// catalog is exhausted or ctx is cancelled. stopped reports that entries were
// left unread or unsent. It closes jobs before returning.
func (m *Matcher) produce(ctx context.Context, entries iter.Seq[catalog.Entry], jobs chan<- job) (scanned, skipped int, stopped bool) {
	defer close(jobs)
	position := 0
	for entry := range entries {
		if ctx.Err() != nil {
			return scanned, skipped, true
		}
		scanned++
		pos := position
		position++
		if !m.wantCategory(entry.DamageCategory) {
			skipped++
			continue
		}
		select {
		case jobs <- job{position: pos, entry: entry}:
		case <-ctx.Done():
			return scanned, skipped, true
		}
	}
	return scanned, skipped, false
}

func (m *Matcher) wantCategory(category string) bool {
	if len(m.categories) == 0 {
		return true
	}
	_, ok := m.categories[textutil.Fold(category)]
	return ok
}

func (m *Matcher) evaluate(query *contour.Contour, j job) (Result, *Exclusion) {
	entry := j.entry
	exclude := func(err error) (Result, *Exclusion) {
		return Result{}, &Exclusion{
			IndividualID: entry.IndividualID,
			Position:     j.position,
			Reason:       ExclusionReason(err),
			Err:          err,
		}
	}
	if entry.Err != nil {
		return exclude(entry.Err)
	}
	if entry.Contour == nil {
		return exclude(fmt.Errorf("%w: entry has no outline", contour.ErrInvalidContour))
	}

	pair, err := normalize.Normalize(query, entry.Contour, m.norm)
	if err != nil {
		return exclude(err)
	}
	alignment, err := m.aligner.Align(pair)
	if err != nil {
		return exclude(err)
	}
	return Result{
		IndividualID:   entry.IndividualID,
		Name:           entry.Name,
		DamageCategory: entry.DamageCategory,
		ImageFilename:  entry.ImageFilename,
		Distance:       alignment.Distance,
		Position:       j.position,
		Penalized:      alignment.Penalized,
		Pair:           pair,
		Path:           alignment.Path,
	}, nil
}

// rank sorts by distance with catalog order breaking ties, assigns ranks
// and rescales distances into confidences.
func rank(results Results) {
	slices.SortFunc(results, func(a, b Result) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})

	worst := 0.0
	for _, r := range results {
		if !r.Penalized {
			worst = math.Max(worst, r.Distance)
		}
	}
	for i := range results {
		r := &results[i]
		r.Rank = i + 1
		switch {
		case r.Penalized:
			r.Confidence = 0
		case worst == 0:
			r.Confidence = 1
		default:
			r.Confidence = math.Min(1, math.Max(0, 1-r.Distance/worst))
		}
	}
}
