package match_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"finmatch/internal/align"
	"finmatch/internal/catalog"
	"finmatch/internal/contour"
	"finmatch/internal/logging"
	"finmatch/internal/match"
	"finmatch/internal/normalize"
	"finmatch/internal/testsupport"
)

func newMatcher(t *testing.T, policy match.Policy) *match.Matcher {
	t.Helper()
	m, err := match.New(policy, nil)
	if err != nil {
		t.Fatalf("match.New: %v", err)
	}
	return m
}

func smallPolicy(workers int) match.Policy {
	p := match.DefaultPolicy()
	p.Workers = workers
	p.Samples = 40
	return p
}

func sampleCatalog(t *testing.T) []catalog.Entry {
	t.Helper()
	base := testsupport.Fin(t, 30, 0.1)
	return []catalog.Entry{
		testsupport.Entry("far", "Leading-Edge", testsupport.Fin(t, 30, 0.6)),
		testsupport.Entry("exact", "Tip-Nick", base),
		testsupport.Entry("near", "Tip-Nick", testsupport.Jitter(t, base, 0.05, 7)),
		testsupport.Entry("mid", "Notched", testsupport.Fin(t, 30, 0.3)),
		testsupport.Entry("triangle", "", testsupport.Triangle(t, 12)),
	}
}

func TestMatchRanksByDistance(t *testing.T) {
	query := testsupport.Fin(t, 30, 0.1)
	run, err := newMatcher(t, smallPolicy(3)).Match(context.Background(), query, catalog.Entries(sampleCatalog(t)))
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(run.Results) != 5 || len(run.Excluded) != 0 {
		t.Fatalf("expected 5 results and no exclusions, got %d/%d", len(run.Results), len(run.Excluded))
	}
	if run.Scanned != 5 || run.Skipped != 0 || run.Cancelled {
		t.Fatalf("unexpected run counters: %+v", run)
	}
	if run.ID == "" {
		t.Fatal("expected run id")
	}

	best := run.Results[0]
	if best.IndividualID != "exact" || best.Distance != 0 || best.Confidence != 1 || best.Position != 1 {
		t.Fatalf("unexpected best result: %+v", best)
	}
	for i, r := range run.Results {
		if r.Rank != i+1 {
			t.Fatalf("result %d has rank %d", i, r.Rank)
		}
		if i > 0 && r.Distance < run.Results[i-1].Distance {
			t.Fatalf("results not sorted at %d: %v < %v", i, r.Distance, run.Results[i-1].Distance)
		}
		if r.Confidence < 0 || r.Confidence > 1 || math.IsNaN(r.Distance) {
			t.Fatalf("result %s out of range: %+v", r.IndividualID, r)
		}
		if r.Pair.Unknown == nil || r.Pair.Database == nil || len(r.Path) == 0 {
			t.Fatalf("result %s missing pair or path", r.IndividualID)
		}
	}
	if last := run.Results[len(run.Results)-1]; last.Confidence != 0 {
		t.Fatalf("worst result should have zero confidence, got %v", last.Confidence)
	}
	if rank := run.Results.RankOf("near"); rank != 2 {
		t.Fatalf("jittered copy ranked %d, want 2", rank)
	}
}

func TestMatchBreaksTiesByCatalogPosition(t *testing.T) {
	base := testsupport.Fin(t, 30, 0.2)
	entries := []catalog.Entry{
		testsupport.Entry("zulu", "", testsupport.Fin(t, 30, 0.5)),
		testsupport.Entry("twin-b", "", base),
		testsupport.Entry("twin-a", "", base),
	}
	run, err := newMatcher(t, smallPolicy(4)).Match(context.Background(), base, catalog.Entries(entries))
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	got := []string{run.Results[0].IndividualID, run.Results[1].IndividualID}
	if diff := cmp.Diff([]string{"twin-b", "twin-a"}, got); diff != "" {
		t.Fatalf("tie order mismatch (-want +got):\n%s", diff)
	}
	if run.Results[0].Distance != run.Results[1].Distance {
		t.Fatalf("expected a tie, got %v and %v", run.Results[0].Distance, run.Results[1].Distance)
	}
}

func TestMatchIsDeterministicAcrossWorkerCounts(t *testing.T) {
	query := testsupport.Jitter(t, testsupport.Fin(t, 28, 0.15), 0.1, 3)
	var entries []catalog.Entry
	for i := range 24 {
		c := testsupport.Jitter(t, testsupport.Fin(t, 20+float64(i), float64(i%6)/10), 0.2, int64(i))
		entries = append(entries, testsupport.Entry(fmt.Sprintf("ind-%02d", i), "", c))
	}

	ignore := cmpopts.IgnoreFields(match.Result{}, "Pair")
	var want match.Results
	for _, workers := range []int{1, 2, 5, 16} {
		run, err := newMatcher(t, smallPolicy(workers)).Match(context.Background(), query, catalog.Entries(entries))
		if err != nil {
			t.Fatalf("Match with %d workers: %v", workers, err)
		}
		if want == nil {
			want = run.Results
			continue
		}
		if diff := cmp.Diff(want, run.Results, ignore); diff != "" {
			t.Fatalf("results differ with %d workers (-want +got):\n%s", workers, diff)
		}
	}
}

func TestMatchExcludesBrokenEntries(t *testing.T) {
	entries := sampleCatalog(t)
	entries = append(entries,
		catalog.Entry{IndividualID: "no-outline"},
		catalog.Entry{IndividualID: "corrupt", Err: errors.New("decode points_json: unexpected end of JSON input")},
		catalog.Entry{IndividualID: "bad-landmarks", Err: fmt.Errorf("rebuild outline: %w", contour.ErrInvalidContour)},
	)

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	m, err := match.New(smallPolicy(2), logger)
	if err != nil {
		t.Fatalf("match.New: %v", err)
	}
	run, err := m.Match(context.Background(), testsupport.Fin(t, 30, 0.1), catalog.Entries(entries))
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(run.Results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(run.Results))
	}

	got := make([][2]string, 0, len(run.Excluded))
	for _, ex := range run.Excluded {
		got = append(got, [2]string{ex.IndividualID, ex.Reason})
		if ex.Err == nil {
			t.Fatalf("exclusion %s has no error", ex.IndividualID)
		}
	}
	want := [][2]string{
		{"no-outline", match.ReasonInvalidContour},
		{"corrupt", match.ReasonLoadFailed},
		{"bad-landmarks", match.ReasonInvalidContour},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("exclusions mismatch (-want +got):\n%s", diff)
	}
	if run.Excluded[0].Position != 5 {
		t.Fatalf("expected catalog position 5, got %d", run.Excluded[0].Position)
	}

	if n := strings.Count(logs.String(), `"event_type":"catalog_entry_excluded"`); n != 3 {
		t.Fatalf("expected 3 exclusion warnings, got %d:\n%s", n, logs.String())
	}
	if !strings.Contains(logs.String(), `"component":"matcher"`) {
		t.Fatalf("missing component field:\n%s", logs.String())
	}
}

func TestMatchPenalizesDegenerateEdges(t *testing.T) {
	flat, err := contour.New(
		[]contour.Point{{X: 0, Y: 0}, {X: 5, Y: 10}, {X: 10, Y: 0}},
		contour.Features{BeginLE: 1, Tip: 1, EndLE: 1, Notch: 1, EndTE: 2},
	)
	if err != nil {
		t.Fatalf("contour.New: %v", err)
	}
	entries := []catalog.Entry{
		testsupport.Entry("degenerate", "", flat),
		testsupport.Entry("triangle", "", testsupport.Triangle(t, 11)),
		testsupport.Entry("exact", "", testsupport.Triangle(t, 10)),
	}
	policy := smallPolicy(2)
	policy.Penalty = 5000
	run, err := newMatcher(t, policy).Match(context.Background(), testsupport.Triangle(t, 10), catalog.Entries(entries))
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	last := run.Results[len(run.Results)-1]
	if last.IndividualID != "degenerate" || !last.Penalized || last.Distance != 5000 || last.Confidence != 0 {
		t.Fatalf("unexpected penalized result: %+v", last)
	}
	if first := run.Results[0]; first.IndividualID != "exact" || first.Confidence != 1 {
		t.Fatalf("unexpected best result: %+v", first)
	}
	if second := run.Results[1]; second.Confidence != 0 || second.Distance <= 0 {
		t.Fatalf("worst scored entry should have zero confidence, got %+v", second)
	}
	if stats := run.Results.Summary(); stats.Count != 2 || stats.Penalized != 1 {
		t.Fatalf("unexpected summary: %+v", stats)
	}
}

func TestMatchRejectsInvalidQuery(t *testing.T) {
	run, err := newMatcher(t, smallPolicy(1)).Match(context.Background(), nil, catalog.Entries(sampleCatalog(t)))
	if !errors.Is(err, contour.ErrInvalidContour) {
		t.Fatalf("expected ErrInvalidContour, got %v", err)
	}
	if run != nil {
		t.Fatalf("expected no run, got %+v", run)
	}
}

func TestMatchFiltersCategories(t *testing.T) {
	policy := smallPolicy(2)
	policy.Categories = []string{"tip-nick", " NOTCHED "}
	run, err := newMatcher(t, policy).Match(context.Background(), testsupport.Fin(t, 30, 0.1), catalog.Entries(sampleCatalog(t)))
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if run.Scanned != 5 || run.Skipped != 2 || len(run.Results) != 3 {
		t.Fatalf("unexpected counts: scanned=%d skipped=%d results=%d", run.Scanned, run.Skipped, len(run.Results))
	}
	for _, r := range run.Results {
		if r.IndividualID == "far" || r.IndividualID == "triangle" {
			t.Fatalf("filtered entry %s was ranked", r.IndividualID)
		}
	}
}

func TestMatchStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	entries := sampleCatalog(t)
	var stream iter.Seq[catalog.Entry] = func(yield func(catalog.Entry) bool) {
		for i, e := range entries {
			if i == 2 {
				cancel()
			}
			if !yield(e) {
				return
			}
		}
	}

	run, err := newMatcher(t, smallPolicy(1)).Match(ctx, testsupport.Fin(t, 30, 0.1), stream)
	if err != nil {
		t.Fatalf("cancellation should not be an error: %v", err)
	}
	if !run.Cancelled {
		t.Fatal("expected Cancelled")
	}
	if len(run.Results) >= len(entries) {
		t.Fatalf("expected a partial run, got %d results", len(run.Results))
	}
	for i, r := range run.Results {
		if r.Rank != i+1 {
			t.Fatalf("partial results not ranked: %+v", run.Results)
		}
	}
}

// cancelAfter cancels the run once it has aligned limit pairs.
type cancelAfter struct {
	inner  *align.Aligner
	limit  int32
	calls  atomic.Int32
	cancel context.CancelFunc
}

func (c *cancelAfter) Align(pair normalize.Pair) (align.Alignment, error) {
	result, err := c.inner.Align(pair)
	if c.calls.Add(1) == c.limit {
		c.cancel()
	}
	return result, err
}

func TestMatchCancelledAfterLastEntryIsComplete(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	entries := sampleCatalog(t)
	aligner := &cancelAfter{inner: align.New(align.WithSamples(40)), limit: int32(len(entries)), cancel: cancel}
	m, err := match.New(smallPolicy(1), nil, match.WithAligner(aligner))
	if err != nil {
		t.Fatalf("match.New: %v", err)
	}
	run, err := m.Match(ctx, testsupport.Fin(t, 30, 0.1), catalog.Entries(entries))
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if ctx.Err() == nil {
		t.Fatal("expected the context to be cancelled by the last alignment")
	}
	if run.Cancelled || len(run.Results) != len(entries) {
		t.Fatalf("run that scored every entry reported cancelled=%v with %d results", run.Cancelled, len(run.Results))
	}
}

// brokenAligner fails every pair whose catalog outline has three points.
type brokenAligner struct {
	inner *align.Aligner
}

func (b brokenAligner) Align(pair normalize.Pair) (align.Alignment, error) {
	if pair.Database.Len() == 3 {
		return align.Alignment{}, fmt.Errorf("%w: landmarks unusable", align.ErrAlignment)
	}
	return b.inner.Align(pair)
}

func TestMatchExcludesAlignmentFailures(t *testing.T) {
	m, err := match.New(smallPolicy(2), nil, match.WithAligner(brokenAligner{inner: align.New(align.WithSamples(40))}))
	if err != nil {
		t.Fatalf("match.New: %v", err)
	}
	run, err := m.Match(context.Background(), testsupport.Fin(t, 30, 0.1), catalog.Entries(sampleCatalog(t)))
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(run.Results) != 4 || len(run.Excluded) != 1 {
		t.Fatalf("expected 4 results and 1 exclusion, got %d/%d", len(run.Results), len(run.Excluded))
	}
	ex := run.Excluded[0]
	if ex.IndividualID != "triangle" || ex.Position != 4 || ex.Reason != match.ReasonAlignmentFailed {
		t.Fatalf("unexpected exclusion: %+v", ex)
	}
	if !errors.Is(ex.Err, align.ErrAlignment) {
		t.Fatalf("exclusion lost the alignment error: %v", ex.Err)
	}
	if run.Results.RankOf("triangle") != -1 {
		t.Fatal("excluded entry was ranked")
	}
}

func TestMatchAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	run, err := newMatcher(t, smallPolicy(4)).Match(ctx, testsupport.Fin(t, 30, 0.1), catalog.Entries(sampleCatalog(t)))
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if !run.Cancelled || len(run.Results) != 0 || run.Scanned != 0 {
		t.Fatalf("unexpected run: %+v", run)
	}
}

func TestMatchEmptyCatalog(t *testing.T) {
	run, err := newMatcher(t, smallPolicy(2)).Match(context.Background(), testsupport.Triangle(t, 10), nil)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(run.Results) != 0 || run.Cancelled {
		t.Fatalf("unexpected run: %+v", run)
	}
}

func TestNewRejectsUnknownCost(t *testing.T) {
	policy := match.DefaultPolicy()
	policy.CostFunction = "manhattan"
	if _, err := match.New(policy, nil); err == nil {
		t.Fatal("expected unknown cost function to fail")
	}
}

func TestResultsHelpers(t *testing.T) {
	results := match.Results{
		{IndividualID: "A-1", Distance: 1, Rank: 1},
		{IndividualID: "b-2", Distance: 2, Rank: 2},
		{IndividualID: "c-3", Distance: 3, Rank: 3},
		{IndividualID: "d-4", Distance: 1e6, Rank: 4, Penalized: true},
	}
	if rank := results.RankOf("a-1"); rank != 1 {
		t.Fatalf("RankOf(a-1) = %d", rank)
	}
	if rank := results.RankOf("B-2"); rank != 2 {
		t.Fatalf("RankOf(B-2) = %d", rank)
	}
	if rank := results.RankOf("zz"); rank != -1 {
		t.Fatalf("RankOf(zz) = %d", rank)
	}
	if top := results.Top(2); len(top) != 2 || top[1].IndividualID != "b-2" {
		t.Fatalf("unexpected Top(2): %+v", top)
	}
	if all := results.Top(0); len(all) != 4 {
		t.Fatalf("Top(0) returned %d results", len(all))
	}

	want := match.Stats{Count: 3, Penalized: 1, Min: 1, Max: 3, Mean: 2, StdDev: 1}
	if diff := cmp.Diff(want, results.Summary(), cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

type classifiedError struct{}

func (classifiedError) Error() string           { return "image missing" }
func (classifiedError) ExclusionReason() string { return "image_missing" }

func TestExclusionReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("wrap: %w", contour.ErrInvalidContour), match.ReasonInvalidContour},
		{errors.New("disk"), match.ReasonLoadFailed},
		{fmt.Errorf("entry: %w", classifiedError{}), "image_missing"},
	}
	for _, tc := range tests {
		if got := match.ExclusionReason(tc.err); got != tc.want {
			t.Fatalf("ExclusionReason(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestWriteReport(t *testing.T) {
	query := testsupport.Fin(t, 30, 0.1)
	entries := []catalog.Entry{
		testsupport.Entry("NZ-001", "Tip-Nick", query),
		testsupport.Entry("NZ-002", "Notched", testsupport.Fin(t, 30, 0.4)),
		{IndividualID: "NZ-003", Err: errors.New("decode points_json: bad")},
	}
	ctx := logging.WithQueryID(context.Background(), "nz-001")
	run, err := newMatcher(t, smallPolicy(2)).Match(ctx, query, catalog.Entries(entries))
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if run.QueryID != "nz-001" {
		t.Fatalf("QueryID = %q", run.QueryID)
	}

	var buf bytes.Buffer
	if err := match.WriteReport(&buf, run); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Results for ID: nz-001\n",
		"The ID is ranked 1\n",
		"Run: " + run.ID + "\n",
		" Rank\tError\tID\tDBPosit\tunkBegin\tunkTip\tunkEnd\tdbBegin\tdbTip\tdbEnd\tDamage\n",
		"  1\t0.00\tNZ-001\t1\t0\t20\t39\t0\t20\t39\tTip-Nick\n",
		"\tNZ-002\t2\t0\t20\t39\t0\t20\t39\tNotched\n",
		"  NZ-003\t3\tload_failed\t",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteReportUnknownID(t *testing.T) {
	run := &match.Run{ID: "r1", QueryID: "ghost"}
	var buf bytes.Buffer
	if err := match.WriteReport(&buf, run); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	if !strings.Contains(buf.String(), "ID does not match any in the results list.") {
		t.Fatalf("unexpected report:\n%s", buf.String())
	}
}

func TestPolicyFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(3), testsupport.WithCategories("Tip-Nick"))
	cfg.Matching.Anchor = "notch"
	cfg.Matching.SizeMeasure = "extent"
	cfg.Matching.Registration = "trim_leading"
	cfg.Matching.TrimFraction = 0.15

	policy, err := match.PolicyFromConfig(cfg)
	if err != nil {
		t.Fatalf("PolicyFromConfig: %v", err)
	}
	if policy.Workers != 3 || policy.Anchor != contour.Notch || policy.Samples != cfg.Matching.Samples {
		t.Fatalf("unexpected policy: %+v", policy)
	}
	if policy.Registration != align.RegistrationTrimLeading || policy.TrimFraction != 0.15 {
		t.Fatalf("registration not carried over: %q %v", policy.Registration, policy.TrimFraction)
	}
	if diff := cmp.Diff([]string{"Tip-Nick"}, policy.Categories); diff != "" {
		t.Fatalf("categories mismatch (-want +got):\n%s", diff)
	}

	cfg.Matching.Registration = "optimal_tip"
	if _, err := match.PolicyFromConfig(cfg); err == nil {
		t.Fatal("expected unknown registration to fail")
	}
	cfg.Matching.Registration = "fixed"
	cfg.Matching.Anchor = "dorsal"
	if _, err := match.PolicyFromConfig(cfg); err == nil {
		t.Fatal("expected unknown anchor to fail")
	}
}
