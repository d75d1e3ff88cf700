// Package service provides the interpretation engine that implements
// the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/egrainsight/internal/domain/classifier"
	"github.com/okian/egrainsight/internal/domain/indicator"
	"github.com/okian/egrainsight/internal/domain/model"
	"github.com/okian/egrainsight/internal/domain/narrative"
	"github.com/okian/egrainsight/internal/domain/summary"
	"github.com/okian/egrainsight/internal/domain/threshold"
	"github.com/okian/egrainsight/pkg/logger"
	"github.com/okian/egrainsight/pkg/metrics"
)

const (
	defaultLanguage     = "en"
	defaultMaxBatchSize = 50_000
	// ungroupedKey names the single group of a batch without a group-by key.
	ungroupedKey = "all"
	// unassignedKey collects observations that lack the group-by key.
	unassignedKey = "unassigned"
)

// Service interprets observations against a threshold table.
// It holds no mutable state; every call is independent.
type Service struct {
	table           *threshold.Table
	narrator        narrative.Provider
	defaultLanguage string
	outlierDistance int
	maxBatchSize    int
	logger          logger.Logger
	now             func() time.Time
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithTable sets the threshold table.
func WithTable(t *threshold.Table) Option {
	return func(s *Service) {
		if t != nil {
			s.table = t
		}
	}
}

// WithNarrator sets the narrative provider, usually a narrative.Chain.
func WithNarrator(p narrative.Provider) Option {
	return func(s *Service) {
		if p != nil {
			s.narrator = p
		}
	}
}

// WithDefaultLanguage sets the language used when a request names none.
func WithDefaultLanguage(lang string) Option {
	return func(s *Service) {
		if lang != "" {
			s.defaultLanguage = lang
		}
	}
}

// WithOutlierDistance sets the outlier band distance of group summaries.
func WithOutlierDistance(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.outlierDistance = n
		}
	}
}

// WithMaxBatchSize caps the observations of one batch.
func WithMaxBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source of report timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a service with the default table and template narration.
func New(opts ...Option) *Service {
	s := &Service{
		table:           threshold.Default(),
		defaultLanguage: defaultLanguage,
		outlierDistance: 1,
		maxBatchSize:    defaultMaxBatchSize,
		logger:          logger.Nop(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.narrator == nil {
		s.narrator = narrative.NewChain(nil, narrative.WithChainLogger(s.logger))
	}
	return s
}

// TableVersion returns the version of the active threshold table.
func (s *Service) TableVersion() string { return s.table.Version() }

// Thresholds returns the specs of one analysis, or all specs when analysis
// is empty.
func (s *Service) Thresholds(_ context.Context, analysis string) ([]threshold.Spec, error) {
	if analysis == "" {
		return s.table.Specs(), nil
	}
	a, err := threshold.ParseAnalysis(analysis)
	if err != nil {
		return nil, err
	}
	return s.table.SpecsFor(a), nil
}

// Classify classifies one value.
func (s *Service) Classify(ctx context.Context, analysis, indicatorID string, v model.Value) (classifier.Result, error) {
	spec, err := s.lookup(ctx, analysis, indicatorID)
	if err != nil {
		return classifier.Result{}, err
	}
	res, err := classifier.ClassifyValue(v, spec)
	if err != nil {
		if errors.Is(err, classifier.ErrUndefinedCategory) {
			metrics.RecordExcluded(string(spec.Analysis), 1)
		}
		return classifier.Result{}, err
	}
	metrics.RecordClassification(string(spec.Analysis), string(res.Category))
	return res, nil
}

// Narrate produces the narrative of one category.
func (s *Service) Narrate(ctx context.Context, req narrative.Request) (narrative.Narrative, error) {
	if req.Language == "" {
		req.Language = s.defaultLanguage
	}
	if req.Scope == "" {
		req.Scope = narrative.Subject
	}
	return s.narrator.Narrate(ctx, req)
}

// Summarize rolls up the entries of one indicator into a single summary.
func (s *Service) Summarize(ctx context.Context, analysis, indicatorID string, entries []summary.Entry) (summary.GroupSummary, error) {
	spec, err := s.lookup(ctx, analysis, indicatorID)
	if err != nil {
		return summary.GroupSummary{}, err
	}
	g, err := summary.Summarize(spec, entries, summary.WithOutlierDistance(s.outlierDistance))
	if err != nil {
		return summary.GroupSummary{}, err
	}
	metrics.RecordSummary(string(spec.Analysis), g.InsufficientData, len(g.Outliers))
	return g, nil
}

// Indicators lists the indicator catalog, restricted to one domain unless
// domain is empty.
func (s *Service) Indicators(_ context.Context, domain string) ([]indicator.Indicator, error) {
	if domain == "" {
		return indicator.All(), nil
	}
	d, err := indicator.ParseDomain(domain)
	if err != nil {
		return nil, err
	}
	return indicator.ByDomain(d), nil
}

func (s *Service) lookup(ctx context.Context, analysis, indicatorID string) (threshold.Spec, error) {
	a, err := threshold.ParseAnalysis(analysis)
	if err != nil {
		return threshold.Spec{}, err
	}
	spec, err := s.table.Lookup(a, indicatorID)
	if err != nil {
		metrics.RecordUnknownIndicator(analysis)
		s.logger.Debug(ctx, "no thresholds configured",
			logger.String("analysis", analysis),
			logger.String("indicator", indicatorID))
		return threshold.Spec{}, err
	}
	return spec, nil
}

// Batch is one interpretation request.
type Batch = model.Batch

// Interpret classifies, narrates and summarizes a whole batch. Failures of
// one indicator are recorded in the report and never abort the others.
func (s *Service) Interpret(ctx context.Context, b Batch) (model.Report, error) {
	start := time.Now()
	switch {
	case len(b.Observations) == 0:
		return model.Report{}, ErrEmptyBatch
	case len(b.Observations) > s.maxBatchSize:
		return model.Report{}, fmt.Errorf("%w: %d observations, limit %d", ErrBatchTooLarge, len(b.Observations), s.maxBatchSize)
	}
	a, err := threshold.ParseAnalysis(b.Analysis)
	if err != nil {
		return model.Report{}, err
	}
	if b.RawScores && a != threshold.International {
		return model.Report{}, fmt.Errorf("%w: got %s", ErrRawScores, a)
	}
	lang := b.Language
	if lang == "" {
		lang = s.defaultLanguage
	}

	rep := model.Report{
		ID:           uuid.NewString(),
		Analysis:     a,
		Language:     lang,
		TableVersion: s.table.Version(),
		CreatedAt:    s.now().UTC(),
		Records:      []model.Record{},
		Groups:       []model.GroupRecord{},
		Excluded:     map[string]int{},
		Failures:     []model.Failure{},
	}

	order, byIndicator := splitByIndicator(b.Observations)
	for _, id := range order {
		spec, err := s.lookup(ctx, b.Analysis, id)
		if err != nil {
			rep.Failures = append(rep.Failures, model.Failure{Indicator: id, Code: CodeUnknownIndicator, Message: err.Error()})
			continue
		}
		if err := s.interpretIndicator(ctx, &rep, spec, b, byIndicator[id]); err != nil {
			code := CodeInternal
			switch {
			case errors.Is(err, threshold.ErrInvalidCategory):
				code = CodeInvalidCategory
			case errors.Is(err, indicator.ErrNoBenchmark):
				code = CodeNoBenchmark
			}
			rep.Failures = append(rep.Failures, model.Failure{Indicator: id, Code: code, Message: err.Error()})
			s.logger.Warn(ctx, "indicator failed", logger.String("indicator", id), logger.Error(err))
		}
	}

	elapsed := time.Since(start)
	metrics.RecordBatch(len(b.Observations), float64(elapsed.Microseconds())/1000)
	s.logger.Info(ctx, "batch interpreted",
		logger.String("report", rep.ID),
		logger.String("analysis", b.Analysis),
		logger.String("language", lang),
		logger.Int("observations", len(b.Observations)),
		logger.Int("records", len(rep.Records)),
		logger.Int("failures", len(rep.Failures)),
		logger.Bool("raw_scores", b.RawScores),
		logger.Duration("elapsed", elapsed))
	return rep, nil
}

func (s *Service) interpretIndicator(ctx context.Context, rep *model.Report, spec threshold.Spec, b Batch, obs []model.Observation) error {
	analysis := string(spec.Analysis)
	label := spec.Indicator
	ind, lookupErr := indicator.Lookup(spec.Indicator)
	if lookupErr == nil {
		label = ind.Label(rep.Language)
	}
	if b.RawScores && (lookupErr != nil || ind.Benchmark <= 0) {
		return fmt.Errorf("%w: %s", indicator.ErrNoBenchmark, spec.Indicator)
	}

	entries := make([]summary.Entry, 0, len(obs))
	records := make([]model.Record, 0, len(obs))
	excluded, unassigned := 0, 0
	for _, o := range obs {
		group, groupWarn := ungroupedKey, ""
		if b.GroupBy != "" {
			group = o.Groups[b.GroupBy]
			if group == "" {
				group = unassignedKey
				groupWarn = fmt.Sprintf("no %q group, summarized as %q", b.GroupBy, unassignedKey)
				unassigned++
			}
		}
		value, gap := o.Value, (*model.BenchmarkGap)(nil)
		if f, ok := o.Value.Float(); ok && b.RawScores {
			pct, _ := ind.PercentOfBenchmark(f)
			value = model.Of(pct)
			gap = &model.BenchmarkGap{Standard: ind.Benchmark, Percent: value, Gap: model.Of(f - ind.Benchmark)}
		}
		res, err := classifier.ClassifyValue(value, spec)
		if err != nil {
			if !errors.Is(err, classifier.ErrUndefinedCategory) {
				return err
			}
			excluded++
			entries = append(entries, summary.Entry{Subject: o.Subject, Group: group, Missing: true})
			continue
		}
		metrics.RecordClassification(analysis, string(res.Category))
		entries = append(entries, summary.Entry{Subject: o.Subject, Group: group, Category: res.Category})

		rec := model.Record{
			Subject:   o.Subject,
			Indicator: spec.Indicator,
			Label:     label,
			Value:     o.Value,
			Category:  res.Category,
			Band:      res.Band,
			Rank:      res.Rank,
			Benchmark: gap,
		}
		n, warn := s.narrateOrPlaceholder(ctx, narrative.Request{
			Analysis: spec.Analysis,
			Category: res.Category,
			Language: rep.Language,
			Scope:    narrative.Subject,
			Context:  narrative.Context{Indicator: spec.Indicator, Subject: o.Subject, Value: res.Value.V},
		})
		rec.Interpretation, rec.Recommendation = n.Interpretation, n.Recommendation
		rec.Warning = joinWarnings(groupWarn, warn)
		records = append(records, rec)
	}
	if unassigned > 0 {
		s.logger.Warn(ctx, "observations without group",
			logger.String("indicator", spec.Indicator),
			logger.String("group_by", b.GroupBy),
			logger.Int("count", unassigned))
	}

	groups, err := summary.GroupBy(spec, entries, summary.WithOutlierDistance(s.outlierDistance))
	if err != nil {
		return err
	}
	groupRecords := make([]model.GroupRecord, 0, len(groups))
	for i := range groups {
		g := groups[i]
		metrics.RecordSummary(analysis, g.InsufficientData, len(g.Outliers))
		gr := model.GroupRecord{Indicator: spec.Indicator, Label: label, Summary: g}
		if g.InsufficientData {
			gr.Warning = fmt.Sprintf("insufficient data: %d excluded", g.Excluded)
		} else {
			n, warn := s.narrateOrPlaceholder(ctx, narrative.Request{
				Analysis: spec.Analysis,
				Category: g.Mode,
				Language: rep.Language,
				Scope:    narrative.Group,
				Context:  narrative.Context{Indicator: spec.Indicator, Summary: &g},
			})
			gr.Interpretation, gr.Recommendation, gr.Warning = n.Interpretation, n.Recommendation, warn
		}
		groupRecords = append(groupRecords, gr)
	}

	metrics.RecordExcluded(analysis, excluded)
	rep.Excluded[spec.Indicator] = excluded
	rep.Records = append(rep.Records, records...)
	rep.Groups = append(rep.Groups, groupRecords...)
	return nil
}

// narrateOrPlaceholder never fails: a missing translation becomes visible
// placeholder text plus a warning.
func (s *Service) narrateOrPlaceholder(ctx context.Context, req narrative.Request) (narrative.Narrative, string) {
	n, err := s.narrator.Narrate(ctx, req)
	if err != nil {
		return narrative.Placeholder(err), err.Error()
	}
	return n, ""
}

func joinWarnings(warnings ...string) string {
	var out []string
	for _, w := range warnings {
		if w != "" {
			out = append(out, w)
		}
	}
	return strings.Join(out, "; ")
}

func splitByIndicator(obs []model.Observation) ([]string, map[string][]model.Observation) {
	var order []string
	by := map[string][]model.Observation{}
	for _, o := range obs {
		if _, ok := by[o.Indicator]; !ok {
			order = append(order, o.Indicator)
		}
		by[o.Indicator] = append(by[o.Indicator], o)
	}
	return order, by
}
