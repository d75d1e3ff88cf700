// Package narrative turns a category into localized interpretation and
// recommendation text.
//
// The rule-based TemplateProvider is total over its catalog and always runs
// last in a Chain. Other providers are optional and best effort.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/okian/egrainsight/internal/domain/indicator"
	"github.com/okian/egrainsight/internal/domain/summary"
	"github.com/okian/egrainsight/internal/domain/threshold"
)

// TemplateProviderName identifies the rule-based provider.
const TemplateProviderName = "template"

// Context carries the values a template may interpolate.
type Context struct {
	Indicator string  `json:"indicator,omitempty"`
	Label     string  `json:"label,omitempty"`
	Subject   string  `json:"subject,omitempty"`
	Value     float64 `json:"value"`
	// Summary is required for the group scope.
	Summary *summary.GroupSummary `json:"summary,omitempty"`
}

// Request asks for the narrative of one category in one language.
type Request struct {
	Analysis threshold.Analysis `json:"analysis"`
	Category threshold.Category `json:"category"`
	Language string             `json:"language"`
	Scope    Scope              `json:"scope"`
	Context  Context            `json:"context"`
}

// Narrative is the produced text.
type Narrative struct {
	Interpretation string `json:"interpretation"`
	Recommendation string `json:"recommendation"`
	Language       string `json:"language"`
	Provider       string `json:"provider"`
}

// Provider produces narratives.
type Provider interface {
	Name() string
	Narrate(ctx context.Context, req Request) (Narrative, error)
}

// TemplateProvider renders narratives from a Catalog.
type TemplateProvider struct {
	catalog *Catalog
}

// NewTemplateProvider returns a provider backed by c, or by the default
// catalog when c is nil.
func NewTemplateProvider(c *Catalog) *TemplateProvider {
	if c == nil {
		c = DefaultCatalog()
	}
	return &TemplateProvider{catalog: c}
}

func (p *TemplateProvider) Name() string { return TemplateProviderName }

// Catalog returns the catalog the provider renders from.
func (p *TemplateProvider) Catalog() *Catalog { return p.catalog }

// Narrate renders the template for req. It fails with a
// *MissingTranslationError when the language has no entry.
func (p *TemplateProvider) Narrate(_ context.Context, req Request) (Narrative, error) {
	scope := req.Scope
	if scope == "" {
		scope = Subject
	}
	missing := &MissingTranslationError{
		Analysis:  req.Analysis,
		Scope:     scope,
		Category:  req.Category,
		Language:  req.Language,
		Indicator: req.Context.Indicator,
	}

	lang, err := Canonical(req.Language)
	if err != nil {
		return Narrative{}, missing
	}
	e, ok := p.catalog.lookup(entryKey{
		analysis:  req.Analysis,
		scope:     scope,
		category:  req.Category,
		language:  lang,
		indicator: req.Context.Indicator,
	})
	if !ok {
		missing.Language = lang
		return Narrative{}, missing
	}

	data, err := templateData(scope, lang, req.Context)
	if err != nil {
		return Narrative{}, err
	}
	interp, err := execute(e.interpretation, data)
	if err != nil {
		return Narrative{}, err
	}
	rec, err := execute(e.recommendation, data)
	if err != nil {
		return Narrative{}, err
	}
	return Narrative{Interpretation: interp, Recommendation: rec, Language: lang, Provider: TemplateProviderName}, nil
}

func templateData(scope Scope, lang string, c Context) (map[string]any, error) {
	label := c.Label
	if label == "" {
		label = c.Indicator
		if ind, err := indicator.Lookup(c.Indicator); err == nil {
			label = ind.Label(lang)
		}
	}
	if scope == Subject {
		return map[string]any{"Indicator": label, "Subject": c.Subject, "Value": c.Value}, nil
	}
	if c.Summary == nil {
		return nil, fmt.Errorf("%w: group scope needs a summary", ErrInvalidRequest)
	}
	g := c.Summary
	return map[string]any{
		"Indicator":  label,
		"Group":      g.Group,
		"Total":      g.Total,
		"Excluded":   g.Excluded,
		"Mode":       string(g.Mode),
		"Share":      g.Count(g.Mode).Percent,
		"Worst":      string(g.Worst),
		"WorstShare": g.Count(g.Worst).Percent,
		"Outliers":   len(g.Outliers),
	}, nil
}

func execute(t *template.Template, data map[string]any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRender, err)
	}
	return b.String(), nil
}

// PlaceholderProvider names narratives produced by Placeholder.
const PlaceholderProvider = "placeholder"

// Placeholder returns the visible stand-in shown when a narrative could not
// be produced, so the rest of a report stays usable.
func Placeholder(err error) Narrative {
	text := "[narrative unavailable]"
	var mt *MissingTranslationError
	if errors.As(err, &mt) {
		text = fmt.Sprintf("[missing %q translation for %s %s]", mt.Language, mt.Analysis, mt.Category)
	}
	return Narrative{Interpretation: text, Recommendation: text, Provider: PlaceholderProvider}
}
