package narrative

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"text/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
	"gopkg.in/yaml.v3"

	"github.com/okian/egrainsight/internal/domain/threshold"
)

//go:embed templates.yaml
var defaultTemplates []byte

// Scope selects between one observation and a group summary.
type Scope string

const (
	Subject Scope = "subject"
	Group   Scope = "group"
)

// ParseScope validates a raw scope, defaulting to Subject.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "", Subject:
		return Subject, nil
	case Group:
		return Group, nil
	}
	return "", fmt.Errorf("%w: scope %q", ErrInvalidRequest, s)
}

// Text is the raw pair of template bodies.
type Text struct {
	Interpretation string `yaml:"interpretation"`
	Recommendation string `yaml:"recommendation"`
}

type scopeDoc map[threshold.Category]map[string]Text

type scopesDoc struct {
	Subject scopeDoc `yaml:"subject"`
	Group   scopeDoc `yaml:"group"`
}

type analysisDoc struct {
	scopesDoc  `yaml:",inline"`
	Indicators map[string]scopesDoc `yaml:"indicators"`
}

type catalogDoc struct {
	Version  string                             `yaml:"version"`
	Analyses map[threshold.Analysis]analysisDoc `yaml:"analyses"`
}

type entryKey struct {
	analysis  threshold.Analysis
	scope     Scope
	category  threshold.Category
	language  string
	indicator string
}

type entry struct {
	interpretation *template.Template
	recommendation *template.Template
}

// Catalog holds compiled templates. It is immutable after loading.
type Catalog struct {
	version   string
	entries   map[entryKey]entry
	languages []string
}

// Canonical reduces a language code to its base language ("FR-ca" -> "fr").
// A base the code does not state, as in "und" or "und-FR", is an error.
func Canonical(code string) (string, error) {
	tag, err := language.Parse(code)
	if err != nil {
		return "", err
	}
	base, conf := tag.Base()
	if conf != language.Exact || base.String() == "und" {
		return "", fmt.Errorf("no explicit base language in %q", code)
	}
	return base.String(), nil
}

// LoadCatalog parses and compiles a YAML template document.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var doc catalogDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	c := &Catalog{version: doc.Version, entries: map[entryKey]entry{}}
	langs := map[string]struct{}{}
	for a, ad := range doc.Analyses {
		vocab, err := threshold.Vocabulary(a)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
		}
		if err := c.add(a, "", ad.scopesDoc, vocab, langs); err != nil {
			return nil, err
		}
		for id, sd := range ad.Indicators {
			if err := c.add(a, id, sd, vocab, langs); err != nil {
				return nil, err
			}
		}
	}
	for l := range langs {
		c.languages = append(c.languages, l)
	}
	sort.Strings(c.languages)
	return c, nil
}

// LoadCatalogFile reads a template document from path.
func LoadCatalogFile(path string) (*Catalog, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates %s: %w", path, err)
	}
	return LoadCatalog(bytes.NewReader(bs))
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// DefaultCatalog returns the built-in English and French templates.
func DefaultCatalog() *Catalog {
	defaultOnce.Do(func() {
		c, err := LoadCatalog(bytes.NewReader(defaultTemplates))
		if err != nil {
			panic("narrative: invalid built-in templates: " + err.Error())
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

func (c *Catalog) add(a threshold.Analysis, indicator string, sd scopesDoc, vocab []threshold.Category, langs map[string]struct{}) error {
	for scope, cats := range map[Scope]scopeDoc{Subject: sd.Subject, Group: sd.Group} {
		for cat, byLang := range cats {
			if !contains(vocab, cat) {
				return fmt.Errorf("%w: %q is not a %s category", ErrInvalidCatalog, cat, a)
			}
			for code, text := range byLang {
				lang, err := Canonical(code)
				if err != nil || lang != strings.ToLower(code) {
					return fmt.Errorf("%w: language %q", ErrInvalidCatalog, code)
				}
				k := entryKey{analysis: a, scope: scope, category: cat, language: lang, indicator: indicator}
				e, err := compile(k, text)
				if err != nil {
					return err
				}
				c.entries[k] = e
				langs[lang] = struct{}{}
			}
		}
	}
	return nil
}

func compile(k entryKey, t Text) (entry, error) {
	var e entry
	if k.indicator == "" && (t.Interpretation == "" || t.Recommendation == "") {
		return e, fmt.Errorf("%w: %s/%s/%s/%s needs both bodies", ErrInvalidCatalog, k.analysis, k.scope, k.category, k.language)
	}
	funcs := funcMap(language.Make(k.language))
	name := fmt.Sprintf("%s/%s/%s/%s/%s", k.analysis, k.indicator, k.scope, k.category, k.language)
	var err error
	if t.Interpretation != "" {
		if e.interpretation, err = parse(name+"/interpretation", t.Interpretation, funcs); err != nil {
			return e, err
		}
	}
	if t.Recommendation != "" {
		if e.recommendation, err = parse(name+"/recommendation", t.Recommendation, funcs); err != nil {
			return e, err
		}
	}
	return e, nil
}

func parse(name, body string, funcs template.FuncMap) (*template.Template, error) {
	t, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return t, nil
}

func funcMap(tag language.Tag) template.FuncMap {
	return template.FuncMap{
		"num": func(v any) string {
			return message.NewPrinter(tag).Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
		},
		"pct": func(v float64) string {
			return message.NewPrinter(tag).Sprint(number.Percent(v/100, number.MaxFractionDigits(1)))
		},
		// p-values keep four decimals
		"pval": func(v float64) string {
			return message.NewPrinter(tag).Sprint(number.Decimal(v, number.MinFractionDigits(4), number.MaxFractionDigits(4)))
		},
	}
}

func contains(vocab []threshold.Category, c threshold.Category) bool {
	for _, v := range vocab {
		if v == c {
			return true
		}
	}
	return false
}

// Version returns the catalog version.
func (c *Catalog) Version() string { return c.version }

// Languages returns the languages with at least one template.
func (c *Catalog) Languages() []string { return append([]string(nil), c.languages...) }

// lookup resolves the bodies for k: the indicator-specific entry wins per
// body, the analysis-generic entry fills the rest. Languages never mix.
func (c *Catalog) lookup(k entryKey) (entry, bool) {
	generic, hasGeneric := c.entries[entryKey{analysis: k.analysis, scope: k.scope, category: k.category, language: k.language}]
	if k.indicator == "" {
		return generic, hasGeneric
	}
	specific, hasSpecific := c.entries[k]
	if !hasSpecific {
		return generic, hasGeneric
	}
	if specific.interpretation == nil {
		specific.interpretation = generic.interpretation
	}
	if specific.recommendation == nil {
		specific.recommendation = generic.recommendation
	}
	return specific, specific.interpretation != nil && specific.recommendation != nil
}
