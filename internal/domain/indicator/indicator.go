// Package indicator holds the catalog of EGRA and EGMA measures the engine
// knows how to interpret.
package indicator

import (
	"errors"
	"fmt"
	"sort"
)

// Domain is the assessment family an indicator belongs to.
type Domain string

const (
	Reading Domain = "reading" // EGRA
	Math    Domain = "math"    // EGMA
)

// Unit describes what an indicator value counts.
type Unit string

const (
	PerMinute Unit = "per_minute"
	Items     Unit = "items"
)

var (
	// ErrUnknown is returned for an identifier missing from the catalog.
	ErrUnknown = errors.New("unknown indicator")
	// ErrUnknownDomain is returned for a domain other than reading or math.
	ErrUnknownDomain = errors.New("unknown domain")
	// ErrNoBenchmark is returned when an indicator has no international standard.
	ErrNoBenchmark = errors.New("no international benchmark")
)

// ParseDomain validates a raw domain name.
func ParseDomain(s string) (Domain, error) {
	switch d := Domain(s); d {
	case Reading, Math:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDomain, s)
}

// Indicator is one measured skill.
type Indicator struct {
	ID     string `json:"id"`
	Domain Domain `json:"domain"`
	Unit   Unit   `json:"unit"`
	// HigherIsBetter holds for every shipped indicator.
	HigherIsBetter bool `json:"higher_is_better"`
	// Benchmark is the international standard for grades 2-3.
	Benchmark float64           `json:"benchmark"`
	Labels    map[string]string `json:"labels"`
}

// Label returns the display name for lang, or the identifier when the
// catalog has no label in that language.
func (i Indicator) Label(lang string) string {
	if l, ok := i.Labels[lang]; ok {
		return l
	}
	return i.ID
}

// PercentOfBenchmark expresses v as a percentage of the international
// standard. It reports false when the indicator has no benchmark.
func (i Indicator) PercentOfBenchmark(v float64) (float64, bool) {
	if i.Benchmark <= 0 {
		return 0, false
	}
	return v / i.Benchmark * 100, true
}

var catalog = map[string]Indicator{}

func register(id string, d Domain, u Unit, benchmark float64, en, fr, ar string) {
	catalog[id] = Indicator{
		ID:             id,
		Domain:         d,
		Unit:           u,
		HigherIsBetter: true,
		Benchmark:      benchmark,
		Labels:         map[string]string{"en": en, "fr": fr, "ar": ar},
	}
}

func init() {
	register("clpm", Reading, PerMinute, 40, "Correct Letters Per Minute", "Lettres Correctes Par Minute", "الحروف الصحيحة في الدقيقة")
	register("phoneme", Reading, Items, 8, "Phoneme Awareness", "Conscience Phonémique", "الوعي الصوتي")
	register("sound_word", Reading, Items, 18, "Correctly Read Words", "Mots Lus Correctement", "الكلمات المقروءة بشكل صحيح")
	register("cwpm", Reading, PerMinute, 45, "Correct Words Per Minute", "Mots Corrects Par Minute", "الكلمات الصحيحة في الدقيقة")
	register("listening", Reading, Items, 4, "Listening Comprehension", "Compréhension Orale", "فهم الاستماع")
	register("orf", Reading, PerMinute, 45, "Oral Reading Fluency", "Fluidité de Lecture Orale", "طلاقة القراءة الشفهية")
	register("comprehension", Reading, Items, 4, "Reading Comprehension", "Compréhension de Lecture", "فهم القراءة")

	register("number_id", Math, Items, 20, "Number Identification", "Identification des Nombres", "تحديد الأرقام")
	register("discrimin", Math, Items, 8, "Number Discrimination", "Discrimination des Nombres", "تمييز الأرقام")
	register("missing_number", Math, Items, 8, "Missing Number", "Nombre Manquant", "الرقم المفقود")
	register("addition", Math, Items, 16, "Addition", "Addition", "الجمع")
	register("subtraction", Math, Items, 14, "Subtraction", "Soustraction", "الطرح")
	register("problems", Math, Items, 4, "Word Problems", "Problèmes", "المسائل")
}

// Lookup returns the indicator with the given identifier.
func Lookup(id string) (Indicator, error) {
	i, ok := catalog[id]
	if !ok {
		return Indicator{}, fmt.Errorf("%w: %q", ErrUnknown, id)
	}
	return clone(i), nil
}

// All returns every indicator sorted by domain then identifier.
func All() []Indicator {
	out := make([]Indicator, 0, len(catalog))
	for _, i := range catalog {
		out = append(out, clone(i))
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Domain != out[b].Domain {
			return out[a].Domain > out[b].Domain // reading before math
		}
		return out[a].ID < out[b].ID
	})
	return out
}

// ByDomain returns the indicators of one domain, sorted by identifier.
func ByDomain(d Domain) []Indicator {
	var out []Indicator
	for _, i := range All() {
		if i.Domain == d {
			out = append(out, i)
		}
	}
	return out
}

func clone(i Indicator) Indicator {
	labels := make(map[string]string, len(i.Labels))
	for k, v := range i.Labels {
		labels[k] = v
	}
	i.Labels = labels
	return i
}
