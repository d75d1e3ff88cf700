package threshold

import "sync"

// DefaultVersion identifies the built-in table.
const DefaultVersion = "egra-egma-2024.1"

// groupMeanLow is the share of the mastery cut below which a group mean is low.
const groupMeanLow = 0.75

// mastery cut points: start of "developing" and start of "mastery".
var masteryCuts = map[string][2]float64{
	"clpm":           {31, 44},
	"phoneme":        {24, 41},
	"sound_word":     {30, 60},
	"cwpm":           {17, 29},
	"listening":      {50, 75},
	"orf":            {30, 50},
	"comprehension":  {50, 75},
	"number_id":      {49, 56},
	"discrimin":      {30, 60},
	"missing_number": {30, 60},
	"addition":       {6, 10},
	"subtraction":    {6, 10},
	"problems":       {30, 60},
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the built-in table.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := NewTable(DefaultVersion, defaultSpecs()...)
		if err != nil {
			panic("threshold: invalid default table: " + err.Error())
		}
		defaultTable = t
	})
	return defaultTable
}

func defaultSpecs() []Spec {
	var specs []Spec
	for id, c := range masteryCuts {
		specs = append(specs,
			Spec{Analysis: Mastery, Indicator: id, Cuts: []float64{c[0], c[1]}},
			// share of pupils scoring zero, in percent
			Spec{Analysis: ZeroScore, Indicator: id, Cuts: []float64{10, 20, 30}},
			// percent of the benchmark
			Spec{Analysis: Benchmark, Indicator: id, Cuts: []float64{50, 70, 90}},
			// percent of the international standard
			Spec{Analysis: International, Indicator: id, Cuts: []float64{70, 85, 100}},
			// mean score in percent
			Spec{Analysis: ScoreRange, Indicator: id, Cuts: []float64{30, 50, 70, 85}},
			// class or school mean against the mastery cut
			Spec{Analysis: GroupMean, Indicator: id, Cuts: []float64{groupMeanLow * c[1], c[1]}},
		)
	}
	// p-value of the Kruskal-Wallis and Mann-Whitney tests
	for _, id := range []string{"school_comparison", "gender_effect"} {
		specs = append(specs, Spec{Analysis: Significance, Indicator: id, Cuts: []float64{0.01, 0.05}})
	}
	for _, id := range []string{"egra", "egma"} {
		specs = append(specs, Spec{Analysis: Reliability, Indicator: id, Cuts: []float64{0.5, 0.6, 0.7, 0.8, 0.9}})
	}
	specs = append(specs,
		Spec{Analysis: EffectSize, Indicator: "mann_whitney_r", Cuts: []float64{0.1, 0.3, 0.5}},
		Spec{Analysis: Correlation, Indicator: "pearson_r", Cuts: []float64{0.3, 0.5}},
	)
	return specs
}
