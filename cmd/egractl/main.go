// Command egractl classifies and narrates EGRA/EGMA results from the
// command line without a running server.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	app "github.com/okian/egrainsight/internal/app"
	"github.com/okian/egrainsight/internal/domain/model"
	"github.com/okian/egrainsight/internal/domain/narrative"
	"github.com/okian/egrainsight/internal/domain/threshold"
	"github.com/okian/egrainsight/pkg/logger"
)

// ErrUsage reports invalid command line input.
var ErrUsage = errors.New("usage")

type options struct {
	thresholdsFile string
	templatesFile  string
	language       string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "egractl",
		Short:         "Interpret EGRA/EGMA assessment results",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.thresholdsFile, "thresholds", "", "YAML threshold overlay")
	root.PersistentFlags().StringVar(&opts.templatesFile, "templates", "", "YAML narrative template catalog")
	root.PersistentFlags().StringVarP(&opts.language, "language", "l", "en", "narrative language")

	root.AddCommand(
		newThresholdsCmd(opts),
		newIndicatorsCmd(opts),
		newClassifyCmd(opts),
		newNarrateCmd(opts),
		newInterpretCmd(opts),
	)
	return root
}

func (o *options) service() (*app.Service, error) {
	table := threshold.Default()
	if o.thresholdsFile != "" {
		t, err := threshold.LoadFile(o.thresholdsFile)
		if err != nil {
			return nil, err
		}
		table = t
	}
	catalog := narrative.DefaultCatalog()
	if o.templatesFile != "" {
		c, err := narrative.LoadCatalogFile(o.templatesFile)
		if err != nil {
			return nil, err
		}
		catalog = c
	}
	return app.New(
		app.WithTable(table),
		app.WithNarrator(narrative.NewChain(narrative.NewTemplateProvider(catalog))),
		app.WithDefaultLanguage(o.language),
		app.WithLogger(logger.Nop()),
	), nil
}

func newThresholdsCmd(opts *options) *cobra.Command {
	var analysis string
	cmd := &cobra.Command{
		Use:   "thresholds",
		Short: "List threshold specs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			specs, err := svc.Thresholds(cmd.Context(), analysis)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ANALYSIS\tINDICATOR\tCUTS\tBANDS")
			for _, s := range specs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Analysis, s.Indicator, formatCuts(s), joinBands(s.Bands))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s specs, table %s\n", humanize.Comma(int64(len(specs))), svc.TableVersion())
			return nil
		},
	}
	cmd.Flags().StringVarP(&analysis, "analysis", "a", "", "restrict to one analysis")
	return cmd
}

func newIndicatorsCmd(opts *options) *cobra.Command {
	var domain string
	cmd := &cobra.Command{
		Use:   "indicators",
		Short: "List the indicator catalog with international benchmarks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			list, err := svc.Indicators(cmd.Context(), domain)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INDICATOR\tDOMAIN\tUNIT\tBENCHMARK\tLABEL")
			for _, i := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", i.ID, i.Domain, i.Unit, humanize.Ftoa(i.Benchmark), i.Label(opts.language))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&domain, "domain", "d", "", "restrict to reading or math")
	return cmd
}

func newClassifyCmd(opts *options) *cobra.Command {
	var analysis, indicator string
	cmd := &cobra.Command{
		Use:   "classify VALUE",
		Short: "Classify one value and print its narrative",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseValue(args[0])
			if err != nil {
				return err
			}
			svc, err := opts.service()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			res, err := svc.Classify(ctx, analysis, indicator, v)
			if err != nil {
				return err
			}
			n, err := svc.Narrate(ctx, narrative.Request{
				Analysis: res.Key.Analysis,
				Category: res.Category,
				Language: opts.language,
				Context:  narrative.Context{Indicator: indicator, Value: res.Value.V},
			})
			if err != nil {
				n = narrative.Placeholder(err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s = %s: %s (band %d)\n", res.Key.Analysis, indicator, humanize.Ftoa(res.Value.V), res.Category, res.Band)
			fmt.Fprintln(out, n.Interpretation)
			fmt.Fprintln(out, n.Recommendation)
			return nil
		},
	}
	cmd.Flags().StringVarP(&analysis, "analysis", "a", "", "analysis type")
	cmd.Flags().StringVarP(&indicator, "indicator", "i", "", "indicator ID")
	_ = cmd.MarkFlagRequired("analysis")
	_ = cmd.MarkFlagRequired("indicator")
	return cmd
}

func newNarrateCmd(opts *options) *cobra.Command {
	var analysis, category, indicator string
	var value float64
	cmd := &cobra.Command{
		Use:   "narrate",
		Short: "Render the narrative of a category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := threshold.ParseAnalysis(analysis)
			if err != nil {
				return err
			}
			svc, err := opts.service()
			if err != nil {
				return err
			}
			n, err := svc.Narrate(cmd.Context(), narrative.Request{
				Analysis: a,
				Category: threshold.Category(category),
				Language: opts.language,
				Context:  narrative.Context{Indicator: indicator, Value: value},
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n.Interpretation)
			fmt.Fprintln(cmd.OutOrStdout(), n.Recommendation)
			return nil
		},
	}
	cmd.Flags().StringVarP(&analysis, "analysis", "a", "", "analysis type")
	cmd.Flags().StringVarP(&category, "category", "c", "", "category to narrate")
	cmd.Flags().StringVarP(&indicator, "indicator", "i", "", "indicator ID")
	cmd.Flags().Float64Var(&value, "value", 0, "observed value")
	_ = cmd.MarkFlagRequired("analysis")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newInterpretCmd(opts *options) *cobra.Command {
	var asJSON, raw bool
	cmd := &cobra.Command{
		Use:   "interpret FILE",
		Short: "Interpret a JSON batch of observations (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := readBatch(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if b.Language == "" {
				b.Language = opts.language
			}
			if raw {
				b.RawScores = true
			}
			svc, err := opts.service()
			if err != nil {
				return err
			}
			rep, err := svc.Interpret(cmd.Context(), b)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			return printReport(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	cmd.Flags().BoolVar(&raw, "raw", false, "values are raw scores to compare with the international benchmark")
	return cmd
}

func readBatch(stdin io.Reader, path string) (model.Batch, error) {
	var b model.Batch
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return b, err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return b, fmt.Errorf("%w: decode batch: %w", ErrUsage, err)
	}
	return b, nil
}

func printReport(out io.Writer, rep model.Report) error {
	fmt.Fprintf(out, "report %s (%s, %s)\n", rep.ID, rep.Analysis, rep.Language)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tINDICATOR\tPUPILS\tEXCLUDED\tMODE\tWORST\tOUTLIERS")
	for _, g := range rep.Groups {
		s := g.Summary
		mode := string(s.Mode)
		if s.InsufficientData {
			mode = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n", s.Group, g.Indicator,
			humanize.Comma(int64(s.Total)), humanize.Comma(int64(s.Excluded)), mode, s.Worst, len(s.Outliers))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s records classified\n", humanize.Comma(int64(len(rep.Records))))
	compared, below := 0, 0
	for _, r := range rep.Records {
		if r.Benchmark == nil {
			continue
		}
		compared++
		if gap, ok := r.Benchmark.Gap.Float(); ok && gap < 0 {
			below++
		}
	}
	if compared > 0 {
		fmt.Fprintf(out, "%s of %s below the international standard\n", humanize.Comma(int64(below)), humanize.Comma(int64(compared)))
	}
	for _, f := range rep.Failures {
		fmt.Fprintf(out, "failed %s: %s\n", f.Indicator, f.Message)
	}
	return nil
}

func parseValue(s string) (model.Value, error) {
	if strings.EqualFold(s, "missing") || s == "-" {
		return model.MissingValue(), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return model.Value{}, fmt.Errorf("%w: value %q: %w", ErrUsage, s, err)
	}
	return model.Of(f), nil
}

func formatCuts(s threshold.Spec) string {
	parts := make([]string, len(s.Cuts))
	for i, c := range s.Cuts {
		parts[i] = humanize.Ftoa(c)
	}
	out := strings.Join(parts, ", ")
	if s.Magnitude {
		out = "|v| " + out
	}
	return out
}

func joinBands(bands []threshold.Category) string {
	parts := make([]string, len(bands))
	for i, b := range bands {
		parts[i] = string(b)
	}
	return strings.Join(parts, " < ")
}

