package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func run(stdin string, args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestThresholdsCommand(t *testing.T) {
	Convey("Given the thresholds command", t, func() {
		Convey("When listing the effect size specs", func() {
			out, err := run("", "thresholds", "-a", "effect_size")

			Convey("Then the magnitude spec is printed with a footer", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "mann_whitney_r")
				So(out, ShouldContainSubstring, "|v| 0.1, 0.3, 0.5")
				So(out, ShouldContainSubstring, "1 specs, table egra-egma-2024.1")
			})
		})

		Convey("When the analysis is unknown", func() {
			_, err := run("", "thresholds", "-a", "literacy")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestIndicatorsCommand(t *testing.T) {
	Convey("Given the indicators command", t, func() {
		Convey("When listing math indicators in French", func() {
			out, err := run("", "indicators", "-d", "math", "-l", "fr")

			Convey("Then each indicator is printed with its benchmark and label", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "Identification des Nombres")
				So(out, ShouldNotContainSubstring, "clpm")
				So(len(strings.Split(strings.TrimSpace(out), "\n")), ShouldEqual, 7)
			})
		})

		Convey("When the domain is unknown", func() {
			_, err := run("", "indicators", "-d", "science")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestClassifyCommand(t *testing.T) {
	Convey("Given the classify command", t, func() {
		Convey("When classifying a French zero-score share", func() {
			out, err := run("", "classify", "-a", "zero_score", "-i", "clpm", "-l", "fr", "30")

			Convey("Then category and narrative are printed", func() {
				So(err, ShouldBeNil)
				So(out, ShouldStartWith, "zero_score clpm = 30: critical")
				So(len(strings.Split(strings.TrimSpace(out), "\n")), ShouldEqual, 3)
			})
		})

		Convey("When the value cannot be parsed", func() {
			_, err := run("", "classify", "-a", "mastery", "-i", "orf", "lots")
			So(errors.Is(err, ErrUsage), ShouldBeTrue)
		})

		Convey("When the value is missing", func() {
			_, err := run("", "classify", "-a", "mastery", "-i", "orf", "missing")
			So(err, ShouldNotBeNil)
		})

		Convey("When the language has no templates", func() {
			out, err := run("", "classify", "-a", "mastery", "-i", "orf", "-l", "ar", "80")

			Convey("Then a placeholder is printed instead of failing", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, `[missing "ar" translation`)
			})
		})
	})
}

func TestNarrateCommand(t *testing.T) {
	Convey("Given the narrate command", t, func() {
		out, err := run("", "narrate", "-a", "mastery", "-c", "mastery", "-i", "orf", "--value", "55")
		So(err, ShouldBeNil)
		So(out, ShouldContainSubstring, "Confirmed mastery")

		_, err = run("", "narrate", "-a", "mastery", "-c", "mastery", "-l", "unsupported_language")
		So(err, ShouldNotBeNil)
	})
}

func TestInterpretCommand(t *testing.T) {
	batch := `{"analysis":"benchmark","group_by":"class","observations":[
		{"subject":"s1","indicator":"orf","value":95,"groups":{"class":"1A"}},
		{"subject":"s2","indicator":"orf","value":40,"groups":{"class":"1A"}},
		{"subject":"s3","indicator":"orf","value":null,"groups":{"class":"1A"}},
		{"subject":"s4","indicator":"spelling","value":12}]}`

	Convey("Given a batch on stdin", t, func() {
		Convey("When interpreting it as a table", func() {
			out, err := run(batch, "interpret", "-")

			Convey("Then groups, records and failures are listed", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "1A")
				So(out, ShouldContainSubstring, "2 records classified")
				So(out, ShouldContainSubstring, "failed spelling")
			})
		})

		Convey("When interpreting it as JSON", func() {
			out, err := run(batch, "interpret", "--json", "-")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, `"table_version": "egra-egma-2024.1"`)
		})

		Convey("When the input is not JSON", func() {
			_, err := run("observations", "interpret", "-")
			So(errors.Is(err, ErrUsage), ShouldBeTrue)
		})
	})

	Convey("Given raw international scores", t, func() {
		raw := `{"analysis":"international","observations":[
			{"subject":"s1","indicator":"cwpm","value":36},
			{"subject":"s2","indicator":"orf","value":50}]}`
		out, err := run(raw, "interpret", "--raw", "-")
		So(err, ShouldBeNil)
		So(out, ShouldContainSubstring, "1 of 2 below the international standard")

		_, err = run(batch, "interpret", "--raw", "-")
		So(err, ShouldNotBeNil)
	})

	Convey("Given a batch file", t, func() {
		path := filepath.Join(t.TempDir(), "batch.json")
		So(os.WriteFile(path, []byte(batch), 0o600), ShouldBeNil)

		out, err := run("", "interpret", path)
		So(err, ShouldBeNil)
		So(out, ShouldContainSubstring, "report ")
	})
}
