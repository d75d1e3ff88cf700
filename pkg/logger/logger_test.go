package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
	Get().Info(context.Background(), "test message", String("k", "v"))
}

func TestLoggerNamed(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	namedLogger := Named("test")
	if namedLogger == nil {
		t.Fatal("named logger is nil")
	}
	namedLogger.Info(context.Background(), "test message")
}

func TestLoggerWriter(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf, FormatJSON), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with a named child and fields", func() {
			Named("classifier").With(String("analysis", "zero_score")).Info(ctx, "classified",
				Float64("value", 25), Int("band", 2), Bool("magnitude", false))

			var entry map[string]any
			So(json.Unmarshal(buf.Bytes(), &entry), ShouldBeNil)

			Convey("Then every field is present", func() {
				So(entry["msg"], ShouldEqual, "classified")
				So(entry["component"], ShouldEqual, "classifier")
				So(entry["analysis"], ShouldEqual, "zero_score")
				So(entry["value"], ShouldEqual, float64(25))
				So(entry["band"], ShouldEqual, float64(2))
				So(entry["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level is raised to error", func() {
			So(SetLevelString("error"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Error(ctx, "shown")

			Convey("Then only the error is written", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
				So(buf.String(), ShouldContainSubstring, "shown")
			})
		})
	})

	Convey("Given invalid settings", t, func() {
		So(InitWithWriter(nil, FormatText), ShouldNotBeNil)
		So(InitWithWriter(&bytes.Buffer{}, "xml"), ShouldNotBeNil)
		err := SetLevelString("verbose")
		So(err, ShouldNotBeNil)
		So(strings.Contains(err.Error(), "verbose"), ShouldBeTrue)
	})

	Convey("Given a nop logger", t, func() {
		So(func() { Nop().Named("x").Warn(context.Background(), "dropped") }, ShouldNotPanic)
	})
}
