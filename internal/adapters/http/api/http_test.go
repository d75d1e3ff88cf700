package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/egrainsight/internal/adapters/http/api"
	service "github.com/okian/egrainsight/internal/app"
	"github.com/okian/egrainsight/internal/domain/classifier"
	"github.com/okian/egrainsight/internal/domain/model"
	"github.com/okian/egrainsight/internal/domain/threshold"
	. "github.com/smartystreets/goconvey/convey"
)

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(service.New()).Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeBody(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	Convey("Given a registered server", t, func() {
		mux := newMux()

		Convey("Then /healthz reports ok", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decodeBody(w)["status"], ShouldEqual, "ok")
		})

		Convey("Then /metrics exposes the engine collectors after a request", func() {
			do(mux, http.MethodGet, "/healthz", "")
			w := do(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "egra_insight_http_requests_total")
		})
	})
}

func TestThresholdsEndpoint(t *testing.T) {
	Convey("Given a registered server", t, func() {
		mux := newMux()

		Convey("When listing one analysis", func() {
			w := do(mux, http.MethodGet, "/thresholds?analysis=correlation", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decodeBody(w)
			So(body["version"], ShouldNotBeBlank)
			So(len(body["specs"].([]any)), ShouldEqual, 1)
		})

		Convey("When the analysis is unknown", func() {
			w := do(mux, http.MethodGet, "/thresholds?analysis=literacy", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeBody(w)["code"], ShouldEqual, "unknown_analysis")
		})

		Convey("When using the wrong method", func() {
			w := do(mux, http.MethodPost, "/thresholds", "{}")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestIndicatorsEndpoint(t *testing.T) {
	Convey("Given a registered server", t, func() {
		mux := newMux()

		Convey("When listing the catalog", func() {
			w := do(mux, http.MethodGet, "/indicators", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			list := decodeBody(w)["indicators"].([]any)
			So(len(list), ShouldEqual, 13)
			first := list[0].(map[string]any)
			So(first["domain"], ShouldEqual, "reading")
			So(first["benchmark"], ShouldEqual, float64(40))
		})

		Convey("When filtering by domain", func() {
			w := do(mux, http.MethodGet, "/indicators?domain=math", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(len(decodeBody(w)["indicators"].([]any)), ShouldEqual, 6)

			w = do(mux, http.MethodGet, "/indicators?domain=science", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeBody(w)["code"], ShouldEqual, "unknown_domain")
		})

		Convey("When using the wrong method", func() {
			So(do(mux, http.MethodDelete, "/indicators", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestClassifyEndpoint(t *testing.T) {
	Convey("Given a registered server", t, func() {
		mux := newMux()

		Convey("When classifying a boundary value", func() {
			w := do(mux, http.MethodPost, "/classify", `{"analysis":"zero_score","indicator":"clpm","value":30}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decodeBody(w)["category"], ShouldEqual, "critical")
		})

		Convey("When the indicator is unknown", func() {
			w := do(mux, http.MethodPost, "/classify", `{"analysis":"benchmark","indicator":"spelling","value":30}`)
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeBody(w)["code"], ShouldEqual, "unknown_indicator")
		})

		Convey("When the value is null or absent", func() {
			w := do(mux, http.MethodPost, "/classify", `{"analysis":"benchmark","indicator":"orf","value":null}`)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(decodeBody(w)["code"], ShouldEqual, "undefined_category")

			w = do(mux, http.MethodPost, "/classify", `{"analysis":"benchmark","indicator":"orf"}`)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("When the body is malformed", func() {
			So(do(mux, http.MethodPost, "/classify", `{"analysis":`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/classify", `{"analysis":"benchmark","indicator":"orf","extra":1}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/classify", `{"indicator":"orf","value":1}`).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestNarrateEndpoint(t *testing.T) {
	Convey("Given a registered server", t, func() {
		mux := newMux()

		Convey("When narrating in French", func() {
			w := do(mux, http.MethodPost, "/narrate",
				`{"analysis":"mastery","category":"developing","language":"fr","context":{"indicator":"orf","value":42.5}}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decodeBody(w)
			So(body["interpretation"], ShouldContainSubstring, "42,5")
			So(body["provider"], ShouldEqual, "template")
		})

		Convey("When the language is unsupported", func() {
			w := do(mux, http.MethodPost, "/narrate",
				`{"analysis":"zero_score","category":"critical","language":"unsupported_language","context":{"indicator":"clpm","value":40}}`)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(decodeBody(w)["code"], ShouldEqual, "missing_translation")
		})

		Convey("When the scope is invalid", func() {
			w := do(mux, http.MethodPost, "/narrate", `{"analysis":"mastery","category":"mastery","scope":"school"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestSummarizeEndpoint(t *testing.T) {
	Convey("Given a registered server", t, func() {
		mux := newMux()

		Convey("When summarizing a class with an excluded pupil", func() {
			w := do(mux, http.MethodPost, "/summarize", `{"analysis":"mastery","indicator":"cwpm","group":"class-a",
				"entries":[{"subject":"a","category":"mastery"},{"subject":"b","category":"emerging"},
				{"subject":"c","category":"emerging"},{"subject":"d","category":null}]}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decodeBody(w)
			So(body["group"], ShouldEqual, "class-a")
			So(body["mode"], ShouldEqual, "emerging")
			So(body["excluded"], ShouldEqual, float64(1))
			So(body["outliers"], ShouldResemble, []any{"a"})
		})

		Convey("When summarizing nothing", func() {
			w := do(mux, http.MethodPost, "/summarize", `{"analysis":"mastery","indicator":"cwpm","entries":[]}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decodeBody(w)["insufficient_data"], ShouldEqual, true)
		})

		Convey("When a category is outside the bands", func() {
			w := do(mux, http.MethodPost, "/summarize", `{"analysis":"mastery","indicator":"cwpm","entries":[{"subject":"a","category":"meeting"}]}`)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(decodeBody(w)["code"], ShouldEqual, "invalid_category")
		})
	})
}

func TestInterpretEndpoint(t *testing.T) {
	Convey("Given a registered server", t, func() {
		mux := newMux()

		Convey("When interpreting a batch with one unknown indicator", func() {
			w := do(mux, http.MethodPost, "/interpret", `{"analysis":"benchmark","language":"en","observations":[
				{"subject":"s1","indicator":"orf","value":92},
				{"subject":"s2","indicator":"orf","value":null},
				{"subject":"s3","indicator":"spelling","value":10}]}`)
			So(w.Code, ShouldEqual, http.StatusOK)

			var rep model.Report
			So(json.Unmarshal(w.Body.Bytes(), &rep), ShouldBeNil)
			So(len(rep.Records), ShouldEqual, 1)
			So(rep.Records[0].Category, ShouldEqual, threshold.Meeting)
			So(rep.Excluded["orf"], ShouldEqual, 1)
			So(len(rep.Failures), ShouldEqual, 1)
			So(rep.Failures[0].Code, ShouldEqual, "unknown_indicator")
		})

		Convey("When interpreting raw scores against the international standard", func() {
			w := do(mux, http.MethodPost, "/interpret", `{"analysis":"international","raw_scores":true,"observations":[
				{"subject":"s1","indicator":"cwpm","value":36}]}`)
			So(w.Code, ShouldEqual, http.StatusOK)

			var rep model.Report
			So(json.Unmarshal(w.Body.Bytes(), &rep), ShouldBeNil)
			So(rep.Records[0].Category, ShouldEqual, threshold.Concerning)
			So(rep.Records[0].Benchmark.Standard, ShouldEqual, 45)
			So(rep.Records[0].Benchmark.Gap.V, ShouldAlmostEqual, -9, 1e-9)
		})

		Convey("When raw scores are sent for another analysis", func() {
			w := do(mux, http.MethodPost, "/interpret", `{"analysis":"mastery","raw_scores":true,"observations":[
				{"subject":"s1","indicator":"cwpm","value":36}]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeBody(w)["code"], ShouldEqual, "raw_scores_unsupported")
		})

		Convey("When the batch is empty", func() {
			w := do(mux, http.MethodPost, "/interpret", `{"analysis":"benchmark","observations":[]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeBody(w)["code"], ShouldEqual, "empty_batch")
		})
	})
}

type failingDeps struct{ *service.Service }

func (failingDeps) Classify(context.Context, string, string, model.Value) (classifier.Result, error) {
	return classifier.Result{}, errors.New("boom")
}

func TestUnexpectedErrors(t *testing.T) {
	Convey("Given dependencies failing with an unknown error", t, func() {
		mux := http.NewServeMux()
		api.NewServer(failingDeps{service.New()}).Register(context.Background(), mux)

		w := do(mux, http.MethodPost, "/classify", `{"analysis":"mastery","indicator":"orf","value":3}`)
		So(w.Code, ShouldEqual, http.StatusInternalServerError)
		So(decodeBody(w)["code"], ShouldEqual, "internal_error")
	})
}

func TestCORS(t *testing.T) {
	Convey("Given a CORS-wrapped mux", t, func() {
		h := api.CORS(newMux(), []string{"https://dashboard.example.org"})

		Convey("When a preflight arrives from an allowed origin", func() {
			req := httptest.NewRequest(http.MethodOptions, "/classify", http.NoBody)
			req.Header.Set("Origin", "https://dashboard.example.org")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "https://dashboard.example.org")
		})

		Convey("When no origins are configured the mux is returned as is", func() {
			mux := newMux()
			So(api.CORS(mux, nil), ShouldEqual, mux)
		})
	})
}
