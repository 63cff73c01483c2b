package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/bodytrack/internal/adapters/http/api"
	"github.com/okian/bodytrack/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		statsProvider := &mockStatsProvider{stats: map[string]interface{}{"cycles": 3}}
		server := api.NewServer(statsProvider)
		mux := http.NewServeMux()
		server.Register(context.Background(), mux)

		Convey("When the health endpoint is requested", func() {
			metrics.RecordCycle(2)
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should expose the station metrics", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "bodytrack_station_cycles_total")
			})
		})

		Convey("When the stats endpoint is requested", func() {
			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should return the provider's stats", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got map[string]interface{}
				So(json.NewDecoder(w.Body).Decode(&got), ShouldBeNil)
				So(got["cycles"], ShouldEqual, 3)
			})
		})

		Convey("When an unknown path is requested", func() {
			req := httptest.NewRequest(http.MethodGet, "/events", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should not be found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestStatsHandler_HandleStats(t *testing.T) {
	Convey("Given a stats handler", t, func() {
		handler := api.NewStatsHandler(&mockStatsProvider{
			stats: map[string]interface{}{
				"cycles":   1000,
				"gestures": 150,
			},
		})

		Convey("When handling a GET", func() {
			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			w := httptest.NewRecorder()
			handler.HandleStats(w, req)

			Convey("Then it should return JSON stats", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
				var response map[string]interface{}
				So(json.NewDecoder(w.Body).Decode(&response), ShouldBeNil)
				So(response["cycles"], ShouldEqual, 1000)
				So(response["gestures"], ShouldEqual, 150)
			})
		})

		Convey("When handling a POST", func() {
			req := httptest.NewRequest(http.MethodPost, "/stats", strings.NewReader("{}"))
			w := httptest.NewRecorder()
			handler.HandleStats(w, req)

			Convey("Then it should be refused", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
				body, _ := io.ReadAll(w.Body)
				So(string(body), ShouldContainSubstring, "method_not_allowed")
			})
		})
	})
}

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a handler wrapped by the metrics middleware", t, func() {
		var called bool
		h := api.MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			called = true
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte("short and stout"))
		}, "teapot")

		Convey("When it serves a request", func() {
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest(http.MethodGet, "/teapot", nil))

			Convey("Then the wrapped handler's response should pass through", func() {
				So(called, ShouldBeTrue)
				So(w.Code, ShouldEqual, http.StatusTeapot)
				So(w.Body.String(), ShouldEqual, "short and stout")
			})
		})
	})
}
