package metricsrv

import (
	"context"
	"encoding/json"
	"fastlog/internal/metrics"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testRegistry(t *testing.T) *metrics.Registry {
	t.Helper()

	registry := metrics.New()
	now := time.Now()
	timeSlice := registry.NewTimeSlice(now, 5*time.Second)
	registry.Add(timeSlice, []metrics.Metric{
		{
			Name:      "events_processed",
			Namespace: []string{"Runtime", "Drainer"},
			Type:      metrics.Counter,
			Timestamp: now,
			Value: metrics.MetricValue{
				Raw:  uint64(42),
				Unit: "count",
			},
		},
	})
	return registry
}

func TestHandleData(t *testing.T) {
	registry := testRegistry(t)
	server := SetupListener(context.Background(), 0, registry.Search, registry.Discover)

	tests := []struct {
		name       string
		url        string
		method     string
		wantStatus int
		wantError  bool
	}{
		{
			name:       "matching namespace",
			url:        "/data/Runtime/Drainer?name=events_processed",
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
		},
		{
			name:       "no results",
			url:        "/data/Nothing/Here",
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
			wantError:  true,
		},
		{
			name:       "bad start time",
			url:        "/data/Runtime?starttime=garbage",
			method:     http.MethodGet,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "post rejected",
			url:        "/data/Runtime",
			method:     http.MethodPost,
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(tt.method, tt.url, nil)
			recorder := httptest.NewRecorder()

			server.Handler.ServeHTTP(recorder, request)

			if recorder.Code != tt.wantStatus {
				t.Fatalf("status %d, want %d", recorder.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			if tt.wantError {
				var errBody Jerror
				if err := json.Unmarshal(recorder.Body.Bytes(), &errBody); err != nil || errBody.Msg == "" {
					t.Fatalf("expected error body, got %s", recorder.Body.String())
				}
				return
			}

			var results []metrics.JMetric
			if err := json.Unmarshal(recorder.Body.Bytes(), &results); err != nil {
				t.Fatalf("failed decoding response: %v", err)
			}
			if len(results) != 1 || results[0].Name != "events_processed" {
				t.Fatalf("unexpected results: %+v", results)
			}
		})
	}
}

func TestHandleDiscovery(t *testing.T) {
	registry := testRegistry(t)
	server := SetupListener(context.Background(), 0, registry.Search, registry.Discover)

	request := httptest.NewRequest(http.MethodGet, "/discover?name=events", nil)
	recorder := httptest.NewRecorder()

	server.Handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status %d, want %d", recorder.Code, http.StatusOK)
	}

	var results []metrics.JMetric
	if err := json.Unmarshal(recorder.Body.Bytes(), &results); err != nil {
		t.Fatalf("failed decoding response: %v", err)
	}
	if len(results) != 1 || results[0].Namespace != "Runtime/Drainer" {
		t.Fatalf("unexpected discovery results: %+v", results)
	}
}
