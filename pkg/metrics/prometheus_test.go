package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPrometheus_ExposesCounters(t *testing.T) {
	p := NewPrometheus()
	p.IncCounter(MetricLookups, map[string]string{"kind": "point"}, 1)
	p.IncCounter(MetricLookups, map[string]string{"kind": "point"}, 2)
	p.IncCounter(MetricRefreshes, nil, 1)
	p.SetGauge(MetricPartitions, map[string]string{"container": "orders"}, 4)
	p.ObserveHistogram(MetricResolveSeconds, nil, 0.01)

	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()

	for _, want := range []string{
		`pkrouting_lookups_total{kind="point"} 3`,
		`pkrouting_refreshes_total 1`,
		`pkrouting_partitions{container="orders"} 4`,
		`pkrouting_resolve_seconds_count 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, body)
		}
	}
}

func TestOrNop(t *testing.T) {
	if _, ok := OrNop(nil).(Nop); !ok {
		t.Fatal("OrNop(nil) should return Nop")
	}
	p := NewPrometheus()
	if OrNop(p) != Collector(p) {
		t.Fatal("OrNop should keep a non-nil collector")
	}
}
