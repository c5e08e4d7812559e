package codec

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metrics:
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestMetrics_Compiles(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCompiler(WithMetrics(NewMetricsWithRegistry(reg)))

	if _, err := PlanFor[point](c); err != nil {
		t.Fatal(err)
	}
	if _, err := PlanFor[point](c); err != nil {
		t.Fatal(err)
	}
	if _, err := PlanFor[struct{ C chan int }](c); err == nil {
		t.Fatal("expected compile error")
	}

	for result, want := range map[string]float64{"miss": 1, "hit": 1, "error": 1} {
		got := counterValue(t, reg, "wirecodec_plan_compiles_total", map[string]string{"result": result})
		if got != want {
			t.Errorf("compiles{result=%q} = %v, want %v", result, got, want)
		}
	}
}

func TestMetrics_FailuresAndBytes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCompiler(WithMetrics(NewMetricsWithRegistry(reg)))

	data, err := c.Marshal(point{X: 1, Y: 2})
	if err != nil {
		t.Fatal(err)
	}
	var out point
	if err := c.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if err := c.Unmarshal(data[:1], &out); err == nil {
		t.Fatal("expected EOF")
	}

	if got := counterValue(t, reg, "wirecodec_bytes_total", map[string]string{"direction": "encode"}); got != 4 {
		t.Errorf("encoded bytes = %v, want 4", got)
	}
	if got := counterValue(t, reg, "wirecodec_bytes_total", map[string]string{"direction": "decode"}); got != 4 {
		t.Errorf("decoded bytes = %v, want 4", got)
	}
	labels := map[string]string{"phase": "decode", "kind": "eof"}
	if got := counterValue(t, reg, "wirecodec_errors_total", labels); got != 1 {
		t.Errorf("decode eof errors = %v, want 1", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.compiled("hit")
	m.failed(nil)
	m.transferred("decode", 10)
}
