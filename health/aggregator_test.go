package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func staticChecker(name string, result Result) Checker {
	return NewCheckerFunc(name, func(context.Context) Result {
		return result
	})
}

func TestAggregator_CheckAll(t *testing.T) {
	agg := NewAggregator()
	agg.Register("a", staticChecker("a", Healthy("ok")))
	agg.Register("b", staticChecker("b", Degraded("slow")))

	results := agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("CheckAll() returned %d results, want 2", len(results))
	}
	if results["a"].Status != StatusHealthy {
		t.Errorf("a = %+v, want healthy", results["a"])
	}
	if results["b"].Status != StatusDegraded {
		t.Errorf("b = %+v, want degraded", results["b"])
	}
	if results["a"].Timestamp.IsZero() {
		t.Error("timestamp should be populated")
	}
}

func TestAggregator_Check(t *testing.T) {
	agg := NewAggregator()
	agg.Register("store", staticChecker("store", Healthy("ok")))

	result, err := agg.Check(context.Background(), "store")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.Status != StatusHealthy {
		t.Errorf("Check() = %+v, want healthy", result)
	}

	if _, err := agg.Check(context.Background(), "missing"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check(missing) error = %v, want ErrCheckerNotFound", err)
	}
}

func TestAggregator_OverallStatus(t *testing.T) {
	agg := NewAggregator()

	tests := []struct {
		name    string
		results map[string]Result
		want    Status
	}{
		{"empty", map[string]Result{}, StatusHealthy},
		{"all healthy", map[string]Result{"a": Healthy("")}, StatusHealthy},
		{"one degraded", map[string]Result{"a": Healthy(""), "b": Degraded("")}, StatusDegraded},
		{"one unhealthy", map[string]Result{"a": Degraded(""), "b": Unhealthy("", nil)}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := agg.OverallStatus(tt.results); got != tt.want {
				t.Errorf("OverallStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregator_CheckTimeout(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond})
	agg.Register("stuck", NewCheckerFunc("stuck", func(context.Context) Result {
		time.Sleep(time.Second)
		return Healthy("late")
	}))

	results := agg.CheckAll(context.Background())
	result := results["stuck"]
	if result.Status != StatusUnhealthy {
		t.Errorf("stuck check = %+v, want unhealthy", result)
	}
	if !errors.Is(result.Error, ErrCheckTimeout) {
		t.Errorf("stuck check error = %v, want ErrCheckTimeout", result.Error)
	}
}
