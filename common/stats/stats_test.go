package stats

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestPrecisionChange(t *testing.T) {
	stat := DefaultStatsReceiver().(*defaultStatsReceiver)
	if stat.precision != time.Nanosecond {
		t.Fatal("Default precision should be nanos.")
	}

	statp := stat.Precision(time.Millisecond).(*defaultStatsReceiver)
	if stat.precision != time.Nanosecond {
		t.Fatal("Default precision should still nanos.")
	}
	if statp.precision != time.Millisecond {
		t.Fatal("New stat precision should be millis.")
	}
}

func TestScopeChange(t *testing.T) {
	stat := DefaultStatsReceiver().(*defaultStatsReceiver)
	if len(stat.scope) != 0 {
		t.Fatal("Default scope should be empty.")
	}

	statp := stat.Scope("a/b", "c").(*defaultStatsReceiver)
	if len(stat.scope) != 0 {
		t.Fatal("Default scope should still empty.")
	}
	if len(statp.scope) != 2 || statp.scope[0] != "a_SLASH_b" || statp.scope[1] != "c" {
		t.Fatal("Invalid scope value: ", statp.scope)
	}
	if statp.scopedName("d") != "a_SLASH_b/c/d" {
		t.Fatal("Invalid scope name: " + statp.scopedName("d"))
	}

	// sibling scopes must not share a backing array
	x := statp.Scope("x").(*defaultStatsReceiver)
	y := statp.Scope("y").(*defaultStatsReceiver)
	if x.scopedName() != "a_SLASH_b/c/x" || y.scopedName() != "a_SLASH_b/c/y" {
		t.Fatal("Sibling scopes clobbered each other: ", x.scope, y.scope)
	}
}

func TestRegister(t *testing.T) {
	reg := NewFinagleStatsRegistry()
	if reg.GetOrRegister("counter", NewCounter()) == nil {
		t.Fatal("Registry did not save instrument")
	}
	if reg.GetOrRegister("gauge", NewGauge()) == nil {
		t.Fatal("Registry did not save instrument")
	}
	if reg.GetOrRegister("gaugeFloat", NewGaugeFloat()) == nil {
		t.Fatal("Registry did not save instrument")
	}
	if reg.GetOrRegister("latency", NewLatency()) == nil {
		t.Fatal("Registry did not save instrument")
	}
}

func TestMarshal(t *testing.T) {
	reg := NewFinagleStatsRegistry()
	reg.GetOrRegister("counter", NewCounter()).(Counter).Inc(1)
	reg.GetOrRegister("gauge", NewGauge()).(Gauge).Update(2)
	reg.GetOrRegister("latency", NewLatency()).(Latency).Record(5 * time.Nanosecond)
	reg.GetOrRegister("latency", NewLatency()).(Latency).Record(10 * time.Nanosecond)

	bytes, err := reg.(MarshalerPretty).MarshalJSONPretty()
	expected :=
		`{
  "counter": 1,
  "gauge": 2,
  "latency.avg": 7.5,
  "latency.count": 2,
  "latency.max": 10,
  "latency.min": 5,
  "latency.p50": 7.5,
  "latency.p90": 10,
  "latency.p95": 10,
  "latency.p99": 10,
  "latency.sum": 15
}`
	if string(bytes) != expected {
		t.Fatal("Wrong json marshal output: ", string(bytes), err)
	}
}

func TestRenderScoped(t *testing.T) {
	stat := DefaultStatsReceiver()
	stat.Scope("rank0").Counter(DtreeGetWorkCounter).Inc(3)
	stat.Scope("rank0").Counter(DtreeGetWorkCounter).Inc(1)

	var data map[string]float64
	if err := json.Unmarshal(stat.Render(false), &data); err != nil {
		t.Fatal(err)
	}
	if data["rank0/"+DtreeGetWorkCounter] != 4 {
		t.Fatal("Expected scoped counter of 4: ", data)
	}
}

func TestConcurrentLatency(t *testing.T) {
	stat := DefaultStatsReceiver().Precision(time.Microsecond)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				stat.Latency(DtreeGetWorkLatency_ns).Record(time.Microsecond)
			}
		}()
	}
	wg.Wait()
	if n := stat.Latency(DtreeGetWorkLatency_ns).Count(); n != 800 {
		t.Fatal("Expected 800 samples, got ", n)
	}
}

func TestNilReceiver(t *testing.T) {
	stat := NilStatsReceiver().Scope("a")
	stat.Counter("c").Inc(1)
	stat.Latency("l").Record(time.Second)
	if string(stat.Render(true)) != "{}" {
		t.Fatal("Nil receiver should render empty")
	}
}
