package device

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recordingLogger captures Info messages.
type recordingLogger struct {
	noopLogger
	mu    sync.Mutex
	infos []string
}

func (l *recordingLogger) Info(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, fmt.Sprint(append([]any{msg}, args...)...))
}

func TestRegistry_UpsertAndGet(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry(WithClock(clock.Now))

	rec := reg.Upsert("sensor-1", -65, Metadata{SourceIP: "10.0.0.7", Source: SourceTCP})

	if rec.Name != "sensor-1" || rec.RSSI != -65 {
		t.Errorf("Upsert() = %+v", rec)
	}
	if !rec.Active {
		t.Error("Upsert() should mark record active")
	}
	if !rec.LastSeen.Equal(clock.Now()) {
		t.Errorf("LastSeen = %v, want %v", rec.LastSeen, clock.Now())
	}

	got, ok := reg.Get("sensor-1")
	if !ok {
		t.Fatal("Get() did not find sensor-1")
	}
	if got != rec {
		t.Errorf("Get() = %+v, want %+v", got, rec)
	}
	if got.SourceIP != "10.0.0.7" || got.Source != SourceTCP {
		t.Errorf("metadata not stored: %+v", got)
	}

	if _, ok := reg.Get("missing"); ok {
		t.Error("Get() found a device that was never upserted")
	}
}

func TestRegistry_EmptyNameAccepted(t *testing.T) {
	reg := NewRegistry()
	reg.Upsert("", -40, Metadata{})

	if _, ok := reg.Snapshot()[""]; !ok {
		t.Error("empty device name should be stored")
	}
}

func TestRegistry_LastWriteWins(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry(WithClock(clock.Now))

	reg.Upsert("sensor-1", -65, Metadata{SourceIP: "10.0.0.7", Source: SourceTCP})
	clock.Advance(time.Second)
	reg.Upsert("sensor-1", -70, Metadata{SourceIP: "10.0.0.8", Source: SourceWeb})

	snap := reg.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Snapshot() has %d records, want 1", len(snap))
	}
	rec := snap["sensor-1"]
	if rec.RSSI != -70 {
		t.Errorf("RSSI = %d, want -70", rec.RSSI)
	}
	if rec.SourceIP != "10.0.0.8" || rec.Source != SourceWeb {
		t.Errorf("record not fully replaced: %+v", rec)
	}
	if !rec.LastSeen.Equal(clock.Now()) {
		t.Errorf("LastSeen = %v, want %v", rec.LastSeen, clock.Now())
	}
}

func TestRegistry_SnapshotIsCopy(t *testing.T) {
	reg := NewRegistry()
	reg.Upsert("sensor-1", -65, Metadata{})

	snap := reg.Snapshot()
	rec := snap["sensor-1"]
	rec.RSSI = 0
	snap["sensor-1"] = rec
	delete(snap, "sensor-1")
	snap["intruder"] = Record{Name: "intruder"}

	again := reg.Snapshot()
	if len(again) != 1 {
		t.Fatalf("Snapshot() has %d records after caller mutation, want 1", len(again))
	}
	if again["sensor-1"].RSSI != -65 {
		t.Errorf("RSSI = %d, want -65", again["sensor-1"].RSSI)
	}
}

func TestRegistry_ConcurrentDistinctDevices(t *testing.T) {
	const n = 200
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg.Upsert(fmt.Sprintf("dev-%03d", i), -i, Metadata{Source: SourceTCP})
		}(i)
	}
	wg.Wait()

	snap := reg.Snapshot()
	if len(snap) != n {
		t.Fatalf("Snapshot() has %d records, want %d", len(snap), n)
	}
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("dev-%03d", i)
		if snap[name].RSSI != -i {
			t.Errorf("%s RSSI = %d, want %d", name, snap[name].RSSI, -i)
		}
	}
	if reg.Count() != n {
		t.Errorf("Count() = %d, want %d", reg.Count(), n)
	}
}

func TestRegistry_ConcurrentReadersAndWriters(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				reg.Upsert(fmt.Sprintf("dev-%d", w), -i, Metadata{})
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = reg.Snapshot()
			}
		}()
	}
	wg.Wait()

	if got := len(reg.Snapshot()); got != 8 {
		t.Errorf("Snapshot() has %d records, want 8", got)
	}
}

func TestRegistry_PruneOnRead(t *testing.T) {
	clock := newFakeClock()
	logger := &recordingLogger{}
	reg := NewRegistry(WithClock(clock.Now), WithLifecycle(LifecyclePruneOnRead))
	reg.SetLogger(logger)

	reg.Upsert("old", -60, Metadata{})
	clock.Advance(20 * time.Second)
	reg.Upsert("fresh", -50, Metadata{})

	// old is exactly at the window edge: still present.
	clock.Advance(10 * time.Second)
	if _, ok := reg.Snapshot()["old"]; !ok {
		t.Fatal("record at exactly the staleness window should be kept")
	}

	clock.Advance(time.Second)
	snap := reg.Snapshot()
	if _, ok := snap["old"]; ok {
		t.Error("record older than the staleness window should be pruned")
	}
	if _, ok := snap["fresh"]; !ok {
		t.Error("fresh record should survive")
	}
	if reg.Count() != 1 {
		t.Errorf("Count() = %d after prune, want 1", reg.Count())
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.infos) != 1 {
		t.Fatalf("logged %d info entries, want 1: %v", len(logger.infos), logger.infos)
	}
}

func TestRegistry_PruneRefreshedDeviceSurvives(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry(WithClock(clock.Now))

	reg.Upsert("sensor-1", -60, Metadata{})
	clock.Advance(25 * time.Second)
	reg.Upsert("sensor-1", -61, Metadata{})
	clock.Advance(25 * time.Second)

	if _, ok := reg.Snapshot()["sensor-1"]; !ok {
		t.Error("refreshed record should not be pruned")
	}
}

func TestRegistry_GetDoesNotPrune(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry(WithClock(clock.Now))

	reg.Upsert("sensor-1", -60, Metadata{})
	clock.Advance(time.Minute)

	if _, ok := reg.Get("sensor-1"); !ok {
		t.Error("Get() should return stale records")
	}
	if reg.Count() != 1 {
		t.Errorf("Count() = %d, want 1", reg.Count())
	}
}

func TestRegistry_CustomStaleAfter(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry(WithClock(clock.Now), WithStaleAfter(5*time.Second))

	reg.Upsert("sensor-1", -60, Metadata{})
	clock.Advance(6 * time.Second)

	if len(reg.Snapshot()) != 0 {
		t.Error("record should be pruned with a 5s window")
	}
}

func TestRegistry_RetainForever(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry(WithClock(clock.Now), WithLifecycle(LifecycleRetainForever))

	reg.Upsert("sensor-1", -60, Metadata{})
	clock.Advance(24 * time.Hour)

	rec, ok := reg.Snapshot()["sensor-1"]
	if !ok {
		t.Fatal("retain-forever registry dropped a record")
	}
	if !rec.Active {
		t.Error("Active should stay true")
	}
	if reg.Lifecycle() != LifecycleRetainForever {
		t.Errorf("Lifecycle() = %v, want retain_forever", reg.Lifecycle())
	}
}

func TestRegistry_Observers(t *testing.T) {
	reg := NewRegistry()

	var order []string
	var got Record
	reg.AddObserver(ObserverFunc(func(rec Record) {
		order = append(order, "first")
		got = rec
	}))
	reg.AddObserver(ObserverFunc(func(Record) {
		order = append(order, "second")
	}))

	stored := reg.Upsert("sensor-1", -65, Metadata{Source: SourceMQTT})

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("observer order = %v", order)
	}
	if got != stored {
		t.Errorf("observer got %+v, want %+v", got, stored)
	}
}

func TestRegistry_ObserverCanReadRegistry(t *testing.T) {
	reg := NewRegistry()

	done := make(chan int, 1)
	reg.AddObserver(ObserverFunc(func(Record) {
		// Would deadlock if called with the lock held.
		done <- len(reg.Snapshot())
	}))

	reg.Upsert("sensor-1", -65, Metadata{})

	select {
	case n := <-done:
		if n != 1 {
			t.Errorf("observer saw %d records, want 1", n)
		}
	case <-time.After(time.Second):
		t.Fatal("observer did not run")
	}
}

func TestRegistry_ObserverPanicIsContained(t *testing.T) {
	reg := NewRegistry()

	called := false
	reg.AddObserver(ObserverFunc(func(Record) { panic("boom") }))
	reg.AddObserver(ObserverFunc(func(Record) { called = true }))

	reg.Upsert("sensor-1", -65, Metadata{})

	if !called {
		t.Error("second observer should still run after the first panics")
	}
	if reg.Count() != 1 {
		t.Error("update should be stored despite observer panic")
	}
}

func TestParseLifecycle(t *testing.T) {
	tests := []struct {
		input   string
		want    Lifecycle
		wantErr bool
	}{
		{"prune_on_read", LifecyclePruneOnRead, false},
		{"retain_forever", LifecycleRetainForever, false},
		{" Retain_Forever ", LifecycleRetainForever, false},
		{"", 0, true},
		{"both", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLifecycle(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidLifecycle) {
					t.Errorf("ParseLifecycle(%q) error = %v, want ErrInvalidLifecycle", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLifecycle(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseLifecycle(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got.String() != tt.want.String() {
				t.Errorf("String() mismatch")
			}
		})
	}
}

func TestQualityFor(t *testing.T) {
	tests := []struct {
		rssi int
		want string
	}{
		{-30, QualityExcellent},
		{-50, QualityExcellent},
		{-51, QualityGood},
		{-60, QualityGood},
		{-61, QualityFair},
		{-70, QualityFair},
		{-71, QualityPoor},
		{-80, QualityPoor},
		{-81, QualityVeryPoor},
		{-120, QualityVeryPoor},
	}

	for _, tt := range tests {
		if got := QualityFor(tt.rssi); got != tt.want {
			t.Errorf("QualityFor(%d) = %q, want %q", tt.rssi, got, tt.want)
		}
	}
}

func TestDistanceFor(t *testing.T) {
	tests := []struct {
		rssi int
		want float64
	}{
		{-20, 0.5},
		{-30, 0.5},
		{-31, 1.0},
		{-55, 2.0},
		{-65, 3.0},
		{-80, 4.0},
		{-95, 5.0},
	}

	for _, tt := range tests {
		if got := DistanceFor(tt.rssi); got != tt.want {
			t.Errorf("DistanceFor(%d) = %v, want %v", tt.rssi, got, tt.want)
		}
	}
}
