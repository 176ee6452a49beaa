package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type gateSink struct {
	gate  chan struct{}
	count atomic.Int64
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
	s.count.Add(1)
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatalf("expected nil dispatcher when disabled")
	}
	// nil receiver methods must not panic
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	if d.Dropped() != 0 || d.Delivered() != 0 {
		t.Fatalf("expected zero counters on nil dispatcher")
	}
}

func TestDispatcherPreservesOrderAndFlushesOnClose(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "e", Metadata: map[string]string{"i": string(rune('0' + i))}})
	}
	d.Close()

	if d.Delivered() != 10 {
		t.Fatalf("expected 10 delivered, got %d", d.Delivered())
	}
	for i := 0; i < 10; i++ {
		ev := <-sink.Events()
		if ev.Metadata["i"] != string(rune('0'+i)) {
			t.Fatalf("event %d out of order: %v", i, ev.Metadata)
		}
	}
}

func TestDispatcherDropIfFullCountsDrops(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true, Logger: zap.New(core)}, sink)

	// One event is held by the worker, one fills the buffer, the rest drop.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "burst"})
	}
	deadline := time.Now().Add(time.Second)
	for d.Dropped() < 8 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if d.Dropped() < 8 {
		t.Fatalf("expected at least 8 dropped events, got %d", d.Dropped())
	}
	if logs.FilterMessage("audit buffer full, dropping events").Len() != 1 {
		t.Fatalf("expected exactly one drop warning")
	}

	close(sink.gate)
	d.Close()
	if got := uint64(sink.count.Load()) + d.Dropped(); got != 10 {
		t.Fatalf("delivered+dropped = %d, want 10", got)
	}
}

func TestDispatcherEmitAfterCloseIsNoop(t *testing.T) {
	sink := NewChannelSink(4)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	d.Close()
	d.Emit(context.Background(), Event{EventType: "late"})

	select {
	case ev := <-sink.Events():
		t.Fatalf("unexpected event after close: %+v", ev)
	default:
	}
}

func TestDispatcherBlockingEmitHonorsContext(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "held"})
	d.Emit(context.Background(), Event{EventType: "buffered"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	d.Emit(ctx, Event{EventType: "blocked"})
	if time.Since(start) > time.Second {
		t.Fatalf("emit did not return after context deadline")
	}
}

func TestJSONWriterSinkWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{EventType: "login_success", UserID: "u1", Success: true})
	sink.Emit(context.Background(), Event{EventType: "token_revoked", SessionID: "s1", Success: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var ev Event
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.EventType != "login_success" || ev.UserID != "u1" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestZapSinkLevels(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := NewZapSink(zap.New(core))

	sink.Emit(context.Background(), Event{EventType: "login_success", UserID: "u1", Success: true})
	sink.Emit(context.Background(), Event{EventType: "validate_failure", Error: "token_expired", Metadata: map[string]string{"reason": "exp"}})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != zap.InfoLevel || entries[0].Message != "login_success" {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Level != zap.WarnLevel {
		t.Fatalf("expected failed event at warn, got %v", entries[1].Level)
	}
	if entries[1].ContextMap()["meta.reason"] != "exp" {
		t.Fatalf("expected metadata field, got %v", entries[1].ContextMap())
	}
}
