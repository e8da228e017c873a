package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type blockingSink struct {
	gate    chan struct{}
	emitted atomic.Int64
}

func (s *blockingSink) Emit(context.Context, Event) {
	<-s.gate
	s.emitted.Add(1)
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestDispatcherDropIfFullCountsDrops(t *testing.T) {
	sink := &blockingSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "reset_requested"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops with a blocked sink and a one-slot buffer")
	}

	close(sink.gate)
	d.Close()
	d.Emit(context.Background(), Event{EventType: "after_close"})
}

func TestDispatcherCloseDeliversBuffered(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)

	for i := 0; i < 3; i++ {
		d.Emit(context.Background(), Event{EventType: "code_rejected"})
	}
	d.Close()

	got := 0
	for {
		select {
		case <-sink.Events():
			got++
			continue
		default:
		}
		break
	}
	if got != 3 {
		t.Fatalf("expected 3 delivered events, got %d", got)
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{EventType: "reset_requested", Success: true, FlowID: "f1"})
	sink.Emit(context.Background(), Event{EventType: "code_rejected", Error: "code_invalid"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	var ev Event
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatalf("invalid json line: %v", err)
	}
	if ev.EventType != "code_rejected" || ev.Error != "code_invalid" {
		t.Fatalf("unexpected decoded event %+v", ev)
	}
}

func TestSlogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	sink := NewSlogSink(logger)

	sink.Emit(context.Background(), Event{
		Timestamp: time.Unix(1_700_000_000, 0).UTC(),
		EventType: "code_rejected",
		FlowID:    "f1",
		Error:     "code_invalid",
		Metadata:  map[string]string{"attempts_used": "2"},
	})

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid slog output: %v", err)
	}
	if rec["level"] != "WARN" || rec["msg"] != "code_rejected" {
		t.Fatalf("unexpected record %v", rec)
	}
	if rec["attempts_used"] != "2" || rec["component"] != "reset_audit" {
		t.Fatalf("missing attributes in %v", rec)
	}
}
