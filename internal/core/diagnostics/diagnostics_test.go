package diagnostics

import (
	"context"
	"testing"
)

type sinkFake struct {
	events []string
}

func (s *sinkFake) Emit(_ context.Context, event string, _ ...Field) {
	s.events = append(s.events, event)
}

func TestEmitterRespectsVerbosity(t *testing.T) {
	sink := &sinkFake{}
	e := NewEmitter(sink)

	e.Emit(context.Background(), "quiet")
	verbose := WithVerbose(context.Background(), true)
	e.Emit(verbose, "loud")
	e.Emit(Suppress(verbose), "suppressed")
	e.Emit(verbose, "loud-again")

	if len(sink.events) != 2 || sink.events[0] != "loud" || sink.events[1] != "loud-again" {
		t.Fatalf("unexpected events: %v", sink.events)
	}
}

func TestEmitterNilSink(t *testing.T) {
	NewEmitter(nil).Emit(WithVerbose(context.Background(), true), "ignored")
}
