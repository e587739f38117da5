// Package diagnostics carries per-request verbosity through context and
// forwards progress events to a pluggable sink.
package diagnostics

import "context"

type Field struct {
	Key   string
	Value any
}

func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Sink receives diagnostic events.
type Sink interface {
	Emit(ctx context.Context, event string, fields ...Field)
}

type verbosityKey struct{}

// WithVerbose returns a context whose diagnostics are enabled or disabled.
func WithVerbose(ctx context.Context, verbose bool) context.Context {
	return context.WithValue(ctx, verbosityKey{}, verbose)
}

// Suppress silences diagnostics for work done under the returned context.
// The parent context is unaffected.
func Suppress(ctx context.Context) context.Context {
	return WithVerbose(ctx, false)
}

func Verbose(ctx context.Context) bool {
	v, _ := ctx.Value(verbosityKey{}).(bool)
	return v
}

// Emitter gates events on the verbosity stored in the context.
type Emitter struct {
	sink Sink
}

func NewEmitter(sink Sink) Emitter {
	return Emitter{sink: sink}
}

func (e Emitter) Emit(ctx context.Context, event string, fields ...Field) {
	if e.sink == nil || !Verbose(ctx) {
		return
	}
	e.sink.Emit(ctx, event, fields...)
}
