package shared

import "context"

type (
	callerContextKey struct{}
	callerSinkKey    struct{}
)

// ContextWithCaller stores the authenticated caller in context and reports it
// to an enclosing sink, if any.
func ContextWithCaller(ctx context.Context, caller *Caller) context.Context {
	if sink, ok := ctx.Value(callerSinkKey{}).(**Caller); ok && sink != nil {
		*sink = caller
	}
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext extracts the caller from context.
func CallerFromContext(ctx context.Context) *Caller {
	caller, _ := ctx.Value(callerContextKey{}).(*Caller)
	return caller
}

// ContextWithCallerSink lets outer middleware learn the caller authenticated
// further down the chain. sink is written once authentication succeeds.
func ContextWithCallerSink(ctx context.Context, sink **Caller) context.Context {
	return context.WithValue(ctx, callerSinkKey{}, sink)
}
