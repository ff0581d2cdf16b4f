package auth

import "context"

type contextKey struct{}

// ChildContext identifies the acting child on a request, populated by the
// session middleware.
type ChildContext struct {
	ChildID   int64
	SessionID int64
	Dev       bool
}

func WithChild(ctx context.Context, cc ChildContext) context.Context {
	return context.WithValue(ctx, contextKey{}, cc)
}

func FromContext(ctx context.Context) (ChildContext, bool) {
	cc, ok := ctx.Value(contextKey{}).(ChildContext)
	return cc, ok
}

func ChildID(ctx context.Context) int64 {
	cc, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return cc.ChildID
}
