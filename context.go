package goAccount

import "context"

type clientIPContextKey struct{}
type actorContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine keys the
// login and recovery budgets on it. Requests without an address share the
// "unknown" budget.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithActor attaches the authenticated caller's handle to ctx. The Engine
// re-reads the account on every privileged call, so admin rights and the
// enabled flag are never taken from the session alone.
func WithActor(ctx context.Context, handle string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor{handle: handle})
}

// WithOperator marks ctx as a trusted local operator (the admin CLI). An
// operator acts with administrator rights without owning an account.
func WithOperator(ctx context.Context) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor{operator: true})
}

type actor struct {
	handle   string
	operator bool
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func actorFromContext(ctx context.Context) (actor, bool) {
	if ctx == nil {
		return actor{}, false
	}

	a, ok := ctx.Value(actorContextKey{}).(actor)
	if !ok || (a.handle == "" && !a.operator) {
		return actor{}, false
	}
	return a, true
}
