package flow

import "context"

// Interceptor observes a finished action and may substitute its result. An
// interceptor returning an error aborts the chain; the caller is expected
// to fail closed (revoke any session the tentative result carried and show
// a generic failure).
type Interceptor interface {
	// Applies reports whether the interceptor hooks the given action.
	Applies(action Action) bool
	// OnExecuted runs after the action produced its tentative result and
	// returns the (possibly replaced) result.
	OnExecuted(ctx context.Context, req *Request, res Result) (Result, error)
}

// Chain dispatches action results through the registered interceptors in
// registration order.
type Chain struct {
	interceptors []Interceptor
}

// NewChain builds a chain over the given interceptors.
func NewChain(interceptors ...Interceptor) *Chain {
	return &Chain{interceptors: interceptors}
}

// Register appends an interceptor. Not safe for concurrent use with
// Execute; register everything at startup.
func (c *Chain) Register(i Interceptor) {
	c.interceptors = append(c.interceptors, i)
}

// Execute runs every applicable interceptor over the tentative result,
// feeding each one the result produced by its predecessor.
func (c *Chain) Execute(ctx context.Context, req *Request, res Result) (Result, error) {
	for _, interceptor := range c.interceptors {
		if !interceptor.Applies(req.Action) {
			continue
		}
		next, err := interceptor.OnExecuted(ctx, req, res)
		if err != nil {
			return res, err
		}
		res = next
	}
	return res, nil
}
