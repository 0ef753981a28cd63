package syncer

import "context"

// Token is the cancellation signal of one sync run. Logout cancels it and
// the run stops writing to the local store at the next check.
type Token struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func NewToken(parent context.Context) *Token {
	ctx, cancel := context.WithCancel(parent)
	return &Token{ctx: ctx, cancel: cancel}
}

func (t *Token) Cancel() {
	t.cancel()
}

// Err is non-nil once the token is cancelled.
func (t *Token) Err() error {
	return t.ctx.Err()
}

// Context is cancelled together with the token.
func (t *Token) Context() context.Context {
	return t.ctx
}
