package farm

import (
	"context"
	"errors"
)

// Guard gates protected pages on an active session.
type Guard struct {
	ids        *IdentityStore
	signInPath string
}

func NewGuard(ids *IdentityStore, signInPath string) *Guard {
	return &Guard{ids: ids, signInPath: signInPath}
}

// RequireSession returns the signed-in account, or a *RedirectError to the
// sign-in page when there is none. The caller must stop on any error.
func (g *Guard) RequireSession(ctx context.Context, sess Session) (*Account, error) {
	acct, err := g.ids.CurrentAccount(ctx, sess)
	if errors.Is(err, ErrNoSession) {
		return nil, &RedirectError{Target: g.signInPath}
	}
	if err != nil {
		return nil, err
	}
	return acct, nil
}
