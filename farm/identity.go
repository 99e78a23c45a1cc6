package farm

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"agri-smart/logging"
	"agri-smart/store"
)

// Session names the slot that holds the signed-in account's email. It is
// passed explicitly to every operation; two sessions with different slots are
// independent even over one store.
type Session struct {
	Slot string
}

// DefaultSession is the single browser-profile session.
var DefaultSession = Session{Slot: KeyCurrentUser}

func (s Session) slot() string {
	if s.Slot == "" {
		return KeyCurrentUser
	}
	return s.Slot
}

// IdentityStore owns registered accounts and session slots.
type IdentityStore struct {
	kv         store.Store
	hasher     Hasher
	signInPath string
	log        *zap.Logger
	now        func() time.Time
}

// NewIdentityStore uses hasher for new digests. signInPath is the redirect
// target handed back by EndSession.
func NewIdentityStore(kv store.Store, hasher Hasher, signInPath string, log *zap.Logger) *IdentityStore {
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	return &IdentityStore{
		kv:         kv,
		hasher:     hasher,
		signInPath: signInPath,
		log:        logging.OrNop(log).Named("identity"),
		now:        time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func findAccount(accounts []Account, email string) int {
	for i := range accounts {
		if strings.EqualFold(accounts[i].Email, email) {
			return i
		}
	}
	return -1
}

// Register creates an account and signs it in. It fails with ErrMissingField
// when any input is blank and with ErrDuplicateEmail when the email is taken.
func (s *IdentityStore) Register(ctx context.Context, sess Session, name, email, password string) (*Account, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingField
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	var acct Account
	err = s.kv.Update(ctx, func(tx store.Tx) error {
		accounts, _, err := loadList[Account](ctx, tx, KeyUsers, s.log)
		if err != nil {
			return err
		}
		if findAccount(accounts, email) >= 0 {
			return ErrDuplicateEmail
		}
		ids := make([]int64, len(accounts))
		for i, a := range accounts {
			ids[i] = a.ID
		}
		acct = Account{
			ID:           nextID(s.now(), ids),
			Name:         name,
			Email:        email,
			PasswordHash: digest,
			Profile:      Profile{Farm: "Unknown", Size: "Unknown"},
		}
		accounts = append(accounts, acct)
		if err := saveList(ctx, tx, KeyUsers, accounts); err != nil {
			return err
		}
		return tx.Set(ctx, sess.slot(), email)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("account registered", zap.String("email", email))
	return &acct, nil
}

// Authenticate signs in the account matching email and password, replacing
// whatever the session held before. A legacy checksum digest is upgraded to
// the configured hasher's digest in the same write.
func (s *IdentityStore) Authenticate(ctx context.Context, sess Session, email, password string) (*Account, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingField
	}

	var acct Account
	err := s.kv.Update(ctx, func(tx store.Tx) error {
		accounts, _, err := loadList[Account](ctx, tx, KeyUsers, s.log)
		if err != nil {
			return err
		}
		i := findAccount(accounts, email)
		if i < 0 || !verifyDigest(accounts[i].PasswordHash, password) {
			return ErrInvalidCredentials
		}

		if _, wantBcrypt := s.hasher.(bcryptProducer); wantBcrypt && !isBcrypt(accounts[i].PasswordHash) {
			digest, err := s.hasher.Hash(password)
			if err != nil {
				return err
			}
			accounts[i].PasswordHash = digest
			if err := saveList(ctx, tx, KeyUsers, accounts); err != nil {
				return err
			}
			s.log.Info("upgraded legacy credential digest", zap.String("email", accounts[i].Email))
		}

		acct = accounts[i]
		return tx.Set(ctx, sess.slot(), accounts[i].Email)
	})
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// CurrentAccount resolves the session to an account. A missing slot or an
// email that matches no account both yield ErrNoSession.
func (s *IdentityStore) CurrentAccount(ctx context.Context, sess Session) (*Account, error) {
	email, ok, err := s.kv.Get(ctx, sess.slot())
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(email) == "" {
		return nil, ErrNoSession
	}
	accounts, _, err := loadList[Account](ctx, s.kv, KeyUsers, s.log)
	if err != nil {
		return nil, err
	}
	i := findAccount(accounts, strings.TrimSpace(email))
	if i < 0 {
		s.log.Debug("session refers to unknown account", zap.String("email", email))
		return nil, ErrNoSession
	}
	acct := accounts[i]
	return &acct, nil
}

// EndSession clears the session unconditionally and returns the sign-in
// page the caller should navigate to.
func (s *IdentityStore) EndSession(ctx context.Context, sess Session) (string, error) {
	if err := s.kv.Delete(ctx, sess.slot()); err != nil {
		return "", err
	}
	return s.signInPath, nil
}

// Accounts lists every registered account in registration order.
func (s *IdentityStore) Accounts(ctx context.Context) ([]Account, error) {
	accounts, _, err := loadList[Account](ctx, s.kv, KeyUsers, s.log)
	return accounts, err
}

// sessionEmail reads the session slot inside a transaction and checks that
// it names a registered account.
func sessionEmail(ctx context.Context, tx store.Tx, sess Session, log *zap.Logger) (string, error) {
	email, ok, err := tx.Get(ctx, sess.slot())
	if err != nil {
		return "", err
	}
	email = strings.TrimSpace(email)
	if !ok || email == "" {
		return "", ErrNoSession
	}
	accounts, _, err := loadList[Account](ctx, tx, KeyUsers, log)
	if err != nil {
		return "", err
	}
	i := findAccount(accounts, email)
	if i < 0 {
		return "", ErrNoSession
	}
	return accounts[i].Email, nil
}
