package farm

import (
	"context"
	"io"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"

	"agri-smart/config"
	"agri-smart/logging"
	"agri-smart/store"
)

// Options configures a Manager.
type Options struct {
	Hasher     Hasher
	SignInPath string
	CostDays   int
	Rand       *rand.Rand // dashboard advice and demo series; nil seeds from the clock
	Logger     *zap.Logger
}

// Manager is a thin façade over the store, keeping CLI and HTTP code simple.
type Manager struct {
	kv  store.Store
	log *zap.Logger

	Identity    *IdentityStore
	Guard       *Guard
	Catalog     *Catalog
	Bookings    *Bookings
	Dashboard   *Dashboard
	Predictions *Predictions
}

// NewManager wires every component over kv. The Manager owns kv from here on.
func NewManager(kv store.Store, opts Options) *Manager {
	log := logging.OrNop(opts.Logger)
	if opts.SignInPath == "" {
		opts.SignInPath = "/auth.html"
	}
	ids := NewIdentityStore(kv, opts.Hasher, opts.SignInPath, log)
	return &Manager{
		kv:          kv,
		log:         log,
		Identity:    ids,
		Guard:       NewGuard(ids, opts.SignInPath),
		Catalog:     NewCatalog(kv, log),
		Bookings:    NewBookings(kv, opts.CostDays, log),
		Dashboard:   NewDashboard(kv, ids, opts.Rand, log),
		Predictions: NewPredictions(kv, log),
	}
}

// OpenManager opens the configured store and builds a Manager over it.
func OpenManager(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Manager, error) {
	kv, err := store.Open(ctx, store.Options{
		Backend:       cfg.Storage.Backend,
		Path:          cfg.Storage.Path,
		RedisAddr:     cfg.Storage.RedisAddr,
		RedisPassword: cfg.Storage.RedisPassword,
		RedisDB:       cfg.Storage.RedisDB,
		Namespace:     cfg.Storage.Namespace,
	})
	if err != nil {
		return nil, err
	}
	return NewManager(kv, Options{
		Hasher:     HasherFor(cfg.Auth),
		SignInPath: cfg.Auth.SignInPath,
		CostDays:   cfg.Booking.CostDays,
		Logger:     log,
	}), nil
}

// HasherFor returns the digest scheme named by cfg.Digest.
func HasherFor(cfg config.AuthConfig) Hasher {
	if strings.EqualFold(cfg.Digest, "legacy") {
		return LegacyHasher{}
	}
	return BcryptHasher{Cost: cfg.BcryptCost}
}

// Store exposes the underlying store for snapshot import and export.
func (m *Manager) Store() store.Store { return m.kv }

// Close closes the underlying store.
func (m *Manager) Close() error { return m.kv.Close() }

// Import loads a local-storage dump into the store, overwriting existing
// keys. Collections are validated lazily: an undecodable one is handled the
// same way as when it is corrupted in place.
func (m *Manager) Import(ctx context.Context, r io.Reader) ([]string, error) {
	keys, err := store.Import(ctx, m.kv, r)
	if err != nil {
		return nil, err
	}
	m.log.Info("imported snapshot", zap.Strings("keys", keys))
	return keys, nil
}

// ------------------ Identity helpers ------------------

func (m *Manager) Register(ctx context.Context, sess Session, name, email, password string) (*Account, error) {
	return m.Identity.Register(ctx, sess, name, email, password)
}

func (m *Manager) Authenticate(ctx context.Context, sess Session, email, password string) (*Account, error) {
	return m.Identity.Authenticate(ctx, sess, email, password)
}

func (m *Manager) CurrentAccount(ctx context.Context, sess Session) (*Account, error) {
	return m.Identity.CurrentAccount(ctx, sess)
}

func (m *Manager) EndSession(ctx context.Context, sess Session) (string, error) {
	return m.Identity.EndSession(ctx, sess)
}

func (m *Manager) RequireSession(ctx context.Context, sess Session) (*Account, error) {
	return m.Guard.RequireSession(ctx, sess)
}

// ------------------ Catalog and booking ------------------

// Listings loads the catalog and applies c.
func (m *Manager) Listings(ctx context.Context, c Criteria) ([]Listing, error) {
	all, err := m.Catalog.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(all, c), nil
}

func (m *Manager) Listing(ctx context.Context, id int64) (*Listing, error) {
	return m.Catalog.Get(ctx, id)
}

func (m *Manager) Book(ctx context.Context, sess Session, listingID int64, dates string) (*Booking, error) {
	return m.Bookings.Book(ctx, sess, listingID, dates)
}

func (m *Manager) AllBookings(ctx context.Context) ([]Booking, error) {
	return m.Bookings.List(ctx)
}

func (m *Manager) BookingsFor(ctx context.Context, email string) ([]Booking, error) {
	return m.Bookings.ListFor(ctx, email)
}

// ------------------ Dashboard and predictions ------------------

func (m *Manager) Overview(ctx context.Context, sess Session) (*Overview, error) {
	return m.Dashboard.Overview(ctx, sess)
}

func (m *Manager) GenerateAdvice(ctx context.Context) (string, error) {
	return m.Dashboard.GenerateAdvice(ctx)
}

// DemoPrediction perturbs the demo series with the dashboard's random source.
func (m *Manager) DemoPrediction() DemoPrediction {
	m.Dashboard.mu.Lock()
	defer m.Dashboard.mu.Unlock()
	return RunDemoPrediction(m.Dashboard.rng)
}

func (m *Manager) SavePrediction(ctx context.Context, crop, date string) (*SavedPrediction, error) {
	return m.Predictions.Save(ctx, crop, date)
}

func (m *Manager) SavedPredictions(ctx context.Context) ([]SavedPrediction, error) {
	return m.Predictions.List(ctx)
}
