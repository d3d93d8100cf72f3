package testdb

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/mathesar-foundation/testdb/internal/config"
	"github.com/mathesar-foundation/testdb/internal/db"
)

// DefaultAlias is the only alias a Session creates and destroys.
const DefaultAlias = config.DefaultAlias

// ErrNotSetUp is returned when the session database is used before setup succeeded.
var ErrNotSetUp = errors.New("test database not set up")

// SetupFunc creates the test databases; db.SetupDatabases by default.
type SetupFunc func(ctx context.Context, dbs map[string]config.DatabaseConfig, opts db.SetupOptions) (*db.Handle, error)

// TeardownFunc destroys what a SetupFunc created; db.TeardownDatabases by default.
type TeardownFunc func(ctx context.Context, h *db.Handle, opts db.TeardownOptions) error

// Runner runs the tests of a package. *testing.M satisfies it.
type Runner interface {
	Run() int
}

// Session owns the test database for one test process.
type Session struct {
	cfg        *config.Config
	loadOpts   config.LoadOptions
	logger     *log.Logger
	out        io.Writer
	verbosity  *int
	setupFn    SetupFunc
	teardownFn TeardownFunc

	blocker Blocker
	report  Report

	once      sync.Once
	handle    *db.Handle
	setupErr  error
	resolvedV int

	mu         sync.Mutex
	finalizers []func()
}

// Option configures a Session.
type Option func(*Session)

// WithConfig uses cfg instead of loading configuration from disk.
func WithConfig(cfg config.Config) Option {
	return func(s *Session) { s.cfg = &cfg }
}

// WithLoadOptions controls where configuration is loaded from.
func WithLoadOptions(opts config.LoadOptions) Option {
	return func(s *Session) { s.loadOpts = opts }
}

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithOutput sets where setup errors and the warnings summary are printed.
func WithOutput(w io.Writer) Option {
	return func(s *Session) { s.out = w }
}

// WithVerbosity fixes the verbosity instead of deriving it from the runner config.
func WithVerbosity(n int) Option {
	return func(s *Session) { s.verbosity = &n }
}

// WithSetupFunc replaces db.SetupDatabases.
func WithSetupFunc(fn SetupFunc) Option {
	return func(s *Session) { s.setupFn = fn }
}

// WithTeardownFunc replaces db.TeardownDatabases.
func WithTeardownFunc(fn TeardownFunc) Option {
	return func(s *Session) { s.teardownFn = fn }
}

// NewSession returns a session that has not been set up yet.
func NewSession(opts ...Option) *Session {
	s := &Session{
		out:        os.Stderr,
		setupFn:    db.SetupDatabases,
		teardownFn: db.TeardownDatabases,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sets up the test database, runs the tests with database access
// granted to all of them, then tears the database down. It returns the
// tests' exit code, or 1 when setup fails, in which case no test runs.
func (s *Session) Run(m Runner) int {
	ctx := context.Background()

	if _, err := s.SetUp(ctx); err != nil {
		s.log().Error("test database setup failed", "err", err)
		fmt.Fprintf(s.out, "testdb: %v\n", err)
		return 1
	}
	defer func() {
		s.Close()
		_ = s.report.WriteSummary(s.out)
	}()

	s.EnableAccessForAllTests()
	return m.Run()
}

// SetUp creates the default test database the first time it is called and
// returns the same handle and error on every later call. On success the
// teardown is registered as a session finalizer.
func (s *Session) SetUp(ctx context.Context) (*db.Handle, error) {
	s.once.Do(func() {
		h, err := s.setUp(ctx)
		s.mu.Lock()
		s.handle, s.setupErr = h, err
		s.mu.Unlock()
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle, s.setupErr
}

func (s *Session) setUp(ctx context.Context) (*db.Handle, error) {
	cfg, err := s.config()
	if err != nil {
		return nil, fmt.Errorf("loading test database config: %w", err)
	}
	verbosity, err := s.resolveVerbosity(cfg)
	if err != nil {
		return nil, err
	}
	s.resolvedV = verbosity
	logger := s.initLogger(cfg, verbosity)

	restore := s.blocker.Unblock()
	defer restore()

	h, err := s.setupFn(ctx, cfg.Databases, db.SetupOptions{
		Verbosity:   verbosity,
		Interactive: false,
		Aliases:     []string{DefaultAlias},
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("test database setup: %w", err)
	}

	s.AddFinalizer(func() { s.teardown(ctx, h, verbosity) })
	return h, nil
}

// teardown destroys the session databases. Errors and panics become warnings.
func (s *Session) teardown(ctx context.Context, h *db.Handle, verbosity int) {
	restore := s.blocker.Unblock()
	defer restore()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return s.teardownFn(ctx, h, db.TeardownOptions{Verbosity: verbosity, Logger: s.log()})
	}()
	if err == nil {
		return
	}

	w := s.report.Warn(CategoryTeardown, fmt.Sprintf("Error when trying to teardown test databases: %q", err.Error()))
	s.log().Warn(w.Message)
}

// AddFinalizer registers fn to run when the session closes. Finalizers run
// in reverse registration order.
func (s *Session) AddFinalizer(fn func()) {
	s.mu.Lock()
	s.finalizers = append(s.finalizers, fn)
	s.mu.Unlock()
}

// Close runs the registered finalizers. Each finalizer runs at most once.
func (s *Session) Close() {
	for {
		s.mu.Lock()
		n := len(s.finalizers)
		if n == 0 {
			s.mu.Unlock()
			return
		}
		fn := s.finalizers[n-1]
		s.finalizers = s.finalizers[:n-1]
		s.mu.Unlock()

		fn()
	}
}

// EnableAccessForAllTests unblocks database access until the session closes.
func (s *Session) EnableAccessForAllTests() {
	s.AddFinalizer(s.blocker.Unblock())
}

// Conn returns the default alias connection when setup succeeded and access is allowed.
func (s *Session) Conn() (*db.DB, error) {
	h := s.Handle()
	if h == nil {
		return nil, ErrNotSetUp
	}
	if err := s.blocker.Check(); err != nil {
		return nil, err
	}
	td, ok := h.Database(DefaultAlias)
	if !ok || td.Conn() == nil {
		return nil, fmt.Errorf("%w: no open connection for alias %q", ErrNotSetUp, DefaultAlias)
	}
	return td.Conn(), nil
}

// DB returns the default alias connection, failing t if it is unavailable.
func (s *Session) DB(t testing.TB) *db.DB {
	t.Helper()
	conn, err := s.Conn()
	if err != nil {
		t.Fatalf("testdb: %v", err)
	}
	return conn
}

// Handle returns the setup handle, or nil before a successful setup.
func (s *Session) Handle() *db.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// Blocker exposes the session access gate.
func (s *Session) Blocker() *Blocker { return &s.blocker }

// Verbosity returns the verbosity used for setup and teardown.
func (s *Session) Verbosity() int { return s.resolvedV }

// Warnings returns the warnings recorded so far.
func (s *Session) Warnings() []Warning { return s.report.Warnings() }

func (s *Session) config() (config.Config, error) {
	if s.cfg != nil {
		if err := config.Validate(*s.cfg); err != nil {
			return config.Config{}, err
		}
		return *s.cfg, nil
	}
	return config.Load(s.loadOpts)
}

func (s *Session) resolveVerbosity(cfg config.Config) (int, error) {
	if s.verbosity != nil {
		return *s.verbosity, nil
	}
	n, err := cfg.Runner.EffectiveVerbosity(goTestVerbose())
	if err != nil {
		return 0, fmt.Errorf("resolving verbosity: %w", err)
	}
	return n, nil
}

// goTestVerbose reports whether go test -v is in effect. TestMain runs
// before the testing flags are parsed, so parse them here if needed.
func goTestVerbose() bool {
	if flag.Lookup("test.v") == nil {
		return false
	}
	if !flag.Parsed() {
		flag.Parse()
	}
	return testing.Verbose()
}

func (s *Session) initLogger(cfg config.Config, verbosity int) *log.Logger {
	if s.logger != nil {
		return s.logger
	}
	level, err := log.ParseLevel(cfg.Runner.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	if verbosity >= 2 {
		level = log.DebugLevel
	}
	s.logger = log.NewWithOptions(os.Stderr, log.Options{
		Level:  level,
		Prefix: "testdb",
	})
	return s.logger
}

func (s *Session) log() *log.Logger {
	if s.logger == nil {
		s.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "testdb"})
	}
	return s.logger
}
