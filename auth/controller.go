// Package auth owns the client session: login, refresh, inactivity expiry and
// logout. It is the only writer of the session store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-mvp-voting/activity"
	"github.com/jrsteele09/go-mvp-voting/backend"
	"github.com/jrsteele09/go-mvp-voting/identity"
	"github.com/jrsteele09/go-mvp-voting/internal/config"
	apperrors "github.com/jrsteele09/go-mvp-voting/internal/errors"
	"github.com/jrsteele09/go-mvp-voting/internal/utils"
	"github.com/jrsteele09/go-mvp-voting/sessionclock"
	"github.com/jrsteele09/go-mvp-voting/sessions"
	"github.com/jrsteele09/go-mvp-voting/token"
	"github.com/jrsteele09/go-mvp-voting/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRefreshThreshold = 5 * time.Minute
	DefaultInactivityWindow = 30 * time.Minute
	DefaultClockInterval    = time.Minute

	// DeadlinePersistStep is how far the inactivity deadline must move before
	// ExtendSession writes it back to the store.
	DeadlinePersistStep = time.Minute

	refreshKey = "refresh"
	bearerType = "Bearer"
)

// Authenticator is the backend's authentication surface.
type Authenticator interface {
	Login(ctx context.Context, req backend.LoginRequest) (*backend.AuthResponse, error)
	Register(ctx context.Context, req backend.RegisterRequest) (*backend.AuthResponse, error)
	RegisterAdmin(ctx context.Context, req backend.RegisterRequest) (*backend.AuthResponse, error)
	ExchangeIdentityToken(ctx context.Context, idToken string) (*backend.AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*backend.RefreshResponse, error)
}

// SessionClock schedules the periodic checks for one session generation.
type SessionClock interface {
	Start(generation uint64, checks sessionclock.Checks) error
	Stop(generation uint64)
}

// Controller is the auth state machine.
type Controller struct {
	api              Authenticator
	store            sessions.Store
	verifier         identity.Verifier
	clock            SessionClock
	ownsClock        bool
	tracker          *activity.Tracker
	logger           zerolog.Logger
	nowFunc          func() time.Time
	refreshThreshold time.Duration
	inactivityWindow time.Duration
	clockInterval    time.Duration

	mu         sync.Mutex
	state      State
	session    *sessions.Session
	generation uint64
	// persistedDeadline is the inactivity deadline last written to the store.
	persistedDeadline time.Time

	refreshGroup singleflight.Group

	hooksMu  sync.RWMutex
	onChange []func(Status)
	onLogout []func(reason error)
}

type Option func(*Controller)

func WithNowFunc(nowFunc func() time.Time) Option {
	return func(c *Controller) {
		c.nowFunc = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithRefreshThreshold(threshold time.Duration) Option {
	return func(c *Controller) {
		c.refreshThreshold = threshold
	}
}

func WithInactivityWindow(window time.Duration) Option {
	return func(c *Controller) {
		c.inactivityWindow = window
	}
}

// WithSessionConfig applies thresholds and the clock interval from configuration.
func WithSessionConfig(cfg config.SessionConfig) Option {
	return func(c *Controller) {
		c.refreshThreshold = cfg.GetRefreshThreshold()
		c.inactivityWindow = cfg.GetInactivityWindow()
		c.clockInterval = cfg.GetClockInterval()
	}
}

// WithClock replaces the gocron-backed session clock.
func WithClock(clock SessionClock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithIdentityVerifier verifies provider ID tokens locally before they are exchanged.
func WithIdentityVerifier(verifier identity.Verifier) Option {
	return func(c *Controller) {
		c.verifier = verifier
	}
}

func NewController(api Authenticator, store sessions.Store, options ...Option) (*Controller, error) {
	if api == nil {
		return nil, errors.New("[auth.NewController] authenticator is required")
	}
	if store == nil {
		store = sessions.NewMemoryStore()
	}

	c := &Controller{
		api:              api,
		store:            store,
		logger:           log.Logger,
		nowFunc:          time.Now,
		refreshThreshold: DefaultRefreshThreshold,
		inactivityWindow: DefaultInactivityWindow,
		clockInterval:    DefaultClockInterval,
		state:            StateUnauthenticated,
	}
	for _, opt := range options {
		opt(c)
	}

	if c.clock == nil {
		clock, err := sessionclock.New(c.clockInterval, sessionclock.WithLogger(c.logger))
		if err != nil {
			return nil, fmt.Errorf("[auth.NewController] %w", err)
		}
		c.clock = clock
		c.ownsClock = true
	}
	c.tracker = activity.NewTracker(c, activity.WithLogger(c.logger))
	return c, nil
}

// Close releases the session clock. The stored session is left in place.
func (c *Controller) Close() error {
	c.tracker.Stop(c.tracker.Generation())
	if shutdowner, ok := c.clock.(interface{ Shutdown() error }); ok && c.ownsClock {
		return shutdowner.Shutdown()
	}
	return nil
}

// Activity is the tracker that feeds user input into ExtendSession.
func (c *Controller) Activity() *activity.Tracker {
	return c.tracker
}

func (c *Controller) OnChange(fn func(Status)) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// OnLogout registers a hook run after every logout. reason is nil for an explicit logout.
func (c *Controller) OnLogout(fn func(reason error)) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	c.onLogout = append(c.onLogout, fn)
}

func (c *Controller) Login(ctx context.Context, creds Credentials) (*sessions.Session, error) {
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("[Controller.Login] %w", err)
	}
	return c.authenticate(ctx, "[Controller.Login]", func(ctx context.Context) (*backend.AuthResponse, error) {
		return c.api.Login(ctx, backend.LoginRequest{Email: creds.Email, Password: creds.Password, RememberMe: creds.RememberMe})
	})
}

func (c *Controller) Register(ctx context.Context, profile Profile) (*sessions.Session, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("[Controller.Register] %w", err)
	}
	return c.authenticate(ctx, "[Controller.Register]", func(ctx context.Context) (*backend.AuthResponse, error) {
		return c.api.Register(ctx, backend.RegisterRequest{Email: profile.Email, Name: profile.Name, Password: profile.Password})
	})
}

func (c *Controller) RegisterAdmin(ctx context.Context, profile Profile) (*sessions.Session, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("[Controller.RegisterAdmin] %w", err)
	}
	return c.authenticate(ctx, "[Controller.RegisterAdmin]", func(ctx context.Context) (*backend.AuthResponse, error) {
		return c.api.RegisterAdmin(ctx, backend.RegisterRequest{Email: profile.Email, Name: profile.Name, Password: profile.Password})
	})
}

// LoginWithIdentityProvider exchanges a sign-in provider ID token for a backend session.
func (c *Controller) LoginWithIdentityProvider(ctx context.Context, idToken string) (*sessions.Session, error) {
	if idToken == "" {
		return nil, fmt.Errorf("[Controller.LoginWithIdentityProvider] %w", apperrors.ErrInvalidIdentityToken)
	}
	return c.authenticate(ctx, "[Controller.LoginWithIdentityProvider]", func(ctx context.Context) (*backend.AuthResponse, error) {
		if c.verifier != nil {
			claims, err := c.verifier.Verify(ctx, idToken)
			if err != nil {
				return nil, err
			}
			c.logger.Debug().Str("subject", claims.Subject).Str("email", claims.Email).Msg("identity token verified")
		}
		return c.api.ExchangeIdentityToken(ctx, idToken)
	})
}

// authenticate runs call while any held session stays usable. The held
// session is replaced only once the new one is saved; a failed attempt leaves
// it, its clock and its stored copy untouched.
func (c *Controller) authenticate(ctx context.Context, op string, call func(context.Context) (*backend.AuthResponse, error)) (*sessions.Session, error) {
	c.mu.Lock()
	if c.state.Busy() {
		c.mu.Unlock()
		return nil, fmt.Errorf("%s %w", op, apperrors.ErrAuthInProgress)
	}
	startGeneration := c.generation
	previous := c.session
	c.state = StateAuthenticating
	c.mu.Unlock()
	c.publish()

	resp, err := call(ctx)
	var session *sessions.Session
	if err == nil {
		session, err = c.newSession(resp)
	}

	c.mu.Lock()
	if c.generation != startGeneration {
		c.mu.Unlock()
		if err == nil {
			err = apperrors.ErrNoSession
		}
		return nil, fmt.Errorf("%s superseded: %w", op, err)
	}
	if err == nil {
		session.Generation = startGeneration + 1
		session.Extend(c.nowFunc(), c.inactivityWindow)
		if saveErr := c.saveLocked(session); saveErr != nil {
			err = fmt.Errorf("save session: %w", saveErr)
		}
	}
	if err != nil {
		c.state = StateUnauthenticated
		if previous != nil {
			c.state = StateAuthenticated
		}
		c.mu.Unlock()
		c.publish()
		return nil, fmt.Errorf("%s %w", op, err)
	}
	c.generation = session.Generation
	c.session = session
	c.state = StateAuthenticated
	c.mu.Unlock()

	if previous != nil {
		c.clock.Stop(previous.Generation)
		c.logger.Info().Str("session", previous.ID).Msg("session replaced")
	}
	c.startBackground(session.Generation)
	c.logger.Info().
		Str("session", session.ID).
		Str("role", string(session.Identity.Role)).
		Time("expiresAt", session.ExpiresAt()).
		Msg("session established")
	c.publish()
	return session.Clone(), nil
}

// saveLocked persists session and remembers the deadline written. c.mu must be held.
func (c *Controller) saveLocked(session *sessions.Session) error {
	if err := c.store.Save(session); err != nil {
		return err
	}
	c.persistedDeadline = session.InactivityDeadline
	return nil
}

func (c *Controller) newSession(resp *backend.AuthResponse) (*sessions.Session, error) {
	ident, err := users.NewIdentity(resp.UserType, resp.User, resp.Admin)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrMalformed, err)
	}
	expiresAt, err := token.ResolveExpiry(resp.ExpiresAt, resp.Token)
	if err != nil {
		return nil, err
	}
	now := c.nowFunc()
	if !expiresAt.After(now) {
		return nil, fmt.Errorf("%w: token expired at %s", apperrors.ErrMalformed, expiresAt.Format(time.RFC3339))
	}
	return &sessions.Session{
		ID: uuid.NewString(),
		Token: &oauth2.Token{
			AccessToken:  resp.Token,
			TokenType:    bearerType,
			RefreshToken: resp.RefreshToken,
			Expiry:       expiresAt,
		},
		IssuedAt: now,
		Identity: ident,
	}, nil
}

// Logout ends the session locally. No server call is made.
func (c *Controller) Logout() {
	c.mu.Lock()
	generation := c.generation
	c.mu.Unlock()
	c.endSession(generation, nil)
}

// ForceLogout ends the session for generation with reason. It is a no-op
// once that generation has been superseded.
func (c *Controller) ForceLogout(generation uint64, reason error) {
	c.endSession(generation, reason)
}

func (c *Controller) endSession(generation uint64, reason error) {
	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		c.logger.Debug().Uint64("generation", generation).Msg("ignoring logout for superseded session")
		return
	}
	ended := c.session
	wasState := c.state
	c.generation++
	c.session = nil
	c.state = StateUnauthenticated
	if err := c.store.Clear(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to clear session store")
	}
	c.mu.Unlock()

	if ended == nil {
		if wasState != StateUnauthenticated {
			c.publish()
		}
		return
	}
	c.clock.Stop(ended.Generation)
	c.tracker.Stop(ended.Generation)

	event := c.logger.Info()
	if reason != nil {
		event = c.logger.Warn().Err(reason)
	}
	event.Str("session", ended.ID).Msg("session ended")

	c.publish()
	c.hooksMu.RLock()
	hooks := append([]func(error){}, c.onLogout...)
	c.hooksMu.RUnlock()
	for _, hook := range hooks {
		hook(reason)
	}
}

// Refresh renews the access token. Without a refresh token it reports whether
// the current token is still valid. Any failure ends the session.
func (c *Controller) Refresh(ctx context.Context) (bool, error) {
	v, err, _ := c.refreshGroup.Do(refreshKey, func() (any, error) {
		return c.refresh(ctx)
	})
	ok, _ := v.(bool)
	return ok, err
}

func (c *Controller) refresh(ctx context.Context) (bool, error) {
	c.mu.Lock()
	session := c.session
	if session == nil || c.state != StateAuthenticated {
		c.mu.Unlock()
		return false, fmt.Errorf("[Controller.Refresh] %w", apperrors.ErrNoSession)
	}
	generation := c.generation
	refreshToken := session.RefreshToken()
	if refreshToken == "" {
		valid := session.IsAuthenticated(c.nowFunc())
		c.mu.Unlock()
		if valid {
			return true, nil
		}
		c.endSession(generation, apperrors.ErrTokenRefreshFailed)
		return false, fmt.Errorf("[Controller.Refresh] %w: token expired", apperrors.ErrTokenRefreshFailed)
	}
	c.state = StateRefreshing
	c.mu.Unlock()
	c.publish()

	resp, err := c.api.RefreshToken(ctx, refreshToken)
	var expiresAt time.Time
	if err == nil {
		if resp.Token == "" {
			err = fmt.Errorf("%w: no token in refresh response", apperrors.ErrMalformed)
		} else {
			expiresAt, err = token.ResolveExpiry(resp.ExpiresAt, resp.Token)
		}
	}

	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		return false, fmt.Errorf("[Controller.Refresh] %w", apperrors.ErrNoSession)
	}
	if err != nil {
		c.state = StateAuthenticated
		c.mu.Unlock()
		c.endSession(generation, apperrors.ErrTokenRefreshFailed)
		return false, fmt.Errorf("[Controller.Refresh] %w: %w", apperrors.ErrTokenRefreshFailed, err)
	}

	next := c.session.Clone()
	next.Token = &oauth2.Token{
		AccessToken:  resp.Token,
		TokenType:    bearerType,
		RefreshToken: utils.FirstNonEmpty(resp.RefreshToken, refreshToken),
		Expiry:       expiresAt,
	}
	next.IssuedAt = c.nowFunc()
	if saveErr := c.saveLocked(next); saveErr != nil {
		c.logger.Warn().Err(saveErr).Msg("failed to persist refreshed session")
	}
	c.session = next
	c.state = StateAuthenticated
	c.mu.Unlock()

	c.logger.Debug().Str("session", next.ID).Time("expiresAt", expiresAt).Msg("token refreshed")
	c.publish()
	return true, nil
}

// ExtendSession records user activity. Activity after the deadline has passed
// ends the session instead. The store is only rewritten once the deadline has
// moved by DeadlinePersistStep.
func (c *Controller) ExtendSession() {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return
	}
	now := c.nowFunc()
	generation := c.generation
	if c.session.InactivityExpired(now) {
		c.mu.Unlock()
		c.endSession(generation, apperrors.ErrSessionExpiredLocally)
		return
	}
	if c.session.Extend(now, c.inactivityWindow) && c.session.InactivityDeadline.Sub(c.persistedDeadline) >= DeadlinePersistStep {
		if err := c.saveLocked(c.session); err != nil {
			c.logger.Warn().Err(err).Msg("failed to persist inactivity deadline")
		}
	}
	c.mu.Unlock()
}

// Restore resumes a stored session. Expired or inactive sessions are discarded.
func (c *Controller) Restore(ctx context.Context) (bool, error) {
	stored, err := c.store.Load()
	if errors.Is(err, sessions.ErrNoSession) {
		return false, nil
	}
	if err != nil {
		if clearErr := c.store.Clear(); clearErr != nil {
			c.logger.Warn().Err(clearErr).Msg("failed to clear unreadable session")
		}
		return false, fmt.Errorf("[Controller.Restore] %w", err)
	}

	now := c.nowFunc()
	if !stored.IsAuthenticated(now) || stored.InactivityExpired(now) {
		c.logger.Info().Str("session", stored.ID).Msg("discarding stale stored session")
		if clearErr := c.store.Clear(); clearErr != nil {
			c.logger.Warn().Err(clearErr).Msg("failed to clear stale session")
		}
		return false, nil
	}

	c.mu.Lock()
	if c.state.Busy() || c.session != nil {
		c.mu.Unlock()
		return false, fmt.Errorf("[Controller.Restore] %w", apperrors.ErrAuthInProgress)
	}
	c.generation++
	generation := c.generation
	stored.Generation = generation
	c.session = stored
	c.persistedDeadline = stored.InactivityDeadline
	c.state = StateAuthenticated
	c.mu.Unlock()

	c.startBackground(generation)
	c.publish()

	if stored.NeedsRefresh(now, c.refreshThreshold) {
		if ok, err := c.Refresh(ctx); !ok {
			return false, fmt.Errorf("[Controller.Restore] %w", err)
		}
	}
	return true, nil
}

func (c *Controller) startBackground(generation uint64) {
	err := c.clock.Start(generation, sessionclock.Checks{
		TokenExpiry: c.checkTokenExpiry,
		Inactivity:  c.checkInactivity,
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to start session clock")
	}
	c.tracker.Start(generation)
}

func (c *Controller) checkTokenExpiry(ctx context.Context, generation uint64) {
	c.mu.Lock()
	if generation != c.generation || c.session == nil {
		c.mu.Unlock()
		return
	}
	needsRefresh := c.session.NeedsRefresh(c.nowFunc(), c.refreshThreshold)
	c.mu.Unlock()

	if !needsRefresh {
		return
	}
	if ok, err := c.Refresh(ctx); !ok {
		c.logger.Warn().Err(err).Msg("scheduled token refresh failed")
	}
}

func (c *Controller) checkInactivity(_ context.Context, generation uint64) {
	c.mu.Lock()
	if generation != c.generation || c.session == nil {
		c.mu.Unlock()
		return
	}
	expired := c.session.InactivityExpired(c.nowFunc())
	c.mu.Unlock()

	if expired {
		c.endSession(generation, apperrors.ErrSessionExpiredLocally)
	}
}

// Session returns a copy of the held session, or nil.
func (c *Controller) Session() *sessions.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Clone()
}

// ShouldRefresh reports whether session is inside the refresh threshold.
func (c *Controller) ShouldRefresh(session *sessions.Session) bool {
	return session != nil && session.NeedsRefresh(c.nowFunc(), c.refreshThreshold)
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Controller) statusLocked() Status {
	status := Status{State: c.state}
	if c.session == nil {
		return status
	}
	ident := c.session.Clone().Identity
	status.Identity = &ident
	status.IsAuthenticated = c.session.IsAuthenticated(c.nowFunc())
	status.IsAdmin = status.IsAuthenticated && ident.IsAdmin()
	status.ExpiresAt = c.session.ExpiresAt()
	status.InactivityDeadline = c.session.InactivityDeadline
	return status
}

func (c *Controller) IsAuthenticated() bool {
	return c.Status().IsAuthenticated
}

// RequireAdmin fails unless an authenticated admin session is held.
func (c *Controller) RequireAdmin() error {
	status := c.Status()
	if !status.IsAuthenticated {
		return fmt.Errorf("[Controller.RequireAdmin] %w", apperrors.ErrNoSession)
	}
	if !status.IsAdmin {
		return fmt.Errorf("[Controller.RequireAdmin] %w", apperrors.ErrAdminRequired)
	}
	return nil
}

func (c *Controller) publish() {
	status := c.Status()
	c.hooksMu.RLock()
	hooks := append([]func(Status){}, c.onChange...)
	c.hooksMu.RUnlock()
	for _, hook := range hooks {
		hook(status)
	}
}
