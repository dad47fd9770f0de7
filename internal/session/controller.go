package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/BerryBytes/portalctl/internal/clock"
	"github.com/BerryBytes/portalctl/internal/notify"
	"github.com/BerryBytes/portalctl/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Dependencies are the collaborators of a Controller. Nil members get
// defaults: the wall clock, a private in-process notifier and a navigator
// that stays on "/".
type Dependencies struct {
	Scheduler clock.Scheduler
	Notifier  notify.Notifier
	Navigator Navigator
	Logger    zerolog.Logger
}

// Controller keeps one session in sync with its store and the identity API.
// Every trigger (start, timer tick, change notification, explicit call) runs
// the same reconciliation pass.
type Controller struct {
	opts     Options
	store    *Store
	api      IdentityAPI
	sched    clock.Scheduler
	notifier notify.Notifier
	nav      Navigator
	logger   zerolog.Logger
	id       string

	inFlight atomic.Bool
	pending  atomic.Bool

	mu         sync.Mutex
	ctx        context.Context
	started    bool
	snapshot   models.Snapshot
	epoch      uint64
	timer      clock.Timer
	autoPoll   bool
	redirected bool
	unsubs     []func()
	observers  map[int]func(models.Snapshot)
	nextObs    int
}

func NewController(opts Options, store *Store, api IdentityAPI, deps Dependencies) *Controller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if deps.Scheduler == nil {
		deps.Scheduler = clock.Real{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NewLocal()
	}
	if deps.Navigator == nil {
		deps.Navigator = StaticNavigator("/")
	}

	id := uuid.NewString()
	return &Controller{
		opts:      opts,
		store:     store,
		api:       api,
		sched:     deps.Scheduler,
		notifier:  deps.Notifier,
		nav:       deps.Navigator,
		logger:    deps.Logger.With().Str("session", opts.Name).Str("instance", id).Logger(),
		id:        id,
		snapshot:  models.Snapshot{State: models.StateLoading},
		observers: make(map[int]func(models.Snapshot)),
	}
}

// ID identifies this controller in published events.
func (c *Controller) ID() string {
	return c.id
}

func (c *Controller) Snapshot() models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// OnChange registers fn to be called after every state change.
func (c *Controller) OnChange(fn func(models.Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

// Start attaches the change listeners, reconciles once and enables polling.
// Calling Start on a started controller does nothing.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.ctx = ctx
	c.autoPoll = true

	topics := []string{notify.TopicStorage}
	if c.opts.Topic != "" {
		topics = append(topics, c.opts.Topic)
	}
	for _, topic := range topics {
		c.unsubs = append(c.unsubs, c.notifier.Subscribe(topic, c.handleEvent))
	}
	c.mu.Unlock()

	c.logger.Debug().Msg("session controller started")
	c.Reconcile(ctx)
}

// Stop stops the timer and detaches every listener. In-flight calls finish but
// their results no longer arm a timer.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.started = false
	c.autoPoll = false
	c.stopTimerLocked()
	unsubs := c.unsubs
	c.unsubs = nil
	c.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	c.logger.Debug().Msg("session controller stopped")
}

// StartPolling arms the recurring timer. It is a no-op when a timer is
// already running.
func (c *Controller) StartPolling() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoPoll = true
	c.armTimerLocked()
}

// StopPolling stops the recurring timer. Later reconciliations do not re-arm
// it until StartPolling or Start is called.
func (c *Controller) StopPolling() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoPoll = false
	c.stopTimerLocked()
}

// Polling reports whether the recurring timer is armed.
func (c *Controller) Polling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

// Logout clears the session, tells other controllers and leaves the
// protected route.
func (c *Controller) Logout(ctx context.Context) {
	c.forceLogout(ctx, nil)
}

// Reconcile runs one reconciliation pass. A call that arrives while a pass is
// running returns at once. It only causes one more pass when the running pass
// did not confirm the session or the stored access token changed under it.
func (c *Controller) Reconcile(ctx context.Context) {
	for !c.inFlight.CompareAndSwap(false, true) {
		c.pending.Store(true)
		if c.inFlight.Load() {
			return
		}
	}
	for {
		c.pending.Store(false)
		confirmed := c.reconcile(ctx)
		if c.pending.Load() && confirmed != "" && c.unchanged(ctx, confirmed) {
			c.pending.Store(false)
		}
		c.inFlight.Store(false)
		if !c.pending.Load() || !c.inFlight.CompareAndSwap(false, true) {
			return
		}
	}
}

// unchanged reports whether the store still holds token and it is still valid.
func (c *Controller) unchanged(ctx context.Context, token string) bool {
	creds, err := c.store.ReadCredentials(ctx)
	if err != nil {
		return false
	}
	return creds.HasAccess() && creds.AccessToken == token && !creds.Expired(c.sched.Now())
}

// reconcile runs one pass and returns the access token the server confirmed,
// or "" when the pass did not end authenticated.
func (c *Controller) reconcile(ctx context.Context) string {
	epoch := c.currentEpoch()
	refreshed := false

	var creds *models.CredentialSet
	for {
		var err error
		creds, err = c.store.ReadCredentials(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("failed to read session credentials")
			c.setError(epoch, err)
			return ""
		}

		if !creds.HasAccess() {
			c.handleMissing(ctx)
			return ""
		}

		if !creds.Expired(c.sched.Now()) {
			break
		}

		if refreshed || !c.opts.Refresh || !creds.CanRefresh() {
			c.logger.Info().Msg("access token expired")
			c.forceLogout(ctx, ErrSessionExpired)
			return ""
		}

		refreshed = true
		if !c.refresh(ctx, epoch, creds.RefreshToken) {
			return ""
		}
	}

	c.hydrate(ctx, epoch)
	if !c.fetchProfile(ctx, epoch, creds.AccessToken) {
		return ""
	}
	return creds.AccessToken
}

// refresh makes the single refresh attempt of a pass. It reports whether the
// pass should continue.
func (c *Controller) refresh(ctx context.Context, epoch uint64, refreshToken string) bool {
	c.logger.Debug().Msg("refreshing access token")

	grant, err := c.api.Refresh(ctx, refreshToken)
	if c.epochChanged(epoch) {
		c.logger.Debug().Msg("discarding refresh result after logout")
		return false
	}
	if err == nil && (grant == nil || grant.AccessToken == "") {
		err = errors.New("refresh response did not contain an access token")
	}
	if err == nil {
		err = writeGrant(ctx, c.store, grant, c.opts.DefaultTTL, c.sched.Now())
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("session refresh failed")
		c.forceLogout(ctx, fmt.Errorf("%w: %w", ErrRefreshFailed, err))
		return false
	}

	c.publish(ctx, c.opts.Topic)
	return true
}

func (c *Controller) hydrate(ctx context.Context, epoch uint64) {
	c.mu.Lock()
	authenticated := c.snapshot.State == models.StateAuthenticated
	c.mu.Unlock()
	if authenticated {
		return
	}

	identity, err := c.store.ReadIdentity(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to read cached profile")
		identity = &models.Identity{}
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	c.snapshot = models.Snapshot{State: models.StateAuthenticated, Identity: identity}
	c.redirected = false
	snap := c.snapshot
	c.mu.Unlock()

	c.emit(snap)
}

// fetchProfile reports whether the session was confirmed.
func (c *Controller) fetchProfile(ctx context.Context, epoch uint64, token string) bool {
	identity, err := c.api.Profile(ctx, token)
	if c.epochChanged(epoch) {
		c.logger.Debug().Msg("discarding stale profile response")
		return false
	}

	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			c.logger.Info().Msg("server rejected the access token")
			c.forceLogout(ctx, ErrInvalidToken)
			return false
		}
		c.logger.Warn().Err(err).Msg("profile fetch failed")
		c.setError(epoch, err)
		c.armTimer()
		return false
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return false
	}
	if err := c.store.WriteCachedProfile(ctx, identity); err != nil {
		c.logger.Warn().Err(err).Msg("failed to cache profile")
	}
	c.snapshot = models.Snapshot{
		State:    models.StateAuthenticated,
		Identity: c.snapshot.Identity.Merge(identity),
	}
	c.redirected = false
	snap := c.snapshot
	c.mu.Unlock()

	c.emit(snap)
	if c.opts.InfoTopic != "" {
		c.publish(ctx, c.opts.InfoTopic)
	}
	c.armTimer()
	return true
}

// handleMissing deals with a store without a complete access credential.
// Public routes stay quietly unauthenticated and keep the error of an earlier
// forced logout.
func (c *Controller) handleMissing(ctx context.Context) {
	if !c.opts.IsPublic(c.nav.CurrentRoute()) {
		c.forceLogout(ctx, ErrNoCredentials)
		return
	}

	c.mu.Lock()
	c.stopTimerLocked()
	if c.snapshot.State == models.StateUnauthenticated {
		c.mu.Unlock()
		return
	}
	c.epoch++
	c.snapshot = models.Snapshot{State: models.StateUnauthenticated}
	snap := c.snapshot
	c.mu.Unlock()

	c.emit(snap)
}

// forceLogout clears all session data, then redirects to the login route
// unless the current route is public. cause is nil for a requested logout.
func (c *Controller) forceLogout(ctx context.Context, cause error) {
	c.mu.Lock()
	c.epoch++
	c.stopTimerLocked()
	c.mu.Unlock()

	had, err := c.store.HasStoredSession(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to inspect session store")
		had = true
	}
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error().Err(err).Msg("failed to clear session store")
	}

	public := c.opts.IsPublic(c.nav.CurrentRoute())

	c.mu.Lock()
	c.snapshot = models.Snapshot{State: models.StateUnauthenticated}
	if !public {
		c.snapshot.Err = cause
	}
	redirect := !public && !c.redirected
	if redirect {
		c.redirected = true
	}
	snap := c.snapshot
	c.mu.Unlock()

	c.emit(snap)
	if had {
		c.publish(ctx, c.opts.Topic)
	}
	if redirect {
		c.logger.Info().Str("route", c.opts.LoginRoute).Msg("redirecting to login")
		c.nav.Redirect(c.opts.LoginRoute)
	}
}

func (c *Controller) setError(epoch uint64, err error) {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	c.snapshot.Err = err
	snap := c.snapshot
	c.mu.Unlock()

	c.emit(snap)
}

func (c *Controller) handleEvent(ev notify.Event) {
	if ev.Origin == c.id {
		return
	}
	if ev.Topic == notify.TopicStorage && ev.Key != "" && ev.Key != ScopeShort {
		return
	}
	c.logger.Debug().Str("topic", ev.Topic).Str("origin", ev.Origin).Msg("session change received")
	c.Reconcile(c.runContext())
}

func (c *Controller) publish(ctx context.Context, topic string) {
	if topic == "" {
		return
	}
	if err := c.notifier.Publish(ctx, notify.Event{Topic: topic, Origin: c.id}); err != nil {
		c.logger.Warn().Err(err).Str("topic", topic).Msg("failed to publish session change")
	}
}

func (c *Controller) emit(snap models.Snapshot) {
	c.mu.Lock()
	observers := make([]func(models.Snapshot), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

func (c *Controller) armTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armTimerLocked()
}

func (c *Controller) armTimerLocked() {
	if !c.autoPoll || c.timer != nil {
		return
	}
	c.timer = c.sched.Every(c.opts.PollInterval, func() {
		c.Reconcile(c.runContext())
	})
	c.logger.Debug().Dur("interval", c.opts.PollInterval).Msg("polling started")
}

func (c *Controller) stopTimerLocked() {
	if c.timer == nil {
		return
	}
	c.timer.Stop()
	c.timer = nil
	c.logger.Debug().Msg("polling stopped")
}

func (c *Controller) currentEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

func (c *Controller) epochChanged(epoch uint64) bool {
	return c.currentEpoch() != epoch
}

func (c *Controller) runContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx != nil {
		return c.ctx
	}
	return context.Background()
}
