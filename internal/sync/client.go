// Package sync orchestrates the client core against the remote authority:
// identity restore, poll refresh, the economy actions and the
// regeneration tick. Nothing here mutates local state ahead of an
// authoritative response; cached entities are replaced wholesale from
// whatever the authority returns.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pollwallet/pollwallet/internal/domain"
	apperrors "github.com/pollwallet/pollwallet/internal/errors"
	"github.com/pollwallet/pollwallet/internal/idempotency"
	"github.com/pollwallet/pollwallet/internal/ledger"
	"github.com/pollwallet/pollwallet/internal/repository"
	"github.com/pollwallet/pollwallet/internal/session"
	"github.com/pollwallet/pollwallet/internal/usercache"
	"github.com/pollwallet/pollwallet/internal/votes"
	"github.com/pollwallet/pollwallet/pkg/logger"
	"github.com/pollwallet/pollwallet/pkg/metrics"
)

// Authority is the subset of the remote authority the sync client drives
// directly. Login, signup and logout go through the session guard; votes
// go through the deduplicator.
type Authority interface {
	FetchUser(ctx context.Context, userID string) (*domain.User, error)
	ListPolls(ctx context.Context) ([]*domain.Poll, error)
	Tap(ctx context.Context, userID string) (*domain.User, error)
	CreatePoll(ctx context.Context, userID, title string, options, metaTags []string) (*votes.VoteOutcome, error)
	RegenerateEnergy(ctx context.Context, userID string) (int64, error)
}

// Notifier receives the transient user-facing notifications; the UI shows
// them as toasts.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Success(string) {}
func (NopNotifier) Error(string)   {}

const (
	snapshotTTL = 24 * time.Hour
	// submitCollapseTTL is how long a completed submit suppresses an
	// identical one; just enough to absorb button mashing.
	submitCollapseTTL = 10 * time.Second
)

// Client is the orchestrator the UI calls into.
type Client struct {
	authority  Authority
	guard      *session.Guard
	dedup      *votes.Deduplicator
	identities repository.IdentityStore
	snapshots  *usercache.Cache
	submits    idempotency.Manager
	errHandler *apperrors.Handler
	notifier   Notifier
	log        *slog.Logger

	regenInterval time.Duration

	mu        sync.Mutex
	polls     []*domain.Poll
	epoch     uint64
	regenStop context.CancelFunc
	regenDone chan struct{}
}

// Config carries the client's collaborators.
type Config struct {
	Authority     Authority
	Guard         *session.Guard
	Dedup         *votes.Deduplicator
	Identities    repository.IdentityStore
	Snapshots     *usercache.Cache
	Submits       idempotency.Manager
	ErrHandler    *apperrors.Handler
	Notifier      Notifier
	Log           *slog.Logger
	RegenInterval time.Duration
}

// NewClient wires the sync client together.
func NewClient(cfg Config) *Client {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}
	regenInterval := cfg.RegenInterval
	if regenInterval <= 0 {
		regenInterval = ledger.RegenInterval
	}

	return &Client{
		authority:     cfg.Authority,
		guard:         cfg.Guard,
		dedup:         cfg.Dedup,
		identities:    cfg.Identities,
		snapshots:     cfg.Snapshots,
		submits:       cfg.Submits,
		errHandler:    cfg.ErrHandler,
		notifier:      notifier,
		log:           log,
		regenInterval: regenInterval,
	}
}

// Restore resolves the durable identity reference against the authority.
// A missing reference or a failed fetch leaves the client unauthenticated;
// neither is fatal.
func (c *Client) Restore(ctx context.Context) (*domain.User, error) {
	userID, err := c.identities.Load(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNoIdentity) {
			c.log.Warn("identity reference unreadable", slog.Any("error", err))
		}
		return nil, nil
	}

	user, err := c.authority.FetchUser(ctx, userID)
	if err != nil {
		c.log.Warn("identity restore failed, staying unauthenticated",
			slog.String("user_id", userID), slog.Any("error", err))
		return nil, nil
	}

	if !c.guard.Restore(user) {
		return nil, nil
	}

	c.onSessionOpened(ctx, user)
	return user.Clone(), nil
}

// Login authenticates by phone, driving the conflict flow through the
// guard's confirmer.
func (c *Client) Login(ctx context.Context, phone string) (*domain.User, error) {
	ctx, _ = logger.WithCorrelationID(ctx)

	user, err := c.guard.Login(ctx, phone)
	if err != nil {
		return nil, c.surface(ctx, err)
	}

	c.onSessionOpened(ctx, user)
	return user, nil
}

// Signup registers a new identity and opens its session.
func (c *Client) Signup(ctx context.Context, username, phone string, avatar domain.Avatar) (*domain.User, error) {
	ctx, _ = logger.WithCorrelationID(ctx)

	user, err := c.guard.Signup(ctx, username, phone, avatar)
	if err != nil {
		return nil, c.surface(ctx, err)
	}

	c.onSessionOpened(ctx, user)
	return user, nil
}

// Logout tears down the session: the regeneration ticker stops, the
// identity reference is cleared and the authority invalidates the session
// record. Results of requests still in flight for the old session are
// discarded by the epoch bump.
func (c *Client) Logout(ctx context.Context) error {
	user, _ := c.guard.CurrentUser()

	c.mu.Lock()
	c.epoch++
	stop, done := c.regenStop, c.regenDone
	c.regenStop, c.regenDone = nil, nil
	c.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}

	if user != nil {
		if err := c.snapshots.Invalidate(ctx, user.ID); err != nil {
			c.log.Warn("failed to drop cached snapshot", slog.Any("error", err))
		}
	}
	if err := c.identities.Clear(ctx); err != nil {
		c.log.Warn("failed to clear identity reference", slog.Any("error", err))
	}

	return c.guard.Logout(ctx)
}

// Close releases the background ticker on client teardown.
func (c *Client) Close() {
	c.mu.Lock()
	stop, done := c.regenStop, c.regenDone
	c.regenStop, c.regenDone = nil, nil
	c.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
}

// CurrentUser returns the last authoritative snapshot of the
// authenticated user.
func (c *Client) CurrentUser() (*domain.User, bool) {
	return c.guard.CurrentUser()
}

// CachedUser returns the last cached snapshot for the stored identity.
// It gives a frontend something to paint while Restore performs the
// authoritative fetch; the value is potentially stale and never a
// substitute for the authoritative snapshot.
func (c *Client) CachedUser(ctx context.Context) (*domain.User, bool) {
	userID, err := c.identities.Load(ctx)
	if err != nil {
		return nil, false
	}

	user, err := c.snapshots.Get(ctx, userID)
	if err != nil || user == nil {
		return nil, false
	}

	return user, true
}

// Polls returns the cached poll list in authority order.
func (c *Client) Polls() []*domain.Poll {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*domain.Poll, len(c.polls))
	for i, poll := range c.polls {
		out[i] = poll.Clone()
	}

	return out
}

// HasVoted reports whether this device remembers voting on the poll.
func (c *Client) HasVoted(ctx context.Context, pollID string) bool {
	return c.dedup.HasVoted(ctx, pollID)
}

// RefreshPolls fetches the authoritative poll list and replaces the local
// cache wholesale.
func (c *Client) RefreshPolls(ctx context.Context) error {
	if err := c.refreshPolls(ctx); err != nil {
		return c.surface(ctx, err)
	}

	return nil
}

func (c *Client) refreshPolls(ctx context.Context) error {
	polls, err := c.authority.ListPolls(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.polls = polls
	c.mu.Unlock()

	return nil
}

// Tap applies one tap-to-earn click. The ledger rules reject a spent
// daily cap or empty energy bar before any network call; the authority
// applies the same rules as the gate and returns the new snapshot.
func (c *Client) Tap(ctx context.Context) (*domain.User, error) {
	ctx, _ = logger.WithCorrelationID(ctx)

	user, ok := c.guard.CurrentUser()
	if !ok {
		return nil, c.surface(ctx, apperrors.NewNotAuthenticatedError("tap"))
	}

	if _, err := ledger.ApplyTapEarn(user); err != nil {
		return nil, c.surface(ctx, err)
	}

	epoch := c.currentEpoch()
	updated, err := c.authority.Tap(ctx, user.ID)
	if err != nil {
		return nil, c.surface(ctx, err)
	}

	if !c.applyUser(ctx, epoch, updated) {
		return nil, nil
	}

	return updated.Clone(), nil
}

// CreatePoll validates the draft, fails fast on an obviously insufficient
// balance and submits to the authority, which performs the authoritative
// debit. The returned poll is appended to the cached list.
func (c *Client) CreatePoll(ctx context.Context, title string, options, metaTags []string) (*domain.Poll, error) {
	ctx, _ = logger.WithCorrelationID(ctx)

	user, ok := c.guard.CurrentUser()
	if !ok {
		return nil, c.surface(ctx, apperrors.NewNotAuthenticatedError("create poll"))
	}

	if err := validatePollDraft(title, options); err != nil {
		return nil, c.surface(ctx, err)
	}

	if _, err := ledger.ApplyPollCreationCost(user); err != nil {
		return nil, c.surface(ctx, err)
	}

	epoch := c.currentEpoch()
	key := idempotency.GenerateKey("create_poll", user.ID, title, strings.Join(options, "|"))
	result, err := c.submits.Execute(ctx, key, submitCollapseTTL, func(ctx context.Context) (interface{}, error) {
		return c.authority.CreatePoll(ctx, user.ID, title, options, metaTags)
	})
	if err != nil {
		if errors.Is(err, idempotency.ErrRequestInProgress) {
			return nil, nil
		}
		return nil, c.surface(ctx, err)
	}
	if result.FromCache {
		return nil, nil
	}

	outcome, ok := result.Response.(*votes.VoteOutcome)
	if !ok {
		return nil, c.surface(ctx, fmt.Errorf("unexpected create poll response %T", result.Response))
	}

	c.applyPollAndPoints(ctx, epoch, user, outcome, true)
	c.notifier.Success(fmt.Sprintf(
		"Poll created successfully. %d points deducted. Your current points: %d",
		ledger.PollCreationCost, outcome.Points))

	return outcome.Poll.Clone(), nil
}

// Vote casts a vote through the deduplicator. A duplicate is rejected by
// the advisory cache without a round-trip or by the authority's durable
// record; option counters only ever change to authoritative values. Votes
// are not collapsed by the submit guard because the deduplicator is the
// dedup layer here, and its AlreadyVoted verdict must reach the operator.
func (c *Client) Vote(ctx context.Context, pollID, option string) (*domain.Poll, error) {
	ctx, _ = logger.WithCorrelationID(ctx)

	user, ok := c.guard.CurrentUser()
	if !ok {
		return nil, c.surface(ctx, apperrors.NewNotAuthenticatedError("vote"))
	}

	epoch := c.currentEpoch()
	outcome, err := c.dedup.Vote(ctx, user.ID, pollID, option)
	if err != nil {
		return nil, c.surface(ctx, err)
	}

	c.applyPollAndPoints(ctx, epoch, user, outcome, false)
	c.notifier.Success("Vote recorded successfully.")

	return outcome.Poll.Clone(), nil
}

func validatePollDraft(title string, options []string) error {
	if strings.TrimSpace(title) == "" {
		return apperrors.NewValidationError("Poll title is required.")
	}
	if len(options) < 2 {
		return apperrors.NewValidationError("A poll needs at least two options.")
	}

	seen := make(map[string]struct{}, len(options))
	for _, option := range options {
		if strings.TrimSpace(option) == "" {
			return apperrors.NewValidationError("Poll options cannot be blank.")
		}
		if _, dup := seen[option]; dup {
			return apperrors.NewValidationError("Poll options must be unique.")
		}
		seen[option] = struct{}{}
	}

	return nil
}

func (c *Client) currentEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// applyUser installs an authoritative user snapshot unless the session it
// belongs to has since ended.
func (c *Client) applyUser(ctx context.Context, epoch uint64, user *domain.User) bool {
	c.mu.Lock()
	stale := epoch != c.epoch
	c.mu.Unlock()

	if stale {
		metrics.RecordStaleResponse()
		c.log.Info("discarding response for ended session", slog.String("user_id", user.ID))
		return false
	}

	c.guard.ReplaceUser(user)
	metrics.SetEconomySnapshot(user.Points, user.Energy)
	if err := c.snapshots.Set(ctx, user, snapshotTTL); err != nil {
		c.log.Warn("failed to cache user snapshot", slog.Any("error", err))
	}

	return true
}

// applyPollAndPoints installs an authoritative poll mutation result: the
// poll replaces (or, for creations, joins) the cached list and the points
// balance is merged into the live user snapshot. Only the balance is
// merged; a full snapshot applied while the poll call was in flight (tap,
// regeneration) must not be rewound to the pre-call state.
func (c *Client) applyPollAndPoints(ctx context.Context, epoch uint64, user *domain.User, outcome *votes.VoteOutcome, created bool) {
	if outcome == nil || outcome.Poll == nil {
		return
	}

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		metrics.RecordStaleResponse()
		c.log.Info("discarding poll result for ended session", slog.String("poll_id", outcome.Poll.ID))
		return
	}

	replaced := false
	for i, poll := range c.polls {
		if poll.ID == outcome.Poll.ID {
			c.polls[i] = outcome.Poll.Clone()
			replaced = true
			break
		}
	}
	if !replaced && created {
		c.polls = append(c.polls, outcome.Poll.Clone())
	}
	c.mu.Unlock()

	if !c.guard.UpdatePoints(user.ID, outcome.Points) {
		return
	}

	current, ok := c.guard.CurrentUser()
	if !ok {
		return
	}
	metrics.SetEconomySnapshot(current.Points, current.Energy)
	if err := c.snapshots.Set(ctx, current, snapshotTTL); err != nil {
		c.log.Warn("failed to cache user snapshot", slog.Any("error", err))
	}
}

// onSessionOpened persists the identity reference, seeds the caches and
// starts the regeneration ticker for the new session.
func (c *Client) onSessionOpened(ctx context.Context, user *domain.User) {
	if err := c.identities.Save(ctx, user.ID); err != nil {
		c.log.Warn("failed to persist identity reference", slog.Any("error", err))
	}
	if err := c.snapshots.Set(ctx, user, snapshotTTL); err != nil {
		c.log.Warn("failed to cache user snapshot", slog.Any("error", err))
	}
	metrics.SetEconomySnapshot(user.Points, user.Energy)

	c.mu.Lock()
	c.epoch++
	if c.regenStop != nil {
		c.regenStop()
	}
	regenCtx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.regenStop, c.regenDone = stop, done
	c.mu.Unlock()

	go c.runRegenLoop(regenCtx, done)
}

func (c *Client) surface(ctx context.Context, err error) error {
	message, _ := c.errHandler.Handle(ctx, err)
	if message != "" {
		c.notifier.Error(message)
	}

	return err
}
