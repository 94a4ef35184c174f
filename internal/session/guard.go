package session

import (
	"context"
	"log/slog"
	"regexp"
	"sync"

	"github.com/pollwallet/pollwallet/internal/domain"
	apperrors "github.com/pollwallet/pollwallet/internal/errors"
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

const invalidPhoneMessage = "Invalid phone number. Please enter a valid 10-digit phone number."

// ValidatePhone rejects anything but exactly ten digits. It runs before
// any network call so malformed input never costs a round-trip.
func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return apperrors.NewValidationError(invalidPhoneMessage)
	}

	return nil
}

// Authority is the subset of the remote authority the guard needs.
type Authority interface {
	Login(ctx context.Context, phone string) (*domain.User, error)
	Signup(ctx context.Context, username, phone string, avatar domain.Avatar) (*domain.User, error)
	Logout(ctx context.Context, userID string) error
}

// Confirmer asks the operator whether the competing session should be
// terminated. It is implemented by the UI.
type Confirmer interface {
	ConfirmTerminate(ctx context.Context, ownerID string) bool
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, ownerID string) bool

func (f ConfirmerFunc) ConfirmTerminate(ctx context.Context, ownerID string) bool {
	return f(ctx, ownerID)
}

// Guard holds the client-side session state machine. The authority keeps
// the authoritative session record; the guard only tracks which state this
// device believes it is in and never fabricates an Active state without an
// authoritative login response.
type Guard struct {
	authority Authority
	confirmer Confirmer
	log       *slog.Logger

	mu    sync.Mutex
	state State
	user  *domain.User
}

// NewGuard constructs a Guard starting in NoSession.
func NewGuard(authority Authority, confirmer Confirmer, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}

	return &Guard{
		authority: authority,
		confirmer: confirmer,
		log:       log,
		state:     StateNoSession,
	}
}

// State returns the guard's current state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// CurrentUser returns the authenticated user snapshot, if any.
func (g *Guard) CurrentUser() (*domain.User, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateActive || g.user == nil {
		return nil, false
	}

	return g.user.Clone(), true
}

// ReplaceUser swaps in a fresh authoritative snapshot for the active user.
// Snapshots for a different user id are ignored.
func (g *Guard) ReplaceUser(user *domain.User) {
	if user == nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateActive || g.user == nil || g.user.ID != user.ID {
		return
	}

	g.user = user.Clone()
}

// UpdatePoints replaces the active user's points balance with an
// authoritative value, leaving the rest of the snapshot untouched. Poll
// mutations return only the poll and the new balance; merging just the
// balance keeps newer full snapshots (tap, regeneration) from being
// rewound by an older in-flight result.
func (g *Guard) UpdatePoints(userID string, points int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateActive || g.user == nil || g.user.ID != userID {
		return false
	}

	g.user.Points = points
	return true
}

// Restore adopts an authoritatively fetched user at startup, when the
// durable identity reference still resolves. It only applies from
// NoSession.
func (g *Guard) Restore(user *domain.User) bool {
	if user == nil {
		return false
	}

	g.mu.Lock()
	if g.state != StateNoSession {
		g.mu.Unlock()
		return false
	}
	g.mu.Unlock()

	g.transition(StateActive, user)
	return true
}

// Login authenticates by phone number. On a session conflict the operator
// is asked to confirm termination of the competing session; confirmation
// triggers exactly one logout-and-retry. A failed retry leaves the guard
// in NoSession and reports LoginFailed.
func (g *Guard) Login(ctx context.Context, phone string) (*domain.User, error) {
	if err := ValidatePhone(phone); err != nil {
		return nil, err
	}

	user, err := g.authority.Login(ctx, phone)
	if err == nil {
		g.transition(StateActive, user)
		return user.Clone(), nil
	}

	ownerID, conflicted := apperrors.ConflictOwner(err)
	if !conflicted {
		g.transition(StateNoSession, nil)
		return nil, err
	}

	g.transition(StateConflict, nil)
	g.log.Info("session conflict detected", slog.String("owner_id", ownerID))

	if g.confirmer == nil || !g.confirmer.ConfirmTerminate(ctx, ownerID) {
		// Declined: the competing session stays active server-side and
		// this device stays unauthenticated.
		g.transition(StateNoSession, nil)
		return nil, err
	}

	if logoutErr := g.authority.Logout(ctx, ownerID); logoutErr != nil {
		g.transition(StateNoSession, nil)
		return nil, apperrors.NewLoginFailedError(logoutErr)
	}

	user, retryErr := g.authority.Login(ctx, phone)
	if retryErr != nil {
		// The previous session is already invalidated; nothing to roll
		// back. The operator must start over.
		g.transition(StateNoSession, nil)
		return nil, apperrors.NewLoginFailedError(retryErr)
	}

	g.transition(StateActive, user)
	return user.Clone(), nil
}

// Signup registers a new identity and opens a session for it.
func (g *Guard) Signup(ctx context.Context, username, phone string, avatar domain.Avatar) (*domain.User, error) {
	if err := ValidatePhone(phone); err != nil {
		return nil, err
	}
	if username == "" {
		return nil, apperrors.NewValidationError("Username is required.")
	}
	if !avatar.Valid() {
		return nil, apperrors.NewValidationError("Unknown avatar selection.")
	}

	user, err := g.authority.Signup(ctx, username, phone, avatar)
	if err != nil {
		g.transition(StateNoSession, nil)
		return nil, err
	}

	g.transition(StateActive, user)
	return user.Clone(), nil
}

// Logout invalidates the active session with the authority and drops to
// NoSession. The local state is cleared even when the authority call
// fails; the server-side record then expires on its own terms.
func (g *Guard) Logout(ctx context.Context) error {
	g.mu.Lock()
	user := g.user
	g.mu.Unlock()

	var err error
	if user != nil {
		if err = g.authority.Logout(ctx, user.ID); err != nil {
			g.log.Warn("authority logout failed", slog.String("user_id", user.ID), slog.Any("error", err))
		}
	}

	g.transition(StateNoSession, nil)
	return err
}

func (g *Guard) transition(to State, user *domain.User) {
	g.mu.Lock()
	defer g.mu.Unlock()

	from := g.state
	if from == to && to != StateActive {
		return
	}

	if !IsTransitionAllowed(from, to) {
		g.log.Warn("invalid session transition", slog.String("from", string(from)), slog.String("to", string(to)))
		return
	}

	g.state = to
	if to == StateActive {
		g.user = user.Clone()
	} else {
		g.user = nil
	}

	transitionRecorder(string(from), string(to))
}
