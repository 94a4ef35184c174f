// Package ledger implements the points and energy accounting rules.
//
// The authority applies these rules as a single atomic update per user
// record; the client evaluates the same rules only to fail obviously
// invalid actions fast and never to derive displayed balances. Displayed
// state always comes from the authoritative snapshot.
package ledger

import (
	"time"

	"github.com/pollwallet/pollwallet/internal/domain"
	apperrors "github.com/pollwallet/pollwallet/internal/errors"
)

const (
	// EnergyMax is the energy ceiling; regeneration never exceeds it.
	EnergyMax int64 = 1000
	// DailyTapLimit caps tap-to-earn clicks per day.
	DailyTapLimit int64 = 100
	// PollCreationCost is debited from points when a poll is created.
	PollCreationCost int64 = 5
	// TapReward is credited to points per accepted tap.
	TapReward int64 = 1
	// TapEnergyCost is debited from energy per accepted tap. One full
	// energy bar covers exactly one day's tap allowance.
	TapEnergyCost int64 = 10
	// RegenInterval is the wall-clock period between regeneration credits.
	RegenInterval = 2 * time.Second
	// RegenAmount is the energy credited per elapsed RegenInterval.
	RegenAmount int64 = 10
)

// ApplyTapEarn applies one tap to the snapshot. The daily cap is checked
// before energy so cap exhaustion reports LimitExceeded regardless of
// remaining energy.
func ApplyTapEarn(user *domain.User) (*domain.User, error) {
	if user == nil {
		return nil, apperrors.NewNotAuthenticatedError("tap")
	}

	if user.TapClicksToday >= DailyTapLimit {
		return nil, apperrors.NewLimitExceededError(DailyTapLimit)
	}

	if user.Energy < TapEnergyCost {
		return nil, apperrors.NewValidationError("Not enough energy to tap.")
	}

	next := user.Clone()
	next.Points += TapReward
	next.Energy -= TapEnergyCost
	next.TapClicksToday++

	return next, nil
}

// ApplyPollCreationCost debits the poll creation fee. Points never go
// negative; the authority performs the same check as the final gate.
func ApplyPollCreationCost(user *domain.User) (*domain.User, error) {
	if user == nil {
		return nil, apperrors.NewNotAuthenticatedError("create poll")
	}

	if user.Points < PollCreationCost {
		return nil, apperrors.NewInsufficientFundsError(user.Points, PollCreationCost)
	}

	next := user.Clone()
	next.Points -= PollCreationCost

	return next, nil
}

// Regenerate credits energy for the wall-clock time elapsed since the last
// regeneration, capped at EnergyMax. Credit is a function of elapsed time,
// not call count: repeated calls at the same instant credit nothing, so a
// client restart cannot re-earn energy.
func Regenerate(user *domain.User, now time.Time) (*domain.User, error) {
	if user == nil {
		return nil, apperrors.NewNotAuthenticatedError("regenerate energy")
	}

	next := user.Clone()
	if next.LastRegenAt.IsZero() {
		next.LastRegenAt = now
		return next, nil
	}

	elapsed := now.Sub(next.LastRegenAt)
	intervals := int64(elapsed / RegenInterval)
	if intervals <= 0 {
		return next, nil
	}

	next.Energy += intervals * RegenAmount
	if next.Energy > EnergyMax {
		next.Energy = EnergyMax
	}
	// Advance by whole intervals only, keeping the remainder for the
	// next call.
	next.LastRegenAt = next.LastRegenAt.Add(time.Duration(intervals) * RegenInterval)

	return next, nil
}
