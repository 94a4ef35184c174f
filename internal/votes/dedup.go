package votes

import (
	"context"
	"log/slog"

	"github.com/pollwallet/pollwallet/internal/domain"
	apperrors "github.com/pollwallet/pollwallet/internal/errors"
	"github.com/pollwallet/pollwallet/pkg/metrics"
)

// Authority is the subset of the remote authority the deduplicator needs.
type Authority interface {
	Vote(ctx context.Context, userID, pollID, option string) (*VoteOutcome, error)
}

// VoteOutcome is the authoritative result of a vote: the updated poll and
// the voter's points balance.
type VoteOutcome struct {
	Poll   *domain.Poll
	Points int64
}

// Deduplicator enforces one vote per poll. Tier one is the advisory
// device-local cache; tier two is the authority's durable vote record.
type Deduplicator struct {
	authority   Authority
	store       Store
	deviceToken string
	log         *slog.Logger
}

// NewDeduplicator constructs a Deduplicator for the given device.
func NewDeduplicator(authority Authority, store Store, deviceToken string, log *slog.Logger) *Deduplicator {
	if log == nil {
		log = slog.Default()
	}

	return &Deduplicator{
		authority:   authority,
		store:       store,
		deviceToken: deviceToken,
		log:         log,
	}
}

// Vote casts a vote for the option. The advisory cache rejects known
// duplicates without a network call; everything else goes to the
// authority, whose answer is final. The cache is only updated from
// authoritative responses, including an authoritative AlreadyVoted, so a
// cleared cache self-heals instead of permitting repeats.
func (d *Deduplicator) Vote(ctx context.Context, userID, pollID, option string) (*VoteOutcome, error) {
	voted, err := d.store.HasVoted(ctx, d.deviceToken, pollID)
	if err != nil {
		// A broken cache must not block voting; fall through to the
		// authority.
		d.log.Warn("advisory vote cache unavailable", slog.String("poll_id", pollID), slog.Any("error", err))
	} else if voted {
		metrics.RecordVoteRejected("cache")
		return nil, apperrors.NewAlreadyVotedError(pollID)
	}

	outcome, err := d.authority.Vote(ctx, userID, pollID, option)
	if err != nil {
		if apperrors.IsAlreadyVoted(err) {
			metrics.RecordVoteRejected("authority")
			// Remember the authoritative verdict so the next attempt
			// is rejected without a round-trip.
			if markErr := d.store.MarkVoted(ctx, d.deviceToken, pollID); markErr != nil {
				d.log.Warn("failed to record authoritative duplicate", slog.String("poll_id", pollID), slog.Any("error", markErr))
			}
		}
		return nil, err
	}

	if markErr := d.store.MarkVoted(ctx, d.deviceToken, pollID); markErr != nil {
		// The durable record exists server-side; the next duplicate is
		// caught there.
		d.log.Warn("failed to update advisory vote cache", slog.String("poll_id", pollID), slog.Any("error", markErr))
	}

	return outcome, nil
}

// HasVoted exposes the advisory cache for UI affordances such as
// disabling poll options already voted on.
func (d *Deduplicator) HasVoted(ctx context.Context, pollID string) bool {
	voted, err := d.store.HasVoted(ctx, d.deviceToken, pollID)
	if err != nil {
		return false
	}

	return voted
}
