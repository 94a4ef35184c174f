package sync

import (
	"context"

	"github.com/pollwallet/pollwallet/internal/authority"
	"github.com/pollwallet/pollwallet/internal/domain"
	"github.com/pollwallet/pollwallet/internal/votes"
)

// AuthorityBridge adapts the HTTP authority client to the narrower
// interfaces the session guard, the sync client and the vote deduplicator
// consume.
type AuthorityBridge struct {
	client *authority.Client
}

// NewAuthorityBridge wraps an authority client.
func NewAuthorityBridge(client *authority.Client) *AuthorityBridge {
	return &AuthorityBridge{client: client}
}

func (b *AuthorityBridge) Login(ctx context.Context, phone string) (*domain.User, error) {
	return b.client.Login(ctx, phone)
}

func (b *AuthorityBridge) Signup(ctx context.Context, username, phone string, avatar domain.Avatar) (*domain.User, error) {
	return b.client.Signup(ctx, username, phone, avatar)
}

func (b *AuthorityBridge) Logout(ctx context.Context, userID string) error {
	return b.client.Logout(ctx, userID)
}

func (b *AuthorityBridge) FetchUser(ctx context.Context, userID string) (*domain.User, error) {
	return b.client.FetchUser(ctx, userID)
}

func (b *AuthorityBridge) ListPolls(ctx context.Context) ([]*domain.Poll, error) {
	return b.client.ListPolls(ctx)
}

func (b *AuthorityBridge) Tap(ctx context.Context, userID string) (*domain.User, error) {
	return b.client.Tap(ctx, userID)
}

func (b *AuthorityBridge) RegenerateEnergy(ctx context.Context, userID string) (int64, error) {
	return b.client.RegenerateEnergy(ctx, userID)
}

func (b *AuthorityBridge) CreatePoll(ctx context.Context, userID, title string, options, metaTags []string) (*votes.VoteOutcome, error) {
	result, err := b.client.CreatePoll(ctx, userID, title, options, metaTags)
	if err != nil {
		return nil, err
	}

	return &votes.VoteOutcome{Poll: result.Poll, Points: result.Points}, nil
}

// Vote satisfies the deduplicator's authority contract.
func (b *AuthorityBridge) Vote(ctx context.Context, userID, pollID, option string) (*votes.VoteOutcome, error) {
	result, err := b.client.Vote(ctx, userID, pollID, option)
	if err != nil {
		return nil, err
	}

	return &votes.VoteOutcome{Poll: result.Poll, Points: result.Points}, nil
}
