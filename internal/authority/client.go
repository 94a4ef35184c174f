// Package authority implements the HTTP client for the remote system
// holding durable state for users, polls and votes. Every response here is
// authoritative; callers replace their cached entities wholesale.
package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pollwallet/pollwallet/internal/domain"
	apperrors "github.com/pollwallet/pollwallet/internal/errors"
	"github.com/pollwallet/pollwallet/internal/ledger"
	"github.com/pollwallet/pollwallet/pkg/metrics"
)

// Client talks to the remote authority over HTTP. Calls pass through a
// circuit breaker so a dead authority does not absorb every user action;
// no call is retried automatically.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *apperrors.CircuitBreaker
	log     *slog.Logger
}

// NewClient constructs an authority client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		breaker: apperrors.NewCircuitBreaker(),
		log:     log,
	}
}

// Signup registers a new user. A phone already registered yields
// DuplicateUser.
func (c *Client) Signup(ctx context.Context, username, phone string, avatar domain.Avatar) (*domain.User, error) {
	var user domain.User
	err := c.call(ctx, "signup", http.MethodPost, "/api/users/signup",
		signupRequest{Username: username, Phone: phone, Avatar: avatar}, &user,
		func(status int, body []byte) error {
			if status == http.StatusConflict {
				return apperrors.NewDuplicateUserError(phone)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// Login authenticates by phone. A competing active session yields
// SessionConflict carrying the owner's user id.
func (c *Client) Login(ctx context.Context, phone string) (*domain.User, error) {
	var user domain.User
	err := c.call(ctx, "login", http.MethodPost, "/api/users/login",
		loginRequest{Phone: phone}, &user,
		func(status int, body []byte) error {
			if status == http.StatusConflict {
				var conflict conflictBody
				if err := json.Unmarshal(body, &conflict); err != nil {
					c.log.Warn("undecodable login conflict body", slog.Any("error", err))
				}
				return apperrors.NewSessionConflictError(conflict.UserID)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// Logout invalidates the active session for the given user id.
func (c *Client) Logout(ctx context.Context, userID string) error {
	return c.call(ctx, "logout", http.MethodPost, "/api/users/logout",
		logoutRequest{UserID: userID}, nil, nil)
}

// RegenerateEnergy asks the authority to credit energy for the elapsed
// wall-clock time and returns the resulting level.
func (c *Client) RegenerateEnergy(ctx context.Context, userID string) (int64, error) {
	var resp regenerateResponse
	err := c.call(ctx, "regenerate_energy", http.MethodPost, "/api/users/regenerate-energy",
		userIDRequest{UserID: userID}, &resp, nil)
	if err != nil {
		return 0, err
	}

	return resp.Energy, nil
}

// Tap applies one tap-to-earn click. The daily cap yields LimitExceeded.
func (c *Client) Tap(ctx context.Context, userID string) (*domain.User, error) {
	var user domain.User
	err := c.call(ctx, "tap", http.MethodPost, "/api/users/tap",
		userIDRequest{UserID: userID}, &user,
		func(status int, body []byte) error {
			if status == http.StatusBadRequest {
				return apperrors.NewLimitExceededError(0)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// FetchUser returns the authoritative snapshot for the user id.
func (c *Client) FetchUser(ctx context.Context, userID string) (*domain.User, error) {
	var user domain.User
	err := c.call(ctx, "fetch_user", http.MethodGet, "/api/users/"+userID, nil, &user, nil)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// ListPolls returns every poll in authority order.
func (c *Client) ListPolls(ctx context.Context) ([]*domain.Poll, error) {
	var polls []*domain.Poll
	err := c.call(ctx, "list_polls", http.MethodGet, "/api/poll", nil, &polls, nil)
	if err != nil {
		return nil, err
	}

	return polls, nil
}

// CreatePoll debits the creation cost and returns the new poll plus the
// creator's remaining points. Insufficient balance yields
// InsufficientFunds; the authority is the gate, the client calls
// optimistically.
func (c *Client) CreatePoll(ctx context.Context, userID, title string, options, metaTags []string) (*PollResult, error) {
	var result PollResult
	err := c.call(ctx, "create_poll", http.MethodPost, "/api/poll",
		createPollRequest{Title: title, Options: options, MetaTags: metaTags, UserID: userID}, &result,
		func(status int, body []byte) error {
			if status == http.StatusBadRequest || status == http.StatusPaymentRequired {
				// The rejection body carries no balance; only the cost is
				// known here.
				return apperrors.NewInsufficientFundsError(-1, ledger.PollCreationCost)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// Vote records a vote for the option. The authority holds the durable
// (user, poll) vote record and rejects duplicates with AlreadyVoted even
// when the local advisory cache was bypassed.
func (c *Client) Vote(ctx context.Context, userID, pollID, option string) (*PollResult, error) {
	var result PollResult
	err := c.call(ctx, "vote", http.MethodPost, "/api/poll/vote",
		voteRequest{Option: option, UserID: userID, PollID: pollID}, &result,
		func(status int, body []byte) error {
			if status == http.StatusBadRequest || status == http.StatusConflict {
				return apperrors.NewAlreadyVotedError(pollID)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// HealthCheck probes authority reachability via the poll listing.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.ListPolls(ctx)
	return err
}

// statusMapper translates a non-2xx status into a domain error. Returning
// nil falls through to the generic mapping.
type statusMapper func(status int, body []byte) error

func (c *Client) call(ctx context.Context, operation, method, path string, payload, out interface{}, mapStatus statusMapper) error {
	start := time.Now()
	err := c.breaker.Call(func() error {
		return c.do(ctx, operation, method, path, payload, out, mapStatus)
	})
	status := "ok"
	if err != nil {
		status = "error"
		if appErr, ok := apperrors.As(err); ok {
			status = appErr.Code
		}
	}
	metrics.RecordAuthorityCall(operation, status, time.Since(start))

	if errors.Is(err, apperrors.ErrCircuitOpen) {
		return apperrors.NewNetworkError(operation, err)
	}

	return err
}

func (c *Client) do(ctx context.Context, operation, method, path string, payload, out interface{}, mapStatus statusMapper) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", operation, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", operation, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("authority call failed", slog.String("operation", operation), slog.Any("error", err))
		return apperrors.NewNetworkError(operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewNetworkError(operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if mapStatus != nil {
			if mapped := mapStatus(resp.StatusCode, raw); mapped != nil {
				return mapped
			}
		}

		var errResp errorBody
		_ = json.Unmarshal(raw, &errResp)
		message := errResp.text()
		if message == "" {
			message = fmt.Sprintf("authority returned %d for %s", resp.StatusCode, operation)
		}

		c.log.Warn("authority rejected request",
			slog.String("operation", operation),
			slog.Int("status", resp.StatusCode),
			slog.String("message", message),
		)
		return apperrors.NewNetworkError(operation, fmt.Errorf("status %d: %s", resp.StatusCode, message))
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.NewNetworkError(operation, fmt.Errorf("decode %s response: %w", operation, err))
	}

	return nil
}
