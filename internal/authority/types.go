package authority

import "github.com/pollwallet/pollwallet/internal/domain"

type signupRequest struct {
	Username string        `json:"username"`
	Phone    string        `json:"phone"`
	Avatar   domain.Avatar `json:"avatar"`
}

type loginRequest struct {
	Phone string `json:"phone"`
}

type logoutRequest struct {
	UserID string `json:"userId"`
}

type userIDRequest struct {
	UserID string `json:"userId"`
}

type createPollRequest struct {
	Title    string   `json:"title"`
	Options  []string `json:"options"`
	MetaTags []string `json:"metaTags"`
	UserID   string   `json:"userId"`
}

type voteRequest struct {
	Option string `json:"option"`
	UserID string `json:"userId"`
	PollID string `json:"pollId"`
}

type regenerateResponse struct {
	Energy int64 `json:"energy"`
}

// PollResult is returned by poll mutations: the authoritative poll plus
// the caller's points balance after the operation.
type PollResult struct {
	Poll   *domain.Poll `json:"poll"`
	Points int64        `json:"points"`
}

// conflictBody is the 409 payload on login: a message and the id of the
// user whose session is already active.
type conflictBody struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (b errorBody) text() string {
	if b.Message != "" {
		return b.Message
	}

	return b.Error
}
