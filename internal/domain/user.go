// Package domain holds the entities exchanged with the remote authority.
package domain

import "time"

// Avatar selects one of the predefined profile images.
type Avatar string

const (
	AvatarDefault Avatar = "logo.png"
	Avatar1       Avatar = "A1.png"
	Avatar2       Avatar = "A2.png"
	Avatar3       Avatar = "A3.png"
	Avatar4       Avatar = "A4.png"
	Avatar5       Avatar = "A5.png"
)

var knownAvatars = map[Avatar]struct{}{
	AvatarDefault: {},
	Avatar1:       {},
	Avatar2:       {},
	Avatar3:       {},
	Avatar4:       {},
	Avatar5:       {},
}

// Valid reports whether the avatar refers to one of the predefined assets.
func (a Avatar) Valid() bool {
	_, ok := knownAvatars[a]
	return ok
}

// User is the authoritative profile snapshot returned by the authority.
// The client never derives Points or Energy locally; it replaces the whole
// snapshot with whatever the authority returns.
type User struct {
	ID             string    `json:"_id"`
	Username       string    `json:"username"`
	Phone          string    `json:"phone"`
	Avatar         Avatar    `json:"avatar"`
	Points         int64     `json:"points"`
	Energy         int64     `json:"energy"`
	TapClicksToday int64     `json:"tapClicksToday"`
	SessionToken   string    `json:"sessionToken,omitempty"`
	LastRegenAt    time.Time `json:"lastRegenAt,omitempty"`
}

// Clone returns a copy of the snapshot.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}

	copied := *u
	return &copied
}
