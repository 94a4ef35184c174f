package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/pollwallet/pollwallet/internal/domain"
	apperrors "github.com/pollwallet/pollwallet/internal/errors"
)

type mockAuthority struct {
	mock.Mock
}

func (m *mockAuthority) Login(ctx context.Context, phone string) (*domain.User, error) {
	args := m.Called(ctx, phone)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockAuthority) Signup(ctx context.Context, username, phone string, avatar domain.Avatar) (*domain.User, error) {
	args := m.Called(ctx, username, phone, avatar)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockAuthority) Logout(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func confirm(answer bool) Confirmer {
	return ConfirmerFunc(func(ctx context.Context, ownerID string) bool {
		return answer
	})
}

func TestGuard_Login_Success(t *testing.T) {
	ctx := context.Background()
	auth := &mockAuthority{}
	auth.On("Login", mock.Anything, "5551234567").
		Return(&domain.User{ID: "u1", Phone: "5551234567", SessionToken: "T1"}, nil).Once()

	guard := NewGuard(auth, confirm(true), testLogger())

	user, err := guard.Login(ctx, "5551234567")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.ID != "u1" {
		t.Errorf("user id = %s, expected u1", user.ID)
	}
	if guard.State() != StateActive {
		t.Errorf("state = %s, expected active", guard.State())
	}

	auth.AssertExpectations(t)
}

func TestGuard_Login_InvalidPhoneSkipsNetwork(t *testing.T) {
	ctx := context.Background()
	auth := &mockAuthority{}
	guard := NewGuard(auth, confirm(true), testLogger())

	for _, phone := range []string{"", "123", "abcdefghij", "555123456789"} {
		if _, err := guard.Login(ctx, phone); !apperrors.HasCode(err, apperrors.CodeValidation) {
			t.Errorf("Login(%q): expected validation error, got %v", phone, err)
		}
	}

	// no authority call may have happened
	auth.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
	if guard.State() != StateNoSession {
		t.Errorf("state = %s, expected no_session", guard.State())
	}
}

func TestGuard_Login_ConflictConfirmedRetrySucceeds(t *testing.T) {
	ctx := context.Background()
	auth := &mockAuthority{}
	auth.On("Login", mock.Anything, "5551234567").
		Return((*domain.User)(nil), apperrors.NewSessionConflictError("owner-1")).Once()
	auth.On("Logout", mock.Anything, "owner-1").Return(nil).Once()
	auth.On("Login", mock.Anything, "5551234567").
		Return(&domain.User{ID: "u1", SessionToken: "T2"}, nil).Once()

	guard := NewGuard(auth, confirm(true), testLogger())

	user, err := guard.Login(ctx, "5551234567")
	if err != nil {
		t.Fatalf("expected successful retry, got %v", err)
	}
	if user.SessionToken != "T2" {
		t.Errorf("session token = %s, expected T2", user.SessionToken)
	}
	if guard.State() != StateActive {
		t.Errorf("state = %s, expected active", guard.State())
	}

	auth.AssertExpectations(t)
}

func TestGuard_Login_ConflictDeclined(t *testing.T) {
	ctx := context.Background()
	auth := &mockAuthority{}
	auth.On("Login", mock.Anything, "5551234567").
		Return((*domain.User)(nil), apperrors.NewSessionConflictError("owner-1")).Once()

	guard := NewGuard(auth, confirm(false), testLogger())

	_, err := guard.Login(ctx, "5551234567")
	if !apperrors.IsSessionConflict(err) {
		t.Fatalf("expected session conflict to surface, got %v", err)
	}
	if guard.State() != StateNoSession {
		t.Errorf("state = %s, expected no_session", guard.State())
	}

	// the competing session must not have been terminated
	auth.AssertNotCalled(t, "Logout", mock.Anything, mock.Anything)
}

func TestGuard_Login_ConflictRetryFails(t *testing.T) {
	ctx := context.Background()
	auth := &mockAuthority{}
	auth.On("Login", mock.Anything, "5551234567").
		Return((*domain.User)(nil), apperrors.NewSessionConflictError("owner-1")).Once()
	auth.On("Logout", mock.Anything, "owner-1").Return(nil).Once()
	auth.On("Login", mock.Anything, "5551234567").
		Return((*domain.User)(nil), apperrors.NewNetworkError("login", errors.New("boom"))).Once()

	guard := NewGuard(auth, confirm(true), testLogger())

	_, err := guard.Login(ctx, "5551234567")
	if !apperrors.HasCode(err, apperrors.CodeLoginFailed) {
		t.Fatalf("expected LoginFailed, got %v", err)
	}
	if guard.State() != StateNoSession {
		t.Errorf("state = %s, expected no_session", guard.State())
	}
	if _, ok := guard.CurrentUser(); ok {
		t.Error("no user may remain after a failed retry")
	}

	auth.AssertExpectations(t)
}

func TestGuard_Login_ConflictLogoutFails(t *testing.T) {
	ctx := context.Background()
	auth := &mockAuthority{}
	auth.On("Login", mock.Anything, "5551234567").
		Return((*domain.User)(nil), apperrors.NewSessionConflictError("owner-1")).Once()
	auth.On("Logout", mock.Anything, "owner-1").
		Return(apperrors.NewNetworkError("logout", errors.New("boom"))).Once()

	guard := NewGuard(auth, confirm(true), testLogger())

	_, err := guard.Login(ctx, "5551234567")
	if !apperrors.HasCode(err, apperrors.CodeLoginFailed) {
		t.Fatalf("expected LoginFailed, got %v", err)
	}

	// no second login attempt after a failed termination
	auth.AssertNumberOfCalls(t, "Login", 1)
}

func TestGuard_Signup(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name         string
		username     string
		phone        string
		avatar       domain.Avatar
		setupMocks   func(auth *mockAuthority)
		expectedCode string
	}{
		{
			name:     "successful signup",
			username: "alice",
			phone:    "5551234567",
			avatar:   domain.Avatar1,
			setupMocks: func(auth *mockAuthority) {
				auth.On("Signup", mock.Anything, "alice", "5551234567", domain.Avatar1).
					Return(&domain.User{ID: "u1", Energy: 1000}, nil).Once()
			},
		},
		{
			name:         "invalid phone",
			username:     "alice",
			phone:        "123",
			avatar:       domain.Avatar1,
			setupMocks:   func(auth *mockAuthority) {},
			expectedCode: apperrors.CodeValidation,
		},
		{
			name:         "missing username",
			username:     "",
			phone:        "5551234567",
			avatar:       domain.Avatar1,
			setupMocks:   func(auth *mockAuthority) {},
			expectedCode: apperrors.CodeValidation,
		},
		{
			name:         "unknown avatar",
			username:     "alice",
			phone:        "5551234567",
			avatar:       domain.Avatar("hacker.png"),
			setupMocks:   func(auth *mockAuthority) {},
			expectedCode: apperrors.CodeValidation,
		},
		{
			name:     "duplicate phone",
			username: "alice",
			phone:    "5551234567",
			avatar:   domain.AvatarDefault,
			setupMocks: func(auth *mockAuthority) {
				auth.On("Signup", mock.Anything, "alice", "5551234567", domain.AvatarDefault).
					Return((*domain.User)(nil), apperrors.NewDuplicateUserError("5551234567")).Once()
			},
			expectedCode: apperrors.CodeDuplicateUser,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuthority{}
			tc.setupMocks(auth)
			guard := NewGuard(auth, confirm(true), testLogger())

			_, err := guard.Signup(ctx, tc.username, tc.phone, tc.avatar)

			if tc.expectedCode != "" {
				if !apperrors.HasCode(err, tc.expectedCode) {
					t.Fatalf("expected code %s, got %v", tc.expectedCode, err)
				}
				if guard.State() != StateNoSession {
					t.Errorf("state = %s, expected no_session", guard.State())
				}
			} else {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if guard.State() != StateActive {
					t.Errorf("state = %s, expected active", guard.State())
				}
			}

			auth.AssertExpectations(t)
		})
	}
}

func TestGuard_Logout(t *testing.T) {
	ctx := context.Background()
	auth := &mockAuthority{}
	auth.On("Login", mock.Anything, "5551234567").
		Return(&domain.User{ID: "u1"}, nil).Once()
	auth.On("Logout", mock.Anything, "u1").Return(nil).Once()

	guard := NewGuard(auth, confirm(true), testLogger())

	if _, err := guard.Login(ctx, "5551234567"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := guard.Logout(ctx); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	if guard.State() != StateNoSession {
		t.Errorf("state = %s, expected no_session", guard.State())
	}
	if _, ok := guard.CurrentUser(); ok {
		t.Error("user must be cleared after logout")
	}

	auth.AssertExpectations(t)
}

func TestGuard_UpdatePoints(t *testing.T) {
	ctx := context.Background()
	auth := &mockAuthority{}
	auth.On("Login", mock.Anything, "5551234567").
		Return(&domain.User{ID: "u1", Points: 20, Energy: 490, TapClicksToday: 1}, nil).Once()

	guard := NewGuard(auth, confirm(true), testLogger())

	if guard.UpdatePoints("u1", 22) {
		t.Error("no balance to update without an active session")
	}

	if _, err := guard.Login(ctx, "5551234567"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if guard.UpdatePoints("someone-else", 999) {
		t.Error("foreign user id must not update the balance")
	}
	if !guard.UpdatePoints("u1", 22) {
		t.Fatal("active user balance update refused")
	}

	user, _ := guard.CurrentUser()
	if user.Points != 22 {
		t.Errorf("points = %d, expected 22", user.Points)
	}
	// only the balance changes; the rest of the snapshot stays
	if user.Energy != 490 || user.TapClicksToday != 1 {
		t.Errorf("snapshot fields rewound: %+v", user)
	}
}

func TestGuard_Restore(t *testing.T) {
	auth := &mockAuthority{}
	guard := NewGuard(auth, confirm(true), testLogger())

	if !guard.Restore(&domain.User{ID: "u1", Points: 3}) {
		t.Fatal("restore from no_session must succeed")
	}
	if guard.State() != StateActive {
		t.Errorf("state = %s, expected active", guard.State())
	}

	// a second restore must not displace the active session
	if guard.Restore(&domain.User{ID: "u2"}) {
		t.Error("restore over an active session must be refused")
	}
	user, _ := guard.CurrentUser()
	if user.ID != "u1" {
		t.Errorf("user id = %s, expected u1", user.ID)
	}
}

func TestGuard_ReplaceUser_IgnoresForeignSnapshot(t *testing.T) {
	ctx := context.Background()
	auth := &mockAuthority{}
	auth.On("Login", mock.Anything, "5551234567").
		Return(&domain.User{ID: "u1", Points: 3}, nil).Once()

	guard := NewGuard(auth, confirm(true), testLogger())
	if _, err := guard.Login(ctx, "5551234567"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	guard.ReplaceUser(&domain.User{ID: "someone-else", Points: 999})

	user, ok := guard.CurrentUser()
	if !ok || user.Points != 3 {
		t.Errorf("foreign snapshot must not replace the active user: %+v", user)
	}

	guard.ReplaceUser(&domain.User{ID: "u1", Points: 8})
	user, _ = guard.CurrentUser()
	if user.Points != 8 {
		t.Errorf("points = %d, expected 8 after authoritative replace", user.Points)
	}
}
