package session

import "testing"

func TestIsTransitionAllowed(t *testing.T) {
	testCases := []struct {
		name     string
		from     State
		to       State
		expected bool
	}{
		{name: "no session to active", from: StateNoSession, to: StateActive, expected: true},
		{name: "no session to conflict", from: StateNoSession, to: StateConflict, expected: true},
		{name: "conflict to active after confirmed retry", from: StateConflict, to: StateActive, expected: true},
		{name: "conflict back to no session", from: StateConflict, to: StateNoSession, expected: true},
		{name: "active to no session on logout", from: StateActive, to: StateNoSession, expected: true},
		{name: "active snapshot refresh", from: StateActive, to: StateActive, expected: true},
		{name: "active to conflict invalid", from: StateActive, to: StateConflict, expected: false},
		{name: "conflict to conflict invalid", from: StateConflict, to: StateConflict, expected: false},
		{name: "unknown state recovers to no session", from: State("unknown"), to: StateNoSession, expected: true},
		{name: "unknown state to active invalid", from: State("unknown"), to: StateActive, expected: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if actual := IsTransitionAllowed(tc.from, tc.to); actual != tc.expected {
				t.Errorf("IsTransitionAllowed(%s -> %s) = %t, expected %t", tc.from, tc.to, actual, tc.expected)
			}
		})
	}
}

func TestValidatePhone(t *testing.T) {
	testCases := []struct {
		name  string
		phone string
		valid bool
	}{
		{name: "ten digits", phone: "5551234567", valid: true},
		{name: "leading zeros", phone: "0001234567", valid: true},
		{name: "nine digits", phone: "555123456", valid: false},
		{name: "eleven digits", phone: "55512345678", valid: false},
		{name: "letters", phone: "555123456a", valid: false},
		{name: "dashes", phone: "555-123-4567", valid: false},
		{name: "plus prefix", phone: "+155512345", valid: false},
		{name: "empty", phone: "", valid: false},
		{name: "whitespace", phone: " 555123456", valid: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePhone(tc.phone)
			if tc.valid && err != nil {
				t.Errorf("ValidatePhone(%q) = %v, expected nil", tc.phone, err)
			}
			if !tc.valid && err == nil {
				t.Errorf("ValidatePhone(%q) = nil, expected validation error", tc.phone)
			}
		})
	}
}
