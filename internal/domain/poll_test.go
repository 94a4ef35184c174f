package domain

import (
	"math"
	"testing"
)

func TestVoteShare(t *testing.T) {
	testCases := []struct {
		name     string
		poll     Poll
		label    string
		expected float64
	}{
		{
			name: "even split",
			poll: Poll{Options: []Option{
				{Label: "Red", Votes: 5},
				{Label: "Blue", Votes: 5},
			}},
			label:    "Red",
			expected: 50,
		},
		{
			name: "all votes on one option",
			poll: Poll{Options: []Option{
				{Label: "Red", Votes: 7},
				{Label: "Blue", Votes: 0},
			}},
			label:    "Red",
			expected: 100,
		},
		{
			name: "no votes yields zero not NaN",
			poll: Poll{Options: []Option{
				{Label: "Red", Votes: 0},
				{Label: "Blue", Votes: 0},
			}},
			label:    "Red",
			expected: 0,
		},
		{
			name: "unknown label",
			poll: Poll{Options: []Option{
				{Label: "Red", Votes: 3},
			}},
			label:    "Green",
			expected: 0,
		},
		{
			name: "third of total",
			poll: Poll{Options: []Option{
				{Label: "Red", Votes: 1},
				{Label: "Blue", Votes: 2},
			}},
			label:    "Red",
			expected: 100.0 / 3.0,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			actual := tc.poll.VoteShare(tc.label)
			if math.IsNaN(actual) {
				t.Fatal("VoteShare returned NaN")
			}
			if math.Abs(actual-tc.expected) > 1e-9 {
				t.Errorf("VoteShare(%s) = %f, expected %f", tc.label, actual, tc.expected)
			}
		})
	}
}

func TestPollOption(t *testing.T) {
	poll := &Poll{Options: []Option{
		{Label: "Red", Votes: 3},
		{Label: "Blue", Votes: 1},
	}}

	opt, ok := poll.Option("Blue")
	if !ok || opt.Votes != 1 {
		t.Errorf("Option(Blue) = %+v, %v", opt, ok)
	}

	if _, ok := poll.Option("Green"); ok {
		t.Error("unknown label must not resolve")
	}

	var nilPoll *Poll
	if _, ok := nilPoll.Option("Red"); ok {
		t.Error("nil poll must not resolve options")
	}
}

func TestPollClone(t *testing.T) {
	original := &Poll{
		ID:      "p1",
		Title:   "Best color",
		Options: []Option{{Label: "Red", Votes: 1}},
	}

	clone := original.Clone()
	clone.Options[0].Votes = 99

	if original.Options[0].Votes != 1 {
		t.Error("mutating a clone leaked into the original")
	}
}

func TestAvatarValid(t *testing.T) {
	for _, avatar := range []Avatar{AvatarDefault, Avatar1, Avatar2, Avatar3, Avatar4, Avatar5} {
		if !avatar.Valid() {
			t.Errorf("%s should be a known avatar", avatar)
		}
	}

	if Avatar("B7.png").Valid() {
		t.Error("unknown avatar accepted")
	}
}
