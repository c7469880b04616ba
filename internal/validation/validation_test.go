package validation

import (
	"strings"
	"testing"

	"github.com/julianstephens/sprout/internal/errors"
	"github.com/julianstephens/sprout/internal/models"
)

func TestValidateCredentials(t *testing.T) {
	v := New()
	tests := []struct {
		name     string
		username string
		password string
		wantUser string
		wantMsg  string
	}{
		{name: "valid", username: "alice", password: "secret1", wantUser: "alice"},
		{name: "trims username", username: "  alice ", password: "secret1", wantUser: "alice"},
		{name: "exactly minimum lengths", username: "abcd", password: "123456", wantUser: "abcd"},
		{name: "non-ascii username", username: "ñandú", password: "secret1", wantMsg: "username may only contain"},
		{name: "short username", username: "bob", password: "secret1", wantMsg: "username must be at least 4 characters"},
		{name: "short password", username: "alice", password: "12345", wantMsg: "password must be at least 6 characters"},
		{name: "empty username", username: "", password: "secret1", wantMsg: "username is required"},
		{name: "path traversal", username: "../etc", password: "secret1", wantMsg: "username may only contain"},
		{name: "leading dot", username: ".hidden", password: "secret1", wantMsg: "username may only contain"},
		{name: "overlong password", username: "alice", password: strings.Repeat("p", 73), wantMsg: "at most 72 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ValidateCredentials(tt.username, tt.password)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tt.wantUser {
					t.Errorf("username = %q, want %q", got, tt.wantUser)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantMsg)
			}
			if !errors.IsValidation(err) {
				t.Errorf("expected validation error, got kind %v", errors.KindOf(err))
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	v := New()
	if _, err := v.ValidateUsername("ghost"); err != nil {
		t.Errorf("ValidateUsername(ghost) unexpected error: %v", err)
	}
	_, err := v.ValidateUsername("abc")
	if err == nil || err.Error() != "username must be at least 4 characters" {
		t.Errorf("ValidateUsername(abc) = %v", err)
	}
}

func TestValidateEntry(t *testing.T) {
	v := New()
	tests := []struct {
		name     string
		in       EntryInput
		wantMood models.Mood
		wantMsg  string
	}{
		{
			name:     "minimal entry defaults mood",
			in:       EntryInput{Date: "2024-01-05", Achievements: "x", Lessons: "y"},
			wantMood: models.MoodOkay,
		},
		{
			name:     "alias mood",
			in:       EntryInput{Date: "2024-01-05", Mood: "great", Achievements: "x", Lessons: "y"},
			wantMood: models.MoodGreat,
		},
		{
			name:    "missing achievements",
			in:      EntryInput{Date: "2024-01-05", Achievements: "   ", Lessons: "y"},
			wantMsg: "achievements is required",
		},
		{
			name:    "missing lessons",
			in:      EntryInput{Date: "2024-01-05", Achievements: "x"},
			wantMsg: "lessons is required",
		},
		{
			name:    "bad date",
			in:      EntryInput{Date: "05/01/2024", Achievements: "x", Lessons: "y"},
			wantMsg: "date must be a date in YYYY-MM-DD format",
		},
		{
			name:    "impossible date",
			in:      EntryInput{Date: "2024-02-30", Achievements: "x", Lessons: "y"},
			wantMsg: "date must be a date",
		},
		{
			name:    "bad mood",
			in:      EntryInput{Date: "2024-01-05", Mood: "angry", Achievements: "x", Lessons: "y"},
			wantMsg: "mood must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, mood, err := v.ValidateEntry(tt.in)
			if tt.wantMsg != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
					t.Fatalf("error = %v, want to contain %q", err, tt.wantMsg)
				}
				if !errors.IsValidation(err) {
					t.Errorf("expected validation error, got kind %v", errors.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if mood != tt.wantMood || out.Mood != string(tt.wantMood) {
				t.Errorf("mood = %q (%q), want %q", mood, out.Mood, tt.wantMood)
			}
		})
	}
}
