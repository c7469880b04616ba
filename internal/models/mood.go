package models

import (
	"fmt"
	"strings"
)

// Mood is one of a fixed set of emoji symbols
type Mood string

const (
	MoodLow   Mood = "😔"
	MoodMeh   Mood = "😐"
	MoodOkay  Mood = "🙂"
	MoodGood  Mood = "😊"
	MoodGreat Mood = "🤩"

	DefaultMood = MoodOkay
)

// Moods lists every valid mood from lowest to highest
var Moods = []Mood{MoodLow, MoodMeh, MoodOkay, MoodGood, MoodGreat}

var moodAliases = map[string]Mood{
	"low":   MoodLow,
	"meh":   MoodMeh,
	"okay":  MoodOkay,
	"ok":    MoodOkay,
	"good":  MoodGood,
	"great": MoodGreat,
}

// Name returns the word alias for the mood
func (m Mood) Name() string {
	for name, mood := range moodAliases {
		if mood == m && name != "ok" {
			return name
		}
	}
	return ""
}

// Valid reports whether m is one of the enumerated symbols
func (m Mood) Valid() bool {
	for _, mood := range Moods {
		if m == mood {
			return true
		}
	}
	return false
}

// ParseMood accepts either a mood symbol or its word alias. An empty string
// yields DefaultMood.
func ParseMood(s string) (Mood, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultMood, nil
	}
	if m := Mood(s); m.Valid() {
		return m, nil
	}
	if m, ok := moodAliases[strings.ToLower(s)]; ok {
		return m, nil
	}
	return "", fmt.Errorf("invalid mood %q (expected one of 😔 😐 🙂 😊 🤩 or low, meh, okay, good, great)", s)
}
