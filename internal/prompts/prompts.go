// Package prompts holds the motivational content shown alongside the
// journal: daily challenges, quotes and mindset statements.
package prompts

import (
	"math/rand"
)

// Quote is a motivational quote and its author
type Quote struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

var Challenges = []string{
	"Learn 3 new words in a language you're interested in",
	"Solve a puzzle that challenges your mind",
	"Write down three things you learned today",
	"Teach someone something you know well",
	"Try a new approach to a problem you're facing",
	"Read an article about a topic you know nothing about",
	"Practice active listening in your next conversation",
	"Set a specific goal for tomorrow",
}

var Quotes = []Quote{
	{Text: "The only limit to our realization of tomorrow will be our doubts of today.", Author: "Franklin D. Roosevelt"},
	{Text: "Everything is hard before it is easy.", Author: "Goethe"},
	{Text: "The expert in anything was once a beginner.", Author: "Helen Hayes"},
	{Text: "Believe you can and you're halfway there.", Author: "Theodore Roosevelt"},
}

var FixedMindset = []string{
	"I'm not good at this",
	"I give up",
	"This is too hard",
	"I can't do better",
}

var GrowthMindset = []string{
	"I can learn this",
	"I'll try a different approach",
	"This may take time and effort",
	"I can always improve",
}

// BrainPlasticity is the short exercise shown under the mindset lists
var BrainPlasticity = []string{
	"Your brain is like a muscle - the more you exercise it, the stronger it becomes!",
	"Think of a skill you want to improve",
	"Break it down into small, manageable steps",
	"Track your progress daily",
}

// Picker draws random prompts. Each session owns its own Picker, so the
// current challenge is never shared between users.
type Picker struct {
	rng *rand.Rand
}

func NewPicker(seed int64) *Picker {
	return &Picker{rng: rand.New(rand.NewSource(seed))}
}

// Challenge returns a random challenge
func (p *Picker) Challenge() string {
	return Challenges[p.rng.Intn(len(Challenges))]
}

// NextChallenge returns a random challenge different from current when
// more than one exists.
func (p *Picker) NextChallenge(current string) string {
	for {
		c := p.Challenge()
		if c != current || len(Challenges) < 2 {
			return c
		}
	}
}

// Quote returns a random quote
func (p *Picker) Quote() Quote {
	return Quotes[p.rng.Intn(len(Quotes))]
}
