package cli

import (
	"fmt"
	"time"

	"github.com/julianstephens/sprout/internal/prompts"
)

func newPicker() *prompts.Picker {
	return prompts.NewPicker(time.Now().UnixNano())
}

type ChallengeCmd struct{}

func (c *ChallengeCmd) Run(ctx *Context) error {
	fmt.Println("Today's Growth Challenge:")
	fmt.Printf("  %s\n", newPicker().Challenge())
	return nil
}

type QuoteCmd struct{}

func (c *QuoteCmd) Run(ctx *Context) error {
	q := newPicker().Quote()
	fmt.Printf("%q\n  - %s\n", q.Text, q.Author)
	return nil
}

type LearnCmd struct{}

func (c *LearnCmd) Run(ctx *Context) error {
	fmt.Println("Fixed Mindset:")
	for _, s := range prompts.FixedMindset {
		fmt.Printf("  ✗ %s\n", s)
	}
	fmt.Println()
	fmt.Println("Growth Mindset:")
	for _, s := range prompts.GrowthMindset {
		fmt.Printf("  ✓ %s\n", s)
	}
	fmt.Println()
	for _, s := range prompts.BrainPlasticity {
		fmt.Printf("• %s\n", s)
	}
	return nil
}
