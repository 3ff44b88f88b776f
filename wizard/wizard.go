// Package wizard drives a linear, revisitable multi-step form.
//
// A Controller only tracks which step is shown and which steps have been completed;
// it knows nothing about fields. Validation is injected per call so the same
// controller serves listings and blog posts.
package wizard

import (
	"sort"

	"rankwell/apperrors"
)

type Step struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

var ListingSteps = []Step{
	{Number: 1, Title: "Category & Title", Description: "Basic info"},
	{Number: 2, Title: "Details & Location", Description: "Description"},
	{Number: 3, Title: "Media & Contact", Description: "Images & info"},
	{Number: 4, Title: "Preview & Publish", Description: "Review"},
}

var PostSteps = []Step{
	{Number: 1, Title: "Basics", Description: "Title, slug & category"},
	{Number: 2, Title: "Content", Description: "Body"},
	{Number: 3, Title: "Media & SEO", Description: "Image & metadata"},
	{Number: 4, Title: "Preview & Publish", Description: "Review"},
}

// State is the persisted part of a controller.
type State struct {
	CurrentStep    int   `json:"currentStep"`
	CompletedSteps []int `json:"completedSteps"`
}

// ValidateFunc returns the violations of the given step; empty means the step passes.
type ValidateFunc func(step int) []apperrors.Violation

type Controller struct {
	steps        []Step
	current      int
	completed    map[int]bool
	onTransition func(step int)
}

func New(steps []Step) *Controller {
	return &Controller{
		steps:     steps,
		current:   1,
		completed: map[int]bool{},
	}
}

// OnTransition registers the observer called after every successful step change.
func (c *Controller) OnTransition(fn func(step int)) {
	c.onTransition = fn
}

func (c *Controller) Steps() []Step { return c.steps }

func (c *Controller) CurrentStep() int { return c.current }

func (c *Controller) LastStep() int { return len(c.steps) }

func (c *Controller) IsCompleted(step int) bool { return c.completed[step] }

func (c *Controller) IsLast() bool { return c.current == c.LastStep() }

// GoNext validates the current step. On success the step is marked completed and the
// controller advances, staying on the last step once reached. On failure nothing
// changes and the violations are returned as a *apperrors.ValidationError.
func (c *Controller) GoNext(validate ValidateFunc) error {
	if validate != nil {
		if violations := validate(c.current); len(violations) > 0 {
			return apperrors.NewValidationError(violations...)
		}
	}
	c.completed[c.current] = true
	if c.current < c.LastStep() {
		c.current++
	}
	c.transitioned()
	return nil
}

// GoBack moves one step back. At the first step it does nothing.
func (c *Controller) GoBack() {
	if c.current <= 1 {
		return
	}
	c.current--
	c.transitioned()
}

// GoToStep jumps to a completed step or to any step before the current one.
func (c *Controller) GoToStep(n int) error {
	if n < 1 || n > c.LastStep() {
		return apperrors.ErrStepLocked
	}
	if !c.completed[n] && n >= c.current {
		return apperrors.ErrStepLocked
	}
	if n == c.current {
		return nil
	}
	c.current = n
	c.transitioned()
	return nil
}

func (c *Controller) State() State {
	steps := make([]int, 0, len(c.completed))
	for s := range c.completed {
		steps = append(steps, s)
	}
	sort.Ints(steps)
	return State{CurrentStep: c.current, CompletedSteps: steps}
}

// Restore loads a persisted state, discarding values outside the step range.
func (c *Controller) Restore(s State) {
	c.current = 1
	if s.CurrentStep >= 1 && s.CurrentStep <= c.LastStep() {
		c.current = s.CurrentStep
	}
	c.completed = map[int]bool{}
	for _, n := range s.CompletedSteps {
		if n >= 1 && n <= c.LastStep() {
			c.completed[n] = true
		}
	}
}

func (c *Controller) transitioned() {
	if c.onTransition != nil {
		c.onTransition(c.current)
	}
}
