package targets

import "errors"

var (
	// ErrCorrupt marks persisted state that broke an integrity rule. It is logged and never repaired here.
	ErrCorrupt = errors.New("target state is corrupt")
	// ErrAlreadySubscribed is returned when the subscription exists.
	ErrAlreadySubscribed = errors.New("already subscribed")
	// ErrAlreadyAchieved is returned when subscribing would be instantly achieved and that was not allowed.
	ErrAlreadyAchieved = errors.New("already achieved")
	// ErrNotSubscribed is returned when removing a subscription that does not exist.
	ErrNotSubscribed = errors.New("not subscribed")
	// ErrGoalInMilestone is returned when unsubscribing from a goal a subscribed milestone needs.
	ErrGoalInMilestone = errors.New("goal is part of a subscribed milestone")
	// ErrInvalidGoal is returned for goals whose charts or criteria do not fit their GPT.
	ErrInvalidGoal = errors.New("invalid goal")
	// ErrInvalidMilestone is returned for milestones that cannot be evaluated.
	ErrInvalidMilestone = errors.New("invalid milestone")
)
