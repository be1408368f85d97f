package gpt

import "errors"

var (
	// ErrUnknownGPT is returned for a game/playtype pair with no configuration.
	ErrUnknownGPT = errors.New("unknown game/playtype")
	// ErrUnknownGame is returned for a game with no configuration.
	ErrUnknownGame = errors.New("unknown game")
	// ErrInvalidConfig reports a configuration that breaks a registry invariant.
	ErrInvalidConfig = errors.New("invalid gpt config")
)
