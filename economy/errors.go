package economy

import "errors"

var (
	ErrUnknownTier        = errors.New("unknown tier")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrUnknownPrestige    = errors.New("unknown prestige rank")
	ErrPrestigeDowngrade  = errors.New("prestige rank can only move upward")
	ErrPrestigeNotReached = errors.New("prestige level threshold not reached")
)
