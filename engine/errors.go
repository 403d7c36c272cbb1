package engine

import "errors"

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionExists        = errors.New("session already active")
	ErrRoundClosed          = errors.New("round is closed for bets")
	ErrAlreadyActed         = errors.New("session already settled")
	ErrNotParticipant       = errors.New("user is not part of this session")
	ErrInvalidAction        = errors.New("action not allowed in this state")
	ErrConcurrentSettlement = errors.New("settlement already in progress")
	ErrUnknownGame          = errors.New("unknown game type")
)
