package match

import "errors"

var (
	ErrDuplicate         = errors.New("match already saved")
	ErrMalformed         = errors.New("malformed match data")
	ErrBettingClosed     = errors.New("betting is closed for this match")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrUnknownEvent      = errors.New("unknown bet event")
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrPlayerNotFound    = errors.New("player not found")
)
