package usecase

import "errors"

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnknownLeague = errors.New("unknown league")
)
