package usecase

import "errors"

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrLoginFailed   = errors.New("marketplace login failed")
	ErrNoKeywords    = errors.New("no search keywords")
	ErrSearchFailed  = errors.New("search failed")
	ErrUnreachable   = errors.New("seller unreachable")
	ErrSessionPanic  = errors.New("negotiation session panicked")
	ErrPipelinePanic = errors.New("comparison pipeline panicked")
)
