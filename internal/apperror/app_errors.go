package apperror

import "errors"

var (
	ErrInvalidCell     = errors.New("invalid cell index")
	ErrInvalidStep     = errors.New("invalid history step")
	ErrSessionNotFound = errors.New("session not found")
)
