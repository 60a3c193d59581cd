package service

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidFilter = errors.New("invalid filter")
	ErrBadRequest    = errors.New("bad request")
	ErrConflict      = errors.New("conflict")
)
