package domain

import "errors"

var (
	ErrInvalidID    = errors.New("invalid id")
	ErrInvalidTitle = errors.New("invalid title")
	ErrInvalidSize  = errors.New("invalid size")
	ErrInvalidImage = errors.New("invalid image")
)
