package model

import (
	"errors"
)

var (
	ErrInvalidResolution = errors.New("invalid resolution")
	ErrInvalidDuration   = errors.New("invalid duration")
)
