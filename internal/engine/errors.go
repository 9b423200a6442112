package engine

import "errors"

var (
	ErrMissingColumn = errors.New("missing column")
	ErrColumnType    = errors.New("unsupported column type")
	ErrUnknownPeriod = errors.New("unknown period")
)
