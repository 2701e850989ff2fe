package pipeline

import "errors"

var (
	// ErrSourceUnavailable means the table could not be opened or fetched.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrMalformedTable means the content is not a rectangular CSV table with a header.
	ErrMalformedTable = errors.New("malformed table")
	// ErrMissingTimeColumn means the header has no time column.
	ErrMissingTimeColumn = errors.New("missing time column")
	// ErrInvalidTime means a row's time cell is missing or not a finite number.
	ErrInvalidTime = errors.New("invalid time value")
	// ErrUnknownSubject means a requested subject column does not exist.
	ErrUnknownSubject = errors.New("unknown subject")
	// ErrInsufficientData means a fit had too few usable pairs.
	ErrInsufficientData = errors.New("insufficient data")
)
