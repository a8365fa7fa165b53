package dump

import "errors"

var (
	// ErrInvalidLocation indicates a dump location that is neither a file path nor an s3:// URI.
	ErrInvalidLocation = errors.New("invalid dump location")

	// ErrInvalidRange indicates a byte range with end before start.
	ErrInvalidRange = errors.New("invalid byte range")
)
