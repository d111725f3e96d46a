package core

import "errors"

// Failure kinds of the document pipeline. Each is converted into a reply
// line for the media item that produced it.
var (
	ErrMediaUnavailable     = errors.New("media unavailable")
	ErrModelUnreachable     = errors.New("model unreachable")
	ErrMalformedResponse    = errors.New("malformed model response")
	ErrPersistFailure       = errors.New("ledger persist failure")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
)
