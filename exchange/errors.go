package exchange

import "errors"

// Common errors for the exchange protocol. All failures are synchronous
// and reported to the immediate caller; there is no retry, the exchange is
// a one-shot handoff.
var (
	ErrAlreadyConsumed   = errors.New("capsule pair already consumed")
	ErrUnsupportedType   = errors.New("unsupported type")
	ErrUnsupportedLayout = errors.New("unsupported layout")
	ErrUnsupportedOffset = errors.New("unsupported offset")
	ErrMalformedCapsule  = errors.New("malformed capsule")
	ErrProtocolViolation = errors.New("peer does not expose the capsule export capability")
)
