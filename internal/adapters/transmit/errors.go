package transmit

import "errors"

// Transmitter errors.
var (
	ErrInvalidURL = errors.New("invalid endpoint url")
	ErrRequest    = errors.New("failed to build request")
	ErrSend       = errors.New("send failed")
	ErrStatus     = errors.New("endpoint rejected document")
)
