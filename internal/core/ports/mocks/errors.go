package mocks

import "errors"

var (
	// ErrChatNotFound is returned when a link does not match any registered chat.
	ErrChatNotFound = errors.New("chat not found")

	// ErrPeerNotFound is returned when a peer has no registered name.
	ErrPeerNotFound = errors.New("peer not found")
)
