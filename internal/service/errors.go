package service

import "errors"

// Shared error taxonomy. Handlers map these onto HTTP statuses; anything
// else surfaces as a 500.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrForbidden         = errors.New("access denied")
	ErrGone              = errors.New("content disabled")
	ErrPayloadTooLarge   = errors.New("file too large for protected download")
	ErrSelfRequest       = errors.New("cannot request permission for your own content")
	ErrRequestPending    = errors.New("request already pending")
	ErrForwardNotGranted = errors.New("forward permission not granted, request it from the sender first")
	ErrInvalidPayload    = errors.New("invalid message payload encoding")
)
