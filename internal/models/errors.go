package models

import "errors"

// Domain errors returned by the warranty engine. Callers match them with errors.Is;
// concrete failures wrap one of these with context.
var (
	ErrNotFound          = errors.New("not found")
	ErrAuthMismatch      = errors.New("identity does not match order")
	ErrPolicyMissing     = errors.New("no warranty policy for product")
	ErrNotEligible       = errors.New("warranty requirements not met")
	ErrConflict          = errors.New("conflict")
	ErrUpstream          = errors.New("commerce upstream error")
	ErrTransport         = errors.New("transport error")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
)
