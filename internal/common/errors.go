// Package common defines shared constants and sentinel errors used across
// NoteKeeper components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Vault open/unlock errors. A wrong credential and a tampered container
	// are indistinguishable on purpose: both fail AEAD verification.
	ErrAuthentication = errors.New("authentication failed")

	// Store-level errors.
	ErrNotFound    = errors.New("not found")
	ErrVaultClosed = errors.New("vault closed")

	// I/O level errors. A flush that reports ErrStorage guarantees that the
	// previous container file is still intact on disk.
	ErrStorage = errors.New("storage error")

	// Unlock-session errors.
	ErrSessionExpired = errors.New("session expired")
	ErrSessionInvalid = errors.New("session invalid")
)
