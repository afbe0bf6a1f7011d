package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrListingNotFound   = errors.New("listing not found")
	ErrInvalidListing    = errors.New("invalid listing")
	ErrInvalidTransition = errors.New("invalid listing status transition")
	ErrInvalidPreference = errors.New("invalid preference")
)
