package core

import "errors"

var (
	// ErrNoContent is returned when a message has no decodable plain-text body
	ErrNoContent = errors.New("no content found in message")
	// ErrRateLimited marks provider quota exhaustion
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidClassification is returned when a model answer violates the response schema
	ErrInvalidClassification = errors.New("invalid classification")
	// ErrNotFound is returned when a cache entry is missing or expired
	ErrNotFound = errors.New("cache entry not found")
	// ErrNoContact is returned when no privacy contact address could be found
	ErrNoContact = errors.New("no privacy contact available")
	// ErrInvalidSelection is returned when the company selection cannot be acted on
	ErrInvalidSelection = errors.New("invalid selection")
)
