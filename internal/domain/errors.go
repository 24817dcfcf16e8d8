// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrUnsupportedDocument is returned for files the extractor cannot read.
	ErrUnsupportedDocument = errors.New("unsupported document type")

	// ErrDocumentTooLarge is returned when a file exceeds the size limit.
	ErrDocumentTooLarge = errors.New("document too large")
)
