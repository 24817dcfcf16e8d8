package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Registration
var (
	ErrEmptyRegistrationDocumentID = errors.New("registration document ID cannot be empty")
	ErrMissingIdentifier           = errors.New("registration needs a plate number or VIN")
	ErrInvalidConfidence           = errors.New("confidence must be between 0 and 1")
	ErrInvalidModelYear            = errors.New("model year out of range")
)

// Registration holds the fields extracted from a vehicle registration
// document. Values are kept as read; no normalization is applied.
type Registration struct {
	DocumentID   uuid.UUID `json:"document_id"`
	PlateNumber  string    `json:"plate_number,omitempty"`
	VIN          string    `json:"vin,omitempty"`
	Make         string    `json:"make,omitempty"`
	Model        string    `json:"model,omitempty"`
	Year         int       `json:"year,omitempty"`
	OwnerName    string    `json:"owner_name,omitempty"`
	ExpiryDate   string    `json:"expiry_date,omitempty"`
	DocumentType string    `json:"document_type,omitempty"`
	Confidence   float64   `json:"confidence"`
	ExtractedAt  time.Time `json:"extracted_at"`
}

// Validate checks if the Registration has valid data.
func (r *Registration) Validate() error {
	if r.DocumentID == uuid.Nil {
		return ErrEmptyRegistrationDocumentID
	}
	if r.PlateNumber == "" && r.VIN == "" {
		return ErrMissingIdentifier
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return ErrInvalidConfidence
	}
	if r.Year != 0 && (r.Year < 1900 || r.Year > 2100) {
		return ErrInvalidModelYear
	}
	return nil
}
