package utils

import (
	"github.com/google/uuid"
)

// GenerateID generates a unique ID for requests
func GenerateID() string {
	return uuid.NewString()
}

// RequestID keeps a caller-supplied ID when it parses as a UUID and
// generates a fresh one otherwise.
func RequestID(given string) string {
	if id, err := uuid.Parse(given); err == nil {
		return id.String()
	}
	return GenerateID()
}
