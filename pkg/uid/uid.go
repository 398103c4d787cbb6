package uid

import "github.com/google/uuid"

// New generates a new random unique identifier.
func New() string {
	return uuid.New().String()
}

// NewTime generates a time-based (version 1) identifier. Stand session ids
// and transaction ids use it so they sort roughly by creation time.
func NewTime() string {
	id, err := uuid.NewUUID()
	if err != nil {
		return New()
	}
	return id.String()
}

// IsValid checks if a string is a valid UUID.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
