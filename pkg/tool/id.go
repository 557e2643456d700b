package tool

import "github.com/google/uuid"

// GenerateUUIDV7 returns a time-ordered UUID string, falling back to a random
// UUID when the clock sequence cannot be read.
func GenerateUUIDV7() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
