package service

import "github.com/google/uuid"

// validID reports whether id can key a row. Every table uses UUID primary
// keys and Postgres fails the whole query on anything else.
func validID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
