package models

import "github.com/google/uuid"

// ensureID assigns a fresh identifier before insert so rows carry an id on
// both Postgres and the SQLite test databases.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
