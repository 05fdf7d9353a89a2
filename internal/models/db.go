package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user row in the database.
type User struct {
	ID             uuid.UUID `db:"id"`
	Email          string    `db:"email"`
	HashedPassword string    `db:"hashed_password"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Profile holds the display data attached to a user. The profile row shares
// its primary key with the owning user.
// Username and AvatarURL are pointers because both columns are nullable: a
// freshly signed-up user may have neither.
type Profile struct {
	ID        uuid.UUID `db:"id"`
	Username  *string   `db:"username"`
	AvatarURL *string   `db:"avatar_url"`
	UpdatedAt time.Time `db:"updated_at"`
}
