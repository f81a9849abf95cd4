package account

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/platform/auth"
)

// User maps to the users table. Authentication is email based.
type User struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	Email               string     `db:"email" json:"email"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	FirstName           string     `db:"first_name" json:"first_name"`
	LastName            string     `db:"last_name" json:"last_name"`
	Role                auth.Role  `db:"role" json:"role"`
	Phone               string     `db:"phone" json:"phone"`
	ClinicID            *uuid.UUID `db:"clinic_id" json:"clinic_id,omitempty"`
	IsActive            bool       `db:"is_active" json:"is_active"`
	NeedsPasswordChange bool       `db:"needs_password_change" json:"needs_password_change"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName returns the user's display name.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
