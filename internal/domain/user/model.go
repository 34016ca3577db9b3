package user

import (
	"time"

	"github.com/google/uuid"
)

// User is an account in the clinic backend. Patient records reference a
// user row by ID; the user carries the demographic fields while the
// patient record carries the clinical ones.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        *string    `json:"phone,omitempty"`
	Role         string     `json:"role"`
	DateOfBirth  *time.Time `json:"dateOfBirth,omitempty"`
	Gender       *string    `json:"gender,omitempty"`
	Address      *string    `json:"address,omitempty"`
	ProfileImage *string    `json:"profileImage,omitempty"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// RolePatient is the role a user must hold before a patient record can
// be attached to their account.
const RolePatient = "Patient"
