package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient is the clinical record attached one-to-one to a user account.
// Users are soft-deleted; patient rows are hard-deleted.
type Patient struct {
	ID               uuid.UUID    `json:"id"`
	UserID           uuid.UUID    `json:"userId"`
	MedicalRecord    *string      `json:"medicalRecord"`
	BloodType        *string      `json:"bloodType"`
	Allergies        *string      `json:"allergies"`
	ChronicDiseases  *string      `json:"chronicDiseases"`
	EmergencyContact *string      `json:"emergencyContact"`
	EmergencyPhone   *string      `json:"emergencyPhone"`
	Height           *float64     `json:"height"`
	Weight           *float64     `json:"weight"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
	User             *UserSummary `json:"user,omitempty"`
}

// UserSummary is the slice of the owning user embedded in every patient read.
type UserSummary struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        *string    `json:"phone"`
	DateOfBirth  *time.Time `json:"dob"`
	Gender       *string    `json:"gender"`
	Address      *string    `json:"address"`
	ProfileImage *string    `json:"profileImage"`
}

// BloodTypeCount is one bucket of the blood type distribution.
type BloodTypeCount struct {
	BloodType string `json:"bloodType"`
	Count     int    `json:"count"`
}

// Stats aggregates patient counts over users that are not soft-deleted.
// PatientsWithoutMedicalRecords is always Total minus With.
type Stats struct {
	TotalPatients                 int              `json:"totalPatients"`
	PatientsWithMedicalRecords    int              `json:"patientsWithMedicalRecords"`
	PatientsWithoutMedicalRecords int              `json:"patientsWithoutMedicalRecords"`
	BloodTypeDistribution         []BloodTypeCount `json:"bloodTypeDistribution"`
}
