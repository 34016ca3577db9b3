package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/user"
)

// Business rule violations surfaced by the service. Handlers map these to
// HTTP statuses with errors.Is.
var (
	ErrUserNotFound   = errors.New("owning user not found")
	ErrNotPatientRole = errors.New("user must have Patient role")
	ErrAlreadyExists  = errors.New("patient record already exists for this user")
)

type Service struct {
	patients Repository
	users    user.Repository
}

func NewService(patients Repository, users user.Repository) *Service {
	return &Service{patients: patients, users: users}
}

// Create attaches a new patient record to an active user holding the
// Patient role. At most one record may exist per user.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Patient, error) {
	userID, err := uuid.Parse(in.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	u, err := s.users.GetActiveByID(ctx, userID)
	if errors.Is(err, user.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.Role != user.RolePatient {
		return nil, ErrNotPatientRole
	}

	exists, err := s.patients.ExistsByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyExists
	}

	p := &Patient{
		UserID:           userID,
		MedicalRecord:    in.MedicalRecord,
		BloodType:        in.BloodType,
		Allergies:        in.Allergies,
		ChronicDiseases:  in.ChronicDiseases,
		EmergencyContact: in.EmergencyContact,
		EmergencyPhone:   in.EmergencyPhone,
		Height:           in.Height.Ptr(),
		Weight:           in.Weight.Ptr(),
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, err
	}
	return s.patients.GetByID(ctx, p.ID)
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]*Patient, int, error) {
	return s.patients.List(ctx, q)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.patients.Stats(ctx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	return s.patients.GetByUserID(ctx, userID)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, patch UpdateInput) (*Patient, error) {
	return s.patients.Update(ctx, id, patch)
}

// UpdateByUserID resolves the record owned by userID and delegates to Update.
func (s *Service) UpdateByUserID(ctx context.Context, userID uuid.UUID, patch UpdateInput) (*Patient, error) {
	p, err := s.patients.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.patients.Update(ctx, p.ID, patch)
}

// Remove hard-deletes the record and returns the owning user's name for
// the confirmation message.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) (string, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	name := ""
	if p.User != nil {
		name = p.User.Name
	}
	if err := s.patients.Delete(ctx, id); err != nil {
		return "", err
	}
	return name, nil
}
