package patient

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/user"
)

// ── Mocks ──

type mockUserRepo struct {
	users map[uuid.UUID]*user.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*user.User)}
}

func (m *mockUserRepo) GetActiveByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) add(role string, name string) uuid.UUID {
	id := uuid.New()
	m.users[id] = &user.User{ID: id, Name: name, Email: name + "@clinic.test", Role: role}
	return id
}

type mockPatientRepo struct {
	byID map[uuid.UUID]*Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{byID: make(map[uuid.UUID]*Patient)}
}

func (m *mockPatientRepo) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *mockPatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPatientRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	for _, p := range m.byID {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockPatientRepo) ExistsByUserID(ctx context.Context, userID uuid.UUID) (bool, error) {
	for _, p := range m.byID {
		if p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockPatientRepo) List(ctx context.Context, q ListQuery) ([]*Patient, int, error) {
	all := make([]*Patient, 0, len(m.byID))
	for _, p := range m.byID {
		cp := *p
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID.String() < all[j].ID.String() })

	total := len(all)
	start := q.Offset()
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (m *mockPatientRepo) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	byType := make(map[string]int)
	for _, p := range m.byID {
		stats.TotalPatients++
		if p.MedicalRecord != nil {
			stats.PatientsWithMedicalRecords++
		}
		if p.BloodType != nil {
			byType[*p.BloodType]++
		}
	}
	stats.PatientsWithoutMedicalRecords = stats.TotalPatients - stats.PatientsWithMedicalRecords
	for bt, n := range byType {
		stats.BloodTypeDistribution = append(stats.BloodTypeDistribution, BloodTypeCount{BloodType: bt, Count: n})
	}
	return stats, nil
}

func (m *mockPatientRepo) Update(ctx context.Context, id uuid.UUID, patch UpdateInput) (*Patient, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.MedicalRecord != nil {
		p.MedicalRecord = patch.MedicalRecord
	}
	if patch.BloodType != nil {
		p.BloodType = patch.BloodType
	}
	if patch.Allergies != nil {
		p.Allergies = patch.Allergies
	}
	if patch.ChronicDiseases != nil {
		p.ChronicDiseases = patch.ChronicDiseases
	}
	if patch.EmergencyContact != nil {
		p.EmergencyContact = patch.EmergencyContact
	}
	if patch.EmergencyPhone != nil {
		p.EmergencyPhone = patch.EmergencyPhone
	}
	if patch.Height.Valid {
		p.Height = patch.Height.Ptr()
	}
	if patch.Weight.Valid {
		p.Weight = patch.Weight.Ptr()
	}
	cp := *p
	return &cp, nil
}

func (m *mockPatientRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func newTestService() (*Service, *mockPatientRepo, *mockUserRepo) {
	patients := newMockPatientRepo()
	users := newMockUserRepo()
	return NewService(patients, users), patients, users
}

// attachUser mirrors the user summary join the SQL repository performs.
func attachUser(patients *mockPatientRepo, users *mockUserRepo) {
	for _, p := range patients.byID {
		if u, ok := users.users[p.UserID]; ok {
			p.User = &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
		}
	}
}

// ── Create ──

func TestCreate_UnknownUser(t *testing.T) {
	svc, _, _ := newTestService()
	in := CreateInput{UserID: uuid.New().String()}
	_, err := svc.Create(context.Background(), in)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCreate_SoftDeletedUser(t *testing.T) {
	svc, _, users := newTestService()
	uid := users.add(user.RolePatient, "Gone")
	now := users.users[uid].CreatedAt
	users.users[uid].DeletedAt = &now

	_, err := svc.Create(context.Background(), CreateInput{UserID: uid.String()})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCreate_WrongRole(t *testing.T) {
	svc, _, users := newTestService()
	uid := users.add("Admin", "Staff")

	_, err := svc.Create(context.Background(), CreateInput{UserID: uid.String()})
	if !errors.Is(err, ErrNotPatientRole) {
		t.Fatalf("expected ErrNotPatientRole, got %v", err)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	svc, _, users := newTestService()
	uid := users.add(user.RolePatient, "Jane")

	if _, err := svc.Create(context.Background(), CreateInput{UserID: uid.String()}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.Create(context.Background(), CreateInput{UserID: uid.String()})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreate_RoundTripsSubmittedFields(t *testing.T) {
	svc, _, users := newTestService()
	uid := users.add(user.RolePatient, "Jane")

	in := CreateInput{
		UserID:        uid.String(),
		MedicalRecord: strPtr("asthma"),
		BloodType:     strPtr("O+"),
		Height:        FlexFloat{Value: 170, Valid: true},
	}
	p, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.UserID != uid {
		t.Errorf("expected userId %s, got %s", uid, p.UserID)
	}
	if p.MedicalRecord == nil || *p.MedicalRecord != "asthma" {
		t.Errorf("medicalRecord not round-tripped: %v", p.MedicalRecord)
	}
	if p.BloodType == nil || *p.BloodType != "O+" {
		t.Errorf("bloodType not round-tripped: %v", p.BloodType)
	}
	if p.Height == nil || *p.Height != 170 {
		t.Errorf("height not round-tripped: %v", p.Height)
	}
	// Omitted optional fields stay absent
	if p.Allergies != nil || p.Weight != nil || p.EmergencyPhone != nil {
		t.Errorf("omitted fields should be absent: %+v", p)
	}
}

// ── Lookups ──

func TestGet_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Get(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetByUserID(t *testing.T) {
	svc, _, users := newTestService()
	uid := users.add(user.RolePatient, "Jane")
	created, err := svc.Create(context.Background(), CreateInput{UserID: uid.String()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.GetByUserID(context.Background(), uid)
	if err != nil {
		t.Fatalf("get by user: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("expected id %s, got %s", created.ID, got.ID)
	}
}

// ── Update ──

func TestUpdate_NotFoundLeavesStateUntouched(t *testing.T) {
	svc, patients, users := newTestService()
	uid := users.add(user.RolePatient, "Jane")
	created, err := svc.Create(context.Background(), CreateInput{UserID: uid.String(), BloodType: strPtr("A-")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Update(context.Background(), uuid.New(), UpdateInput{BloodType: strPtr("B+")})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	stored := patients.byID[created.ID]
	if *stored.BloodType != "A-" {
		t.Errorf("existing record mutated: %q", *stored.BloodType)
	}
}

func TestUpdate_PartialPatch(t *testing.T) {
	svc, _, users := newTestService()
	uid := users.add(user.RolePatient, "Jane")
	created, err := svc.Create(context.Background(), CreateInput{
		UserID:        uid.String(),
		MedicalRecord: strPtr("asthma"),
		BloodType:     strPtr("A-"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{
		BloodType: strPtr("AB+"),
		Weight:    FlexFloat{Value: 64, Valid: true},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if *updated.BloodType != "AB+" {
		t.Errorf("expected bloodType AB+, got %q", *updated.BloodType)
	}
	if updated.Weight == nil || *updated.Weight != 64 {
		t.Errorf("expected weight 64, got %v", updated.Weight)
	}
	if updated.MedicalRecord == nil || *updated.MedicalRecord != "asthma" {
		t.Errorf("untouched field changed: %v", updated.MedicalRecord)
	}
}

func TestUpdateByUserID(t *testing.T) {
	svc, _, users := newTestService()
	uid := users.add(user.RolePatient, "Jane")
	if _, err := svc.Create(context.Background(), CreateInput{UserID: uid.String()}); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.UpdateByUserID(context.Background(), uid, UpdateInput{Allergies: strPtr("dust")})
	if err != nil {
		t.Fatalf("update by user: %v", err)
	}
	if updated.Allergies == nil || *updated.Allergies != "dust" {
		t.Errorf("expected allergies 'dust', got %v", updated.Allergies)
	}

	_, err = svc.UpdateByUserID(context.Background(), uuid.New(), UpdateInput{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

// ── Remove ──

func TestRemove_ThenGetNotFound(t *testing.T) {
	svc, patients, users := newTestService()
	uid := users.add(user.RolePatient, "Jane Doe")
	created, err := svc.Create(context.Background(), CreateInput{UserID: uid.String()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	attachUser(patients, users)

	name, err := svc.Remove(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if name != "Jane Doe" {
		t.Errorf("expected owner name 'Jane Doe', got %q", name)
	}

	if _, err := svc.Get(context.Background(), created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRemove_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Remove(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ── Stats ──

func TestStats_WithoutEqualsTotalMinusWith(t *testing.T) {
	svc, _, users := newTestService()
	for i, record := range []*string{strPtr("migraine"), nil, strPtr("diabetes"), nil, nil} {
		uid := users.add(user.RolePatient, "p")
		in := CreateInput{UserID: uid.String(), MedicalRecord: record}
		if i%2 == 0 {
			in.BloodType = strPtr("O+")
		}
		if _, err := svc.Create(context.Background(), in); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalPatients != 5 {
		t.Errorf("expected total 5, got %d", stats.TotalPatients)
	}
	if stats.PatientsWithMedicalRecords != 2 {
		t.Errorf("expected 2 with records, got %d", stats.PatientsWithMedicalRecords)
	}
	if stats.PatientsWithoutMedicalRecords != stats.TotalPatients-stats.PatientsWithMedicalRecords {
		t.Errorf("without != total - with: %+v", stats)
	}
	if len(stats.BloodTypeDistribution) != 1 || stats.BloodTypeDistribution[0].Count != 3 {
		t.Errorf("unexpected blood type distribution: %+v", stats.BloodTypeDistribution)
	}
}
