package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `p.id, p.user_id, p.medical_record, p.blood_type, p.allergies,
	p.chronic_diseases, p.emergency_contact, p.emergency_phone, p.height, p.weight,
	p.created_at, p.updated_at,
	u.id, u.name, u.email, u.phone, u.date_of_birth, u.gender, u.address, u.profile_image`

const patientFrom = ` FROM patients p JOIN users u ON u.id = p.user_id`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var u UserSummary
	err := row.Scan(
		&p.ID, &p.UserID, &p.MedicalRecord, &p.BloodType, &p.Allergies,
		&p.ChronicDiseases, &p.EmergencyContact, &p.EmergencyPhone, &p.Height, &p.Weight,
		&p.CreatedAt, &p.UpdatedAt,
		&u.ID, &u.Name, &u.Email, &u.Phone, &u.DateOfBirth, &u.Gender, &u.Address, &u.ProfileImage,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.User = &u
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (
			id, user_id, medical_record, blood_type, allergies,
			chronic_diseases, emergency_contact, emergency_phone, height, weight
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.UserID, p.MedicalRecord, p.BloodType, p.Allergies,
		p.ChronicDiseases, p.EmergencyContact, p.EmergencyPhone, p.Height, p.Weight,
	)
	if err != nil {
		return fmt.Errorf("patient create: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+patientFrom+` WHERE p.id = $1`, id))
}

func (r *repoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+patientFrom+` WHERE p.user_id = $1`, userID))
}

func (r *repoPG) ExistsByUserID(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patients WHERE user_id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("patient exists by user: %w", err)
	}
	return exists, nil
}

// sortColumns whitelists ListQuery.SortField values against real columns.
var sortColumns = map[string]string{
	"createdAt": "p.created_at",
	"updatedAt": "p.updated_at",
	"height":    "p.height",
	"weight":    "p.weight",
}

func listPredicate(q ListQuery) (string, []interface{}) {
	where := []string{"u.deleted_at IS NULL"}
	var args []interface{}

	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(u.name ILIKE $%d OR u.email ILIKE $%d OR u.phone ILIKE $%d)", n, n, n))
	}
	if q.BloodType != "" {
		args = append(args, q.BloodType)
		where = append(where, fmt.Sprintf("p.blood_type = $%d", len(args)))
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func (r *repoPG) List(ctx context.Context, q ListQuery) ([]*Patient, int, error) {
	predicate, args := listPredicate(q)

	sortCol, ok := sortColumns[q.SortField]
	if !ok {
		sortCol = "p.created_at"
	}
	dir := "DESC"
	if q.SortBy == "asc" {
		dir = "ASC"
	}

	var (
		patients []*Patient
		total    int
	)
	err := db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		c := r.conn(ctx)

		if err := c.QueryRow(ctx,
			`SELECT COUNT(*)`+patientFrom+predicate, args...).Scan(&total); err != nil {
			return fmt.Errorf("patient count: %w", err)
		}

		pageArgs := append(args, q.Limit, q.Offset())
		rows, err := c.Query(ctx,
			`SELECT `+patientCols+patientFrom+predicate+
				fmt.Sprintf(" ORDER BY %s %s LIMIT $%d OFFSET $%d", sortCol, dir, len(args)+1, len(args)+2),
			pageArgs...)
		if err != nil {
			return fmt.Errorf("patient list: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanPatient(rows)
			if err != nil {
				return err
			}
			patients = append(patients, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return patients, total, nil
}

func (r *repoPG) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	err := db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		c := r.conn(ctx)

		if err := c.QueryRow(ctx, `
			SELECT COUNT(*)`+patientFrom+`
			WHERE u.deleted_at IS NULL`).Scan(&stats.TotalPatients); err != nil {
			return fmt.Errorf("patient stats total: %w", err)
		}

		if err := c.QueryRow(ctx, `
			SELECT COUNT(*)`+patientFrom+`
			WHERE u.deleted_at IS NULL AND p.medical_record IS NOT NULL`).
			Scan(&stats.PatientsWithMedicalRecords); err != nil {
			return fmt.Errorf("patient stats medical records: %w", err)
		}

		rows, err := c.Query(ctx, `
			SELECT p.blood_type, COUNT(*)`+patientFrom+`
			WHERE u.deleted_at IS NULL AND p.blood_type IS NOT NULL
			GROUP BY p.blood_type
			ORDER BY p.blood_type`)
		if err != nil {
			return fmt.Errorf("patient stats blood types: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var bt BloodTypeCount
			if err := rows.Scan(&bt.BloodType, &bt.Count); err != nil {
				return err
			}
			stats.BloodTypeDistribution = append(stats.BloodTypeDistribution, bt)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	stats.PatientsWithoutMedicalRecords = stats.TotalPatients - stats.PatientsWithMedicalRecords
	return &stats, nil
}

func (r *repoPG) Update(ctx context.Context, id uuid.UUID, patch UpdateInput) (*Patient, error) {
	args := []interface{}{id}
	var set []string
	add := func(col string, v interface{}) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s=$%d", col, len(args)))
	}

	if patch.MedicalRecord != nil {
		add("medical_record", *patch.MedicalRecord)
	}
	if patch.BloodType != nil {
		add("blood_type", *patch.BloodType)
	}
	if patch.Allergies != nil {
		add("allergies", *patch.Allergies)
	}
	if patch.ChronicDiseases != nil {
		add("chronic_diseases", *patch.ChronicDiseases)
	}
	if patch.EmergencyContact != nil {
		add("emergency_contact", *patch.EmergencyContact)
	}
	if patch.EmergencyPhone != nil {
		add("emergency_phone", *patch.EmergencyPhone)
	}
	if patch.Height.Valid {
		add("height", patch.Height.Value)
	}
	if patch.Weight.Valid {
		add("weight", patch.Weight.Value)
	}

	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}
	set = append(set, "updated_at=NOW()")

	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patients SET `+strings.Join(set, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return nil, fmt.Errorf("patient update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("patient delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
