package observation

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthwatch/healthwatch/internal/domain/risk"
	"github.com/healthwatch/healthwatch/internal/platform/db"
)

type observationRepoPG struct{ pool *pgxpool.Pool }

func NewObservationRepoPG(pool *pgxpool.Pool) ObservationRepository {
	return &observationRepoPG{pool: pool}
}

const obsCols = `o.id, o.member_id, m.full_name, o.temperature, o.symptoms_present,
	o.close_contact, o.chronic_disease, o.risk_score, o.risk_level, o.recommendation,
	o.created_at, o.updated_at`

const obsFrom = ` FROM health_observation o JOIN team_member m ON m.id = o.member_id`

func (r *observationRepoPG) scanRow(row pgx.Row) (*Observation, error) {
	var o Observation
	var level string
	err := row.Scan(&o.ID, &o.MemberID, &o.MemberName, &o.Temperature, &o.SymptomsPresent,
		&o.CloseContact, &o.ChronicDisease, &o.RiskScore, &level, &o.Recommendation,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, db.NotFound(err)
	}
	o.RiskLevel = risk.Level(level)
	return &o, nil
}

// Create inserts the raw and derived fields in one statement and reads
// back the member name and timestamps. A non-zero o.CreatedAt is stored as
// the creation time; otherwise the database clock is used.
func (r *observationRepoPG) Create(ctx context.Context, o *Observation) error {
	o.ID = uuid.New()
	var createdAt *time.Time
	if !o.CreatedAt.IsZero() {
		createdAt = &o.CreatedAt
	}
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		WITH o AS (
			INSERT INTO health_observation (id, member_id, temperature, symptoms_present,
				close_contact, chronic_disease, risk_score, risk_level, recommendation,
				created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9,
				COALESCE($10::timestamptz, NOW()), COALESCE($10::timestamptz, NOW()))
			RETURNING *
		)
		SELECT `+obsCols+` FROM o JOIN team_member m ON m.id = o.member_id`,
		o.ID, o.MemberID, o.Temperature, o.SymptomsPresent,
		o.CloseContact, o.ChronicDisease, o.RiskScore, string(o.RiskLevel), o.Recommendation,
		createdAt)
	return r.scanInto(o, row)
}

func (r *observationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Observation, error) {
	return r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+obsCols+obsFrom+` WHERE o.id = $1`, id))
}

// Update overwrites raw and derived fields together. created_at is left
// untouched.
func (r *observationRepoPG) Update(ctx context.Context, o *Observation) error {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		WITH o AS (
			UPDATE health_observation SET member_id = $2, temperature = $3,
				symptoms_present = $4, close_contact = $5, chronic_disease = $6,
				risk_score = $7, risk_level = $8, recommendation = $9, updated_at = NOW()
			WHERE id = $1
			RETURNING *
		)
		SELECT `+obsCols+` FROM o JOIN team_member m ON m.id = o.member_id`,
		o.ID, o.MemberID, o.Temperature, o.SymptomsPresent,
		o.CloseContact, o.ChronicDisease, o.RiskScore, string(o.RiskLevel), o.Recommendation)
	return r.scanInto(o, row)
}

func (r *observationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM health_observation WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *observationRepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Observation, int, error) {
	var conds []string
	var args []interface{}
	if filter.MemberID != nil {
		args = append(args, *filter.MemberID)
		conds = append(conds, "o.member_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Level != "" {
		args = append(args, string(filter.Level))
		conds = append(conds, "o.risk_level = $"+strconv.Itoa(len(args)))
	}
	if filter.MemberName != "" {
		args = append(args, db.ContainsPattern(filter.MemberName))
		conds = append(conds, "m.full_name ILIKE $"+strconv.Itoa(len(args))+` ESCAPE '\'`)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*)`+obsFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	args = append(args, limit, offset)
	rows, err := conn.Query(ctx, `SELECT `+obsCols+obsFrom+where+
		` ORDER BY o.created_at DESC, o.id LIMIT $`+strconv.Itoa(n+1)+` OFFSET $`+strconv.Itoa(n+2), args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.collect(rows)
	return items, total, err
}

func (r *observationRepoPG) ListAll(ctx context.Context) ([]*Observation, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+obsCols+obsFrom+` ORDER BY o.created_at DESC, o.id`)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *observationRepoPG) collect(rows pgx.Rows) ([]*Observation, error) {
	defer rows.Close()
	var items []*Observation
	for rows.Next() {
		o, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

func (r *observationRepoPG) scanInto(o *Observation, row pgx.Row) error {
	got, err := r.scanRow(row)
	if err != nil {
		return err
	}
	*o = *got
	return nil
}
