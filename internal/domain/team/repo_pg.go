package team

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthwatch/healthwatch/internal/platform/db"
)

type memberRepoPG struct{ pool *pgxpool.Pool }

func NewMemberRepoPG(pool *pgxpool.Pool) MemberRepository {
	return &memberRepoPG{pool: pool}
}

const memberCols = `id, full_name, age, position, created_at, updated_at`

func (r *memberRepoPG) scanRow(row pgx.Row) (*TeamMember, error) {
	var m TeamMember
	if err := row.Scan(&m.ID, &m.FullName, &m.Age, &m.Position, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, db.NotFound(err)
	}
	return &m, nil
}

func (r *memberRepoPG) Create(ctx context.Context, m *TeamMember) error {
	m.ID = uuid.New()
	return r.scanInto(m, db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO team_member (id, full_name, age, position)
		VALUES ($1, $2, $3, $4)
		RETURNING `+memberCols,
		m.ID, m.FullName, m.Age, m.Position))
}

func (r *memberRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TeamMember, error) {
	return r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+memberCols+` FROM team_member WHERE id = $1`, id))
}

func (r *memberRepoPG) Update(ctx context.Context, m *TeamMember) error {
	return r.scanInto(m, db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE team_member SET full_name = $2, age = $3, position = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+memberCols,
		m.ID, m.FullName, m.Age, m.Position))
}

func (r *memberRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM team_member WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *memberRepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*TeamMember, int, error) {
	where := ""
	args := []interface{}{}
	if filter.Name != "" {
		where = ` WHERE full_name ILIKE $1 ESCAPE '\'`
		args = append(args, db.ContainsPattern(filter.Name))
	}

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM team_member`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	args = append(args, limit, offset)
	rows, err := conn.Query(ctx, `SELECT `+memberCols+` FROM team_member`+where+
		` ORDER BY full_name, id LIMIT $`+strconv.Itoa(n+1)+` OFFSET $`+strconv.Itoa(n+2), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*TeamMember
	for rows.Next() {
		m, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *memberRepoPG) scanInto(m *TeamMember, row pgx.Row) error {
	got, err := r.scanRow(row)
	if err != nil {
		return err
	}
	*m = *got
	return nil
}
