package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthwatch/healthwatch/internal/platform/auth"
	"github.com/healthwatch/healthwatch/internal/platform/db"
)

type accountRepoPG struct{ pool *pgxpool.Pool }

func NewAccountRepoPG(pool *pgxpool.Pool) AccountRepository {
	return &accountRepoPG{pool: pool}
}

const accountCols = `id, username, password_hash, role, active, created_at, updated_at`

func (r *accountRepoPG) scanRow(row pgx.Row) (*Account, error) {
	var a Account
	var role string
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &role, &a.Active, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, db.NotFound(err)
	}
	a.Role = auth.Role(role)
	return &a, nil
}

func (r *accountRepoPG) Create(ctx context.Context, a *Account) error {
	a.ID = uuid.New()
	got, err := r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO account (id, username, password_hash, role, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+accountCols,
		a.ID, a.Username, a.PasswordHash, string(a.Role), a.Active))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return err
	}
	*a = *got
	return nil
}

func (r *accountRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+accountCols+` FROM account WHERE id = $1`, id))
}

func (r *accountRepoPG) GetByUsername(ctx context.Context, username string) (*Account, error) {
	return r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+accountCols+` FROM account WHERE username = $1`, username))
}

func (r *accountRepoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) (*Account, error) {
	return r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE account SET active = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+accountCols, id, active))
}

func (r *accountRepoPG) List(ctx context.Context, limit, offset int) ([]*Account, int, error) {
	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM account`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.Query(ctx, `SELECT `+accountCols+` FROM account ORDER BY username LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Account
	for rows.Next() {
		a, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}
