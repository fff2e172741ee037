package clinic

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthwatch/healthwatch/internal/platform/db"
)

type settingsRepoPG struct{ pool *pgxpool.Pool }

func NewSettingsRepoPG(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepoPG{pool: pool}
}

const settingsCols = `id, name, address, phone, created_at, updated_at`

var errNoTx = errors.New("clinic settings lock requires a transaction")

func (r *settingsRepoPG) scanRow(row pgx.Row) (*Settings, error) {
	var s Settings
	if err := row.Scan(&s.ID, &s.Name, &s.Address, &s.Phone, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, db.NotFound(err)
	}
	return &s, nil
}

// LockForCreate takes an EXCLUSIVE table lock: readers continue, other
// writers wait until the transaction ends.
func (r *settingsRepoPG) LockForCreate(ctx context.Context) error {
	tx := db.TxFromContext(ctx)
	if tx == nil {
		return errNoTx
	}
	_, err := tx.Exec(ctx, `LOCK TABLE clinic_settings IN EXCLUSIVE MODE`)
	return err
}

func (r *settingsRepoPG) Exists(ctx context.Context) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM clinic_settings)`).Scan(&exists)
	return exists, err
}

func (r *settingsRepoPG) Create(ctx context.Context, s *Settings) error {
	s.ID = uuid.New()
	got, err := r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO clinic_settings (id, name, address, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING `+settingsCols,
		s.ID, s.Name, s.Address, s.Phone))
	if err != nil {
		return err
	}
	*s = *got
	return nil
}

func (r *settingsRepoPG) Get(ctx context.Context) (*Settings, error) {
	return r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+settingsCols+` FROM clinic_settings LIMIT 1`))
}

func (r *settingsRepoPG) Update(ctx context.Context, s *Settings) error {
	got, err := r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE clinic_settings SET name = $1, address = $2, phone = $3, updated_at = NOW()
		RETURNING `+settingsCols,
		s.Name, s.Address, s.Phone))
	if err != nil {
		return err
	}
	*s = *got
	return nil
}

func (r *settingsRepoPG) Delete(ctx context.Context) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM clinic_settings`)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}
