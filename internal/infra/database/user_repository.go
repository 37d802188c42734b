package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xavierca1/crm-sync/internal/entity"
)

const uniqueViolation = "23505"

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserRepository struct {
	DB DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{DB: db}
}

const userColumns = `id, name, email, phone, sync_status, crm_id, last_updated`

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	query := `
		INSERT INTO users (id, name, email, phone, sync_status, crm_id, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.DB.Exec(ctx, query,
		u.ID,
		u.Name,
		u.Email,
		u.Phone,
		string(u.SyncStatus),
		u.CRMID,
		u.LastUpdated,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *UserRepository) FindByCRMID(ctx context.Context, crmID string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE crm_id = $1`
	return r.findOne(ctx, query, crmID)
}

func (r *UserRepository) List(ctx context.Context) ([]*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY last_updated DESC, id`
	return r.findMany(ctx, query)
}

// ListByStatus returns rows oldest first so a sync run pushes users in the
// order they were registered.
func (r *UserRepository) ListByStatus(ctx context.Context, status entity.SyncStatus) ([]*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE sync_status = $1 ORDER BY last_updated, id`
	return r.findMany(ctx, query, string(status))
}

// MarkSynced only moves a row out of pending. A row already claimed by another
// run is left alone and reported as not found.
func (r *UserRepository) MarkSynced(ctx context.Context, id, crmID string) error {
	query := `
		UPDATE users
		SET sync_status = 'synced', crm_id = $2, last_updated = NOW()
		WHERE id = $1 AND sync_status = 'pending'
	`
	tag, err := r.DB.Exec(ctx, query, id, crmID)
	if err != nil {
		return fmt.Errorf("mark user synced: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) MarkFailed(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET sync_status = 'failed', last_updated = NOW()
		WHERE id = $1 AND sync_status = 'pending'
	`
	tag, err := r.DB.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark user failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrUserNotFound
	}
	return nil
}

// ApplyPatch overwrites only the fields set in patch. sync_status and crm_id
// are never touched here.
func (r *UserRepository) ApplyPatch(ctx context.Context, id string, patch entity.UserPatch, at time.Time) error {
	query := `
		UPDATE users
		SET name = COALESCE($2, name),
		    email = COALESCE($3, email),
		    phone = COALESCE($4, phone),
		    last_updated = $5
		WHERE id = $1
	`
	tag, err := r.DB.Exec(ctx, query, id, patch.Name, patch.Email, patch.Phone, at)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.ErrEmailAlreadyExists
		}
		return fmt.Errorf("patch user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*entity.User, error) {
	u, err := scanUser(r.DB.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) findMany(ctx context.Context, query string, args ...any) ([]*entity.User, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*entity.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (*entity.User, error) {
	var (
		u      entity.User
		status string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &status, &u.CRMID, &u.LastUpdated); err != nil {
		return nil, err
	}
	u.SyncStatus = entity.SyncStatus(status)
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
