package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/keywarden/keywarden/internal/common"
	"github.com/keywarden/keywarden/internal/dbx"
	"github.com/keywarden/keywarden/internal/server/models"
)

// pgUniqueViolation is the PostgreSQL error code for unique_violation.
const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new identity record. Uniqueness of email is enforced by
// the database constraint, so two concurrent registrations race safely:
// exactly one succeeds, the other observes common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (id, email, user_key, salt, iterations, vault, vault_iv)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.AuthKey, user.Salt, user.Iterations, user.Vault, user.VaultIV).Scan(&user.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorUnavailable, err)
	}

	return user, nil
}

// GetByEmail returns the record for an email, or common.ErrorNotFound.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT id, email, user_key, salt, iterations, vault, vault_iv, created_at FROM users
		 WHERE email = $1
		 `

	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

// GetByEmailAndKey returns the record matching both email and authentication
// key exactly. A miss on either field collapses to common.ErrorNotFound.
func (r *PostgresRepository) GetByEmailAndKey(ctx context.Context, email, authKey string) (*models.User, error) {
	query :=
		`SELECT id, email, user_key, salt, iterations, vault, vault_iv, created_at FROM users
		 WHERE email = $1 AND user_key = $2
		 `

	return r.scanUser(r.db.QueryRowContext(ctx, query, email, authKey))
}

func (r *PostgresRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.AuthKey, &user.Salt, &user.Iterations,
		&user.Vault, &user.VaultIV, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorUnavailable, err)
	}

	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
