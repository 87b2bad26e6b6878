package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/webapp/internal/common"
	"github.com/dmitrijs2005/webapp/internal/dbx"
	"github.com/dmitrijs2005/webapp/internal/server/models"
)

// EmailConstraint is the unique constraint guarding users.email.
const EmailConstraint = "users_email_key"

// PostgresRepository implements account storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new account. A duplicate email yields common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (id, email, first_name, last_name, password_hash,
		     account_created, account_updated, verified, verification_token, verification_expires)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 `

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.FirstName, user.LastName, user.PasswordHash,
		user.AccountCreated, user.AccountUpdated, user.Verified, user.VerificationToken, user.VerificationExpires)

	if err != nil {
		if dbx.IsUniqueViolation(err, EmailConstraint) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// GetByEmail looks the account up by exact email and includes the password hash.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT id, email, first_name, last_name, password_hash, account_created, account_updated,
		     verified, verification_token, verification_expires
		 FROM users
		 WHERE email = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.PasswordHash,
		&user.AccountCreated, &user.AccountUpdated,
		&user.Verified, &user.VerificationToken, &user.VerificationExpires)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// GetByID returns the public view of an account. PasswordHash is left empty.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT id, email, first_name, last_name, account_created, account_updated, verified
		 FROM users
		 WHERE id = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName,
		&user.AccountCreated, &user.AccountUpdated, &user.Verified)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// Update applies the non-nil fields of upd and always stamps account_updated.
func (r *PostgresRepository) Update(ctx context.Context, id string, upd models.UserUpdate) error {
	query :=
		`UPDATE users SET
		     first_name = COALESCE($2, first_name),
		     last_name = COALESCE($3, last_name),
		     password_hash = COALESCE($4, password_hash),
		     account_updated = $5
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, upd.FirstName, upd.LastName, upd.PasswordHash, upd.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

// GetByVerificationToken locks and returns the account holding token if it
// expires strictly after now. Intended to run inside a transaction.
func (r *PostgresRepository) GetByVerificationToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	query :=
		`SELECT id, email, verified, verification_token, verification_expires
		 FROM users
		 WHERE verification_token = $1 AND verification_expires > $2
		 FOR UPDATE
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, token, now).Scan(
		&user.ID, &user.Email, &user.Verified, &user.VerificationToken, &user.VerificationExpires)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// MarkVerified sets the verified flag and clears the token and its expiry.
func (r *PostgresRepository) MarkVerified(ctx context.Context, id string, now time.Time) error {
	query :=
		`UPDATE users SET
		     verified = true,
		     verification_token = NULL,
		     verification_expires = NULL,
		     account_updated = $2
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
