package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/existflow/taskflow/internal/model"
)

const userColumns = `id, name, email, password_hash, avatar, role, status, email_verified,
	verification_token_hash, verification_expires_at, verification_sent_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		u                       model.User
		passwordHash, tokenHash sql.NullString
		expiresAt, sentAt       sql.NullString
		role, status, createdAt string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &passwordHash, &u.Avatar, &role, &status,
		&u.EmailVerified, &tokenHash, &expiresAt, &sentAt, &createdAt); err != nil {
		return model.User{}, err
	}

	u.PasswordHash = passwordHash.String
	u.VerificationTokenHash = tokenHash.String
	u.Role = model.Role(role)
	u.Status = model.Presence(status)

	var err error
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.User{}, err
	}
	if u.VerificationExpiresAt, err = parseNullTime(expiresAt); err != nil {
		return model.User{}, err
	}
	if u.VerificationSentAt, err = parseNullTime(sentAt); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// CreateUser inserts u. A taken email yields ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, u model.User) error {
	hash := sql.NullString{String: u.PasswordHash, Valid: u.PasswordHash != ""}
	tokenHash := sql.NullString{String: u.VerificationTokenHash, Valid: u.VerificationTokenHash != ""}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, avatar, role, status, email_verified,
			verification_token_hash, verification_expires_at, verification_sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		u.ID, u.Name, u.Email, hash, u.Avatar, string(u.Role), string(u.Status), u.EmailVerified,
		tokenHash, nullTime(u.VerificationExpiresAt), nullTime(u.VerificationSentAt), formatTime(u.CreatedAt),
	)
	return wrapWrite("create user", err)
}

// GetUser returns the user with the given id
func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	return u, wrapRead("get user", err)
}

// GetUserByEmail looks a user up by its normalized email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	return u, wrapRead("get user by email", err)
}

// GetUserByVerificationHash finds the user holding a pending verification token
func (s *Store) GetUserByVerificationHash(ctx context.Context, hash string) (model.User, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE verification_token_hash = $1`, hash)
	u, err := scanUser(row)
	return u, wrapRead("get user by verification token", err)
}

// EarliestUser returns the first account ever created
func (s *Store) EarliestUser(ctx context.Context) (model.User, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC LIMIT 1`)
	u, err := scanUser(row)
	return u, wrapRead("get earliest user", err)
}

// ListUsers returns every account, newest first
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, wrapRead("list users", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, wrapRead("scan user", err)
		}
		users = append(users, u)
	}
	return users, wrapRead("list users", rows.Err())
}

// UpdateAccount overwrites the profile and credential fields of u
func (s *Store) UpdateAccount(ctx context.Context, u model.User) error {
	hash := sql.NullString{String: u.PasswordHash, Valid: u.PasswordHash != ""}
	res, err := s.q.ExecContext(ctx, `
		UPDATE users SET name = $1, password_hash = $2, avatar = $3, role = $4, status = $5, email_verified = $6
		WHERE id = $7`,
		u.Name, hash, u.Avatar, string(u.Role), string(u.Status), u.EmailVerified, u.ID,
	)
	return expectRow("update user", res, err)
}

// RenewVerificationToken stores a pending verification token hash unless a
// token was already sent after sentBefore. It returns ErrThrottled when the
// user was sent one more recently.
func (s *Store) RenewVerificationToken(ctx context.Context, userID, hash string, expiresAt, sentAt, sentBefore time.Time) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE users SET verification_token_hash = $1, verification_expires_at = $2, verification_sent_at = $3
		WHERE id = $4 AND (verification_sent_at IS NULL OR verification_sent_at <= $5)`,
		hash, formatTime(expiresAt), formatTime(sentAt), userID, formatTime(sentBefore),
	)
	if err := expectRow("renew verification token", res, err); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrThrottled
		}
		return err
	}
	return nil
}

// MarkEmailVerified flags the email as verified and consumes the token
func (s *Store) MarkEmailVerified(ctx context.Context, userID string) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE users SET email_verified = $1, verification_token_hash = NULL, verification_expires_at = NULL
		WHERE id = $2`,
		true, userID,
	)
	return expectRow("mark email verified", res, err)
}

// expectRow turns an update that touched nothing into ErrNotFound
func expectRow(op string, res sql.Result, err error) error {
	if err != nil {
		return wrapWrite(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapWrite(op, err)
	}
	if n == 0 {
		return wrapRead(op, sql.ErrNoRows)
	}
	return nil
}
