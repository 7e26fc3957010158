package service

import (
	"context"
	"errors"
	"fmt"
	netmail "net/mail"
	"net/url"
	"strings"
	"sync"

	"github.com/existflow/taskflow/internal/apperr"
	"github.com/existflow/taskflow/internal/auth"
	"github.com/existflow/taskflow/internal/db"
	"github.com/existflow/taskflow/internal/logger"
	"github.com/existflow/taskflow/internal/mail"
	"github.com/existflow/taskflow/internal/model"
)

// MinPasswordLength is the shortest password accepted at signup
const MinPasswordLength = 6

// AdminWorkspaceName is the workspace created for a bootstrapped admin
const AdminWorkspaceName = "Admin Workspace"

// Identity handles accounts, credentials and email verification
type Identity struct {
	*core
	hasher auth.PasswordHasher
	tokens *auth.TokenIssuer
	mailer mail.Dispatcher
	verify VerificationConfig

	dummyOnce sync.Once
	dummyHash string
}

// Session is returned by signup and login
type Session struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// SignupInput is the signup request body
type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginInput is the login request body
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminAccount describes the global admin ensured at boot
type AdminAccount struct {
	Name     string
	Email    string
	Password string
}

var (
	errInvalidCredentials = apperr.Unauthenticated("Invalid email or password")
	errResendTooSoon      = apperr.RateLimited("Please wait before resending.")
)

// Signup creates an account with a starter workspace and returns a token
func (s *Identity) Signup(ctx context.Context, in SignupInput) (Session, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)

	fields := fieldErrors{}
	fields.require("name", name)
	if !validEmail(email) {
		fields["email"] = "must be a valid email address"
	}
	if len(in.Password) < MinPasswordLength {
		fields["password"] = fmt.Sprintf("must be at least %d characters", MinPasswordLength)
	}
	if err := fields.err(); err != nil {
		return Session{}, err
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return Session{}, apperr.Conflict("Email already in use")
	} else if !errors.Is(err, db.ErrNotFound) {
		return Session{}, fmt.Errorf("failed to look up email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Session{}, err
	}

	now := s.now().UTC()
	u := model.User{
		ID:           s.newID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Avatar:       model.DefaultAvatar,
		Role:         model.RoleMember,
		Status:       model.PresenceOnline,
		CreatedAt:    now,
	}

	var verifyToken string
	if s.verify.Enabled {
		token, tokenHash, err := auth.NewVerificationToken()
		if err != nil {
			return Session{}, err
		}
		expires := now.Add(auth.VerificationTTL)
		verifyToken = token
		u.VerificationTokenHash = tokenHash
		u.VerificationExpiresAt = &expires
		u.VerificationSentAt = &now
	}

	err = s.store.WithTx(ctx, func(tx *db.Store) error {
		if err := tx.CreateUser(ctx, u); err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				return apperr.Conflict("Email already in use")
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		_, err := s.seedWorkspace(ctx, tx, u.ID, model.DefaultWorkspaceName, "", model.DefaultWorkspaceColor)
		return err
	})
	if err != nil {
		return Session{}, err
	}

	logger.Info("User signed up", logger.F("user_id", u.ID), logger.F("email", u.Email))

	if verifyToken != "" {
		s.sendVerification(ctx, u, verifyToken)
	}

	token, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: u}, nil
}

// Login checks credentials. Unknown accounts, accounts without a password and
// wrong passwords fail identically.
func (s *Identity) Login(ctx context.Context, in LoginInput) (Session, error) {
	email := normalizeEmail(in.Email)

	fields := fieldErrors{}
	if !validEmail(email) {
		fields["email"] = "must be a valid email address"
	}
	fields.require("password", in.Password)
	if err := fields.err(); err != nil {
		return Session{}, err
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return Session{}, fmt.Errorf("failed to look up user: %w", err)
	}
	if err != nil || u.PasswordHash == "" {
		s.burnCompare(in.Password)
		return Session{}, errInvalidCredentials
	}
	if !s.hasher.Verify(in.Password, u.PasswordHash) {
		return Session{}, errInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return Session{}, err
	}
	logger.Debug("User logged in", logger.F("user_id", u.ID))
	return Session{Token: token, User: u}, nil
}

// burnCompare spends one hash comparison so a miss costs as much as a hit
func (s *Identity) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("taskflow-timing-equalizer")
		if err != nil {
			logger.Warn("Failed to prepare dummy hash", logger.Err(err))
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		s.hasher.Verify(password, s.dummyHash)
	}
}

// VerifyToken validates a bearer token
func (s *Identity) VerifyToken(raw string) (*auth.Claims, error) {
	return s.tokens.Verify(raw)
}

// Me returns the caller's account
func (s *Identity) Me(ctx context.Context, userID string) (model.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return model.User{}, apperr.Unauthenticated("User not found")
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

// VerifyEmail consumes a verification token
func (s *Identity) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return apperr.Validation("Missing token")
	}

	u, err := s.store.GetUserByVerificationHash(ctx, auth.HashVerificationToken(token))
	if errors.Is(err, db.ErrNotFound) {
		return apperr.Validation("Invalid token")
	}
	if err != nil {
		return fmt.Errorf("failed to look up verification token: %w", err)
	}
	if u.VerificationExpired(s.now()) {
		return apperr.Validation("Token expired")
	}

	if err := s.store.MarkEmailVerified(ctx, u.ID); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	logger.Info("Email verified", logger.F("user_id", u.ID))
	return nil
}

// ResendVerification issues a fresh verification email for the caller, or
// for email when there is no caller. Unknown and already verified accounts
// succeed silently.
func (s *Identity) ResendVerification(ctx context.Context, callerID, email string) error {
	if !s.verify.Enabled {
		return nil
	}

	var (
		u     model.User
		found bool
	)
	if callerID != "" {
		user, err := s.store.GetUser(ctx, callerID)
		switch {
		case err == nil:
			u, found = user, true
		case !errors.Is(err, db.ErrNotFound):
			return fmt.Errorf("failed to load user: %w", err)
		}
	}
	if !found && email != "" {
		user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
		switch {
		case err == nil:
			u, found = user, true
		case !errors.Is(err, db.ErrNotFound):
			return fmt.Errorf("failed to look up user: %w", err)
		}
	}
	if !found || u.EmailVerified {
		return nil
	}

	now := s.now().UTC()
	if u.VerificationSentAt != nil && now.Sub(*u.VerificationSentAt) < auth.ResendInterval {
		return errResendTooSoon
	}

	token, hash, err := auth.NewVerificationToken()
	if err != nil {
		return err
	}
	err = s.store.RenewVerificationToken(ctx, u.ID, hash, now.Add(auth.VerificationTTL), now, now.Add(-auth.ResendInterval))
	switch {
	case errors.Is(err, db.ErrThrottled):
		return errResendTooSoon
	case err != nil:
		return fmt.Errorf("failed to store verification token: %w", err)
	}
	s.sendVerification(ctx, u, token)
	return nil
}

// sendVerification dispatches the verification link. Failures are logged
// and never reach the caller.
func (s *Identity) sendVerification(ctx context.Context, u model.User, token string) {
	link := strings.TrimRight(s.verify.AppBaseURL, "/") + "/verify?token=" + url.QueryEscape(token)
	msg := mail.Message{
		To:      u.Email,
		Subject: "Verify your TaskFlow account",
		Body: fmt.Sprintf("Hi %s,\n\nVerify your email by opening this link:\n%s\n\n"+
			"If you did not create this account, you can ignore this email.", u.Name, link),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		logger.Error("Failed to send verification email", logger.F("user_id", u.ID), logger.Err(err))
	}
}

// BootstrapAdmin makes sure the configured global admin exists, is verified
// and has its own workspace. It is safe to run on every start.
func (s *Identity) BootstrapAdmin(ctx context.Context, acct AdminAccount) (model.User, error) {
	email := normalizeEmail(acct.Email)
	if !validEmail(email) {
		return model.User{}, fmt.Errorf("invalid admin email %q", acct.Email)
	}

	var hash string
	if acct.Password != "" {
		h, err := s.hasher.Hash(acct.Password)
		if err != nil {
			return model.User{}, err
		}
		hash = h
	}

	existing, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Name == "" {
			existing.Name = "Admin"
		}
		existing.Role = model.RoleAdmin
		existing.Status = model.PresenceOnline
		existing.EmailVerified = true
		if hash != "" {
			existing.PasswordHash = hash
		}
		if err := s.store.UpdateAccount(ctx, existing); err != nil {
			return model.User{}, fmt.Errorf("failed to update admin: %w", err)
		}
		logger.Info("Admin account ensured", logger.F("user_id", existing.ID), logger.F("email", email))
		return existing, nil
	case !errors.Is(err, db.ErrNotFound):
		return model.User{}, fmt.Errorf("failed to look up admin: %w", err)
	}

	name := strings.TrimSpace(acct.Name)
	if name == "" {
		name = "Admin"
	}
	u := model.User{
		ID:            s.newID(),
		Name:          name,
		Email:         email,
		PasswordHash:  hash,
		Avatar:        model.DefaultAvatar,
		Role:          model.RoleAdmin,
		Status:        model.PresenceOnline,
		EmailVerified: true,
		CreatedAt:     s.now().UTC(),
	}
	err = s.store.WithTx(ctx, func(tx *db.Store) error {
		if err := tx.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}
		_, err := s.seedWorkspace(ctx, tx, u.ID, AdminWorkspaceName, "", model.DefaultWorkspaceColor)
		return err
	})
	if err != nil {
		return model.User{}, err
	}

	if hash == "" {
		logger.Warn("Admin created without a password; set ADMIN_PASSWORD to enable login", logger.F("email", email))
	}
	logger.Info("Admin account created", logger.F("user_id", u.ID), logger.F("email", email))
	return u, nil
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := netmail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}
