// Package services contains server-side business logic. This file implements
// UserService: account creation, authentication, self-service updates and
// the email verification lifecycle.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/webapp/internal/common"
	"github.com/dmitrijs2005/webapp/internal/cryptox"
	"github.com/dmitrijs2005/webapp/internal/dbx"
	"github.com/dmitrijs2005/webapp/internal/logging"
	"github.com/dmitrijs2005/webapp/internal/server/config"
	"github.com/dmitrijs2005/webapp/internal/server/metrics"
	"github.com/dmitrijs2005/webapp/internal/server/models"
	"github.com/dmitrijs2005/webapp/internal/server/notify"
	"github.com/dmitrijs2005/webapp/internal/server/repositories/repomanager"
)

// CreateUserInput is a new account request. Fields are validated in order.
type CreateUserInput struct {
	Email     string `validate:"required,email"`
	FirstName string `validate:"required,alpha"`
	LastName  string `validate:"required,alpha"`
	Password  string `validate:"required,min=6"`
}

// UpdateUserInput holds the self-service mutable fields. Nil means unchanged.
type UpdateUserInput struct {
	FirstName *string `validate:"omitnil,alpha"`
	LastName  *string `validate:"omitnil,alpha"`
	Password  *string `validate:"omitnil,min=6"`
}

func (in UpdateUserInput) empty() bool {
	return in.FirstName == nil && in.LastName == nil && in.Password == nil
}

// UserService implements the account lifecycle.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      cryptox.Hasher
	sender      notify.Sender
	metrics     metrics.Recorder
	logger      logging.Logger
	validate    *validator.Validate

	verifyEmail bool
	tokenTTL    time.Duration
	baseURL     string
	dummyHash   string

	// NowFunc is used for timestamps and token expiry. Defaults to time.Now.
	NowFunc func() time.Time

	wg sync.WaitGroup
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher cryptox.Hasher, sender notify.Sender,
	rec metrics.Recorder, logger logging.Logger, cfg *config.Config) (*UserService, error) {

	seed, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, err
	}
	dummy, err := hasher.Hash(seed)
	if err != nil {
		return nil, err
	}

	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		sender:      sender,
		metrics:     rec,
		logger:      logger.With("module", "users"),
		validate:    newValidator(),
		verifyEmail: cfg.VerifyEmail,
		tokenTTL:    cfg.VerificationTokenTTL,
		baseURL:     cfg.VerificationBaseURL,
		dummyHash:   dummy,
		NowFunc:     time.Now,
	}, nil
}

// Create registers a new account. When verification is enabled the account
// starts unverified with a fresh token and a link is sent asynchronously;
// otherwise it is created verified.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	repo := s.repomanager.Users(s.db)

	start := time.Now()
	_, err := repo.GetByEmail(ctx, in.Email)
	metrics.Since(s.metrics, "DB_GetUserByEmail", start)
	switch {
	case err == nil:
		return nil, common.ErrorAlreadyExists
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	now := s.NowFunc().UTC()
	user := &models.User{
		ID:             uuid.NewString(),
		Email:          in.Email,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		PasswordHash:   hash,
		AccountCreated: now,
		AccountUpdated: now,
		Verified:       !s.verifyEmail,
	}

	var token string
	if s.verifyEmail {
		token, err = cryptox.NewVerificationToken()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}
		expires := now.Add(s.tokenTTL)
		user.VerificationToken = &token
		user.VerificationExpires = &expires
	}

	start = time.Now()
	_, err = repo.Create(ctx, user)
	metrics.Since(s.metrics, "DB_CreateUser", start)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "account created", "user_id", user.ID)

	if s.verifyEmail {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.sendVerification(context.WithoutCancel(ctx), user.Email, token)
		}()
	}

	out := *user
	out.PasswordHash = ""
	out.VerificationToken = nil
	out.VerificationExpires = nil
	return &out, nil
}

// GetByID returns the public view of an account.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	start := time.Now()
	u, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	metrics.Since(s.metrics, "DB_GetUser", start)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return u, nil
}

// Authenticate checks email and password. Unknown email and wrong password
// both yield common.ErrorUnauthorized and cost one hash comparison.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	start := time.Now()
	u, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	metrics.Since(s.metrics, "DB_GetUserByEmail", start)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Compare(s.dummyHash, password)
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	if !s.hasher.Compare(u.PasswordHash, password) {
		return nil, common.ErrorUnauthorized
	}

	u.PasswordHash = ""
	u.VerificationToken = nil
	u.VerificationExpires = nil
	return u, nil
}

// Update applies the provided fields and stamps account_updated.
func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) error {
	if in.empty() {
		return fmt.Errorf("%w: nothing to update", common.ErrorValidation)
	}
	if err := s.validate.Struct(in); err != nil {
		return validationError(err)
	}

	upd := models.UserUpdate{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		UpdatedAt: s.NowFunc().UTC(),
	}
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}
		upd.PasswordHash = &hash
	}

	start := time.Now()
	err := s.repomanager.Users(s.db).Update(ctx, id, upd)
	metrics.Since(s.metrics, "DB_UpdateUser", start)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return nil
}

// Verify consumes token. When email is given it must own the token, and an
// unmatched token for an already verified email yields
// common.ErrorAlreadyVerified. Every other miss is common.ErrInvalidToken.
func (s *UserService) Verify(ctx context.Context, token, email string) error {
	if token == "" {
		return fmt.Errorf("%w: missing token", common.ErrorValidation)
	}

	now := s.NowFunc().UTC()
	matched := false

	start := time.Now()
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		u, err := repo.GetByVerificationToken(ctx, token, now)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil
			}
			return err
		}
		if email != "" && u.Email != email {
			return nil
		}

		if err := repo.MarkVerified(ctx, u.ID, now); err != nil {
			return err
		}
		matched = true
		return nil
	})
	metrics.Since(s.metrics, "DB_VerifyUser", start)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	if matched {
		s.logger.Info(ctx, "email verified")
		return nil
	}

	if email != "" {
		u, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
		switch {
		case err == nil && u.Verified:
			return common.ErrorAlreadyVerified
		case err != nil && !errors.Is(err, common.ErrorNotFound):
			return fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}
	}

	return common.ErrInvalidToken
}

// Wait blocks until pending verification emails are handed to the sender.
func (s *UserService) Wait() {
	s.wg.Wait()
}

func (s *UserService) sendVerification(ctx context.Context, email, token string) {
	link := notify.VerificationLink(s.baseURL, email, token)
	msg := notify.VerificationMessage(email, link, s.tokenTTL)

	start := time.Now()
	err := s.sender.Send(ctx, msg)
	metrics.Since(s.metrics, "Email_Send", start)
	if err != nil {
		s.logger.Error(ctx, "failed to send verification email", "error", err)
		return
	}
	s.metrics.Count("Email_Send.count")
}
