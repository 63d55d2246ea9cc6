// Package identity authenticates subjects, issues session tokens and
// enforces role gates for protected operations.
package identity

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/upb/smart-city-assistant/internal/redact"
	"github.com/upb/smart-city-assistant/models"
	"github.com/upb/smart-city-assistant/repositories"
	"github.com/upb/smart-city-assistant/services"
	"go.uber.org/zap"
)

// Config holds the identity service settings
type Config struct {
	TokenTTL   time.Duration
	BcryptCost int
}

// Service implements Identity & Access
type Service struct {
	subjects repositories.SubjectRepository
	txMgr    repositories.TransactionManager
	tokens   *TokenIssuer
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new identity service
func NewService(
	subjects repositories.SubjectRepository,
	txMgr repositories.TransactionManager,
	tokens *TokenIssuer,
	cfg Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		subjects: subjects,
		txMgr:    txMgr,
		tokens:   tokens,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// CitizenRegistration is the input for RegisterCitizen
type CitizenRegistration struct {
	Name        string
	PhoneNumber string
	Email       *string
	Password    string
	Address     *string
}

// AuthorityRegistration is the input for RegisterAuthority
type AuthorityRegistration struct {
	Name          string
	Position      string
	FeedbackRoute string
	PhoneNumber   string
	Email         string
	Password      string
}

// LoginResult is returned by a successful Login
type LoginResult struct {
	Token   string
	Subject *models.Subject
}

// Authenticate looks a subject up by phone number or email and checks the
// password. Unknown identifier, wrong password, missing hash and inactive
// subject all yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (*models.Subject, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, services.ErrInvalidCredentials
	}

	subject, err := s.subjects.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.logger.Debug("login for unknown identifier", zap.String("identifier", redact.Text(identifier)))
			return nil, services.ErrInvalidCredentials
		}
		return nil, services.WrapInternal("failed to look up subject", err)
	}

	if !VerifyPassword(password, subject.PasswordHash) || !subject.IsActive {
		s.logger.Info("authentication failed", zap.Int64("subject_id", subject.ID))
		return nil, services.ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.subjects.TouchLastLogin(ctx, subject.ID, now); err != nil {
		s.logger.Warn("failed to record last login",
			zap.Int64("subject_id", subject.ID),
			zap.Error(err))
	} else {
		subject.LastLogin = &now
	}

	return subject, nil
}

// Login authenticates and issues a session token
func (s *Service) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	subject, err := s.Authenticate(ctx, identifier, password)
	if err != nil {
		return nil, err
	}

	token, err := s.IssueToken(subject)
	if err != nil {
		return nil, err
	}

	s.logger.Info("subject logged in",
		zap.Int64("subject_id", subject.ID),
		zap.String("user_type", subject.Role.String()))

	return &LoginResult{Token: token, Subject: subject}, nil
}

// IssueToken mints a session token carrying the subject's id, role and phone
func (s *Service) IssueToken(subject *models.Subject) (string, error) {
	claims := Claims{
		UserType: string(subject.Role),
		Phone:    subject.PhoneNumber,
	}
	claims.Subject = strconv.FormatInt(subject.ID, 10)

	token, err := s.tokens.Issue(claims, s.cfg.TokenTTL)
	if err != nil {
		return "", services.WrapInternal("failed to issue token", err)
	}
	return token, nil
}

// VerifyToken checks a token without touching the store
func (s *Service) VerifyToken(token string) (*Claims, bool) {
	return s.tokens.Verify(token)
}

// RegisterCitizen creates a USER subject
func (s *Service) RegisterCitizen(ctx context.Context, in CitizenRegistration) (*models.Subject, error) {
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	subject := models.NewCitizen(
		strings.TrimSpace(in.Name),
		strings.TrimSpace(in.PhoneNumber),
		normalizeOptional(in.Email),
		normalizeOptional(in.Address),
		hash,
	)
	return s.register(ctx, subject)
}

// RegisterAuthority creates an AUTHORITY subject. Email is required.
func (s *Service) RegisterAuthority(ctx context.Context, in AuthorityRegistration) (*models.Subject, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, services.NewValidation("Email is required for authority accounts")
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	subject := models.NewAuthority(
		strings.TrimSpace(in.Name),
		strings.TrimSpace(in.Position),
		strings.TrimSpace(in.FeedbackRoute),
		strings.TrimSpace(in.PhoneNumber),
		email,
		hash,
	)
	return s.register(ctx, subject)
}

func (s *Service) hash(password string) (string, error) {
	hash, err := HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			return "", services.NewValidation("Password must be at most 72 bytes")
		}
		return "", services.WrapInternal("failed to hash password", err)
	}
	return hash, nil
}

func (s *Service) register(ctx context.Context, subject *models.Subject) (*models.Subject, error) {
	created, err := services.WithTransactionResult(ctx, s.txMgr,
		func(ctx context.Context, tx repositories.Transaction) (*models.Subject, error) {
			taken, err := s.subjects.ExistsByPhone(ctx, subject.PhoneNumber)
			if err != nil {
				return nil, services.WrapInternal("failed to check phone number", err)
			}
			if taken {
				return nil, services.ErrPhoneTaken
			}

			if subject.Email != nil {
				taken, err := s.subjects.ExistsByEmail(ctx, *subject.Email)
				if err != nil {
					return nil, services.WrapInternal("failed to check email", err)
				}
				if taken {
					return nil, services.ErrEmailTaken
				}
			}

			if err := s.subjects.Create(ctx, subject); err != nil {
				if errors.Is(err, repositories.ErrDuplicate) {
					if strings.Contains(err.Error(), "email") {
						return nil, services.ErrEmailTaken
					}
					return nil, services.ErrPhoneTaken
				}
				return nil, services.WrapInternal("failed to create subject", err)
			}
			return subject, nil
		})
	if err != nil {
		return nil, err
	}

	s.logger.Info("subject registered",
		zap.Int64("subject_id", created.ID),
		zap.String("user_type", created.Role.String()))
	return created, nil
}

// ResolveSubject verifies token and reloads its subject. Inactive or
// deleted subjects are rejected even while the token is unexpired.
func (s *Service) ResolveSubject(ctx context.Context, token string) (*models.Subject, *Claims, error) {
	claims, ok := s.tokens.Verify(token)
	if !ok {
		return nil, nil, services.ErrInvalidToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, nil, services.ErrInvalidToken
	}

	subject, err := s.subjects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, services.ErrSubjectUnavailable
		}
		return nil, nil, services.WrapInternal("failed to load subject", err)
	}
	if !subject.IsActive {
		return nil, nil, services.ErrSubjectUnavailable
	}

	return subject, claims, nil
}

// Deactivate clears the active flag; the subject's tokens stop resolving
// on their next use.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if err := s.subjects.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.NewNotFound("User not found")
		}
		return services.WrapInternal("failed to deactivate subject", err)
	}
	s.logger.Info("subject deactivated", zap.Int64("subject_id", id))
	return nil
}

// Authorize requires subject to hold exactly role
func Authorize(subject *models.Subject, role models.Role) error {
	return AuthorizeAny(subject, role)
}

// AuthorizeAny requires subject to hold one of roles. Subjects without a
// recognised role are always denied.
func AuthorizeAny(subject *models.Subject, roles ...models.Role) error {
	if subject == nil {
		return services.ErrNotAuthenticated
	}
	if !subject.Role.Valid() {
		return services.ErrInsufficientPermissions
	}
	for _, role := range roles {
		if subject.Role == role {
			return nil
		}
	}
	return services.ErrInsufficientPermissions
}

func normalizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
