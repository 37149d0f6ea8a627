package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/folioforge/portfolio-platform/internal/core/domain"
	"github.com/folioforge/portfolio-platform/internal/core/ports"
)

// AuthService implements signup, login and account lookup. It is the only
// holder of a TokenIssuer.
type AuthService struct {
	repo       ports.AuthRepository
	issuer     ports.TokenIssuer
	adminEmail string
	bcryptCost int
	logger     zerolog.Logger
	now        func() time.Time
}

// NewAuthService builds the service. The account whose email equals
// adminEmail (case-insensitive) is created with the ADMIN role; everyone else
// is a USER.
func NewAuthService(repo ports.AuthRepository, issuer ports.TokenIssuer, adminEmail string, bcryptCost int, logger zerolog.Logger) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		repo:       repo,
		issuer:     issuer,
		adminEmail: normalizeEmail(adminEmail),
		bcryptCost: bcryptCost,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *AuthService) Signup(ctx context.Context, input ports.SignupInput) (string, *domain.User, error) {
	email := normalizeEmail(input.Email)
	if email == "" || strings.TrimSpace(input.Password) == "" {
		return "", nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}

	role := domain.RoleUser
	if s.adminEmail != "" && email == s.adminEmail {
		role = domain.RoleAdmin
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, &domain.User{
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return "", nil, err
	}

	token, err := s.issue(user)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("role", string(user.Role)).
		Msg("account created")

	return token, user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return "", nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.issue(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Me returns the account behind a verified identity.
func (s *AuthService) Me(ctx context.Context, id *domain.Identity) (*domain.User, error) {
	if id == nil {
		return nil, domain.ErrUnauthenticated
	}
	return s.repo.FindByID(ctx, id.UserID)
}

func (s *AuthService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.repo.List(ctx)
}

func (s *AuthService) issue(user *domain.User) (string, error) {
	token, err := s.issuer.Issue(domain.Claims{
		Subject: user.ID,
		Email:   user.Email,
		Role:    user.Role,
		Name:    user.Name,
	})
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
