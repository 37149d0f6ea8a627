package ports

import (
	"context"

	"github.com/folioforge/portfolio-platform/internal/core/domain"
)

// SignupInput carries the fields accepted by POST /auth/signup.
type SignupInput struct {
	Email    string
	Password string
	Name     string
}

type AuthService interface {
	Signup(ctx context.Context, input SignupInput) (string, *domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	Me(ctx context.Context, id *domain.Identity) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
}
