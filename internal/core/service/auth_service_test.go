package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/folioforge/portfolio-platform/internal/core/domain"
	"github.com/folioforge/portfolio-platform/internal/core/ports"
)

type stubAuthRepo struct {
	users map[string]*domain.User
	seq   int
}

func newStubAuthRepo() *stubAuthRepo {
	return &stubAuthRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubAuthRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if _, exists := r.users[user.Email]; exists {
		return nil, domain.ErrUserExists
	}
	r.seq++
	copy := cloneUser(user)
	copy.ID = fmt.Sprintf("user-%d", r.seq)
	r.users[copy.Email] = cloneUser(copy)
	return cloneUser(copy), nil
}

func (r *stubAuthRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := r.users[email]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubAuthRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubAuthRepo) List(_ context.Context) ([]*domain.User, error) {
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, cloneUser(u))
	}
	return out, nil
}

type stubIssuer struct {
	issued []domain.Claims
}

func (s *stubIssuer) Issue(c domain.Claims) (string, error) {
	s.issued = append(s.issued, c)
	return "token-for-" + c.Subject, nil
}

func newTestAuthService(adminEmail string) (*AuthService, *stubAuthRepo, *stubIssuer) {
	repo := newStubAuthRepo()
	iss := &stubIssuer{}
	return NewAuthService(repo, iss, adminEmail, bcrypt.MinCost, zerolog.Nop()), repo, iss
}

func TestAuthService_Signup_Success(t *testing.T) {
	svc, _, iss := newTestAuthService("")

	token, user, err := svc.Signup(context.Background(), ports.SignupInput{
		Email:    "  Ada@Example.COM ",
		Password: "pass123",
		Name:     " Ada ",
	})
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}
	if token != "token-for-"+user.ID {
		t.Fatalf("unexpected token %q", token)
	}
	if user.Email != "ada@example.com" || user.Name != "Ada" {
		t.Fatalf("expected normalised email and name, got %+v", user)
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("expected USER role, got %s", user.Role)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pass123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if len(iss.issued) != 1 || iss.issued[0].Email != "ada@example.com" || iss.issued[0].Name != "Ada" {
		t.Fatalf("unexpected issued claims: %+v", iss.issued)
	}
}

func TestAuthService_Signup_AdminEmailGetsAdminRole(t *testing.T) {
	svc, _, _ := newTestAuthService("Boss@Example.com")

	_, user, err := svc.Signup(context.Background(), ports.SignupInput{Email: "boss@example.com", Password: "x"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if user.Role != domain.RoleAdmin {
		t.Fatalf("expected ADMIN, got %s", user.Role)
	}
}

func TestAuthService_Signup_Validation(t *testing.T) {
	svc, _, _ := newTestAuthService("")

	for _, in := range []ports.SignupInput{
		{Email: "", Password: "p"},
		{Email: "a@b.c", Password: "  "},
	} {
		if _, _, err := svc.Signup(context.Background(), in); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", in, err)
		}
	}
}

func TestAuthService_Signup_Duplicate(t *testing.T) {
	svc, _, _ := newTestAuthService("")

	_, _, _ = svc.Signup(context.Background(), ports.SignupInput{Email: "bob@example.com", Password: "pass"})
	if _, _, err := svc.Signup(context.Background(), ports.SignupInput{Email: "BOB@example.com", Password: "pass2"}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	svc, _, _ := newTestAuthService("")

	if _, _, err := svc.Signup(context.Background(), ports.SignupInput{Email: "carol@example.com", Password: "s3cret"}); err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	token, user, err := svc.Login(context.Background(), "Carol@Example.com", "s3cret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" || user == nil || user.Email != "carol@example.com" {
		t.Fatalf("unexpected login result: %q %+v", token, user)
	}
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	svc, _, _ := newTestAuthService("")
	_, _, _ = svc.Signup(context.Background(), ports.SignupInput{Email: "dave@example.com", Password: "right"})

	if _, _, err := svc.Login(context.Background(), "dave@example.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "nobody@example.com", "right"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestAuthService_Me(t *testing.T) {
	svc, _, _ := newTestAuthService("")
	_, created, _ := svc.Signup(context.Background(), ports.SignupInput{Email: "eve@example.com", Password: "p"})

	user, err := svc.Me(context.Background(), &domain.Identity{UserID: created.ID, Role: domain.RoleUser})
	if err != nil || user.Email != "eve@example.com" {
		t.Fatalf("unexpected Me result: %+v %v", user, err)
	}

	if _, err := svc.Me(context.Background(), nil); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for nil identity, got %v", err)
	}
	if _, err := svc.Me(context.Background(), &domain.Identity{UserID: "ghost"}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
