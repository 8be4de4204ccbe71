package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/Priyanshu1283/quizzer-backend/internal/config"
	"github.com/Priyanshu1283/quizzer-backend/internal/model"
)

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int
	users  map[int]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{nextID: 1, users: make(map[int]*model.User)}
}

func (s *fakeUserStore) Create(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.nextID
	s.nextID++
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeUserStore) GetByID(ctx context.Context, id int) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func newAuthTestEnv(t *testing.T) (*AuthService, *fakeUserStore) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: bcrypt.MinCost,
	}
	users := newFakeUserStore()
	return NewAuthService(cfg, users, rdb), users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthTestEnv(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, &model.RegisterRequest{
		Email:     "taker@example.com",
		Password:  "secret123",
		FirstName: "Asha",
		LastName:  "Verma",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.Role != model.RoleUser {
		t.Errorf("expected default role user, got %s", user.Role)
	}
	if user.PasswordHash == "secret123" {
		t.Error("password stored in plaintext")
	}

	_, err = svc.Register(ctx, &model.RegisterRequest{
		Email:     "taker@example.com",
		Password:  "another",
		FirstName: "Asha",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	logged, token, err := svc.Login(ctx, "taker@example.com", "secret123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if logged.ID != user.ID || token == "" {
		t.Errorf("login returned wrong user or empty token")
	}

	if _, _, err := svc.Login(ctx, "taker@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestTokenCarriesSession(t *testing.T) {
	svc, _ := newAuthTestEnv(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, &model.RegisterRequest{
		Email:     "taker@example.com",
		Password:  "secret123",
		FirstName: "Asha",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, token, err := svc.Login(ctx, user.Email, "secret123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token failed: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != model.RoleUser {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if err := svc.ValidateSession(ctx, user.ID, claims.ID); err != nil {
		t.Errorf("fresh session rejected: %v", err)
	}

	// A second login replaces the session and kills the first token.
	_, _, err = svc.Login(ctx, user.Email, "secret123")
	if err != nil {
		t.Fatalf("second login failed: %v", err)
	}
	if err := svc.ValidateSession(ctx, user.ID, claims.ID); err == nil {
		t.Error("old session survived a new login")
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	svc, _ := newAuthTestEnv(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, &model.RegisterRequest{
		Email:     "taker@example.com",
		Password:  "secret123",
		FirstName: "Asha",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	_, token, err := svc.Login(ctx, user.Email, "secret123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token failed: %v", err)
	}

	if err := svc.Logout(ctx, user.ID); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if err := svc.ValidateSession(ctx, user.ID, claims.ID); err == nil {
		t.Error("session survived logout")
	}
}

func TestValidateTokenRejectsForgedSignature(t *testing.T) {
	svc, _ := newAuthTestEnv(t)
	other, _ := newAuthTestEnv(t)
	ctx := context.Background()

	user, err := other.Register(ctx, &model.RegisterRequest{
		Email:     "taker@example.com",
		Password:  "secret123",
		FirstName: "Asha",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	_, foreignToken, err := other.Login(ctx, user.Email, "secret123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// Same-secret service accepts, different-secret service rejects.
	if _, err := other.ValidateToken(foreignToken); err != nil {
		t.Fatalf("issuing service rejected its own token: %v", err)
	}
	svc.cfg.JWTSecret = "a-different-secret"
	if _, err := svc.ValidateToken(foreignToken); err == nil {
		t.Error("token signed with another secret accepted")
	}
}
