package users

import (
	"context"
	"strings"
	"time"

	"github.com/ekrukov/slotbooking/internal/auth"
	"github.com/ekrukov/slotbooking/internal/domain"
	"github.com/ekrukov/slotbooking/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

type UserUseCase interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *domain.User `json:"user"`
}

type UserService struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
	now    func() time.Time
}

type UserServiceOption func(*UserService)

func WithClock(now func() time.Time) UserServiceOption {
	return func(s *UserService) {
		s.now = now
	}
}

func NewUserService(users repository.UserRepository, tokens *auth.TokenManager, opts ...UserServiceOption) *UserService {
	service := &UserService{
		users:  users,
		tokens: tokens,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" {
		return nil, domain.Errf(domain.KindInvalidInput, "name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.Errf(domain.KindInvalidInput, "valid email is required")
	}
	if len(input.Password) < 8 {
		return nil, domain.Errf(domain.KindInvalidInput, "password must be at least 8 characters")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.Errf(domain.KindConflict, "user with this email already exists")
	} else if !domain.IsKind(err, domain.KindNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.WrapErr(domain.KindUnavailable, err, "hash password")
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.UserRoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.Errf(domain.KindUnauthorized, "invalid email or password")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.Errf(domain.KindUnauthorized, "invalid email or password")
	}

	token, err := s.tokens.Issue(user, s.now())
	if err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: token, TokenType: "bearer", User: user}, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return domain.Errf(domain.KindInvalidInput, "password must be at least 8 characters")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return domain.Errf(domain.KindUnauthorized, "invalid current password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return domain.WrapErr(domain.KindUnavailable, err, "hash password")
	}
	return s.users.UpdatePasswordHash(ctx, userID, string(hash))
}

var _ UserUseCase = (*UserService)(nil)
