// Package auth registers accounts, issues bearer tokens and decides which
// roles may perform which actions.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"lifelink/internal/domain"
	"lifelink/internal/infra"
)

var errInvalidCredentials = fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)

// Options configures a Service.
type Options struct {
	AdminCode  string
	BcryptCost int
}

type Service struct {
	users     domain.UserStore
	tokens    *Tokens
	policy    *PolicyStore
	logger    infra.Logger
	adminCode string
	cost      int
	now       func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

func NewService(users domain.UserStore, tokens *Tokens, policy *PolicyStore, logger infra.Logger, opts Options) *Service {
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		users:     users,
		tokens:    tokens,
		policy:    policy,
		logger:    logger,
		adminCode: opts.AdminCode,
		cost:      cost,
		now:       time.Now,
	}
}

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	AdminCode string `json:"adminCode"`
}

// Register creates an account. Privileged roles need the configured admin
// code; with no code configured they cannot be registered at all.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	role, err := s.checkRegistration(in.Username, in.Password, in.Role)
	if err != nil {
		return nil, err
	}
	if s.policy.IsPrivileged(role) && !s.adminCodeMatches(in.AdminCode) {
		return nil, fmt.Errorf("%w: admin code required for role %s", domain.ErrForbidden, role)
	}
	return s.create(ctx, strings.TrimSpace(in.Username), in.Password, role)
}

// AddUser creates an account of any role without the admin code check.
func (s *Service) AddUser(ctx context.Context, username, password, role string) (*domain.User, error) {
	r, err := s.checkRegistration(username, password, role)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, strings.TrimSpace(username), password, r)
}

func (s *Service) checkRegistration(username, password, role string) (domain.UserRole, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return "", fmt.Errorf("%w: username and password are required", domain.ErrValidation)
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return domain.UserRolePublic, nil
	}
	r, ok := domain.ParseRole(role)
	if !ok {
		return "", fmt.Errorf("%w: unknown role %q", domain.ErrValidation, role)
	}
	return r, nil
}

func (s *Service) adminCodeMatches(code string) bool {
	if s.adminCode == "" || code == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(code), []byte(s.adminCode)) == 1
}

func (s *Service) create(ctx context.Context, username, password string, role domain.UserRole) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{Username: username, PasswordHash: string(hash), Role: role, CreatedAt: s.now().UTC()}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info().Str("username", username).Str("role", string(role)).Msg("user registered")
	return user, nil
}

// LoginResult carries the issued token.
type LoginResult struct {
	Token string          `json:"token"`
	Role  domain.UserRole `json:"role"`
}

// Login checks the password and issues a token. Unknown users and wrong
// passwords fail with the same error after comparable work.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrValidation)
	}
	user, err := s.users.Get(ctx, username)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, Role: user.Role}, nil
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("lifelink-timing-guard"), s.cost)
	})
	return s.dummyHash
}

// Authenticate validates a bearer token.
func (s *Service) Authenticate(token string) (*Claims, error) {
	return s.tokens.Parse(token)
}

// Authorize fails with domain.ErrForbidden when role may not perform action.
func (s *Service) Authorize(role domain.UserRole, action Action) error {
	if !s.policy.Allows(role, action) {
		return fmt.Errorf("%w: role %s may not %s", domain.ErrForbidden, role, action)
	}
	return nil
}
