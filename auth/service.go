package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/jmcleod/gatehouse/internal/util"
	"github.com/jmcleod/gatehouse/session"
	"github.com/jmcleod/gatehouse/storage"
)

// Service provides the credential and profile flows.
type Service struct {
	users    storage.UserRepository
	sessions session.Store
	hasher   PasswordHasher
	logger   *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// ServiceOption configures optional Service behaviour.
type ServiceOption func(*Service)

// WithLogger sets the logger used for best-effort background failures.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service.
func NewService(users storage.UserRepository, sessions session.Store, hasher PasswordHasher, opts ...ServiceOption) *Service {
	s := &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterInput is the payload of Register.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates a user. It does not log the user in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*storage.User, error) {
	name := strings.TrimSpace(in.Name)
	email := storage.NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, validationError("All fields are required")
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, conflictError(email)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, dependencyError("lookup user by email", err)
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &storage.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, storage.ErrDuplicateEmail) {
			return nil, conflictError(email)
		}
		return nil, dependencyError("create user", err)
	}
	return user, nil
}

// Login verifies credentials and opens a session. Unknown email and wrong
// password fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (session.Identity, string, error) {
	email = storage.NormalizeEmail(email)
	if email == "" || password == "" {
		return session.Identity{}, "", validationError("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return session.Identity{}, "", dependencyError("lookup user by email", err)
		}
		// Burn the same hashing time as a real verification.
		_, _ = s.hasher.Verify(password, s.dummy())
		return session.Identity{}, "", invalidCredentialsError("Invalid email or password")
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return session.Identity{}, "", dependencyError("verify password", err)
	}
	if !ok {
		return session.Identity{}, "", invalidCredentialsError("Invalid email or password")
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user.ID, password)
	}

	id := identityOf(user)
	token, err := s.sessions.Create(id)
	if err != nil {
		return session.Identity{}, "", dependencyError("create session", err)
	}
	return id, token, nil
}

// Logout destroys the session for token. It never fails.
func (s *Service) Logout(token string) {
	s.sessions.Delete(token)
}

// Authenticate resolves token to the identity of its session.
func (s *Service) Authenticate(token string) (session.Identity, error) {
	id, ok := s.sessions.Get(token)
	if !ok {
		return session.Identity{}, unauthorizedError()
	}
	return id, nil
}

// ChangePassword replaces the password of an authenticated user after
// re-verifying the current one. The session is left as is.
func (s *Service) ChangePassword(ctx context.Context, id session.Identity, current, next string) error {
	if current == "" || next == "" {
		return validationError("Both current and new passwords are required")
	}

	user, err := s.users.GetByID(ctx, id.ID)
	if err != nil {
		return dependencyError("lookup user by id", err)
	}

	ok, err := s.hasher.Verify(current, user.PasswordHash)
	if err != nil {
		return dependencyError("verify password", err)
	}
	if !ok {
		return invalidCredentialsError("Current password is incorrect")
	}

	hash, err := s.hashPassword(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return dependencyError("update password", err)
	}
	return nil
}

// UpdateProfile renames the user, then every live session of that user.
func (s *Service) UpdateProfile(ctx context.Context, id session.Identity, name string) (session.Identity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return session.Identity{}, validationError("Name is required")
	}
	if err := s.users.UpdateName(ctx, id.ID, name); err != nil {
		return session.Identity{}, dependencyError("update name", err)
	}
	session.RenameUser(s.sessions, id.ID, name)
	id.Name = name
	return id, nil
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			return "", validationError("Password must be at most 72 bytes")
		}
		return "", dependencyError("hash password", err)
	}
	return hash, nil
}

func (s *Service) upgradeHash(ctx context.Context, userID int64, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePassword(ctx, userID, hash)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "password hash upgrade failed", "user_id", userID, "error", err)
	}
}

// dummy returns a hash produced by the configured hasher that no password
// submitted by a client will match.
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		secret, err := util.RandomHex(16)
		if err == nil {
			s.dummyHash, err = s.hasher.Hash(secret)
		}
		if err != nil {
			s.logger.Error("generating dummy password hash", "error", err)
		}
	})
	return s.dummyHash
}

func identityOf(u *storage.User) session.Identity {
	return session.Identity{ID: u.ID, Name: u.Name, Email: u.Email}
}
