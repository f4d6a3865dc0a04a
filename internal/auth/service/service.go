package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crm_backend/internal/access"
	"crm_backend/internal/auth/password"
	"crm_backend/internal/auth/repository"
	"crm_backend/internal/auth/token"
	"crm_backend/internal/auth/transport"
	"crm_backend/internal/events"
	"crm_backend/platform/apperr"
	"crm_backend/platform/config"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgAccountDeactivated = "Account is deactivated. Please contact administrator."
	msgUserNotFound       = "User not found"
	msgEmailInUse         = "Email already in use"
	msgInvalidResetToken  = "Invalid or expired reset token. Please request a new password reset."
	resetTokenBytes       = 32
)

// ErrSessionRevoked is returned by ValidateSession for denylisted or inactive accounts.
var ErrSessionRevoked = errors.New("session revoked")

// AuthResult is returned by register and login.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      transport.UserResponse
}

type Service struct {
	repo     repository.AuthRepository
	cfg      config.AuthServiceConfig
	eventBus events.Bus
	denylist token.Denylist
	log      *logger.Logger
	now      func() time.Time
}

func New(repo repository.AuthRepository, cfg config.AuthServiceConfig, eventBus events.Bus, denylist token.Denylist, log *logger.Logger) *Service {
	if denylist == nil {
		denylist = token.NoopDenylist{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{repo: repo, cfg: cfg, eventBus: eventBus, denylist: denylist, log: log, now: time.Now}
}

// Register creates a Sales Executive account and signs it in.
func (s *Service) Register(ctx context.Context, req transport.RegisterRequest) (AuthResult, error) {
	if err := s.checkPasswordLength(req.Password); err != nil {
		return AuthResult{}, err
	}
	hash, err := password.Hash(req.Password)
	if err != nil {
		return AuthResult{}, err
	}

	user, err := s.repo.CreateUser(ctx, repository.NewUser{
		Name:         strings.TrimSpace(req.Name),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		Role:         string(access.RoleSalesExecutive),
		IsActive:     true,
	})
	if err != nil {
		return AuthResult{}, err
	}

	result, err := s.issue(user)
	if err != nil {
		return AuthResult{}, err
	}

	s.log.AuthEvent("register", user.Email, true, "")
	s.publishRegistered(ctx, user)
	return result, nil
}

func (s *Service) Login(ctx context.Context, email, plainPassword string) (AuthResult, error) {
	email = normalizeEmail(email)
	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.AuthEvent("login", email, false, "unknown email")
		return AuthResult{}, apperr.Unauthorized(msgInvalidCredentials)
	}
	if err != nil {
		return AuthResult{}, err
	}
	if !user.IsActive {
		s.log.AuthEvent("login", email, false, "account deactivated")
		return AuthResult{}, apperr.Unauthorized(msgAccountDeactivated)
	}
	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		s.log.AuthEvent("login", email, false, "wrong password")
		return AuthResult{}, apperr.Unauthorized(msgInvalidCredentials)
	}

	result, err := s.issue(user)
	if err != nil {
		return AuthResult{}, err
	}

	s.log.AuthEvent("login", email, true, "")
	s.eventBus.Publish(ctx, events.UserLoggedIn{
		BaseEvent: events.NewBaseEvent(),
		UserID:    user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
	})
	return result, nil
}

// Logout denylists the presented token until it would have expired anyway.
// A denylist failure is logged; the caller still clears the cookie.
func (s *Service) Logout(ctx context.Context, rawToken string) {
	if rawToken == "" {
		return
	}
	claims, err := httpkit.ParseAccessToken(rawToken, s.cfg.GetJWTAccessSecret())
	if err != nil || claims.ExpiresAt == nil {
		return
	}
	if err := s.denylist.Revoke(ctx, rawToken, claims.ExpiresAt.Time); err != nil {
		s.log.WithContext(ctx).Warn("failed to revoke token on logout", "error", err)
	}
}

// ValidateSession implements httpkit.SessionValidator. It returns the user's
// current role so role changes and deactivation apply to live tokens.
func (s *Service) ValidateSession(ctx context.Context, rawToken string, userID uuid.UUID) (string, error) {
	revoked, err := s.denylist.IsRevoked(ctx, rawToken)
	if err != nil {
		s.log.WithContext(ctx).Warn("token denylist unavailable", "error", err)
	}
	if revoked {
		return "", ErrSessionRevoked
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrSessionRevoked
	}
	if err != nil {
		return "", err
	}
	if !user.IsActive {
		return "", ErrSessionRevoked
	}
	return user.Role, nil
}

func (s *Service) Me(ctx context.Context, userID uuid.UUID) (transport.UserResponse, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.UserResponse{}, apperr.NotFound(msgUserNotFound)
	}
	if err != nil {
		return transport.UserResponse{}, err
	}
	return toUserResponse(user), nil
}

// ForgotPassword issues a reset token for a known email. Unknown emails are
// silently ignored so the response does not reveal which accounts exist.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	resetToken, err := token.GenerateRandomToken(resetTokenBytes)
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(s.cfg.GetResetTokenTTL())
	if err := s.repo.SetResetToken(ctx, user.ID, token.HashSHA256(resetToken), expiresAt); err != nil {
		return err
	}

	s.eventBus.Publish(ctx, events.PasswordResetRequested{
		BaseEvent:  events.NewBaseEvent(),
		UserID:     user.ID,
		Name:       user.Name,
		Email:      user.Email,
		ResetToken: resetToken,
	})
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if err := s.checkPasswordLength(newPassword); err != nil {
		return err
	}

	user, err := s.repo.GetUserByResetToken(ctx, token.HashSHA256(rawToken), s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.BadRequest(msgInvalidResetToken)
	}
	if err != nil {
		return err
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.ResetPassword(ctx, user.ID, hash); err != nil {
		return err
	}

	s.log.AuthEvent("password_reset", user.Email, true, "")
	s.eventBus.Publish(ctx, events.PasswordResetCompleted{
		BaseEvent: events.NewBaseEvent(),
		UserID:    user.ID,
		Name:      user.Name,
		Email:     user.Email,
	})
	return nil
}

// ListActiveUsers returns the assignee picker list.
func (s *Service) ListActiveUsers(ctx context.Context) ([]transport.UserResponse, error) {
	users, err := s.repo.ListActiveUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]transport.UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, toUserResponse(user))
	}
	return out, nil
}

func (s *Service) ListUsers(ctx context.Context, actor access.Actor) ([]transport.UserDetailResponse, error) {
	if !access.CanManageTeam(actor) {
		return nil, apperr.Forbidden("Access denied")
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]transport.UserDetailResponse, 0, len(users))
	for _, user := range users {
		out = append(out, toUserDetail(user))
	}
	return out, nil
}

func (s *Service) CreateUser(ctx context.Context, actor access.Actor, req transport.CreateUserRequest) (transport.UserDetailResponse, error) {
	role, ok := access.ParseRole(req.Role)
	if !ok {
		return transport.UserDetailResponse{}, apperr.Validation("Invalid role")
	}
	if err := access.UserCreate(actor, role).Err(); err != nil {
		return transport.UserDetailResponse{}, err
	}
	if err := s.checkPasswordLength(req.Password); err != nil {
		return transport.UserDetailResponse{}, err
	}
	hash, err := password.Hash(req.Password)
	if err != nil {
		return transport.UserDetailResponse{}, err
	}

	user, err := s.repo.CreateUser(ctx, repository.NewUser{
		Name:         strings.TrimSpace(req.Name),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		Role:         string(role),
		IsActive:     true,
	})
	if err != nil {
		return transport.UserDetailResponse{}, err
	}

	s.publishRegistered(ctx, user)
	return toUserDetail(user), nil
}

func (s *Service) UpdateUser(ctx context.Context, actor access.Actor, userID uuid.UUID, req transport.UpdateUserRequest) (transport.UserDetailResponse, error) {
	target, ref, err := s.findUser(ctx, userID)
	if err != nil {
		return transport.UserDetailResponse{}, err
	}

	var newRole *access.Role
	if req.Role != nil && *req.Role != "" {
		role, ok := access.ParseRole(*req.Role)
		if !ok {
			return transport.UserDetailResponse{}, apperr.Validation("Invalid role")
		}
		newRole = &role
	}
	if err := access.UserUpdate(actor, ref, newRole).Err(); err != nil {
		return transport.UserDetailResponse{}, err
	}

	upd := repository.UserUpdate{IsActive: req.IsActive}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		name := strings.TrimSpace(*req.Name)
		upd.Name = &name
	}
	if req.Email != nil && strings.TrimSpace(*req.Email) != "" {
		email := normalizeEmail(*req.Email)
		if err := s.ensureEmailFree(ctx, email, target.ID); err != nil {
			return transport.UserDetailResponse{}, err
		}
		upd.Email = &email
	}
	if req.Password != nil && *req.Password != "" {
		if err := s.checkPasswordLength(*req.Password); err != nil {
			return transport.UserDetailResponse{}, err
		}
		hash, err := password.Hash(*req.Password)
		if err != nil {
			return transport.UserDetailResponse{}, err
		}
		upd.PasswordHash = &hash
	}
	if newRole != nil {
		role := string(*newRole)
		upd.Role = &role
	}

	updated, err := s.repo.UpdateUser(ctx, target.ID, upd)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.UserDetailResponse{}, apperr.NotFound(msgUserNotFound)
	}
	if err != nil {
		return transport.UserDetailResponse{}, err
	}
	return toUserDetail(updated), nil
}

func (s *Service) DeleteUser(ctx context.Context, actor access.Actor, userID uuid.UUID) error {
	_, ref, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := access.UserDelete(actor, ref).Err(); err != nil {
		return err
	}

	err = s.repo.DeleteUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(msgUserNotFound)
	}
	return err
}

// ClearExpiredResetTokens is run periodically by the scheduler.
func (s *Service) ClearExpiredResetTokens(ctx context.Context) (int64, error) {
	return s.repo.ClearExpiredResetTokens(ctx, s.now())
}

// findUser loads a user and its policy reference; a missing user yields a nil ref.
func (s *Service) findUser(ctx context.Context, userID uuid.UUID) (repository.User, *access.UserRef, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.User{}, nil, nil
	}
	if err != nil {
		return repository.User{}, nil, err
	}
	return user, &access.UserRef{ID: user.ID, Role: access.Role(user.Role)}, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string, owner uuid.UUID) error {
	existing, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != owner {
		return apperr.Conflict(msgEmailInUse)
	}
	return nil
}

func (s *Service) checkPasswordLength(plain string) error {
	minLen := s.cfg.GetMinPasswordLength()
	if len(plain) < minLen {
		return apperr.Validation(fmt.Sprintf("Password must be at least %d characters", minLen))
	}
	return nil
}

func (s *Service) issue(user repository.User) (AuthResult, error) {
	raw, expiresAt, err := token.IssueAccessToken(user.ID, user.Role, s.cfg.GetJWTAccessSecret(), s.cfg.GetAccessTokenTTL(), s.now())
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: raw, ExpiresAt: expiresAt, User: toUserResponse(user)}, nil
}

func (s *Service) publishRegistered(ctx context.Context, user repository.User) {
	s.eventBus.Publish(ctx, events.UserRegistered{
		BaseEvent: events.NewBaseEvent(),
		UserID:    user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toUserResponse(user repository.User) transport.UserResponse {
	return transport.UserResponse{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role}
}

func toUserDetail(user repository.User) transport.UserDetailResponse {
	return transport.UserDetailResponse{
		UserResponse: toUserResponse(user),
		IsActive:     user.IsActive,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}
