package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"crm_backend/internal/access"
	"crm_backend/internal/auth/password"
	"crm_backend/internal/auth/repository"
	"crm_backend/internal/auth/token"
	"crm_backend/internal/auth/transport"
	"crm_backend/internal/events"
	"crm_backend/platform/apperr"
	"crm_backend/platform/httpkit"

	"github.com/google/uuid"
)

type fakeRepo struct {
	users      map[uuid.UUID]repository.User
	resetHash  map[uuid.UUID]string
	resetUntil map[uuid.UUID]time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:      map[uuid.UUID]repository.User{},
		resetHash:  map[uuid.UUID]string{},
		resetUntil: map[uuid.UUID]time.Time{},
	}
}

func (r *fakeRepo) add(name, email, plain, role string, active bool) repository.User {
	hash, _ := password.Hash(plain)
	user := repository.User{ID: uuid.New(), Name: name, Email: email, PasswordHash: hash, Role: role, IsActive: active}
	r.users[user.ID] = user
	return user
}

func (r *fakeRepo) GetUserByEmail(ctx context.Context, email string) (repository.User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return repository.User{}, repository.ErrNotFound
}

func (r *fakeRepo) GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error) {
	u, ok := r.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (r *fakeRepo) ListUsers(ctx context.Context) ([]repository.User, error) {
	out := make([]repository.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *fakeRepo) ListActiveUsers(ctx context.Context) ([]repository.User, error) {
	out := make([]repository.User, 0)
	for _, u := range r.users {
		if u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateUser(ctx context.Context, in repository.NewUser) (repository.User, error) {
	if _, err := r.GetUserByEmail(ctx, in.Email); err == nil {
		return repository.User{}, apperr.Conflict("User with this email already exists")
	}
	u := repository.User{ID: uuid.New(), Name: in.Name, Email: in.Email, PasswordHash: in.PasswordHash, Role: in.Role, IsActive: in.IsActive}
	r.users[u.ID] = u
	return u, nil
}

func (r *fakeRepo) UpdateUser(ctx context.Context, id uuid.UUID, upd repository.UserUpdate) (repository.User, error) {
	u, ok := r.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	r.users[id] = u
	return u, nil
}

func (r *fakeRepo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *fakeRepo) SetResetToken(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) error {
	r.resetHash[id] = hash
	r.resetUntil[id] = expiresAt
	return nil
}

func (r *fakeRepo) GetUserByResetToken(ctx context.Context, hash string, now time.Time) (repository.User, error) {
	for id, h := range r.resetHash {
		if h == hash && r.resetUntil[id].After(now) {
			return r.users[id], nil
		}
	}
	return repository.User{}, repository.ErrNotFound
}

func (r *fakeRepo) ResetPassword(ctx context.Context, id uuid.UUID, hash string) error {
	u := r.users[id]
	u.PasswordHash = hash
	r.users[id] = u
	delete(r.resetHash, id)
	delete(r.resetUntil, id)
	return nil
}

func (r *fakeRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for id, until := range r.resetUntil {
		if !until.After(now) {
			delete(r.resetHash, id)
			delete(r.resetUntil, id)
			n++
		}
	}
	return n, nil
}

type fakeConfig struct{}

func (fakeConfig) GetJWTAccessSecret() string       { return "test-secret" }
func (fakeConfig) GetAuthCookieName() string        { return "crm_token" }
func (fakeConfig) GetAccessTokenTTL() time.Duration { return time.Hour }
func (fakeConfig) GetResetTokenTTL() time.Duration  { return time.Hour }
func (fakeConfig) GetMinPasswordLength() int        { return 6 }

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(eventName string, handler events.Handler) {}

func (b *recordingBus) last() events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		return nil
	}
	return b.events[len(b.events)-1]
}

type memoryDenylist struct {
	revoked map[string]bool
}

func (d *memoryDenylist) Revoke(ctx context.Context, raw string, expiresAt time.Time) error {
	d.revoked[raw] = true
	return nil
}

func (d *memoryDenylist) IsRevoked(ctx context.Context, raw string) (bool, error) {
	return d.revoked[raw], nil
}

func newTestService() (*Service, *fakeRepo, *recordingBus, *memoryDenylist) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	denylist := &memoryDenylist{revoked: map[string]bool{}}
	return New(repo, fakeConfig{}, bus, denylist, nil), repo, bus, denylist
}

func TestRegisterCreatesSalesExecutive(t *testing.T) {
	svc, repo, bus, _ := newTestService()

	result, err := svc.Register(context.Background(), transport.RegisterRequest{Name: "Jane", Email: " Jane@Example.com ", Password: "Secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if result.User.Role != string(access.RoleSalesExecutive) {
		t.Fatalf("expected Sales Executive, got %s", result.User.Role)
	}
	if result.User.Email != "jane@example.com" {
		t.Fatalf("expected normalized email, got %s", result.User.Email)
	}
	stored := repo.users[result.User.ID]
	if stored.PasswordHash == "Secret1" || password.Compare(stored.PasswordHash, "Secret1") != nil {
		t.Fatal("expected bcrypt hash to be stored")
	}
	claims, err := httpkit.ParseAccessToken(result.Token, "test-secret")
	if err != nil || claims.Subject != result.User.ID.String() {
		t.Fatalf("expected token for new user, got %v %v", claims, err)
	}
	if _, ok := bus.last().(events.UserRegistered); !ok {
		t.Fatalf("expected UserRegistered event, got %T", bus.last())
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, repo, bus, _ := newTestService()

	_, err := svc.Register(context.Background(), transport.RegisterRequest{Name: "Jane", Email: "jane@example.com", Password: "Ab1"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.users) != 0 || bus.last() != nil {
		t.Fatal("expected no user and no event")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.add("Existing", "jane@example.com", "Secret1", "Manager", true)

	_, err := svc.Register(context.Background(), transport.RegisterRequest{Name: "Jane", Email: "JANE@example.com", Password: "Secret1"})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, repo, bus, _ := newTestService()
	user := repo.add("Jane", "jane@example.com", "Secret1", "Manager", true)
	repo.add("Gone", "gone@example.com", "Secret1", "Manager", false)

	tests := []struct {
		name    string
		email   string
		pass    string
		wantErr string
	}{
		{"success", "jane@example.com", "Secret1", ""},
		{"wrong password", "jane@example.com", "nope", msgInvalidCredentials},
		{"unknown email", "nobody@example.com", "Secret1", msgInvalidCredentials},
		{"deactivated", "gone@example.com", "Secret1", msgAccountDeactivated},
	}

	for _, tt := range tests {
		result, err := svc.Login(context.Background(), tt.email, tt.pass)
		if tt.wantErr == "" {
			if err != nil {
				t.Fatalf("%s: unexpected error %v", tt.name, err)
			}
			if result.User.ID != user.ID || result.Token == "" {
				t.Fatalf("%s: unexpected result %+v", tt.name, result)
			}
			if _, ok := bus.last().(events.UserLoggedIn); !ok {
				t.Fatalf("%s: expected UserLoggedIn event", tt.name)
			}
			continue
		}
		if !apperr.Is(err, apperr.KindUnauthorized) || !strings.Contains(err.Error(), tt.wantErr) {
			t.Fatalf("%s: expected %q, got %v", tt.name, tt.wantErr, err)
		}
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, repo, _, denylist := newTestService()
	user := repo.add("Jane", "jane@example.com", "Secret1", "Manager", true)

	result, err := svc.Login(context.Background(), "jane@example.com", "Secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	role, err := svc.ValidateSession(context.Background(), result.Token, user.ID)
	if err != nil || role != "Manager" {
		t.Fatalf("expected live session, got %q %v", role, err)
	}

	svc.Logout(context.Background(), result.Token)
	if !denylist.revoked[result.Token] {
		t.Fatal("expected token on denylist")
	}
	if _, err := svc.ValidateSession(context.Background(), result.Token, user.ID); err != ErrSessionRevoked {
		t.Fatalf("expected revoked session, got %v", err)
	}
}

func TestValidateSessionReflectsAccountState(t *testing.T) {
	svc, repo, _, _ := newTestService()
	user := repo.add("Jane", "jane@example.com", "Secret1", "Sales Executive", true)

	role, err := svc.ValidateSession(context.Background(), "raw", user.ID)
	if err != nil || role != "Sales Executive" {
		t.Fatalf("unexpected %q %v", role, err)
	}

	promoted := repo.users[user.ID]
	promoted.Role = "Manager"
	repo.users[user.ID] = promoted
	role, _ = svc.ValidateSession(context.Background(), "raw", user.ID)
	if role != "Manager" {
		t.Fatalf("expected role change to apply, got %q", role)
	}

	promoted.IsActive = false
	repo.users[user.ID] = promoted
	if _, err := svc.ValidateSession(context.Background(), "raw", user.ID); err != ErrSessionRevoked {
		t.Fatalf("expected inactive account to be rejected, got %v", err)
	}
	if _, err := svc.ValidateSession(context.Background(), "raw", uuid.New()); err != ErrSessionRevoked {
		t.Fatalf("expected unknown account to be rejected, got %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	svc, repo, bus, _ := newTestService()
	user := repo.add("Jane", "jane@example.com", "Secret1", "Manager", true)

	if err := svc.ForgotPassword(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("unknown email should not error: %v", err)
	}
	if bus.last() != nil {
		t.Fatal("expected no event for unknown email")
	}

	if err := svc.ForgotPassword(context.Background(), "jane@example.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	requested, ok := bus.last().(events.PasswordResetRequested)
	if !ok {
		t.Fatalf("expected PasswordResetRequested, got %T", bus.last())
	}
	if len(requested.ResetToken) != 64 {
		t.Fatalf("expected 32-byte hex token, got %q", requested.ResetToken)
	}
	if repo.resetHash[user.ID] != token.HashSHA256(requested.ResetToken) {
		t.Fatal("expected only the token hash to be stored")
	}

	if err := svc.ResetPassword(context.Background(), "wrong", "Newpass1"); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request for unknown token, got %v", err)
	}

	if err := svc.ResetPassword(context.Background(), requested.ResetToken, "Newpass1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if password.Compare(repo.users[user.ID].PasswordHash, "Newpass1") != nil {
		t.Fatal("expected new password to be stored")
	}
	if _, ok := repo.resetHash[user.ID]; ok {
		t.Fatal("expected reset token to be cleared")
	}
	if _, ok := bus.last().(events.PasswordResetCompleted); !ok {
		t.Fatalf("expected PasswordResetCompleted, got %T", bus.last())
	}
	if err := svc.ResetPassword(context.Background(), requested.ResetToken, "Newpass2"); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected token to be single use, got %v", err)
	}
}

func TestResetPasswordExpiredToken(t *testing.T) {
	svc, repo, bus, _ := newTestService()
	repo.add("Jane", "jane@example.com", "Secret1", "Manager", true)
	if err := svc.ForgotPassword(context.Background(), "jane@example.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	raw := bus.last().(events.PasswordResetRequested).ResetToken

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if err := svc.ResetPassword(context.Background(), raw, "Newpass1"); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected expired token rejection, got %v", err)
	}
	cleared, _ := svc.ClearExpiredResetTokens(context.Background())
	if cleared != 1 {
		t.Fatalf("expected 1 expired token cleared, got %d", cleared)
	}
}

func TestUserManagementPolicies(t *testing.T) {
	svc, repo, _, _ := newTestService()
	admin := repo.add("Admin", "admin@crm.com", "Secret1", "Admin", true)
	manager := repo.add("Manager", "manager@crm.com", "Secret1", "Manager", true)
	sales := repo.add("Sales", "sales@crm.com", "Secret1", "Sales Executive", true)

	managerActor := access.Actor{ID: manager.ID, Role: access.RoleManager}
	adminActor := access.Actor{ID: admin.ID, Role: access.RoleAdmin}
	salesActor := access.Actor{ID: sales.ID, Role: access.RoleSalesExecutive}
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, managerActor, transport.CreateUserRequest{Name: "New", Email: "new@crm.com", Password: "Secret1", Role: "Admin"})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("manager creating admin: expected forbidden, got %v", err)
	}
	created, err := svc.CreateUser(ctx, managerActor, transport.CreateUserRequest{Name: "New", Email: "new@crm.com", Password: "Secret1", Role: "Sales Executive"})
	if err != nil || !created.IsActive {
		t.Fatalf("manager creating sales: %v", err)
	}
	if _, err := svc.ListUsers(ctx, salesActor); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("sales listing users: expected forbidden, got %v", err)
	}

	adminRole := "Admin"
	if _, err := svc.UpdateUser(ctx, managerActor, sales.ID, transport.UpdateUserRequest{Role: &adminRole}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("manager promoting to admin: expected forbidden, got %v", err)
	}
	name := "Renamed"
	if _, err := svc.UpdateUser(ctx, managerActor, admin.ID, transport.UpdateUserRequest{Name: &name}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("manager editing admin: expected forbidden, got %v", err)
	}
	taken := "sales@crm.com"
	if _, err := svc.UpdateUser(ctx, adminActor, created.ID, transport.UpdateUserRequest{Email: &taken}); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("duplicate email: expected conflict, got %v", err)
	}
	inactive := false
	updated, err := svc.UpdateUser(ctx, adminActor, sales.ID, transport.UpdateUserRequest{Name: &name, IsActive: &inactive})
	if err != nil || updated.Name != "Renamed" || updated.IsActive {
		t.Fatalf("admin update: %+v %v", updated, err)
	}
	if _, err := svc.UpdateUser(ctx, adminActor, uuid.New(), transport.UpdateUserRequest{Name: &name}); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("missing user: expected not found, got %v", err)
	}

	if err := svc.DeleteUser(ctx, managerActor, manager.ID); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("self delete: expected bad request, got %v", err)
	}
	if err := svc.DeleteUser(ctx, managerActor, admin.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("manager deleting admin: expected forbidden, got %v", err)
	}
	if err := svc.DeleteUser(ctx, managerActor, sales.ID); err != nil {
		t.Fatalf("manager deleting sales: %v", err)
	}
	if err := svc.DeleteUser(ctx, managerActor, sales.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("second delete: expected not found, got %v", err)
	}
}
