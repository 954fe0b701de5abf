package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/server/auth"
	"github.com/dmitrijs2005/docvault/internal/server/config"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	documentsrepo "github.com/dmitrijs2005/docvault/internal/server/repositories/documents"
	usersrepo "github.com/dmitrijs2005/docvault/internal/server/repositories/users"
)

// --- in-memory fakes ---

type memUsersRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
	seq   int

	failWith error // when set, every call fails with this error
}

func newMemUsersRepo() *memUsersRepo {
	return &memUsersRepo{users: make(map[string]*models.User)}
}

func (r *memUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	if _, ok := r.users[u.Username]; ok {
		return nil, common.ErrorConflict
	}
	r.seq++
	u.ID = fmt.Sprintf("u-%d", r.seq)
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	r.users[u.Username] = &cp
	return u, nil
}

func (r *memUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	u, ok := r.users[username]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUsersRepo) UpdatePassword(ctx context.Context, username string, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	u, ok := r.users[username]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	return nil
}

func (r *memUsersRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return 0, r.failWith
	}
	return int64(len(r.users)), nil
}

func (r *memUsersRepo) List(ctx context.Context) ([]models.UserInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	infos := make([]models.UserInfo, 0, len(r.users))
	for _, u := range r.users {
		infos = append(infos, models.UserInfo{Username: u.Username, Role: u.Role, CreatedAt: u.CreatedAt})
	}
	return infos, nil
}

func (r *memUsersRepo) delete(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, username)
}

func (r *memUsersRepo) setRole(username, role string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[username]; ok {
		u.Role = role
	}
}

type fakeRepoManager struct {
	u *memUsersRepo
	d *memDocumentsRepo
}

func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository          { return m.u }
func (m *fakeRepoManager) Documents(db dbx.DBTX) documentsrepo.Repository  { return m.d }
func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }

// --- helpers ---

func newUserService(t *testing.T, repo *memUsersRepo) *UserService {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                   "test-secret",
		AccessTokenValidityDuration: time.Hour,
	}
	return NewUserService(nil, &fakeRepoManager{u: repo}, cfg)
}

// --- tests ---

func TestInitAdmin_RejectsNonAdminRole(t *testing.T) {
	s := newUserService(t, newMemUsersRepo())

	_, err := s.InitAdmin(context.Background(), "alice", "pw1", models.RoleUser)
	if !errors.Is(err, common.ErrorInvalidRole) {
		t.Fatalf("expected common.ErrorInvalidRole, got %v", err)
	}
}

func TestInitAdmin_Success(t *testing.T) {
	repo := newMemUsersRepo()
	s := newUserService(t, repo)

	user, err := s.InitAdmin(context.Background(), "alice", "pw1", models.RoleAdmin)
	if err != nil {
		t.Fatalf("InitAdmin error: %v", err)
	}
	if user.Role != models.RoleAdmin {
		t.Fatalf("role mismatch: %q", user.Role)
	}
	if user.PasswordHash == "pw1" || user.PasswordHash == "" {
		t.Fatalf("password must be stored hashed, got %q", user.PasswordHash)
	}
	if !auth.CheckPassword("pw1", user.PasswordHash) {
		t.Fatalf("stored hash does not verify")
	}
}

func TestInitAdmin_RejectedOnNonEmptyStore(t *testing.T) {
	repo := newMemUsersRepo()
	s := newUserService(t, repo)

	if _, err := s.InitAdmin(context.Background(), "alice", "pw1", models.RoleAdmin); err != nil {
		t.Fatalf("first InitAdmin error: %v", err)
	}

	// A second bootstrap attempt fails regardless of the requested role.
	for _, role := range []string{models.RoleAdmin, models.RoleUser} {
		if _, err := s.InitAdmin(context.Background(), "eve", "pw", role); !errors.Is(err, common.ErrorConflict) {
			t.Fatalf("role %q: expected common.ErrorConflict, got %v", role, err)
		}
	}
}

func TestRegister_DuplicateLeavesOriginalUntouched(t *testing.T) {
	repo := newMemUsersRepo()
	s := newUserService(t, repo)

	first, err := s.Register(context.Background(), "bob", "pw1", models.RoleUser)
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	_, err = s.Register(context.Background(), "bob", "other", models.RoleAdmin)
	if !errors.Is(err, common.ErrorConflict) {
		t.Fatalf("expected common.ErrorConflict, got %v", err)
	}

	stored, err := repo.GetByUsername(context.Background(), "bob")
	if err != nil {
		t.Fatalf("GetByUsername error: %v", err)
	}
	if stored.PasswordHash != first.PasswordHash || stored.Role != models.RoleUser {
		t.Fatalf("original record was modified: %+v", stored)
	}
}

func TestRegister_DefaultsRoleToUser(t *testing.T) {
	s := newUserService(t, newMemUsersRepo())

	user, err := s.Register(context.Background(), "bob", "pw1", "")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if user.Role != models.RoleUser {
		t.Fatalf("role mismatch: %q", user.Role)
	}
}

func TestRegister_EmptyPasswordBlocksLogin(t *testing.T) {
	repo := newMemUsersRepo()
	s := newUserService(t, repo)

	if _, err := s.Register(context.Background(), "bob", "", models.RoleUser); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	// No password was ever set, so no password may log in.
	for _, pw := range []string{"", "guess"} {
		if _, err := s.Login(context.Background(), "bob", pw); !errors.Is(err, common.ErrorUnauthorized) {
			t.Fatalf("password %q: expected common.ErrorUnauthorized, got %v", pw, err)
		}
	}

	// An admin reset makes the account usable.
	if err := s.ResetPassword(context.Background(), "bob", "pw2"); err != nil {
		t.Fatalf("ResetPassword error: %v", err)
	}
	if _, err := s.Login(context.Background(), "bob", "pw2"); err != nil {
		t.Fatalf("Login after reset error: %v", err)
	}
}

func TestLogin_IssuesTokenWithStoredRole(t *testing.T) {
	repo := newMemUsersRepo()
	s := newUserService(t, repo)

	if _, err := s.InitAdmin(context.Background(), "alice", "pw1", models.RoleAdmin); err != nil {
		t.Fatalf("InitAdmin error: %v", err)
	}

	token, err := s.Login(context.Background(), "alice", "pw1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	claims, err := auth.ParseToken(token, []byte("test-secret"))
	if err != nil {
		t.Fatalf("ParseToken error: %v", err)
	}
	if claims.Subject != "alice" || claims.Role != models.RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLogin_UnknownUserAndWrongPasswordAreIdentical(t *testing.T) {
	repo := newMemUsersRepo()
	s := newUserService(t, repo)

	if _, err := s.InitAdmin(context.Background(), "alice", "pw1", models.RoleAdmin); err != nil {
		t.Fatalf("InitAdmin error: %v", err)
	}

	_, errUnknown := s.Login(context.Background(), "ghost", "pw1")
	_, errWrongPw := s.Login(context.Background(), "alice", "wrong")

	if !errors.Is(errUnknown, common.ErrorUnauthorized) || !errors.Is(errWrongPw, common.ErrorUnauthorized) {
		t.Fatalf("expected identical unauthorized errors, got %v and %v", errUnknown, errWrongPw)
	}
}

func TestResetPassword_UnknownUser(t *testing.T) {
	s := newUserService(t, newMemUsersRepo())

	err := s.ResetPassword(context.Background(), "ghost", "pw")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected common.ErrorNotFound, got %v", err)
	}
}

func TestAuthenticate_ReturnsCurrentStoreState(t *testing.T) {
	repo := newMemUsersRepo()
	s := newUserService(t, repo)

	if _, err := s.InitAdmin(context.Background(), "alice", "pw1", models.RoleAdmin); err != nil {
		t.Fatalf("InitAdmin error: %v", err)
	}
	token, err := s.Login(context.Background(), "alice", "pw1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	user, err := s.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if user.Username != "alice" || user.Role != models.RoleAdmin {
		t.Fatalf("unexpected user: %+v", user)
	}

	// The token still carries role "admin", but a demotion in the store
	// must win: the effective role comes from the database.
	repo.setRole("alice", models.RoleUser)
	user, err = s.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate after demotion error: %v", err)
	}
	if user.Role != models.RoleUser {
		t.Fatalf("expected store role to win, got %q", user.Role)
	}
}

func TestAuthenticate_DeletedUser(t *testing.T) {
	repo := newMemUsersRepo()
	s := newUserService(t, repo)

	if _, err := s.InitAdmin(context.Background(), "alice", "pw1", models.RoleAdmin); err != nil {
		t.Fatalf("InitAdmin error: %v", err)
	}
	token, err := s.Login(context.Background(), "alice", "pw1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	repo.delete("alice")

	// The token itself still verifies, but its subject is gone.
	_, err = s.Authenticate(context.Background(), token)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected common.ErrorNotFound, got %v", err)
	}
}

func TestAuthenticate_BadToken(t *testing.T) {
	s := newUserService(t, newMemUsersRepo())

	_, err := s.Authenticate(context.Background(), "not.a.jwt")
	if !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("expected common.ErrorUnauthorized, got %v", err)
	}
}

func TestRequireRole(t *testing.T) {
	s := newUserService(t, newMemUsersRepo())

	admin := &models.User{Username: "alice", Role: models.RoleAdmin}
	if err := s.RequireRole(admin, models.RoleAdmin); err != nil {
		t.Fatalf("RequireRole error: %v", err)
	}

	user := &models.User{Username: "bob", Role: models.RoleUser}
	if err := s.RequireRole(user, models.RoleAdmin); !errors.Is(err, common.ErrorForbidden) {
		t.Fatalf("expected common.ErrorForbidden, got %v", err)
	}

	// Comparison is case-sensitive: "Admin" is not a role we recognize.
	odd := &models.User{Username: "eve", Role: "Admin"}
	if err := s.RequireRole(odd, models.RoleAdmin); !errors.Is(err, common.ErrorForbidden) {
		t.Fatalf("expected common.ErrorForbidden, got %v", err)
	}

	if err := s.RequireRole(nil, models.RoleAdmin); !errors.Is(err, common.ErrorForbidden) {
		t.Fatalf("expected common.ErrorForbidden for nil user, got %v", err)
	}
}

func TestRecentActivities_Limit(t *testing.T) {
	repo := newMemUsersRepo()
	s := newUserService(t, repo)

	for i := 0; i < 5; i++ {
		if _, err := s.Register(context.Background(), fmt.Sprintf("u%d", i), "pw", models.RoleUser); err != nil {
			t.Fatalf("Register error: %v", err)
		}
	}

	activities, err := s.RecentActivities(context.Background(), 3)
	if err != nil {
		t.Fatalf("RecentActivities error: %v", err)
	}
	if len(activities) != 3 {
		t.Fatalf("expected 3 activities, got %d", len(activities))
	}
	for _, a := range activities {
		if a.Action != "registered" {
			t.Fatalf("unexpected action %q", a.Action)
		}
	}
}
