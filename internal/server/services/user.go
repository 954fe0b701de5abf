// Package services contains the server-side business logic. This file
// implements UserService: bootstrap of the first admin, admin-invoked
// registration and password resets, login with token issuance, and the
// authorization gate used by the HTTP layer.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/server/auth"
	"github.com/dmitrijs2005/docvault/internal/server/config"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/repomanager"
)

// Activity is a dashboard entry derived from recent registrations.
type Activity struct {
	User   string    `json:"user"`
	Role   string    `json:"role"`
	Action string    `json:"action"`
	Date   time.Time `json:"date"`
}

type UserService struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:        db,
		repos:     m,
		jwtSecret: []byte(cfg.SecretKey),
		tokenTTL:  cfg.AccessTokenValidityDuration,
	}
}

// InitAdmin creates the bootstrap admin. It is allowed only while the store
// is empty and only with role "admin"; afterwards it fails with ErrorConflict
// regardless of the requested role. Two concurrent bootstrap attempts may
// both pass the emptiness check; the unique key on username settles the race
// and the loser gets ErrorConflict.
func (s *UserService) InitAdmin(ctx context.Context, username, password, role string) (*models.User, error) {
	repo := s.repos.Users(s.db)

	count, err := repo.Count(ctx)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if count > 0 {
		return nil, common.ErrorConflict
	}

	if role != models.RoleAdmin {
		return nil, common.ErrorInvalidRole
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user, err := repo.Create(ctx, &models.User{Username: username, PasswordHash: hash, Role: models.RoleAdmin})
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorConflict
		}
		return nil, common.ErrorInternal
	}

	return user, nil
}

// Register creates a user with the given role (defaults to "user"). An empty
// password leaves the account without a usable credential: the stored hash is
// empty and login stays impossible until an admin resets the password.
// Duplicate usernames yield ErrorConflict and leave the original untouched.
func (s *UserService) Register(ctx context.Context, username, password, role string) (*models.User, error) {
	if role == "" {
		role = models.RoleUser
	}

	var hash string
	if password != "" {
		var err error
		hash, err = auth.HashPassword(password)
		if err != nil {
			return nil, common.ErrorInternal
		}
	}

	repo := s.repos.Users(s.db)
	user, err := repo.Create(ctx, &models.User{Username: username, PasswordHash: hash, Role: role})
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorConflict
		}
		return nil, common.ErrorInternal
	}

	return user, nil
}

// Login verifies the credentials and returns a signed access token carrying
// the user's current role. Unknown usernames and wrong passwords are the
// same ErrorUnauthorized, so existence does not leak through the response.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	repo := s.repos.Users(s.db)

	user, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", common.ErrorInternal
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return "", common.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(user.Username, user.Role, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return "", common.ErrorInternal
	}

	return token, nil
}

// ResetPassword rewrites the stored hash for username. Authorization is the
// caller's job (the HTTP layer admits admins only). Outstanding tokens of the
// affected user stay valid until they expire; there is no revocation.
func (s *UserService) ResetPassword(ctx context.Context, username, newPassword string) error {
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return common.ErrorInternal
	}

	repo := s.repos.Users(s.db)
	if err := repo.UpdatePassword(ctx, username, hash); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}

	return nil
}

// Authenticate resolves a bearer token to the current user record. Any token
// failure (bad signature, malformed, expired) comes back as ErrorUnauthorized
// so the caller cannot tell the cases apart; a verified token whose subject
// no longer exists yields ErrorNotFound. The returned user carries the role
// currently stored in the database, not the role claim baked into the token.
func (s *UserService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := auth.ParseToken(tokenString, s.jwtSecret)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}

	repo := s.repos.Users(s.db)
	user, err := repo.GetByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	return user, nil
}

// RequireRole checks the user's stored role against the expected one.
// The comparison is case-sensitive.
func (s *UserService) RequireRole(user *models.User, role string) error {
	if user == nil || user.Role != role {
		return common.ErrorForbidden
	}
	return nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.UserInfo, error) {
	return s.repos.Users(s.db).List(ctx)
}

func (s *UserService) CountUsers(ctx context.Context) (int64, error) {
	return s.repos.Users(s.db).Count(ctx)
}

// RecentActivities renders the newest registrations as dashboard activity
// entries, at most limit of them.
func (s *UserService) RecentActivities(ctx context.Context, limit int) ([]Activity, error) {
	infos, err := s.repos.Users(s.db).List(ctx)
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(infos) > limit {
		infos = infos[:limit]
	}

	activities := make([]Activity, 0, len(infos))
	for _, info := range infos {
		activities = append(activities, Activity{
			User:   info.Username,
			Role:   info.Role,
			Action: "registered",
			Date:   info.CreatedAt,
		})
	}

	return activities, nil
}
