package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-account-service/internal/model"
	"go-account-service/pkg/apierror"
)

const userColumns = `id, username, fullname, email, password_hash, avatar_url,
	        cover_image_url, refresh_token, role, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Fullname, &u.Email, &u.PasswordHash,
		&u.AvatarURL, &u.CoverImageURL, &u.RefreshToken, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, apierror.NotFound("user not found", id)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

// FindByIdentifier matches the identifier against username or email,
// case-insensitively.
func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) (model.User, error) {
	identifier = strings.TrimSpace(identifier)
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE lower(username) = lower($1) OR lower(email) = lower($1)`, identifier))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, apierror.NotFound("user not found", identifier)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by identifier: %w", err)
	}
	return u, nil
}

// checkUnique enforces the username, email and fullname uniqueness rules in
// the write path before touching the row.
func (r *UserRepository) checkUnique(ctx context.Context, u model.User, excludeID string) error {
	rows, err := r.pool.Query(ctx,
		`SELECT username, fullname, email FROM users
		 WHERE (lower(username) = lower($1) OR fullname = $2 OR lower(email) = lower($3))
		   AND id <> $4`,
		u.Username, u.Fullname, u.Email, excludeID)
	if err != nil {
		return fmt.Errorf("check unique fields: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var username, fullname, email string
		if err := rows.Scan(&username, &fullname, &email); err != nil {
			return fmt.Errorf("scan unique check: %w", err)
		}
		switch {
		case strings.EqualFold(username, u.Username):
			return apierror.Conflict("username already taken", u.Username)
		case strings.EqualFold(email, u.Email):
			return apierror.Conflict("email already registered", u.Email)
		case fullname == u.Fullname:
			return apierror.Conflict("fullname already taken", u.Fullname)
		}
	}
	return rows.Err()
}

func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username string, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users
		 WHERE lower(username) = lower($1) OR lower(email) = lower($2))`,
		strings.TrimSpace(username), strings.TrimSpace(email)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) Create(ctx context.Context, u model.User) (model.User, error) {
	if err := r.checkUnique(ctx, u, u.ID); err != nil {
		return model.User{}, err
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, username, fullname, email, password_hash, avatar_url,
		                    cover_image_url, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.Username, u.Fullname, u.Email, u.PasswordHash, u.AvatarURL,
		u.CoverImageURL, u.Role, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Update applies a partial merge; nil patch fields keep the stored value.
func (r *UserRepository) Update(ctx context.Context, id string, patch model.UserPatch) (model.User, error) {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}

	if patch.Username != nil {
		current.Username = *patch.Username
	}
	if patch.Fullname != nil {
		current.Fullname = *patch.Fullname
	}
	if patch.Email != nil {
		current.Email = *patch.Email
	}
	if patch.PasswordHash != nil {
		current.PasswordHash = *patch.PasswordHash
	}
	if patch.AvatarURL != nil {
		current.AvatarURL = *patch.AvatarURL
	}
	if patch.CoverImageURL != nil {
		current.CoverImageURL = patch.CoverImageURL
	}
	if patch.Role != nil {
		current.Role = *patch.Role
	}
	current.UpdatedAt = time.Now().UTC()

	if err := r.checkUnique(ctx, current, id); err != nil {
		return model.User{}, err
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET username = $2, fullname = $3, email = $4, password_hash = $5,
		        avatar_url = $6, cover_image_url = $7, role = $8, updated_at = $9
		 WHERE id = $1`,
		id, current.Username, current.Fullname, current.Email, current.PasswordHash,
		current.AvatarURL, current.CoverImageURL, current.Role, current.UpdatedAt)
	if err != nil {
		return model.User{}, fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.User{}, apierror.NotFound("user not found", id)
	}
	return current, nil
}

// SetRefreshToken overwrites the stored refresh token only; no other column
// is validated or touched. A concurrent login for the same user races here
// and the last write wins.
func (r *UserRepository) SetRefreshToken(ctx context.Context, userID string, token string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET refresh_token = $2, updated_at = $3 WHERE id = $1`,
		userID, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierror.NotFound("user not found", userID)
	}
	return nil
}

// ClearRefreshToken is idempotent; clearing an already-absent token succeeds.
func (r *UserRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET refresh_token = NULL, updated_at = $2 WHERE id = $1`,
		userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierror.NotFound("user not found", id)
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) CountByRole(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("count users by role: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var role string
		var count int
		if err := rows.Scan(&role, &count); err != nil {
			return nil, fmt.Errorf("scan role count: %w", err)
		}
		counts[role] = count
	}
	return counts, rows.Err()
}
