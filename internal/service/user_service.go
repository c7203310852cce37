package service

import (
	"context"
	"strings"

	"go-account-service/internal/auth"
	"go-account-service/internal/model"
	"go-account-service/pkg/apierror"
)

// UserService covers the role-gated admin operations over the credential
// store.
type UserService struct {
	store UserStore
}

func NewUserService(store UserStore) *UserService {
	return &UserService{store: store}
}

func (s *UserService) ListUsers(ctx context.Context) ([]model.PublicUser, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, apierror.Internal("failed to fetch all users")
	}

	out := make([]model.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (model.PublicUser, error) {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		return model.PublicUser{}, err
	}
	return user.Public(), nil
}

// UpdateUser merges the submitted fields into the stored record. The
// password is hashed here, exactly once, and only when the patch carries
// one; the stored hash is never re-hashed.
func (s *UserService) UpdateUser(ctx context.Context, id string, req model.UpdateUserRequest) (model.PublicUser, error) {
	var patch model.UserPatch

	if req.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*req.Username))
		if username == "" {
			return model.PublicUser{}, apierror.Validation("username cannot be blank", "username")
		}
		patch.Username = &username
	}

	if req.Fullname != nil {
		fullname := strings.TrimSpace(*req.Fullname)
		if len(fullname) < fullnameMinLen || len(fullname) > fullnameMaxLen {
			return model.PublicUser{}, apierror.Validation("fullname must be between 5 and 50 characters", "fullname")
		}
		patch.Fullname = &fullname
	}

	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email == "" {
			return model.PublicUser{}, apierror.Validation("email cannot be blank", "email")
		}
		patch.Email = &email
	}

	if req.Role != nil {
		role := strings.ToLower(strings.TrimSpace(*req.Role))
		if !model.ValidRole(role) {
			return model.PublicUser{}, apierror.Validation("invalid role", role)
		}
		patch.Role = &role
	}

	if req.Password != nil {
		password := strings.TrimSpace(*req.Password)
		if password == "" {
			return model.PublicUser{}, apierror.Validation("password cannot be blank", "password")
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return model.PublicUser{}, apierror.Internal("failed to hash password")
		}
		patch.PasswordHash = &hash
	}

	updated, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return model.PublicUser{}, err
	}
	return updated.Public(), nil
}

func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

func (s *UserService) Statistics(ctx context.Context) (model.Statistics, error) {
	byRole, err := s.store.CountByRole(ctx)
	if err != nil {
		return model.Statistics{}, apierror.Internal("failed to compute statistics")
	}

	total := 0
	for _, n := range byRole {
		total += n
	}
	return model.Statistics{TotalUsers: total, ByRole: byRole}, nil
}
