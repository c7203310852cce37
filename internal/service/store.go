package service

import (
	"context"
	"io"

	"go-account-service/internal/model"
)

// UserStore is the credential store consumed by the services. Implemented by
// repository.UserRepository; mocked in tests.
type UserStore interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (model.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username string, email string) (bool, error)
	Update(ctx context.Context, id string, patch model.UserPatch) (model.User, error)
	SetRefreshToken(ctx context.Context, userID string, token string) error
	ClearRefreshToken(ctx context.Context, userID string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.User, error)
	CountByRole(ctx context.Context) (map[string]int, error)
}

// Uploader sends media to the external asset host and returns the public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, contentType string, body io.Reader) (string, error)
}
