package assets

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockUploader is a testify double for the uploader consumed by the session
// service.
type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, key string, contentType string, body io.Reader) (string, error) {
	args := m.Called(ctx, key, contentType, body)
	return args.String(0), args.Error(1)
}
