package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-account-service/internal/assets"
	"go-account-service/internal/auth"
	"go-account-service/internal/model"
	"go-account-service/pkg/apierror"
)

func testIssuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret:  "test-access-secret",
		AccessTTL:     15 * time.Minute,
		RefreshSecret: "test-refresh-secret",
		RefreshTTL:    time.Hour,
	})
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func validRegisterInput(t *testing.T) RegisterInput {
	return RegisterInput{
		Fullname: "A B Cee",
		Email:    "a@b.com",
		Username: "abc",
		Password: "pw123",
		Avatar:   &FileUpload{Name: "avatar.png", Data: pngBytes(t)},
	}
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, code, apiErr.Code)
}

func TestSessionService_Register(t *testing.T) {
	t.Run("creates user with hashed password and sanitized response", func(t *testing.T) {
		store := new(MockUserStore)
		uploader := new(assets.MockUploader)
		svc := NewSessionService(store, uploader, testIssuer())

		store.On("ExistsByUsernameOrEmail", mock.Anything, "abc", "a@b.com").Return(false, nil)
		uploader.On("Upload", mock.Anything, mock.Anything, "image/png", mock.Anything).
			Return("https://cdn.example.com/avatars/x.png", nil)

		var created model.User
		store.On("Create", mock.Anything, mock.AnythingOfType("model.User")).
			Run(func(args mock.Arguments) {
				created = args.Get(1).(model.User)
			}).
			Return(model.User{
				ID:        "user-1",
				Username:  "abc",
				Fullname:  "A B Cee",
				Email:     "a@b.com",
				AvatarURL: "https://cdn.example.com/avatars/x.png",
				Role:      model.RoleUser,
			}, nil)

		user, err := svc.Register(context.Background(), validRegisterInput(t))
		require.NoError(t, err)

		// Stored hash is never the plaintext but verifies against it.
		assert.NotEqual(t, "pw123", created.PasswordHash)
		assert.True(t, auth.VerifyPassword("pw123", created.PasswordHash))
		assert.Equal(t, model.RoleUser, created.Role)

		assert.Equal(t, "abc", user.Username)
		assert.Equal(t, "https://cdn.example.com/avatars/x.png", user.AvatarURL)

		store.AssertExpectations(t)
		uploader.AssertExpectations(t)
	})

	t.Run("two registrations with the same password produce different hashes", func(t *testing.T) {
		var hashes []string

		for _, username := range []string{"first", "second"} {
			store := new(MockUserStore)
			uploader := new(assets.MockUploader)
			svc := NewSessionService(store, uploader, testIssuer())

			store.On("ExistsByUsernameOrEmail", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
			uploader.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("https://cdn/x.png", nil)
			store.On("Create", mock.Anything, mock.AnythingOfType("model.User")).
				Run(func(args mock.Arguments) {
					hashes = append(hashes, args.Get(1).(model.User).PasswordHash)
				}).
				Return(model.User{}, nil)

			in := validRegisterInput(t)
			in.Username = username
			in.Email = username + "@b.com"
			in.Fullname = "User " + username

			_, err := svc.Register(context.Background(), in)
			require.NoError(t, err)
		}

		require.Len(t, hashes, 2)
		assert.NotEqual(t, hashes[0], hashes[1])
	})

	t.Run("normalizes username to lowercase", func(t *testing.T) {
		store := new(MockUserStore)
		uploader := new(assets.MockUploader)
		svc := NewSessionService(store, uploader, testIssuer())

		store.On("ExistsByUsernameOrEmail", mock.Anything, "abc", "a@b.com").Return(false, nil)
		uploader.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("https://cdn/x.png", nil)

		var created model.User
		store.On("Create", mock.Anything, mock.AnythingOfType("model.User")).
			Run(func(args mock.Arguments) { created = args.Get(1).(model.User) }).
			Return(model.User{}, nil)

		in := validRegisterInput(t)
		in.Username = "  ABC  "

		_, err := svc.Register(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, "abc", created.Username)
	})

	t.Run("fails on blank required field", func(t *testing.T) {
		store := new(MockUserStore)
		uploader := new(assets.MockUploader)
		svc := NewSessionService(store, uploader, testIssuer())

		in := validRegisterInput(t)
		in.Password = "   "

		_, err := svc.Register(context.Background(), in)
		assertAPIErrorCode(t, err, "VALIDATION")

		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("fails when fullname is too short", func(t *testing.T) {
		store := new(MockUserStore)
		uploader := new(assets.MockUploader)
		svc := NewSessionService(store, uploader, testIssuer())

		in := validRegisterInput(t)
		in.Fullname = "AB"

		_, err := svc.Register(context.Background(), in)
		assertAPIErrorCode(t, err, "VALIDATION")
	})

	t.Run("fails with conflict when username or email exists", func(t *testing.T) {
		store := new(MockUserStore)
		uploader := new(assets.MockUploader)
		svc := NewSessionService(store, uploader, testIssuer())

		store.On("ExistsByUsernameOrEmail", mock.Anything, "abc", "a@b.com").Return(true, nil)

		_, err := svc.Register(context.Background(), validRegisterInput(t))
		assertAPIErrorCode(t, err, "CONFLICT")

		// Nothing is uploaded for a doomed registration.
		uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("fails when avatar is absent", func(t *testing.T) {
		store := new(MockUserStore)
		uploader := new(assets.MockUploader)
		svc := NewSessionService(store, uploader, testIssuer())

		store.On("ExistsByUsernameOrEmail", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

		in := validRegisterInput(t)
		in.Avatar = nil

		_, err := svc.Register(context.Background(), in)
		assertAPIErrorCode(t, err, "VALIDATION")
	})

	t.Run("fails when avatar is not an image", func(t *testing.T) {
		store := new(MockUserStore)
		uploader := new(assets.MockUploader)
		svc := NewSessionService(store, uploader, testIssuer())

		store.On("ExistsByUsernameOrEmail", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

		in := validRegisterInput(t)
		in.Avatar = &FileUpload{Name: "evil.exe", Data: []byte("MZ\x90\x00")}

		_, err := svc.Register(context.Background(), in)
		assertAPIErrorCode(t, err, "VALIDATION")

		uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("fails when avatar upload does not succeed", func(t *testing.T) {
		store := new(MockUserStore)
		uploader := new(assets.MockUploader)
		svc := NewSessionService(store, uploader, testIssuer())

		store.On("ExistsByUsernameOrEmail", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
		uploader.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", errors.New("asset host unreachable"))

		_, err := svc.Register(context.Background(), validRegisterInput(t))
		assertAPIErrorCode(t, err, "UPLOAD_FAILED")

		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestSessionService_Login(t *testing.T) {
	hash, err := auth.HashPassword("pw123")
	require.NoError(t, err)

	storedUser := model.User{
		ID:           "user-1",
		Username:     "abc",
		Fullname:     "A B Cee",
		Email:        "a@b.com",
		PasswordHash: hash,
		AvatarURL:    "https://cdn/x.png",
		Role:         model.RoleUser,
	}

	t.Run("issues tokens and persists refresh token", func(t *testing.T) {
		store := new(MockUserStore)
		svc := NewSessionService(store, new(assets.MockUploader), testIssuer())

		store.On("FindByIdentifier", mock.Anything, "abc").Return(storedUser, nil)

		var persisted string
		store.On("SetRefreshToken", mock.Anything, "user-1", mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { persisted = args.String(2) }).
			Return(nil)

		result, err := svc.Login(context.Background(), "abc", "", "pw123")
		require.NoError(t, err)

		assert.NotEmpty(t, result.AccessToken)
		assert.NotEmpty(t, result.RefreshToken)
		assert.Equal(t, result.RefreshToken, persisted)
		assert.Equal(t, "abc", result.User.Username)

		claims, err := testIssuer().VerifyAccess(result.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "a@b.com", claims.Email)
		assert.Equal(t, "A B Cee", claims.Fullname)

		store.AssertExpectations(t)
	})

	t.Run("accepts email as identifier", func(t *testing.T) {
		store := new(MockUserStore)
		svc := NewSessionService(store, new(assets.MockUploader), testIssuer())

		store.On("FindByIdentifier", mock.Anything, "a@b.com").Return(storedUser, nil)
		store.On("SetRefreshToken", mock.Anything, "user-1", mock.AnythingOfType("string")).Return(nil)

		_, err := svc.Login(context.Background(), "", "a@b.com", "pw123")
		require.NoError(t, err)
	})

	t.Run("fails validation when identifier or password missing", func(t *testing.T) {
		store := new(MockUserStore)
		svc := NewSessionService(store, new(assets.MockUploader), testIssuer())

		_, err := svc.Login(context.Background(), "", "", "pw123")
		assertAPIErrorCode(t, err, "VALIDATION")

		_, err = svc.Login(context.Background(), "abc", "", "  ")
		assertAPIErrorCode(t, err, "VALIDATION")
	})

	t.Run("fails with not found for unknown user", func(t *testing.T) {
		store := new(MockUserStore)
		svc := NewSessionService(store, new(assets.MockUploader), testIssuer())

		store.On("FindByIdentifier", mock.Anything, "ghost").
			Return(model.User{}, apierror.NotFound("user not found", "ghost"))

		_, err := svc.Login(context.Background(), "ghost", "", "pw123")
		assertAPIErrorCode(t, err, "NOT_FOUND")
	})

	t.Run("fails with auth error on wrong password and issues no tokens", func(t *testing.T) {
		store := new(MockUserStore)
		svc := NewSessionService(store, new(assets.MockUploader), testIssuer())

		store.On("FindByIdentifier", mock.Anything, "abc").Return(storedUser, nil)

		_, err := svc.Login(context.Background(), "abc", "", "wrong")
		assertAPIErrorCode(t, err, "UNAUTHORIZED")

		store.AssertNotCalled(t, "SetRefreshToken", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("store failure during token persistence surfaces as internal", func(t *testing.T) {
		store := new(MockUserStore)
		svc := NewSessionService(store, new(assets.MockUploader), testIssuer())

		store.On("FindByIdentifier", mock.Anything, "abc").Return(storedUser, nil)
		store.On("SetRefreshToken", mock.Anything, "user-1", mock.AnythingOfType("string")).
			Return(errors.New("connection reset"))

		_, err := svc.Login(context.Background(), "abc", "", "pw123")
		assertAPIErrorCode(t, err, "INTERNAL")

		var apiErr *apierror.APIError
		require.ErrorAs(t, err, &apiErr)
		// The underlying cause never reaches the caller.
		assert.NotContains(t, apiErr.Message, "connection reset")
	})
}

func TestSessionService_RefreshTokenSupersession(t *testing.T) {
	hash, err := auth.HashPassword("pw123")
	require.NoError(t, err)

	stored := ""
	user := model.User{
		ID:           "user-1",
		Username:     "abc",
		Email:        "a@b.com",
		PasswordHash: hash,
		RefreshToken: &stored,
	}

	store := new(MockUserStore)
	svc := NewSessionService(store, new(assets.MockUploader), testIssuer())

	store.On("FindByIdentifier", mock.Anything, "abc").Return(user, nil)
	store.On("FindByID", mock.Anything, "user-1").Return(user, nil)
	store.On("SetRefreshToken", mock.Anything, "user-1", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { stored = args.String(2) }).
		Return(nil)

	first, err := svc.Login(context.Background(), "abc", "", "pw123")
	require.NoError(t, err)

	second, err := svc.Login(context.Background(), "abc", "", "pw123")
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// Only the most recent refresh token authorizes a refresh.
	_, err = svc.VerifyRefresh(context.Background(), first.RefreshToken)
	assert.Error(t, err)

	_, err = svc.VerifyRefresh(context.Background(), second.RefreshToken)
	assert.NoError(t, err)
}

func TestSessionService_Logout(t *testing.T) {
	store := new(MockUserStore)
	svc := NewSessionService(store, new(assets.MockUploader), testIssuer())

	store.On("ClearRefreshToken", mock.Anything, "user-1").Return(nil)

	// Logging out twice is a no-op, not an error.
	require.NoError(t, svc.Logout(context.Background(), "user-1"))
	require.NoError(t, svc.Logout(context.Background(), "user-1"))

	store.AssertNumberOfCalls(t, "ClearRefreshToken", 2)
}
