package service

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-account-service/internal/assets"
	"go-account-service/internal/auth"
	"go-account-service/internal/model"
	"go-account-service/pkg/apierror"
)

const (
	fullnameMinLen = 5
	fullnameMaxLen = 50
)

// SessionService owns the register/login/logout lifecycle. A user moves
// ANONYMOUS -> AUTHENTICATED on login and back on logout; the stored refresh
// token is the only session state.
type SessionService struct {
	store    UserStore
	uploader Uploader
	issuer   *auth.TokenIssuer
}

func NewSessionService(store UserStore, uploader Uploader, issuer *auth.TokenIssuer) *SessionService {
	return &SessionService{store: store, uploader: uploader, issuer: issuer}
}

// FileUpload is a media file received with the registration form.
type FileUpload struct {
	Name string
	Data []byte
}

type RegisterInput struct {
	Fullname   string
	Email      string
	Username   string
	Password   string
	Role       string
	Avatar     *FileUpload
	CoverImage *FileUpload
}

func (s *SessionService) Register(ctx context.Context, in RegisterInput) (model.PublicUser, error) {
	in.Fullname = strings.TrimSpace(in.Fullname)
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Password = strings.TrimSpace(in.Password)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))

	for field, value := range map[string]string{
		"fullname": in.Fullname,
		"email":    in.Email,
		"username": in.Username,
		"password": in.Password,
	} {
		if value == "" {
			return model.PublicUser{}, apierror.Validation("all fields are required", field)
		}
	}

	if len(in.Fullname) < fullnameMinLen || len(in.Fullname) > fullnameMaxLen {
		return model.PublicUser{}, apierror.Validation("fullname must be between 5 and 50 characters", "fullname")
	}

	if in.Role == "" {
		in.Role = model.RoleUser
	}
	if !model.ValidRole(in.Role) {
		return model.PublicUser{}, apierror.Validation("invalid role", in.Role)
	}

	exists, err := s.store.ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return model.PublicUser{}, apierror.Internal("failed to check existing users")
	}
	if exists {
		return model.PublicUser{}, apierror.Conflict("user already exists, change your username or email", "")
	}

	if in.Avatar == nil || len(in.Avatar.Data) == 0 {
		return model.PublicUser{}, apierror.Validation("avatar is required", "avatar")
	}

	avatarURL, err := s.uploadImage(ctx, "avatars", in.Avatar)
	if err != nil {
		return model.PublicUser{}, err
	}

	var coverImageURL *string
	if in.CoverImage != nil && len(in.CoverImage.Data) > 0 {
		url, err := s.uploadImage(ctx, "covers", in.CoverImage)
		if err != nil {
			return model.PublicUser{}, err
		}
		coverImageURL = &url
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return model.PublicUser{}, apierror.Internal("failed to hash password")
	}

	now := time.Now().UTC()
	created, err := s.store.Create(ctx, model.User{
		ID:            uuid.NewString(),
		Username:      in.Username,
		Fullname:      in.Fullname,
		Email:         in.Email,
		PasswordHash:  hash,
		AvatarURL:     avatarURL,
		CoverImageURL: coverImageURL,
		Role:          in.Role,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return model.PublicUser{}, err
	}

	return created.Public(), nil
}

func (s *SessionService) uploadImage(ctx context.Context, prefix string, file *FileUpload) (string, error) {
	contentType, ext, err := assets.DetectImage(file.Data)
	if err != nil {
		return "", apierror.Validation("file must be a png, jpeg, gif or webp image", file.Name)
	}

	url, err := s.uploader.Upload(ctx, assets.ObjectKey(prefix, ext), contentType, bytes.NewReader(file.Data))
	if err != nil {
		return "", apierror.Upload("failed to upload " + prefix[:len(prefix)-1])
	}
	return url, nil
}

// Login verifies the credentials, issues a fresh token pair and persists the
// refresh token, silently superseding any previous session for this user.
func (s *SessionService) Login(ctx context.Context, username string, email string, password string) (model.LoginResult, error) {
	identifier := strings.TrimSpace(username)
	if identifier == "" {
		identifier = strings.TrimSpace(email)
	}
	if identifier == "" || strings.TrimSpace(password) == "" {
		return model.LoginResult{}, apierror.Validation("username or email and password are required", "")
	}

	user, err := s.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		return model.LoginResult{}, err
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		return model.LoginResult{}, apierror.Unauthorized("invalid user password")
	}

	accessToken, refreshToken, err := s.generateAccessAndRefreshToken(ctx, user)
	if err != nil {
		return model.LoginResult{}, err
	}

	return model.LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Public(),
	}, nil
}

// generateAccessAndRefreshToken issues both tokens and stores the refresh
// token. Failures surface as a generic internal error; the cause never
// reaches the caller.
func (s *SessionService) generateAccessAndRefreshToken(ctx context.Context, user model.User) (string, string, error) {
	accessToken, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		return "", "", apierror.Internal("something went wrong while generating access and refresh token")
	}

	refreshToken, err := s.issuer.IssueRefreshToken(user)
	if err != nil {
		return "", "", apierror.Internal("something went wrong while generating access and refresh token")
	}

	if err := s.store.SetRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return "", "", apierror.Internal("something went wrong while generating access and refresh token")
	}

	return accessToken, refreshToken, nil
}

// Refresh exchanges a valid stored refresh token for a fresh pair, rotating
// the stored token. Only the most recently issued refresh token is accepted.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (model.LoginResult, error) {
	claims, err := s.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return model.LoginResult{}, apierror.Unauthorized("refresh token is invalid or expired")
	}

	user, err := s.store.FindByID(ctx, claims.UserID)
	if err != nil {
		return model.LoginResult{}, apierror.Unauthorized("refresh token is invalid or expired")
	}

	accessToken, newRefreshToken, err := s.generateAccessAndRefreshToken(ctx, user)
	if err != nil {
		return model.LoginResult{}, err
	}

	return model.LoginResult{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		User:         user.Public(),
	}, nil
}

// Logout clears the stored refresh token. Logging out twice is a no-op.
func (s *SessionService) Logout(ctx context.Context, userID string) error {
	return s.store.ClearRefreshToken(ctx, userID)
}

// ResolveIdentity maps an authenticated token subject to the sanitized user
// record the rest of the pipeline reads.
func (s *SessionService) ResolveIdentity(ctx context.Context, userID string) (model.PublicUser, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return model.PublicUser{}, err
	}
	return user.Public(), nil
}

func (s *SessionService) VerifyAccess(token string) (*model.AuthClaims, error) {
	return s.issuer.VerifyAccess(token)
}

// VerifyRefresh checks signature and expiry, then requires the presented
// token to be the single stored one: a token superseded by a later login no
// longer authorizes anything.
func (s *SessionService) VerifyRefresh(ctx context.Context, token string) (*model.AuthClaims, error) {
	claims, err := s.issuer.VerifyRefresh(token)
	if err != nil {
		return nil, err
	}

	user, err := s.store.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, model.ErrTokenInvalid
	}
	if user.RefreshToken == nil || *user.RefreshToken != token {
		return nil, model.ErrTokenInvalid
	}

	return claims, nil
}
