package handler

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go-account-service/internal/middleware"
	"go-account-service/internal/model"
	"go-account-service/internal/service"
	"go-account-service/pkg/apierror"
)

const refreshTokenCookie = "refreshToken"

// CookieConfig controls the session transport cookies the login and logout
// handlers manage.
type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type AuthHandler struct {
	sessions      *service.SessionService
	cookies       CookieConfig
	maxUploadSize int64
}

func NewAuthHandler(sessions *service.SessionService, cookies CookieConfig, maxUploadSize int64) *AuthHandler {
	return &AuthHandler{sessions: sessions, cookies: cookies, maxUploadSize: maxUploadSize}
}

// Register handles the multipart registration form: text fields plus a
// required avatar file and an optional coverImage file.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		writeError(w, apierror.Validation("invalid multipart form", ""))
		return
	}

	input := service.RegisterInput{
		Fullname: r.FormValue("fullname"),
		Email:    r.FormValue("email"),
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
		Role:     r.FormValue("role"),
	}

	avatar, err := readFormFile(r, "avatar")
	if err != nil {
		writeError(w, err)
		return
	}
	input.Avatar = avatar

	cover, err := readFormFile(r, "coverImage")
	if err != nil {
		writeError(w, err)
		return
	}
	input.CoverImage = cover

	user, err := h.sessions.Register(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, user, "user created successfully")
}

// readFormFile returns nil when the field is absent; an absent file is the
// service's validation call, not a handler crash.
func readFormFile(r *http.Request, field string) (*service.FileUpload, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return nil, nil
	}

	header := r.MultipartForm.File[field][0]
	file, err := header.Open()
	if err != nil {
		return nil, apierror.Validation("could not read uploaded file", field)
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apierror.Validation("could not read uploaded file", field)
	}

	return &service.FileUpload{Name: header.Filename, Data: data}, nil
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.Validation("invalid JSON body", ""))
		return
	}

	result, err := h.sessions.Login(r.Context(), payload.Username, payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookies(w, result.AccessToken, result.RefreshToken)
	writeSuccess(w, http.StatusOK, result, "user logged in successfully")
}

// Refresh rotates the session from the stored refresh token, taken from the
// cookie or, for non-browser clients, the JSON body.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	token := ""
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		token = strings.TrimSpace(cookie.Value)
	}
	if token == "" {
		var payload struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		token = strings.TrimSpace(payload.RefreshToken)
	}
	if token == "" {
		writeError(w, apierror.Validation("refresh token is required", ""))
		return
	}

	result, err := h.sessions.Refresh(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookies(w, result.AccessToken, result.RefreshToken)
	writeSuccess(w, http.StatusOK, result, "session refreshed successfully")
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	if err := h.sessions.Logout(r.Context(), identity.ID); err != nil {
		writeError(w, err)
		return
	}

	h.clearSessionCookies(w)
	writeSuccess(w, http.StatusOK, nil, "user logged out")
}

func (h *AuthHandler) setSessionCookies(w http.ResponseWriter, accessToken string, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(h.cookies.AccessTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    refreshToken,
		Path:     "/",
		MaxAge:   int(h.cookies.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.cookies.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
