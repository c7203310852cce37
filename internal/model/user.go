package model

import "time"

// Roles recognized by the authorization gate. Matching is exact: admin does
// not implicitly satisfy a mod-gated route.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
	RoleMod   = "mod"
)

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser || role == RoleMod
}

// User is the stored credential record. PasswordHash and RefreshToken never
// leave the service; responses carry PublicUser instead.
type User struct {
	ID            string
	Username      string
	Fullname      string
	Email         string
	PasswordHash  string
	AvatarURL     string
	CoverImageURL *string
	RefreshToken  *string
	Role          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PublicUser is the sanitized projection of a User.
type PublicUser struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Fullname      string    `json:"fullname"`
	Email         string    `json:"email"`
	AvatarURL     string    `json:"avatarUrl"`
	CoverImageURL string    `json:"coverImageUrl,omitempty"`
	Role          string    `json:"role"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (u User) Public() PublicUser {
	pub := PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Fullname:  u.Fullname,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.CoverImageURL != nil {
		pub.CoverImageURL = *u.CoverImageURL
	}
	return pub
}

// AuthClaims is the decoded JWT payload. Access tokens carry the display
// claims; refresh tokens carry only the user id.
type AuthClaims struct {
	UserID   string
	Email    string
	Username string
	Fullname string
	Type     string
	TokenID  string
}

// UserPatch is a partial update; nil fields are left untouched. PasswordHash
// is set by the service only when the caller submitted a new plaintext
// password, so a stored hash is never re-hashed.
type UserPatch struct {
	Username      *string
	Fullname      *string
	Email         *string
	PasswordHash  *string
	AvatarURL     *string
	CoverImageURL *string
	Role          *string
}
