package model

// APIResponse is the uniform response envelope. StatusCode mirrors the HTTP
// status; error responses omit Data.
type APIResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data,omitempty"`
	Message    string `json:"message"`
}

type LoginResult struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	User         PublicUser `json:"user"`
}

type UserList struct {
	Users []PublicUser `json:"users"`
}

type Statistics struct {
	TotalUsers int            `json:"totalUsers"`
	ByRole     map[string]int `json:"byRole"`
}
