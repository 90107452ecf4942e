package authapi

import "time"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	ConfirmPassword string  `json:"confirmPassword"`
	Bio             *string `json:"bio,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type roleChangeRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// authResponse is the body of login, register and refresh.
// The refresh value travels only in the cookie.
type authResponse struct {
	AccessToken string `json:"accessToken"`
	UserID      int64  `json:"userId"`
	Role        string `json:"role"`
	Username    string `json:"username"`
}

type accountResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Bio       *string   `json:"bio"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}
