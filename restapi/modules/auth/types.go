package auth

// RegisterRequest defines the body for registration
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest defines the body for email/password login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
