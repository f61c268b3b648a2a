// Package model - API types shared by the REST handlers
package model

// Response is the envelope returned by every REST endpoint.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// AuthPayload is returned by register and login.
type AuthPayload struct {
	Token     string   `json:"token"`
	ExpiresAt int64    `json:"expiresAt"`
	User      UserView `json:"user"`
}
