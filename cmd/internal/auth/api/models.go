package api

import (
	"time"

	"vouch/cmd/identity"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	UID      string `json:"uid"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordChangeRequest struct {
	OldPass string `json:"oldPass"`
	NewPass string `json:"newPass"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	UID       string    `json:"uid"`
	CreatedAt time.Time `json:"created_at"`
}

type passwordChangeResponse struct {
	Result string `json:"result"`
}

func toUserResponse(u identity.PublicUser) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		UID:       u.UID,
		CreatedAt: u.CreatedAt,
	}
}
