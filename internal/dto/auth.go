package dto

// LoginResponse is returned by a successful login
type LoginResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}
