package dto

import "time"

// LoginRequest payload for POST /Auth/Login.
type LoginRequest struct {
	UserCode string `json:"userCode"`
	Password string `json:"password"`
}

// SwitchUnitRequest payload for POST /Auth/SwitchUnit.
type SwitchUnitRequest struct {
	UnitID string `json:"unitId"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
	UnitID    string           `json:"unitId"`
	Employee  EmployeeResponse `json:"employee"`
}
