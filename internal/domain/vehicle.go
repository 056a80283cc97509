package domain

import "time"

type Vehicle struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	LicensePlate string    `json:"license_plate"`
	Model        string    `json:"model,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type VehicleDTO struct {
	UserID       int    `json:"user_id" binding:"required"`
	LicensePlate string `json:"license_plate" binding:"required"`
	Model        string `json:"model"`
}
