package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Reservation giữ trước một chỗ trong bãi cho một khung giờ. Suất giữ chỗ
// (HoldRef) tồn tại cho tới khi reservation bị xóa hoặc được xác nhận thành phiên.
type Reservation struct {
	ID        int               `json:"id"`
	UserID    int               `json:"user_id"`
	LotID     int               `json:"lot_id"`
	VehicleID int               `json:"vehicle_id"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time"`
	Status    ReservationStatus `json:"status"`
	Cost      float64           `json:"cost"` // = 0 cho tới khi có phiên đỗ xe
	HoldRef   null.String       `json:"-"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type CreateReservationDTO struct {
	UserID    int       `json:"user_id" binding:"required"`
	LotID     int       `json:"lot_id" binding:"required"`
	VehicleID int       `json:"vehicle_id" binding:"required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
	Status    string    `json:"status"`
}

// Các trường nil sẽ giữ nguyên giá trị hiện tại. Đổi khung giờ không
// kiểm tra lại capacity.
type UpdateReservationDTO struct {
	LotID     *int       `json:"lot_id"`
	VehicleID *int       `json:"vehicle_id"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Status    *string    `json:"status"`
}
