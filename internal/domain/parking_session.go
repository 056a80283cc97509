package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"      // thanh toán gộp theo biển số
	PaymentCompleted PaymentStatus = "completed" // thanh toán riêng cho từng phiên
)

// ParkingSession: một lượt đỗ xe có tính giờ. Phiên đang chạy có StoppedAt
// không hợp lệ; khi kết thúc thì thời lượng và chi phí được chốt, không tính lại.
type ParkingSession struct {
	ID              int           `json:"id"`
	LotID           int           `json:"lot_id"`
	LicensePlate    string        `json:"license_plate"`
	Username        string        `json:"username"`
	ReservationID   null.Int      `json:"reservation_id,omitempty"`
	HoldRef         null.String   `json:"-"` // khóa sổ cái giữ chỗ, chỉ dùng nội bộ
	StartedAt       time.Time     `json:"started_at"`
	StoppedAt       null.Time     `json:"stopped_at"`
	DurationMinutes null.Int      `json:"duration_minutes"`
	Cost            null.Float    `json:"cost"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func (s *ParkingSession) Stopped() bool {
	return s.StoppedAt.Valid
}

type StartSessionDTO struct {
	LotID        int    `json:"lot_id" binding:"required"`
	LicensePlate string `json:"license_plate" binding:"required"`
	Username     string `json:"username" binding:"required"`
}

type SessionFilterDTO struct {
	LotID         *int    `form:"lotId"`
	LicensePlate  *string `form:"licensePlate"`
	PaymentStatus *string `form:"paymentStatus"`
	Active        *bool   `form:"active"`
}

// Dữ liệu tạo phiên từ một reservation đã được xác nhận. Phiên sinh ra đã ở
// trạng thái kết thúc, suất giữ chỗ của reservation được chuyển sang và tiêu thụ.
type ReservationSessionDTO struct {
	LotID         int
	LicensePlate  string
	Username      string
	ReservationID int
	HoldRef       string
	StartTime     time.Time
	EndTime       time.Time
}
