package domain

import "time"

type ParkingLot struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Capacity  int       `json:"capacity"`
	Reserved  int       `json:"reserved"`
	Tariff    float64   `json:"tariff"`     // đơn giá theo giờ
	DayTariff float64   `json:"day_tariff"` // trần phí theo ngày, 0 = không áp dụng
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ParkingLotDTO struct {
	Name      string  `json:"name" binding:"required"`
	Address   string  `json:"address"`
	Capacity  int     `json:"capacity" binding:"gte=0"`
	Tariff    float64 `json:"tariff" binding:"gte=0"`
	DayTariff float64 `json:"day_tariff" binding:"gte=0"`
}

// Phân trang danh sách bãi đỗ.
type ParkingLotPageDTO struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// Bản tin occupancy đẩy qua WebSocket mỗi khi bộ đếm chỗ giữ thay đổi.
type LotOccupancyEvent struct {
	Type     string `json:"type"`
	LotID    int    `json:"lot_id"`
	Reserved int    `json:"reserved"`
	Capacity int    `json:"capacity"`
}
