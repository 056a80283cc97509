package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// TransactionDetail: thông tin giao dịch đi kèm một payment, bất biến sau khi tạo.
type TransactionDetail struct {
	Amount float64   `json:"amount"`
	Date   time.Time `json:"date"`
	Method string    `json:"method"`
	Issuer string    `json:"issuer"`
	Bank   string    `json:"bank,omitempty"`
}

// Payment được tạo đúng một lần cho mỗi lượt đối soát và không bao giờ sửa.
// SessionRef là id phiên (thanh toán riêng) hoặc biển số (thanh toán gộp).
type Payment struct {
	ID                   int               `json:"id"`
	TransactionReference string            `json:"transaction_reference"`
	Amount               float64           `json:"amount"`
	Initiator            string            `json:"initiator"`
	SessionRef           null.String       `json:"session_ref,omitempty"`
	Hash                 string            `json:"hash"` // dấu vết audit, không dùng để xác thực
	Detail               TransactionDetail `json:"transaction_detail"`
	CreatedAt            time.Time         `json:"created_at"`
	CompletedAt          time.Time         `json:"completed_at"`
}

type PaySessionDTO struct {
	SessionID    int    `json:"session_id" binding:"required"`
	LicensePlate string `json:"license_plate" binding:"required"`
	Initiator    string `json:"initiator" binding:"required"`
	Method       string `json:"method" binding:"required"`
	Bank         string `json:"bank"`
}

type AggregatePaymentDTO struct {
	LicensePlate string `json:"license_plate" binding:"required"`
	Initiator    string `json:"initiator" binding:"required"`
	Method       string `json:"method" binding:"required"`
	Bank         string `json:"bank"`
}
