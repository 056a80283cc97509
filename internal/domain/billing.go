package domain

// Billing là bảng tổng hợp chỉ đọc theo từng người dùng, không lưu trong DB.
// TotalAmount luôn được tính lại từ danh sách payments để tránh lệch số liệu.
type Billing struct {
	Username    string    `json:"username"`
	Payments    []Payment `json:"payments"`
	TotalAmount float64   `json:"total_amount"`
}

func NewBilling(username string, payments []Payment) Billing {
	b := Billing{Username: username, Payments: payments}
	for _, p := range payments {
		b.TotalAmount += p.Amount
	}
	return b
}
