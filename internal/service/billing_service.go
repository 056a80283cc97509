package service

import (
	"context"
	"fmt"

	"mobypark/internal/domain"
	"mobypark/internal/repository"
)

// BillingService tổng hợp payment thành hóa đơn theo từng người dùng.
// Hóa đơn được dựng lại từ payment mỗi lần truy vấn, không lưu riêng.
type BillingService struct {
	paymentRepo repository.PaymentRepository
}

func NewBillingService(paymentRepo repository.PaymentRepository) *BillingService {
	return &BillingService{paymentRepo: paymentRepo}
}

func (s *BillingService) GetAll(ctx context.Context) ([]domain.Billing, error) {
	payments, err := s.paymentRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("lỗi khi lấy danh sách payment: %w", err)
	}

	// Payment đã được sắp theo initiator nên chỉ cần gom theo nhóm liên tiếp.
	billings := make([]domain.Billing, 0)
	start := 0
	for i := 1; i <= len(payments); i++ {
		if i == len(payments) || payments[i].Initiator != payments[start].Initiator {
			billings = append(billings, domain.NewBilling(payments[start].Initiator, payments[start:i]))
			start = i
		}
	}
	return billings, nil
}

func (s *BillingService) GetByUser(ctx context.Context, username string) (*domain.Billing, error) {
	payments, err := s.paymentRepo.FindByInitiator(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("lỗi khi lấy payment của người dùng '%s': %w", username, err)
	}
	if len(payments) == 0 {
		return nil, fmt.Errorf("người dùng '%s' chưa có lịch sử thanh toán: %w", username, repository.ErrNotFound)
	}

	billing := domain.NewBilling(username, payments)
	return &billing, nil
}
