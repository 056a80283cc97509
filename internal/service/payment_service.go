package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"

	"mobypark/internal/clock"
	"mobypark/internal/domain"
	"mobypark/internal/metrics"
	"mobypark/internal/repository"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"
)

var ErrNoUnpaidSession = errors.New("không tìm thấy phiên chưa thanh toán khớp với yêu cầu")
var ErrNoUnpaidSessions = errors.New("biển số không có phiên chưa thanh toán nào")

// PaymentService đối soát các phiên chưa thanh toán với payment mới.
// Payment chỉ được tạo, không bao giờ sửa; đối soát chỉ tạo payment mới
// và chuyển trạng thái phiên.
type PaymentService struct {
	paymentRepo repository.PaymentRepository
	sessionRepo repository.ParkingSessionRepository
	clk         clock.Clock
}

func NewPaymentService(paymentRepo repository.PaymentRepository, sessionRepo repository.ParkingSessionRepository,
	clk clock.Clock) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		sessionRepo: sessionRepo,
		clk:         clk,
	}
}

func (s *PaymentService) GetUnpaidSessions(ctx context.Context, licensePlate string) ([]domain.ParkingSession, error) {
	return s.sessionRepo.FindPendingByPlate(ctx, licensePlate)
}

// PaySingleSession thanh toán một phiên pending khớp cả id lẫn biển số.
// Phiên được chuyển sang completed cùng transaction với payment.
func (s *PaymentService) PaySingleSession(ctx context.Context, dto domain.PaySessionDTO) (*domain.Payment, error) {
	session, err := s.sessionRepo.FindPendingByIDAndPlate(ctx, dto.SessionID, dto.LicensePlate)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoUnpaidSession
		}
		return nil, fmt.Errorf("lỗi khi tìm phiên chưa thanh toán: %w", err)
	}

	amount := 0.0
	if session.Cost.Valid {
		amount = session.Cost.Float64
	}

	payment := s.buildPayment(amount, dto.Initiator, dto.Method, dto.Bank,
		null.StringFrom(strconv.Itoa(session.ID)))

	createdPayment, err := s.paymentRepo.CreateWithSessions(ctx, payment, []int{session.ID}, domain.PaymentCompleted)
	if err != nil {
		return nil, fmt.Errorf("lỗi tạo payment cho phiên %d: %w", session.ID, err)
	}

	metrics.PaymentsCreated.Inc()
	log.Printf("Đã thanh toán phiên %d, payment ID %d, số tiền %.2f", session.ID, createdPayment.ID, amount)
	return createdPayment, nil
}

// CreateAggregatePayment gom mọi phiên pending của một biển số vào một payment
// duy nhất. Tất cả các phiên cùng chuyển sang paid với payment trong một
// transaction: hoặc trọn vẹn, hoặc không gì cả.
func (s *PaymentService) CreateAggregatePayment(ctx context.Context, dto domain.AggregatePaymentDTO) (*domain.Payment, error) {
	sessions, err := s.sessionRepo.FindPendingByPlate(ctx, dto.LicensePlate)
	if err != nil {
		return nil, fmt.Errorf("lỗi khi tìm các phiên chưa thanh toán: %w", err)
	}
	if len(sessions) == 0 {
		return nil, ErrNoUnpaidSessions
	}

	total := 0.0
	sessionIDs := make([]int, 0, len(sessions))
	for _, session := range sessions {
		if session.Cost.Valid {
			total += session.Cost.Float64
		}
		sessionIDs = append(sessionIDs, session.ID)
	}
	total = math.Round(total*100) / 100

	payment := s.buildPayment(total, dto.Initiator, dto.Method, dto.Bank,
		null.StringFrom(dto.LicensePlate))

	createdPayment, err := s.paymentRepo.CreateWithSessions(ctx, payment, sessionIDs, domain.PaymentPaid)
	if err != nil {
		return nil, fmt.Errorf("lỗi tạo payment gộp cho biển số '%s': %w", dto.LicensePlate, err)
	}

	metrics.PaymentsCreated.Inc()
	log.Printf("Đã thanh toán gộp %d phiên của biển số '%s', tổng %.2f", len(sessionIDs), dto.LicensePlate, total)
	return createdPayment, nil
}

func (s *PaymentService) GetByID(ctx context.Context, id int) (*domain.Payment, error) {
	return s.paymentRepo.FindByID(ctx, id)
}

func (s *PaymentService) GetAll(ctx context.Context) ([]domain.Payment, error) {
	return s.paymentRepo.FindAll(ctx)
}

// Delete là kiểu idempotent: không tìm thấy trả về false chứ không lỗi.
// Xóa payment không đảo trạng thái phiên đã thanh toán; payment là dấu vết
// audit, không phải công tắc.
func (s *PaymentService) Delete(ctx context.Context, id int) (bool, error) {
	return s.paymentRepo.Delete(ctx, id)
}

func (s *PaymentService) buildPayment(amount float64, initiator, method, bank string, sessionRef null.String) *domain.Payment {
	now := s.clk.Now()
	reference := uuid.NewString()
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%.2f|%d", reference, initiator, amount, now.Unix())))

	return &domain.Payment{
		TransactionReference: reference,
		Amount:               amount,
		Initiator:            initiator,
		SessionRef:           sessionRef,
		Hash:                 hex.EncodeToString(sum[:]),
		Detail: domain.TransactionDetail{
			Amount: amount,
			Date:   now,
			Method: method,
			Issuer: initiator,
			Bank:   bank,
		},
		CompletedAt: now,
	}
}
