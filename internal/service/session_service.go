package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"mobypark/internal/clock"
	"mobypark/internal/domain"
	"mobypark/internal/metrics"
	"mobypark/internal/repository"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"
)

var ErrSessionAlreadyStopped = errors.New("phiên đỗ xe đã kết thúc, không thể kết thúc lần nữa")
var ErrSessionSettled = errors.New("phiên đã ở trạng thái thanh toán cuối, không thể thay đổi")

// SessionService quản lý vòng đời phiên đỗ xe: bắt đầu, kết thúc, và tạo phiên
// từ reservation đã xác nhận. Chi phí và thời lượng được chốt đúng một lần khi
// kết thúc và không bao giờ tính lại.
type SessionService struct {
	sessionRepo repository.ParkingSessionRepository
	lotRepo     repository.ParkingLotRepository
	parking     *ParkingService
	clk         clock.Clock
}

func NewSessionService(sessionRepo repository.ParkingSessionRepository, lotRepo repository.ParkingLotRepository,
	parking *ParkingService, clk clock.Clock) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		lotRepo:     lotRepo,
		parking:     parking,
		clk:         clk,
	}
}

func (s *SessionService) StartSession(ctx context.Context, dto domain.StartSessionDTO) (*domain.ParkingSession, error) {
	lot, err := s.lotRepo.FindByID(ctx, dto.LotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: bãi đỗ xe %d không tồn tại", repository.ErrNotFound, dto.LotID)
		}
		return nil, fmt.Errorf("lỗi khi kiểm tra bãi đỗ xe: %w", err)
	}

	holdRef := uuid.NewString()
	if err := s.parking.TryReserve(ctx, lot.ID, holdRef); err != nil {
		// Bãi đầy hoặc không tồn tại: không có hiệu ứng phụ nào được giữ lại.
		return nil, err
	}

	session := &domain.ParkingSession{
		LotID:         lot.ID,
		LicensePlate:  dto.LicensePlate,
		Username:      dto.Username,
		HoldRef:       null.StringFrom(holdRef),
		StartedAt:     s.clk.Now(),
		PaymentStatus: domain.PaymentPending,
	}

	createdSession, err := s.sessionRepo.Create(ctx, session)
	if err != nil {
		// Tạo phiên thất bại: trả lại chỗ vừa giữ, đúng một lần.
		if relErr := s.parking.Release(ctx, lot.ID, holdRef); relErr != nil {
			log.Printf("Lỗi trả lại chỗ giữ '%s' sau khi tạo phiên thất bại: %v", holdRef, relErr)
		}
		return nil, fmt.Errorf("lỗi tạo phiên đỗ xe: %w", err)
	}

	metrics.SessionsStarted.Inc()
	log.Printf("Đã bắt đầu phiên đỗ xe ID %d cho xe '%s' tại bãi %d", createdSession.ID, dto.LicensePlate, lot.ID)
	return createdSession, nil
}

func (s *SessionService) StopSession(ctx context.Context, sessionID int) (*domain.ParkingSession, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.PaymentStatus != domain.PaymentPending {
		// Phiên đã vào trạng thái thanh toán cuối thì bất biến, kể cả phí.
		return nil, fmt.Errorf("%w: phiên %d đang ở trạng thái '%s'", ErrSessionSettled, sessionID, session.PaymentStatus)
	}
	if session.Stopped() {
		return nil, ErrSessionAlreadyStopped
	}

	lot, err := s.lotRepo.FindByID(ctx, session.LotID)
	if err != nil {
		return nil, fmt.Errorf("lỗi khi đọc bãi đỗ của phiên %d: %w", sessionID, err)
	}

	stoppedAt := s.clk.Now()
	if stoppedAt.Before(session.StartedAt) {
		log.Printf("Thời gian kết thúc (%v) sớm hơn thời gian bắt đầu (%v) của phiên %d. Dùng thời gian bắt đầu.",
			stoppedAt, session.StartedAt, session.ID)
		stoppedAt = session.StartedAt
	}

	durationMinutes := int64(stoppedAt.Sub(session.StartedAt).Minutes())
	cost := calculateFee(lot, durationMinutes)

	session.StoppedAt = null.TimeFrom(stoppedAt)
	session.DurationMinutes = null.IntFrom(durationMinutes)
	session.Cost = null.FloatFrom(cost)
	holdRef := session.HoldRef
	session.HoldRef = null.String{}

	updatedSession, err := s.sessionRepo.Update(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("lỗi cập nhật phiên đỗ xe: %w", err)
	}

	if holdRef.Valid {
		if err := s.parking.Release(ctx, session.LotID, holdRef.String); err != nil {
			log.Printf("Lỗi trả lại chỗ giữ '%s' khi kết thúc phiên %d: %v", holdRef.String, session.ID, err)
		}
	}

	metrics.SessionsStopped.Inc()
	log.Printf("Đã kết thúc phiên đỗ xe ID %d. Thời gian đỗ: %d phút. Phí: %.2f",
		updatedSession.ID, durationMinutes, cost)
	return updatedSession, nil
}

// CreateFromReservation tạo phiên cho một reservation vừa được xác nhận.
// Phiên sinh ra đã ở trạng thái kết thúc với khung giờ của reservation, nên
// không giữ thêm chỗ mới; suất giữ của reservation được chuyển sang phiên rồi
// giải phóng đúng một lần tại đây.
func (s *SessionService) CreateFromReservation(ctx context.Context, dto domain.ReservationSessionDTO) (*domain.ParkingSession, error) {
	lot, err := s.lotRepo.FindByID(ctx, dto.LotID)
	if err != nil {
		return nil, fmt.Errorf("lỗi khi đọc bãi đỗ %d: %w", dto.LotID, err)
	}

	endTime := dto.EndTime
	if endTime.Before(dto.StartTime) {
		log.Printf("Khung giờ reservation %d bị đảo (end trước start). Dùng start làm end.", dto.ReservationID)
		endTime = dto.StartTime
	}

	durationMinutes := int64(endTime.Sub(dto.StartTime).Minutes())
	cost := calculateFee(lot, durationMinutes)

	session := &domain.ParkingSession{
		LotID:           lot.ID,
		LicensePlate:    dto.LicensePlate,
		Username:        dto.Username,
		ReservationID:   null.IntFrom(int64(dto.ReservationID)),
		StartedAt:       dto.StartTime,
		StoppedAt:       null.TimeFrom(endTime),
		DurationMinutes: null.IntFrom(durationMinutes),
		Cost:            null.FloatFrom(cost),
		PaymentStatus:   domain.PaymentPending,
	}

	if dto.HoldRef != "" {
		sessionRef := uuid.NewString()
		if err := s.parking.TransferHold(ctx, lot.ID, dto.HoldRef, sessionRef); err != nil {
			return nil, fmt.Errorf("lỗi chuyển suất giữ chỗ của reservation %d: %w", dto.ReservationID, err)
		}
		session.HoldRef = null.StringFrom(sessionRef)
	}

	createdSession, err := s.sessionRepo.Create(ctx, session)
	if err != nil {
		if session.HoldRef.Valid {
			if relErr := s.parking.Release(ctx, lot.ID, session.HoldRef.String); relErr != nil {
				log.Printf("Lỗi trả lại chỗ giữ '%s' sau khi tạo phiên từ reservation thất bại: %v", session.HoldRef.String, relErr)
			}
		}
		return nil, fmt.Errorf("lỗi tạo phiên từ reservation: %w", err)
	}

	// Phiên đã kết thúc ngay khi sinh ra: suất giữ được tiêu thụ luôn.
	if createdSession.HoldRef.Valid {
		holdRef := createdSession.HoldRef.String
		createdSession.HoldRef = null.String{}
		if _, err := s.sessionRepo.Update(ctx, createdSession); err != nil {
			return nil, fmt.Errorf("lỗi chốt phiên từ reservation: %w", err)
		}
		if err := s.parking.Release(ctx, lot.ID, holdRef); err != nil {
			log.Printf("Lỗi trả lại chỗ giữ '%s' của phiên từ reservation %d: %v", holdRef, dto.ReservationID, err)
		}
	}

	metrics.SessionsStarted.Inc()
	metrics.SessionsStopped.Inc()
	log.Printf("Đã tạo phiên ID %d từ reservation %d (%d phút, phí %.2f)",
		createdSession.ID, dto.ReservationID, durationMinutes, cost)
	return createdSession, nil
}

func (s *SessionService) GetSessionByID(ctx context.Context, sessionID int) (*domain.ParkingSession, error) {
	return s.sessionRepo.FindByID(ctx, sessionID)
}

func (s *SessionService) FindSessions(ctx context.Context, filter domain.SessionFilterDTO) ([]domain.ParkingSession, error) {
	return s.sessionRepo.Find(ctx, filter)
}

// calculateFee: phí = số phút × (đơn giá giờ / 60), làm tròn 2 chữ số.
// DayTariff > 0 là mức trần cho mỗi khối 24 giờ đã bắt đầu.
func calculateFee(lot *domain.ParkingLot, durationMinutes int64) float64 {
	if durationMinutes <= 0 {
		return 0
	}
	fee := float64(durationMinutes) * lot.Tariff / 60.0
	if lot.DayTariff > 0 {
		days := (durationMinutes + 1439) / 1440
		cap := float64(days) * lot.DayTariff
		if fee > cap {
			fee = cap
		}
	}
	return math.Round(fee*100) / 100
}
