package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"mobypark/internal/domain"
	"mobypark/internal/repository"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"
)

var ErrInvalidReservationStatus = errors.New("trạng thái reservation không hợp lệ")

// ReservationService: đặt chỗ trước. Tạo reservation là giữ một chỗ trong bãi;
// xóa là trả lại chỗ; chuyển sang trạng thái confirmed thì sinh một phiên đỗ xe
// và suất giữ được chuyển cho phiên đó.
type ReservationService struct {
	reservationRepo repository.ReservationRepository
	vehicleRepo     repository.VehicleRepository
	lotRepo         repository.ParkingLotRepository
	parking         *ParkingService
	sessions        *SessionService
}

func NewReservationService(reservationRepo repository.ReservationRepository, vehicleRepo repository.VehicleRepository,
	lotRepo repository.ParkingLotRepository, parking *ParkingService, sessions *SessionService) *ReservationService {
	return &ReservationService{
		reservationRepo: reservationRepo,
		vehicleRepo:     vehicleRepo,
		lotRepo:         lotRepo,
		parking:         parking,
		sessions:        sessions,
	}
}

func parseReservationStatus(s string) (domain.ReservationStatus, error) {
	switch domain.ReservationStatus(s) {
	case domain.ReservationActive, domain.ReservationConfirmed, domain.ReservationCancelled:
		return domain.ReservationStatus(s), nil
	}
	return "", fmt.Errorf("%w: '%s'", ErrInvalidReservationStatus, s)
}

func (s *ReservationService) Create(ctx context.Context, dto domain.CreateReservationDTO) (*domain.Reservation, error) {
	if _, err := s.lotRepo.FindByID(ctx, dto.LotID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: bãi đỗ xe %d không tồn tại", repository.ErrNotFound, dto.LotID)
		}
		return nil, fmt.Errorf("lỗi khi kiểm tra bãi đỗ xe: %w", err)
	}
	if _, err := s.vehicleRepo.FindByID(ctx, dto.VehicleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: phương tiện %d không tồn tại", repository.ErrNotFound, dto.VehicleID)
		}
		return nil, fmt.Errorf("lỗi khi kiểm tra phương tiện: %w", err)
	}

	status := domain.ReservationActive
	if dto.Status != "" {
		parsed, err := parseReservationStatus(dto.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}

	holdRef := uuid.NewString()
	if err := s.parking.TryReserve(ctx, dto.LotID, holdRef); err != nil {
		return nil, err
	}

	reservation := &domain.Reservation{
		UserID:    dto.UserID,
		LotID:     dto.LotID,
		VehicleID: dto.VehicleID,
		StartTime: dto.StartTime,
		EndTime:   dto.EndTime,
		Status:    status,
		Cost:      0,
		HoldRef:   null.StringFrom(holdRef),
	}

	createdReservation, err := s.reservationRepo.Create(ctx, reservation)
	if err != nil {
		// Tạo thất bại: suất giữ chỗ được trả lại đúng một lần tại đây.
		if relErr := s.parking.Release(ctx, dto.LotID, holdRef); relErr != nil {
			log.Printf("Lỗi trả lại chỗ giữ '%s' sau khi tạo reservation thất bại: %v", holdRef, relErr)
		}
		return nil, fmt.Errorf("lỗi tạo reservation: %w", err)
	}

	log.Printf("Đã tạo reservation ID %d giữ một chỗ tại bãi %d", createdReservation.ID, dto.LotID)
	return createdReservation, nil
}

func (s *ReservationService) GetByID(ctx context.Context, id int) (*domain.Reservation, error) {
	return s.reservationRepo.FindByID(ctx, id)
}

func (s *ReservationService) GetByUserID(ctx context.Context, userID int) ([]domain.Reservation, error) {
	return s.reservationRepo.FindByUserID(ctx, userID)
}

// Update áp các thay đổi của dto. Đổi khung giờ/bãi/xe không kiểm tra lại
// capacity. Chuyển sang confirmed (từ trạng thái khác) sinh đúng một phiên
// đỗ xe với biển số của phương tiện và khung giờ của reservation. Chuyển
// sang cancelled trả lại chỗ đã giữ đúng một lần.
func (s *ReservationService) Update(ctx context.Context, id int, dto domain.UpdateReservationDTO) (*domain.Reservation, error) {
	reservation, err := s.reservationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.LotID != nil {
		reservation.LotID = *dto.LotID
	}
	if dto.VehicleID != nil {
		reservation.VehicleID = *dto.VehicleID
	}
	if dto.StartTime != nil {
		reservation.StartTime = *dto.StartTime
	}
	if dto.EndTime != nil {
		reservation.EndTime = *dto.EndTime
	}

	if dto.Status != nil {
		newStatus, err := parseReservationStatus(*dto.Status)
		if err != nil {
			return nil, err
		}
		if newStatus == domain.ReservationConfirmed && reservation.Status != domain.ReservationConfirmed {
			vehicle, err := s.vehicleRepo.FindByID(ctx, reservation.VehicleID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, fmt.Errorf("%w: phương tiện %d của reservation không tồn tại", repository.ErrNotFound, reservation.VehicleID)
				}
				return nil, fmt.Errorf("lỗi khi tra cứu phương tiện: %w", err)
			}

			holdRef := ""
			if reservation.HoldRef.Valid {
				holdRef = reservation.HoldRef.String
			}
			session, err := s.sessions.CreateFromReservation(ctx, domain.ReservationSessionDTO{
				LotID:         reservation.LotID,
				LicensePlate:  vehicle.LicensePlate,
				Username:      strconv.Itoa(reservation.ID), // chuỗi đối chiếu về reservation gốc
				ReservationID: reservation.ID,
				HoldRef:       holdRef,
				StartTime:     reservation.StartTime,
				EndTime:       reservation.EndTime,
			})
			if err != nil {
				return nil, err
			}
			if session.Cost.Valid {
				reservation.Cost = session.Cost.Float64
			}
			reservation.HoldRef = null.String{} // suất giữ đã được phiên tiêu thụ
			log.Printf("Reservation %d được xác nhận, đã sinh phiên %d", reservation.ID, session.ID)
		}
		if newStatus == domain.ReservationCancelled && reservation.HoldRef.Valid {
			if err := s.releaseHold(ctx, reservation); err != nil {
				return nil, fmt.Errorf("lỗi trả lại chỗ giữ khi hủy reservation %d: %w", id, err)
			}
			log.Printf("Reservation %d bị hủy, đã trả lại chỗ giữ tại bãi %d", reservation.ID, reservation.LotID)
		}
		reservation.Status = newStatus
	}

	return s.reservationRepo.Update(ctx, reservation)
}

// Delete trả lại chỗ đã giữ (nếu còn) rồi xóa reservation. Reservation đã
// confirmed không còn suất giữ nên xóa sẽ không giảm bộ đếm lần nữa.
func (s *ReservationService) Delete(ctx context.Context, id int) error {
	reservation, err := s.reservationRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.releaseHold(ctx, reservation); err != nil {
		return fmt.Errorf("lỗi trả lại chỗ giữ của reservation %d: %w", id, err)
	}

	return s.reservationRepo.Delete(ctx, id)
}

// releaseHold trả lại suất giữ của reservation và xóa tham chiếu. Suất giữ
// không còn trong sổ (đã bị một lần xác nhận dở dang tiêu thụ) thì coi như
// đã giải phóng, không để reservation kẹt lại.
func (s *ReservationService) releaseHold(ctx context.Context, reservation *domain.Reservation) error {
	if !reservation.HoldRef.Valid {
		return nil
	}
	if err := s.parking.Release(ctx, reservation.LotID, reservation.HoldRef.String); err != nil {
		if !errors.Is(err, repository.ErrHoldNotFound) {
			return err
		}
		log.Printf("Chỗ giữ '%s' của reservation %d không còn trong sổ, bỏ qua", reservation.HoldRef.String, reservation.ID)
	}
	reservation.HoldRef = null.String{}
	return nil
}
