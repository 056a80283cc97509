package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"mobypark/internal/domain"
	"mobypark/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var ErrLotInUse = errors.New("bãi đỗ vẫn còn suất giữ chỗ đang hoạt động")

// OccupancyBroadcaster đẩy thay đổi bộ đếm chỗ giữ ra ngoài (WebSocket).
type OccupancyBroadcaster interface {
	BroadcastOccupancy(event domain.LotOccupancyEvent)
}

// ParkingService: CRUD bãi đỗ và là nơi duy nhất thao tác bộ đếm chỗ giữ.
// Mọi tăng/giảm reserved đều đi qua TryReserve/Release ở đây.
type ParkingService struct {
	lotRepo     repository.ParkingLotRepository
	broadcaster OccupancyBroadcaster // có thể nil
}

func NewParkingService(lotRepo repository.ParkingLotRepository, broadcaster OccupancyBroadcaster) *ParkingService {
	return &ParkingService{lotRepo: lotRepo, broadcaster: broadcaster}
}

func (s *ParkingService) CreateParkingLot(ctx context.Context, dto domain.ParkingLotDTO) (*domain.ParkingLot, error) {
	lot := &domain.ParkingLot{
		Name:      dto.Name,
		Address:   dto.Address,
		Capacity:  dto.Capacity,
		Tariff:    dto.Tariff,
		DayTariff: dto.DayTariff,
	}
	return s.lotRepo.Create(ctx, lot)
}

func (s *ParkingService) GetParkingLotByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	return s.lotRepo.FindByID(ctx, id)
}

func (s *ParkingService) GetAllParkingLots(ctx context.Context, page domain.ParkingLotPageDTO) ([]domain.ParkingLot, error) {
	pageNum := page.Page
	if pageNum < 1 {
		pageNum = 1
	}
	pageSize := page.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return s.lotRepo.FindAll(ctx, pageSize, (pageNum-1)*pageSize)
}

func (s *ParkingService) UpdateParkingLot(ctx context.Context, id int, dto domain.ParkingLotDTO) (*domain.ParkingLot, error) {
	lot, err := s.lotRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	lot.Name = dto.Name
	lot.Address = dto.Address
	lot.Capacity = dto.Capacity
	lot.Tariff = dto.Tariff
	lot.DayTariff = dto.DayTariff
	return s.lotRepo.Update(ctx, lot)
}

func (s *ParkingService) DeleteParkingLot(ctx context.Context, id int) error {
	holds, err := s.lotRepo.CountHolds(ctx, id)
	if err != nil {
		return fmt.Errorf("lỗi khi kiểm tra suất giữ chỗ của bãi %d: %w", id, err)
	}
	if holds > 0 {
		return fmt.Errorf("không thể xóa bãi đỗ %d vì còn %d suất giữ chỗ: %w", id, holds, ErrLotInUse)
	}
	return s.lotRepo.Delete(ctx, id)
}

// TryReserve giữ một chỗ trong bãi dưới khóa holdRef. Khi store báo xung đột
// bộ đếm thì thử lại đúng một lần, vẫn xung đột thì coi như bãi đầy.
func (s *ParkingService) TryReserve(ctx context.Context, lotID int, holdRef string) error {
	err := s.lotRepo.TryReserve(ctx, lotID, holdRef)
	if errors.Is(err, repository.ErrCapacityConflict) {
		log.Printf("Xung đột bộ đếm chỗ giữ cho bãi %d, thử lại một lần", lotID)
		err = s.lotRepo.TryReserve(ctx, lotID, holdRef)
		if errors.Is(err, repository.ErrCapacityConflict) {
			return repository.ErrLotFull
		}
	}
	if err != nil {
		return err
	}
	s.broadcastOccupancy(ctx, lotID)
	return nil
}

// Release trả lại một chỗ. Giải phóng một suất không tồn tại bị từ chối
// ở tầng repository, không được nuốt lỗi ở đây.
func (s *ParkingService) Release(ctx context.Context, lotID int, holdRef string) error {
	if err := s.lotRepo.Release(ctx, lotID, holdRef); err != nil {
		return err
	}
	s.broadcastOccupancy(ctx, lotID)
	return nil
}

// TransferHold đổi chủ suất giữ chỗ khi reservation được xác nhận thành phiên,
// không mở ra khoảnh khắc nào chỗ bị trống.
func (s *ParkingService) TransferHold(ctx context.Context, lotID int, fromRef, toRef string) error {
	return s.lotRepo.TransferHold(ctx, lotID, fromRef, toRef)
}

func (s *ParkingService) broadcastOccupancy(ctx context.Context, lotID int) {
	if s.broadcaster == nil {
		return
	}
	lot, err := s.lotRepo.FindByID(ctx, lotID)
	if err != nil {
		log.Printf("Không đọc được occupancy của bãi %d để broadcast: %v", lotID, err)
		return
	}
	s.broadcaster.BroadcastOccupancy(domain.LotOccupancyEvent{
		Type:     "lot_occupancy",
		LotID:    lot.ID,
		Reserved: lot.Reserved,
		Capacity: lot.Capacity,
	})
}
