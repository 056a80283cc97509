package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"mobypark/internal/domain"
	"mobypark/internal/repository"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []domain.LotOccupancyEvent
}

func (b *recordingBroadcaster) BroadcastOccupancy(event domain.LotOccupancyEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func TestParkingService_GetAllParkingLots(t *testing.T) {
	lots := make([]domain.ParkingLot, 0, 25)
	for i := 1; i <= 25; i++ {
		lots = append(lots, domain.ParkingLot{ID: i, Name: fmt.Sprintf("Lot %02d", i), Capacity: 10})
	}
	svc := NewParkingService(newFakeLotRepo(lots...), nil)

	t.Run("mặc định trang đầu 20 bản ghi", func(t *testing.T) {
		got, err := svc.GetAllParkingLots(context.Background(), domain.ParkingLotPageDTO{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 20 {
			t.Fatalf("expected 20 lots, got %d", len(got))
		}
		if got[0].ID != 1 {
			t.Fatalf("expected first lot 1, got %d", got[0].ID)
		}
	})

	t.Run("trang hai chứa phần còn lại", func(t *testing.T) {
		got, err := svc.GetAllParkingLots(context.Background(), domain.ParkingLotPageDTO{Page: 2})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 5 {
			t.Fatalf("expected 5 lots on page 2, got %d", len(got))
		}
		if got[0].ID != 21 {
			t.Fatalf("expected first lot 21, got %d", got[0].ID)
		}
	})

	t.Run("page_size vượt trần bị kẹp", func(t *testing.T) {
		got, err := svc.GetAllParkingLots(context.Background(), domain.ParkingLotPageDTO{PageSize: 1000})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 25 {
			t.Fatalf("expected all 25 lots within cap, got %d", len(got))
		}
	})
}

func TestParkingService_DeleteParkingLot(t *testing.T) {
	t.Run("bãi còn suất giữ chỗ không xóa được", func(t *testing.T) {
		lotRepo := newFakeLotRepo(domain.ParkingLot{ID: 1, Name: "Trung tâm", Capacity: 5})
		svc := NewParkingService(lotRepo, nil)

		if err := svc.TryReserve(context.Background(), 1, "hold-1"); err != nil {
			t.Fatalf("reserve: %v", err)
		}

		err := svc.DeleteParkingLot(context.Background(), 1)
		if !errors.Is(err, ErrLotInUse) {
			t.Fatalf("expected ErrLotInUse, got %v", err)
		}

		if err := svc.Release(context.Background(), 1, "hold-1"); err != nil {
			t.Fatalf("release: %v", err)
		}
		if err := svc.DeleteParkingLot(context.Background(), 1); err != nil {
			t.Fatalf("delete after release: %v", err)
		}
	})
}

func TestParkingService_ReserveRelease(t *testing.T) {
	t.Run("giải phóng suất không tồn tại bị từ chối", func(t *testing.T) {
		lotRepo := newFakeLotRepo(domain.ParkingLot{ID: 1, Name: "Trung tâm", Capacity: 5})
		svc := NewParkingService(lotRepo, nil)

		err := svc.Release(context.Background(), 1, "ma")
		if !errors.Is(err, repository.ErrHoldNotFound) {
			t.Fatalf("expected ErrHoldNotFound, got %v", err)
		}
		if got := lotRepo.reservedOf(1); got != 0 {
			t.Fatalf("expected reserved 0, got %d", got)
		}
	})

	t.Run("giải phóng hai lần chỉ giảm bộ đếm một lần", func(t *testing.T) {
		lotRepo := newFakeLotRepo(domain.ParkingLot{ID: 1, Name: "Trung tâm", Capacity: 5})
		svc := NewParkingService(lotRepo, nil)

		if err := svc.TryReserve(context.Background(), 1, "hold-1"); err != nil {
			t.Fatalf("reserve: %v", err)
		}
		if err := svc.Release(context.Background(), 1, "hold-1"); err != nil {
			t.Fatalf("first release: %v", err)
		}
		if err := svc.Release(context.Background(), 1, "hold-1"); !errors.Is(err, repository.ErrHoldNotFound) {
			t.Fatalf("expected ErrHoldNotFound on second release, got %v", err)
		}
		if got := lotRepo.reservedOf(1); got != 0 {
			t.Fatalf("expected reserved 0, got %d", got)
		}
	})

	t.Run("mỗi thay đổi bộ đếm phát một bản tin occupancy", func(t *testing.T) {
		lotRepo := newFakeLotRepo(domain.ParkingLot{ID: 1, Name: "Trung tâm", Capacity: 5})
		broadcaster := &recordingBroadcaster{}
		svc := NewParkingService(lotRepo, broadcaster)

		if err := svc.TryReserve(context.Background(), 1, "hold-1"); err != nil {
			t.Fatalf("reserve: %v", err)
		}
		if err := svc.Release(context.Background(), 1, "hold-1"); err != nil {
			t.Fatalf("release: %v", err)
		}

		broadcaster.mu.Lock()
		defer broadcaster.mu.Unlock()
		if len(broadcaster.events) != 2 {
			t.Fatalf("expected 2 occupancy events, got %d", len(broadcaster.events))
		}
		if broadcaster.events[0].Reserved != 1 || broadcaster.events[1].Reserved != 0 {
			t.Fatalf("unexpected reserved sequence: %+v", broadcaster.events)
		}
	})
}
