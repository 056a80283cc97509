package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mobypark/internal/clock"
	"mobypark/internal/domain"
	"mobypark/internal/repository"
)

func TestSessionService_StartSession(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	t.Run("giữ một chỗ khi bắt đầu phiên", func(t *testing.T) {
		lotRepo := newFakeLotRepo(domain.ParkingLot{ID: 1, Name: "Trung tâm", Capacity: 10, Tariff: 2.0})
		sessionRepo := newFakeSessionRepo()
		parking := NewParkingService(lotRepo, nil)
		svc := NewSessionService(sessionRepo, lotRepo, parking, clock.NewFixed(now))

		session, err := svc.StartSession(context.Background(), domain.StartSessionDTO{
			LotID: 1, LicensePlate: "AB-123-C", Username: "alice",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if session.PaymentStatus != domain.PaymentPending {
			t.Fatalf("expected payment status pending, got %s", session.PaymentStatus)
		}
		if !session.StartedAt.Equal(now) {
			t.Fatalf("expected started_at %v, got %v", now, session.StartedAt)
		}
		if session.Stopped() {
			t.Fatalf("expected running session")
		}
		if got := lotRepo.reservedOf(1); got != 1 {
			t.Fatalf("expected reserved 1, got %d", got)
		}
	})

	t.Run("bãi đầy thì từ chối và không giữ chỗ", func(t *testing.T) {
		lotRepo := newFakeLotRepo(domain.ParkingLot{ID: 1, Name: "Nhỏ", Capacity: 1, Reserved: 1, Tariff: 2.0})
		sessionRepo := newFakeSessionRepo()
		parking := NewParkingService(lotRepo, nil)
		svc := NewSessionService(sessionRepo, lotRepo, parking, clock.NewFixed(now))

		_, err := svc.StartSession(context.Background(), domain.StartSessionDTO{
			LotID: 1, LicensePlate: "AB-123-C", Username: "alice",
		})
		if !errors.Is(err, repository.ErrLotFull) {
			t.Fatalf("expected ErrLotFull, got %v", err)
		}
		if got := lotRepo.reservedOf(1); got != 1 {
			t.Fatalf("expected reserved unchanged at 1, got %d", got)
		}
		if len(sessionRepo.sessions) != 0 {
			t.Fatalf("expected no session created, got %d", len(sessionRepo.sessions))
		}
	})

	t.Run("bãi không tồn tại", func(t *testing.T) {
		lotRepo := newFakeLotRepo()
		parking := NewParkingService(lotRepo, nil)
		svc := NewSessionService(newFakeSessionRepo(), lotRepo, parking, clock.NewFixed(now))

		_, err := svc.StartSession(context.Background(), domain.StartSessionDTO{
			LotID: 99, LicensePlate: "AB-123-C", Username: "alice",
		})
		if !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("một chỗ cuối cùng chỉ cấp cho đúng một phiên", func(t *testing.T) {
		lotRepo := newFakeLotRepo(domain.ParkingLot{ID: 1, Name: "Một chỗ", Capacity: 1, Tariff: 2.0})
		sessionRepo := newFakeSessionRepo()
		parking := NewParkingService(lotRepo, nil)
		svc := NewSessionService(sessionRepo, lotRepo, parking, clock.NewFixed(now))

		const attempts = 20
		var wg sync.WaitGroup
		errs := make([]error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.StartSession(context.Background(), domain.StartSessionDTO{
					LotID: 1, LicensePlate: "AB-123-C", Username: "alice",
				})
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else if !errors.Is(err, repository.ErrLotFull) {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if succeeded != 1 {
			t.Fatalf("expected exactly 1 successful start, got %d", succeeded)
		}
		if got := lotRepo.reservedOf(1); got != 1 {
			t.Fatalf("expected reserved 1, got %d", got)
		}
	})
}

func TestSessionService_StopSession(t *testing.T) {
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	newSvc := func(lot domain.ParkingLot, stopAt time.Time) (*SessionService, *fakeLotRepo, *fakeSessionRepo) {
		lotRepo := newFakeLotRepo(lot)
		sessionRepo := newFakeSessionRepo()
		parking := NewParkingService(lotRepo, nil)
		return NewSessionService(sessionRepo, lotRepo, parking, clock.NewFixed(stopAt)), lotRepo, sessionRepo
	}

	t.Run("chốt thời lượng và phí rồi trả lại chỗ", func(t *testing.T) {
		lot := domain.ParkingLot{ID: 1, Name: "Trung tâm", Capacity: 10, Tariff: 2.0}
		stopAt := start.Add(90 * time.Minute)

		lotRepo := newFakeLotRepo(lot)
		sessionRepo := newFakeSessionRepo()
		parking := NewParkingService(lotRepo, nil)
		startSvc := NewSessionService(sessionRepo, lotRepo, parking, clock.NewFixed(start))

		session, err := startSvc.StartSession(context.Background(), domain.StartSessionDTO{
			LotID: 1, LicensePlate: "AB-123-C", Username: "alice",
		})
		if err != nil {
			t.Fatalf("start: %v", err)
		}

		stopSvc := NewSessionService(sessionRepo, lotRepo, parking, clock.NewFixed(stopAt))
		stopped, err := stopSvc.StopSession(context.Background(), session.ID)
		if err != nil {
			t.Fatalf("stop: %v", err)
		}

		if !stopped.Stopped() {
			t.Fatalf("expected stopped session")
		}
		if stopped.DurationMinutes.Int64 != 90 {
			t.Fatalf("expected 90 minutes, got %d", stopped.DurationMinutes.Int64)
		}
		// 90 phút × 2.0/giờ = 3.00
		if stopped.Cost.Float64 != 3.0 {
			t.Fatalf("expected cost 3.00, got %.2f", stopped.Cost.Float64)
		}
		if stopped.PaymentStatus != domain.PaymentPending {
			t.Fatalf("expected payment status still pending, got %s", stopped.PaymentStatus)
		}
		if got := lotRepo.reservedOf(1); got != 0 {
			t.Fatalf("expected reserved back to 0, got %d", got)
		}
	})

	t.Run("kết thúc hai lần bị từ chối và không trả chỗ lần hai", func(t *testing.T) {
		lot := domain.ParkingLot{ID: 1, Name: "Trung tâm", Capacity: 10, Tariff: 2.0}
		lotRepo := newFakeLotRepo(lot)
		sessionRepo := newFakeSessionRepo()
		parking := NewParkingService(lotRepo, nil)
		svc := NewSessionService(sessionRepo, lotRepo, parking, clock.NewFixed(start.Add(time.Hour)))

		startSvc := NewSessionService(sessionRepo, lotRepo, parking, clock.NewFixed(start))
		session, err := startSvc.StartSession(context.Background(), domain.StartSessionDTO{
			LotID: 1, LicensePlate: "AB-123-C", Username: "alice",
		})
		if err != nil {
			t.Fatalf("start: %v", err)
		}

		if _, err := svc.StopSession(context.Background(), session.ID); err != nil {
			t.Fatalf("first stop: %v", err)
		}
		_, err = svc.StopSession(context.Background(), session.ID)
		if !errors.Is(err, ErrSessionAlreadyStopped) {
			t.Fatalf("expected ErrSessionAlreadyStopped, got %v", err)
		}
		if got := lotRepo.reservedOf(1); got != 0 {
			t.Fatalf("expected reserved 0 after single release, got %d", got)
		}
	})

	t.Run("phiên đã vào trạng thái thanh toán cuối thì bất biến", func(t *testing.T) {
		for _, status := range []domain.PaymentStatus{domain.PaymentPaid, domain.PaymentCompleted} {
			svc, _, sessionRepo := newSvc(domain.ParkingLot{ID: 1, Name: "Trung tâm", Capacity: 10, Tariff: 2.0},
				start.Add(6*time.Hour))
			sessionRepo.sessions[1] = domain.ParkingSession{
				ID: 1, LotID: 1, LicensePlate: "AB-123-C", Username: "alice",
				StartedAt: start, PaymentStatus: status,
			}

			_, err := svc.StopSession(context.Background(), 1)
			if !errors.Is(err, ErrSessionSettled) {
				t.Fatalf("status %s: expected ErrSessionSettled, got %v", status, err)
			}
			got := sessionRepo.sessions[1]
			if got.StoppedAt.Valid || got.DurationMinutes.Valid || got.Cost.Valid {
				t.Fatalf("status %s: expected session untouched, got %+v", status, got)
			}
		}
	})

	t.Run("đồng hồ lùi thì thời lượng bị kẹp về 0", func(t *testing.T) {
		svc, lotRepo, sessionRepo := newSvc(domain.ParkingLot{ID: 1, Name: "Trung tâm", Capacity: 10, Tariff: 2.0},
			start.Add(-30*time.Minute))

		parking := NewParkingService(lotRepo, nil)
		startSvc := NewSessionService(sessionRepo, lotRepo, parking, clock.NewFixed(start))
		session, err := startSvc.StartSession(context.Background(), domain.StartSessionDTO{
			LotID: 1, LicensePlate: "AB-123-C", Username: "alice",
		})
		if err != nil {
			t.Fatalf("start: %v", err)
		}

		stopped, err := svc.StopSession(context.Background(), session.ID)
		if err != nil {
			t.Fatalf("stop: %v", err)
		}
		if stopped.DurationMinutes.Int64 != 0 {
			t.Fatalf("expected 0 minutes, got %d", stopped.DurationMinutes.Int64)
		}
		if stopped.Cost.Float64 != 0 {
			t.Fatalf("expected cost 0, got %.2f", stopped.Cost.Float64)
		}
		if !stopped.StoppedAt.Time.Equal(session.StartedAt) {
			t.Fatalf("expected stopped_at clamped to started_at")
		}
	})

	t.Run("phiên không tồn tại", func(t *testing.T) {
		svc, _, _ := newSvc(domain.ParkingLot{ID: 1, Capacity: 10}, start)
		_, err := svc.StopSession(context.Background(), 42)
		if !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestCalculateFee(t *testing.T) {
	cases := []struct {
		name    string
		lot     domain.ParkingLot
		minutes int64
		want    float64
	}{
		{"không phút không phí", domain.ParkingLot{Tariff: 2.0}, 0, 0},
		{"phút âm coi như 0", domain.ParkingLot{Tariff: 2.0}, -5, 0},
		{"90 phút giá 2/giờ", domain.ParkingLot{Tariff: 2.0}, 90, 3.0},
		{"làm tròn 2 chữ số", domain.ParkingLot{Tariff: 2.5}, 7, 0.29},
		{"trần ngày áp khi vượt", domain.ParkingLot{Tariff: 10.0, DayTariff: 25.0}, 600, 25.0},
		{"dưới trần ngày giữ nguyên", domain.ParkingLot{Tariff: 10.0, DayTariff: 25.0}, 60, 10.0},
		{"hai khối 24h nhân đôi trần", domain.ParkingLot{Tariff: 10.0, DayTariff: 25.0}, 1500, 50.0},
		{"trần 0 không áp dụng", domain.ParkingLot{Tariff: 10.0, DayTariff: 0}, 6000, 1000.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := calculateFee(&tc.lot, tc.minutes)
			if got != tc.want {
				t.Fatalf("expected %.2f, got %.2f", tc.want, got)
			}
		})
	}
}

func TestSessionService_FindSessions(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	lotRepo := newFakeLotRepo(
		domain.ParkingLot{ID: 1, Name: "A", Capacity: 10, Tariff: 2.0},
		domain.ParkingLot{ID: 2, Name: "B", Capacity: 10, Tariff: 2.0},
	)
	sessionRepo := newFakeSessionRepo()
	parking := NewParkingService(lotRepo, nil)
	svc := NewSessionService(sessionRepo, lotRepo, parking, clock.NewFixed(now))

	for _, dto := range []domain.StartSessionDTO{
		{LotID: 1, LicensePlate: "AA-1", Username: "u1"},
		{LotID: 1, LicensePlate: "BB-2", Username: "u2"},
		{LotID: 2, LicensePlate: "AA-1", Username: "u1"},
	} {
		if _, err := svc.StartSession(context.Background(), dto); err != nil {
			t.Fatalf("start %v: %v", dto, err)
		}
	}
	if _, err := svc.StopSession(context.Background(), 1); err != nil {
		t.Fatalf("stop: %v", err)
	}

	lotID := 1
	plate := "AA-1"
	active := true

	byLot, err := svc.FindSessions(context.Background(), domain.SessionFilterDTO{LotID: &lotID})
	if err != nil {
		t.Fatalf("find by lot: %v", err)
	}
	if len(byLot) != 2 {
		t.Fatalf("expected 2 sessions in lot 1, got %d", len(byLot))
	}

	byPlate, err := svc.FindSessions(context.Background(), domain.SessionFilterDTO{LicensePlate: &plate})
	if err != nil {
		t.Fatalf("find by plate: %v", err)
	}
	if len(byPlate) != 2 {
		t.Fatalf("expected 2 sessions of plate AA-1, got %d", len(byPlate))
	}

	activeOnly, err := svc.FindSessions(context.Background(), domain.SessionFilterDTO{Active: &active})
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if len(activeOnly) != 2 {
		t.Fatalf("expected 2 active sessions, got %d", len(activeOnly))
	}
	for _, s := range activeOnly {
		if s.Stopped() {
			t.Fatalf("expected only running sessions, got stopped session %d", s.ID)
		}
	}
}
