package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mobypark/internal/domain"
	"mobypark/internal/repository"
)

// fakeLotRepo mô phỏng sổ cái giữ chỗ trong bộ nhớ với cùng ràng buộc như
// bản postgresql: mỗi suất là một hold_ref duy nhất, giải phóng suất không
// tồn tại bị từ chối.
type fakeLotRepo struct {
	mu     sync.Mutex
	lots   map[int]domain.ParkingLot
	holds  map[string]int // hold_ref -> lot_id
	nextID int
}

func newFakeLotRepo(lots ...domain.ParkingLot) *fakeLotRepo {
	f := &fakeLotRepo{
		lots:   make(map[int]domain.ParkingLot),
		holds:  make(map[string]int),
		nextID: 1,
	}
	for _, lot := range lots {
		if lot.ID >= f.nextID {
			f.nextID = lot.ID + 1
		}
		f.lots[lot.ID] = lot
	}
	return f
}

func (f *fakeLotRepo) Create(_ context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lot.ID = f.nextID
	f.nextID++
	f.lots[lot.ID] = *lot
	stored := f.lots[lot.ID]
	return &stored, nil
}

func (f *fakeLotRepo) FindByID(_ context.Context, id int) (*domain.ParkingLot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lot, ok := f.lots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &lot, nil
}

func (f *fakeLotRepo) FindAll(_ context.Context, limit, offset int) ([]domain.ParkingLot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int, 0, len(f.lots))
	for id := range f.lots {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	result := make([]domain.ParkingLot, 0)
	for i, id := range ids {
		if i < offset {
			continue
		}
		if len(result) >= limit {
			break
		}
		result = append(result, f.lots[id])
	}
	return result, nil
}

func (f *fakeLotRepo) Update(_ context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.lots[lot.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	f.lots[lot.ID] = *lot
	stored := f.lots[lot.ID]
	return &stored, nil
}

func (f *fakeLotRepo) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.lots[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.lots, id)
	return nil
}

func (f *fakeLotRepo) TryReserve(_ context.Context, lotID int, holdRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lot, ok := f.lots[lotID]
	if !ok {
		return repository.ErrNotFound
	}
	if _, dup := f.holds[holdRef]; dup {
		return repository.ErrDuplicateEntry
	}
	if lot.Reserved >= lot.Capacity {
		return repository.ErrLotFull
	}
	lot.Reserved++
	f.lots[lotID] = lot
	f.holds[holdRef] = lotID
	return nil
}

func (f *fakeLotRepo) Release(_ context.Context, lotID int, holdRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	heldLot, ok := f.holds[holdRef]
	if !ok || heldLot != lotID {
		return repository.ErrHoldNotFound
	}
	delete(f.holds, holdRef)
	lot := f.lots[lotID]
	if lot.Reserved > 0 {
		lot.Reserved--
	}
	f.lots[lotID] = lot
	return nil
}

func (f *fakeLotRepo) TransferHold(_ context.Context, lotID int, fromRef, toRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	heldLot, ok := f.holds[fromRef]
	if !ok || heldLot != lotID {
		return repository.ErrHoldNotFound
	}
	if _, dup := f.holds[toRef]; dup {
		return repository.ErrDuplicateEntry
	}
	delete(f.holds, fromRef)
	f.holds[toRef] = lotID
	return nil
}

func (f *fakeLotRepo) CountHolds(_ context.Context, lotID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, heldLot := range f.holds {
		if heldLot == lotID {
			count++
		}
	}
	return count, nil
}

func (f *fakeLotRepo) reservedOf(lotID int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lots[lotID].Reserved
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[int]domain.ParkingSession
	nextID   int
}

func newFakeSessionRepo(sessions ...domain.ParkingSession) *fakeSessionRepo {
	f := &fakeSessionRepo{
		sessions: make(map[int]domain.ParkingSession),
		nextID:   1,
	}
	for _, s := range sessions {
		if s.ID >= f.nextID {
			f.nextID = s.ID + 1
		}
		f.sessions[s.ID] = s
	}
	return f
}

func (f *fakeSessionRepo) Create(_ context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session.ID = f.nextID
	f.nextID++
	f.sessions[session.ID] = *session
	stored := f.sessions[session.ID]
	return &stored, nil
}

func (f *fakeSessionRepo) FindByID(_ context.Context, id int) (*domain.ParkingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &session, nil
}

func (f *fakeSessionRepo) Update(_ context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[session.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	f.sessions[session.ID] = *session
	stored := f.sessions[session.ID]
	return &stored, nil
}

func (f *fakeSessionRepo) FindPendingByPlate(_ context.Context, licensePlate string) ([]domain.ParkingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]domain.ParkingSession, 0)
	for _, s := range f.sessions {
		if s.LicensePlate == licensePlate && s.PaymentStatus == domain.PaymentPending && s.Stopped() {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].StartedAt.Before(result[j].StartedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (f *fakeSessionRepo) FindPendingByIDAndPlate(_ context.Context, id int, licensePlate string) (*domain.ParkingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok || session.LicensePlate != licensePlate || session.PaymentStatus != domain.PaymentPending || !session.Stopped() {
		return nil, repository.ErrNotFound
	}
	return &session, nil
}

func (f *fakeSessionRepo) Find(_ context.Context, filter domain.SessionFilterDTO) ([]domain.ParkingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]domain.ParkingSession, 0)
	for _, s := range f.sessions {
		if filter.LotID != nil && s.LotID != *filter.LotID {
			continue
		}
		if filter.LicensePlate != nil && s.LicensePlate != *filter.LicensePlate {
			continue
		}
		if filter.PaymentStatus != nil && string(s.PaymentStatus) != *filter.PaymentStatus {
			continue
		}
		if filter.Active != nil && s.Stopped() == *filter.Active {
			continue
		}
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeSessionRepo) statusOf(id int) domain.PaymentStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id].PaymentStatus
}

type fakeReservationRepo struct {
	mu           sync.Mutex
	reservations map[int]domain.Reservation
	nextID       int
}

func newFakeReservationRepo(reservations ...domain.Reservation) *fakeReservationRepo {
	f := &fakeReservationRepo{
		reservations: make(map[int]domain.Reservation),
		nextID:       1,
	}
	for _, r := range reservations {
		if r.ID >= f.nextID {
			f.nextID = r.ID + 1
		}
		f.reservations[r.ID] = r
	}
	return f
}

func (f *fakeReservationRepo) Create(_ context.Context, r *domain.Reservation) (*domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = f.nextID
	f.nextID++
	f.reservations[r.ID] = *r
	stored := f.reservations[r.ID]
	return &stored, nil
}

func (f *fakeReservationRepo) FindByID(_ context.Context, id int) (*domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (f *fakeReservationRepo) FindByUserID(_ context.Context, userID int) ([]domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]domain.Reservation, 0)
	for _, r := range f.reservations {
		if r.UserID == userID {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeReservationRepo) Update(_ context.Context, r *domain.Reservation) (*domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reservations[r.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	f.reservations[r.ID] = *r
	stored := f.reservations[r.ID]
	return &stored, nil
}

func (f *fakeReservationRepo) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reservations[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.reservations, id)
	return nil
}

type fakeVehicleRepo struct {
	mu       sync.Mutex
	vehicles map[int]domain.Vehicle
	nextID   int
}

func newFakeVehicleRepo(vehicles ...domain.Vehicle) *fakeVehicleRepo {
	f := &fakeVehicleRepo{
		vehicles: make(map[int]domain.Vehicle),
		nextID:   1,
	}
	for _, v := range vehicles {
		if v.ID >= f.nextID {
			f.nextID = v.ID + 1
		}
		f.vehicles[v.ID] = v
	}
	return f
}

func (f *fakeVehicleRepo) Create(_ context.Context, v *domain.Vehicle) (*domain.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v.ID = f.nextID
	f.nextID++
	f.vehicles[v.ID] = *v
	stored := f.vehicles[v.ID]
	return &stored, nil
}

func (f *fakeVehicleRepo) FindByID(_ context.Context, id int) (*domain.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (f *fakeVehicleRepo) FindByUserID(_ context.Context, userID int) ([]domain.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]domain.Vehicle, 0)
	for _, v := range f.vehicles {
		if v.UserID == userID {
			result = append(result, v)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeVehicleRepo) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.vehicles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.vehicles, id)
	return nil
}

// fakePaymentRepo áp dụng cùng hợp đồng all-or-nothing như bản postgresql:
// chỉ khi mọi phiên đều đang pending thì payment mới được ghi và trạng thái
// được chuyển.
type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[int]domain.Payment
	sessions *fakeSessionRepo
	nextID   int
}

func newFakePaymentRepo(sessions *fakeSessionRepo, payments ...domain.Payment) *fakePaymentRepo {
	f := &fakePaymentRepo{
		payments: make(map[int]domain.Payment),
		sessions: sessions,
		nextID:   1,
	}
	for _, p := range payments {
		if p.ID >= f.nextID {
			f.nextID = p.ID + 1
		}
		f.payments[p.ID] = p
	}
	return f
}

func (f *fakePaymentRepo) CreateWithSessions(_ context.Context, p *domain.Payment, sessionIDs []int, status domain.PaymentStatus) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions.mu.Lock()
	defer f.sessions.mu.Unlock()

	for _, id := range sessionIDs {
		s, ok := f.sessions.sessions[id]
		if !ok || s.PaymentStatus != domain.PaymentPending {
			return nil, fmt.Errorf("phiên %d không còn ở trạng thái pending", id)
		}
	}
	for _, id := range sessionIDs {
		s := f.sessions.sessions[id]
		s.PaymentStatus = status
		f.sessions.sessions[id] = s
	}

	p.ID = f.nextID
	f.nextID++
	f.payments[p.ID] = *p
	stored := f.payments[p.ID]
	return &stored, nil
}

func (f *fakePaymentRepo) FindByID(_ context.Context, id int) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (f *fakePaymentRepo) FindAll(_ context.Context) ([]domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]domain.Payment, 0, len(f.payments))
	for _, p := range f.payments {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Initiator != result[j].Initiator {
			return result[i].Initiator < result[j].Initiator
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (f *fakePaymentRepo) FindByInitiator(_ context.Context, initiator string) ([]domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]domain.Payment, 0)
	for _, p := range f.payments {
		if p.Initiator == initiator {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakePaymentRepo) Delete(_ context.Context, id int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.payments[id]; !ok {
		return false, nil
	}
	delete(f.payments, id)
	return true, nil
}
