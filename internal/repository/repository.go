package repository

import (
	"context"
	"errors"

	"mobypark/internal/domain"
)

var ErrNotFound = errors.New("không tìm thấy bản ghi")
var ErrDuplicateEntry = errors.New("bản ghi đã tồn tại")
var ErrLotFull = errors.New("bãi đỗ xe đã hết chỗ")
var ErrHoldNotFound = errors.New("không tìm thấy suất giữ chỗ để giải phóng")
var ErrCapacityConflict = errors.New("xung đột khi cập nhật bộ đếm chỗ giữ")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
}

// ParkingLotRepository vừa là CRUD cho bãi đỗ vừa là sổ cái giữ chỗ.
// TryReserve/Release/TransferHold phải tuyến tính hóa trên từng lot:
// mỗi suất giữ chỗ là một dòng capacity_holds gắn với bộ đếm reserved,
// giải phóng một suất không tồn tại bị từ chối (ErrHoldNotFound) chứ
// không âm thầm bỏ qua, để bất biến 0 <= reserved <= capacity luôn giữ.
type ParkingLotRepository interface {
	Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	FindByID(ctx context.Context, id int) (*domain.ParkingLot, error)
	FindAll(ctx context.Context, limit, offset int) ([]domain.ParkingLot, error)
	Update(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	Delete(ctx context.Context, id int) error

	TryReserve(ctx context.Context, lotID int, holdRef string) error
	Release(ctx context.Context, lotID int, holdRef string) error
	TransferHold(ctx context.Context, lotID int, fromRef, toRef string) error
	CountHolds(ctx context.Context, lotID int) (int, error)
}

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error)
	FindByID(ctx context.Context, id int) (*domain.Vehicle, error)
	FindByUserID(ctx context.Context, userID int) ([]domain.Vehicle, error)
	Delete(ctx context.Context, id int) error
}

type ReservationRepository interface {
	Create(ctx context.Context, r *domain.Reservation) (*domain.Reservation, error)
	FindByID(ctx context.Context, id int) (*domain.Reservation, error)
	FindByUserID(ctx context.Context, userID int) ([]domain.Reservation, error)
	Update(ctx context.Context, r *domain.Reservation) (*domain.Reservation, error)
	Delete(ctx context.Context, id int) error
}

type ParkingSessionRepository interface {
	Create(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error)
	FindByID(ctx context.Context, id int) (*domain.ParkingSession, error)
	Update(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error)
	// Các phiên pending đã kết thúc của một biển số (phiên đang chạy chưa có
	// phí nên không thanh toán được), sắp theo started_at rồi id để ổn định.
	FindPendingByPlate(ctx context.Context, licensePlate string) ([]domain.ParkingSession, error)
	FindPendingByIDAndPlate(ctx context.Context, id int, licensePlate string) (*domain.ParkingSession, error)
	Find(ctx context.Context, filter domain.SessionFilterDTO) ([]domain.ParkingSession, error)
}

type PaymentRepository interface {
	// CreateWithSessions ghi payment và chuyển trạng thái các phiên liên quan
	// trong cùng một transaction: hoặc tất cả cùng được áp dụng, hoặc không gì cả.
	CreateWithSessions(ctx context.Context, p *domain.Payment, sessionIDs []int, status domain.PaymentStatus) (*domain.Payment, error)
	FindByID(ctx context.Context, id int) (*domain.Payment, error)
	FindAll(ctx context.Context) ([]domain.Payment, error)
	FindByInitiator(ctx context.Context, initiator string) ([]domain.Payment, error)
	// Delete trả về false (không lỗi) khi payment không tồn tại.
	Delete(ctx context.Context, id int) (bool, error)
}
