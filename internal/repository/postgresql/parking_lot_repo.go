package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mobypark/internal/domain"
	"mobypark/internal/repository"

	"github.com/lib/pq"
)

type pgParkingLotRepository struct {
	db *sql.DB
}

func NewPgParkingLotRepository(db *sql.DB) repository.ParkingLotRepository {
	return &pgParkingLotRepository{db: db}
}

func (r *pgParkingLotRepository) Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	query := `INSERT INTO parking_lots (name, address, capacity, reserved, tariff, day_tariff)
	           VALUES ($1, $2, $3, 0, $4, $5)
	           RETURNING id, reserved, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, lot.Name, lot.Address, lot.Capacity, lot.Tariff, lot.DayTariff).
		Scan(&lot.ID, &lot.Reserved, &lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "unique_violation" {
				return nil, fmt.Errorf("%w: tên bãi đỗ xe '%s' đã tồn tại", repository.ErrDuplicateEntry, lot.Name)
			}
		}
		return nil, fmt.Errorf("ParkingLotRepository.Create: %w", err)
	}
	lot.CreatedAt = lot.CreatedAt.In(time.UTC)
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return lot, nil
}

func (r *pgParkingLotRepository) FindByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	lot := &domain.ParkingLot{}
	query := `SELECT id, name, address, capacity, reserved, tariff, day_tariff, created_at, updated_at
	           FROM parking_lots WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&lot.ID, &lot.Name, &lot.Address, &lot.Capacity, &lot.Reserved,
		&lot.Tariff, &lot.DayTariff, &lot.CreatedAt, &lot.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingLotRepository.FindByID: %w", err)
	}
	lot.CreatedAt = lot.CreatedAt.In(time.UTC)
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return lot, nil
}

func (r *pgParkingLotRepository) FindAll(ctx context.Context, limit, offset int) ([]domain.ParkingLot, error) {
	query := `SELECT id, name, address, capacity, reserved, tariff, day_tariff, created_at, updated_at
	           FROM parking_lots ORDER BY name, id LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var lots []domain.ParkingLot
	for rows.Next() {
		var lot domain.ParkingLot
		if err := rows.Scan(
			&lot.ID, &lot.Name, &lot.Address, &lot.Capacity, &lot.Reserved,
			&lot.Tariff, &lot.DayTariff, &lot.CreatedAt, &lot.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ParkingLotRepository.FindAll (scanning row): %w", err)
		}
		lot.CreatedAt = lot.CreatedAt.In(time.UTC)
		lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
		lots = append(lots, lot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.FindAll (rows error): %w", err)
	}
	return lots, nil
}

func (r *pgParkingLotRepository) Update(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	// Không cập nhật reserved ở đây: bộ đếm chỉ được thay đổi qua
	// TryReserve/Release để giữ nguyên tính nhất quán của sổ cái.
	query := `UPDATE parking_lots
	           SET name = $1, address = $2, capacity = $3, tariff = $4, day_tariff = $5, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $6
	           RETURNING reserved, updated_at`
	err := r.db.QueryRowContext(ctx, query, lot.Name, lot.Address, lot.Capacity, lot.Tariff, lot.DayTariff, lot.ID).
		Scan(&lot.Reserved, &lot.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "unique_violation" {
				return nil, fmt.Errorf("%w: tên bãi đỗ xe '%s' đã tồn tại", repository.ErrDuplicateEntry, lot.Name)
			}
		}
		return nil, fmt.Errorf("ParkingLotRepository.Update: %w", err)
	}
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return lot, nil
}

func (r *pgParkingLotRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM parking_lots WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.Delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.Delete (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// TryReserve tăng bộ đếm và ghi một dòng sổ cái trong cùng transaction.
// UPDATE có điều kiện reserved < capacity nên hai request tranh chỗ cuối cùng
// không thể cùng thành công.
func (r *pgParkingLotRepository) TryReserve(ctx context.Context, lotID int, holdRef string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.TryReserve (begin tx): %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE parking_lots SET reserved = reserved + 1, updated_at = CURRENT_TIMESTAMP
		  WHERE id = $1 AND reserved < capacity`, lotID)
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.TryReserve: %w", mapConflict(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.TryReserve (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		// Phân biệt bãi không tồn tại với bãi đã đầy.
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM parking_lots WHERE id = $1)`, lotID).Scan(&exists); err != nil {
			return fmt.Errorf("ParkingLotRepository.TryReserve (checking lot): %w", err)
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrLotFull
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO capacity_holds (lot_id, hold_ref) VALUES ($1, $2)`, lotID, holdRef); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("%w: suất giữ chỗ '%s' đã tồn tại", repository.ErrDuplicateEntry, holdRef)
		}
		return fmt.Errorf("ParkingLotRepository.TryReserve (inserting hold): %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ParkingLotRepository.TryReserve (commit): %w", mapConflict(err))
	}
	return nil
}

// Release xóa dòng sổ cái trước rồi mới giảm bộ đếm: giải phóng hai lần sẽ
// không tìm thấy dòng nào và bị từ chối, bộ đếm không bao giờ âm.
func (r *pgParkingLotRepository) Release(ctx context.Context, lotID int, holdRef string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.Release (begin tx): %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM capacity_holds WHERE lot_id = $1 AND hold_ref = $2`, lotID, holdRef)
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.Release: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.Release (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrHoldNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE parking_lots SET reserved = GREATEST(reserved - 1, 0), updated_at = CURRENT_TIMESTAMP
		  WHERE id = $1`, lotID); err != nil {
		return fmt.Errorf("ParkingLotRepository.Release (decrementing): %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ParkingLotRepository.Release (commit): %w", mapConflict(err))
	}
	return nil
}

// TransferHold đổi chủ của một suất giữ chỗ mà không đi qua Release rồi
// TryReserve, nên không có khoảnh khắc nào chỗ trống bị request khác chen vào.
func (r *pgParkingLotRepository) TransferHold(ctx context.Context, lotID int, fromRef, toRef string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE capacity_holds SET hold_ref = $3 WHERE lot_id = $1 AND hold_ref = $2`,
		lotID, fromRef, toRef)
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.TransferHold: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.TransferHold (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrHoldNotFound
	}
	return nil
}

func (r *pgParkingLotRepository) CountHolds(ctx context.Context, lotID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM capacity_holds WHERE lot_id = $1`, lotID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ParkingLotRepository.CountHolds: %w", err)
	}
	return count, nil
}

// mapConflict chuyển lỗi serialization/deadlock của Postgres thành
// ErrCapacityConflict để tầng service thử lại đúng một lần.
func mapConflict(err error) error {
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "40001" || pqErr.Code == "40P01" {
			return repository.ErrCapacityConflict
		}
	}
	return err
}
