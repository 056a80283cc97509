package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mobypark/internal/domain"
	"mobypark/internal/repository"
)

type pgReservationRepository struct {
	db *sql.DB
}

func NewPgReservationRepository(db *sql.DB) repository.ReservationRepository {
	return &pgReservationRepository{db: db}
}

const reservationColumns = `id, user_id, lot_id, vehicle_id, start_time, end_time, status, cost, hold_ref, created_at, updated_at`

func scanReservation(row interface{ Scan(...interface{}) error }, r *domain.Reservation) error {
	return row.Scan(
		&r.ID, &r.UserID, &r.LotID, &r.VehicleID, &r.StartTime, &r.EndTime,
		&r.Status, &r.Cost, &r.HoldRef, &r.CreatedAt, &r.UpdatedAt,
	)
}

func normalizeReservationTimes(r *domain.Reservation) {
	r.StartTime = r.StartTime.In(time.UTC)
	r.EndTime = r.EndTime.In(time.UTC)
	r.CreatedAt = r.CreatedAt.In(time.UTC)
	r.UpdatedAt = r.UpdatedAt.In(time.UTC)
}

func (repo *pgReservationRepository) Create(ctx context.Context, r *domain.Reservation) (*domain.Reservation, error) {
	query := `INSERT INTO reservations
	           (user_id, lot_id, vehicle_id, start_time, end_time, status, cost, hold_ref, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, created_at, updated_at`

	var holdRefVal sql.NullString
	if r.HoldRef.Valid {
		holdRefVal = sql.NullString{String: r.HoldRef.String, Valid: true}
	}

	err := repo.db.QueryRowContext(ctx, query,
		r.UserID, r.LotID, r.VehicleID, r.StartTime, r.EndTime, r.Status, r.Cost, holdRefVal,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.Create: %w", err)
	}
	normalizeReservationTimes(r)
	return r, nil
}

func (repo *pgReservationRepository) FindByID(ctx context.Context, id int) (*domain.Reservation, error) {
	r := &domain.Reservation{}
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	err := scanReservation(repo.db.QueryRowContext(ctx, query, id), r)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ReservationRepository.FindByID: %w", err)
	}
	normalizeReservationTimes(r)
	return r, nil
}

func (repo *pgReservationRepository) FindByUserID(ctx context.Context, userID int) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = $1 ORDER BY start_time DESC, id DESC`
	rows, err := repo.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.FindByUserID: %w", err)
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		var r domain.Reservation
		if err := scanReservation(rows, &r); err != nil {
			return nil, fmt.Errorf("ReservationRepository.FindByUserID (scanning row): %w", err)
		}
		normalizeReservationTimes(&r)
		reservations = append(reservations, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ReservationRepository.FindByUserID (rows error): %w", err)
	}
	return reservations, nil
}

func (repo *pgReservationRepository) Update(ctx context.Context, r *domain.Reservation) (*domain.Reservation, error) {
	query := `UPDATE reservations
	           SET lot_id = $1, vehicle_id = $2, start_time = $3, end_time = $4, status = $5, cost = $6,
	               hold_ref = $7, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $8
	           RETURNING updated_at`

	var holdRefVal sql.NullString
	if r.HoldRef.Valid {
		holdRefVal = sql.NullString{String: r.HoldRef.String, Valid: true}
	}

	err := repo.db.QueryRowContext(ctx, query,
		r.LotID, r.VehicleID, r.StartTime, r.EndTime, r.Status, r.Cost, holdRefVal, r.ID,
	).Scan(&r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ReservationRepository.Update: %w", err)
	}
	r.UpdatedAt = r.UpdatedAt.In(time.UTC)
	return r, nil
}

func (repo *pgReservationRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM reservations WHERE id = $1`
	result, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("ReservationRepository.Delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ReservationRepository.Delete (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
