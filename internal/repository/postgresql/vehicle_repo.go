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

type pgVehicleRepository struct {
	db *sql.DB
}

func NewPgVehicleRepository(db *sql.DB) repository.VehicleRepository {
	return &pgVehicleRepository{db: db}
}

func (r *pgVehicleRepository) Create(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error) {
	query := `INSERT INTO vehicles (user_id, license_plate, model) VALUES ($1, $2, $3)
	           RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, vehicle.UserID, vehicle.LicensePlate, vehicle.Model).
		Scan(&vehicle.ID, &vehicle.CreatedAt, &vehicle.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: biển số '%s' đã được đăng ký", repository.ErrDuplicateEntry, vehicle.LicensePlate)
		}
		return nil, fmt.Errorf("VehicleRepository.Create: %w", err)
	}
	vehicle.CreatedAt = vehicle.CreatedAt.In(time.UTC)
	vehicle.UpdatedAt = vehicle.UpdatedAt.In(time.UTC)
	return vehicle, nil
}

func (r *pgVehicleRepository) FindByID(ctx context.Context, id int) (*domain.Vehicle, error) {
	vehicle := &domain.Vehicle{}
	query := `SELECT id, user_id, license_plate, model, created_at, updated_at FROM vehicles WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&vehicle.ID, &vehicle.UserID, &vehicle.LicensePlate, &vehicle.Model,
		&vehicle.CreatedAt, &vehicle.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("VehicleRepository.FindByID: %w", err)
	}
	vehicle.CreatedAt = vehicle.CreatedAt.In(time.UTC)
	vehicle.UpdatedAt = vehicle.UpdatedAt.In(time.UTC)
	return vehicle, nil
}

func (r *pgVehicleRepository) FindByUserID(ctx context.Context, userID int) ([]domain.Vehicle, error) {
	query := `SELECT id, user_id, license_plate, model, created_at, updated_at
	           FROM vehicles WHERE user_id = $1 ORDER BY license_plate`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("VehicleRepository.FindByUserID: %w", err)
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		var vehicle domain.Vehicle
		if err := rows.Scan(
			&vehicle.ID, &vehicle.UserID, &vehicle.LicensePlate, &vehicle.Model,
			&vehicle.CreatedAt, &vehicle.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("VehicleRepository.FindByUserID (scanning row): %w", err)
		}
		vehicle.CreatedAt = vehicle.CreatedAt.In(time.UTC)
		vehicle.UpdatedAt = vehicle.UpdatedAt.In(time.UTC)
		vehicles = append(vehicles, vehicle)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("VehicleRepository.FindByUserID (rows error): %w", err)
	}
	return vehicles, nil
}

func (r *pgVehicleRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("VehicleRepository.Delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("VehicleRepository.Delete (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
