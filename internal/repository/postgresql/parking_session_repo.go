package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"mobypark/internal/domain"
	"mobypark/internal/repository"
)

type pgParkingSessionRepository struct {
	db *sql.DB
}

func NewPgParkingSessionRepository(db *sql.DB) repository.ParkingSessionRepository {
	return &pgParkingSessionRepository{db: db}
}

const sessionColumns = `id, lot_id, license_plate, username, reservation_id, hold_ref,
	                 started_at, stopped_at, duration_minutes, cost, payment_status, created_at, updated_at`

func scanSession(row interface{ Scan(...interface{}) error }, session *domain.ParkingSession) error {
	return row.Scan(
		&session.ID, &session.LotID, &session.LicensePlate, &session.Username,
		&session.ReservationID, &session.HoldRef, &session.StartedAt, &session.StoppedAt,
		&session.DurationMinutes, &session.Cost, &session.PaymentStatus,
		&session.CreatedAt, &session.UpdatedAt,
	)
}

func normalizeSessionTimes(session *domain.ParkingSession) {
	session.StartedAt = session.StartedAt.In(time.UTC)
	if session.StoppedAt.Valid {
		session.StoppedAt.Time = session.StoppedAt.Time.In(time.UTC)
	}
	session.CreatedAt = session.CreatedAt.In(time.UTC)
	session.UpdatedAt = session.UpdatedAt.In(time.UTC)
}

func (r *pgParkingSessionRepository) Create(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	query := `INSERT INTO parking_sessions
	           (lot_id, license_plate, username, reservation_id, hold_ref, started_at, stopped_at,
	            duration_minutes, cost, payment_status, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, created_at, updated_at`

	var reservationIDVal sql.NullInt64
	if session.ReservationID.Valid {
		reservationIDVal = sql.NullInt64{Int64: session.ReservationID.Int64, Valid: true}
	}
	var holdRefVal sql.NullString
	if session.HoldRef.Valid {
		holdRefVal = sql.NullString{String: session.HoldRef.String, Valid: true}
	}
	var stoppedAtVal sql.NullTime
	if session.StoppedAt.Valid {
		stoppedAtVal = sql.NullTime{Time: session.StoppedAt.Time, Valid: true}
	}
	var durationVal sql.NullInt64
	if session.DurationMinutes.Valid {
		durationVal = sql.NullInt64{Int64: session.DurationMinutes.Int64, Valid: true}
	}
	var costVal sql.NullFloat64
	if session.Cost.Valid {
		costVal = sql.NullFloat64{Float64: session.Cost.Float64, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		session.LotID, session.LicensePlate, session.Username, reservationIDVal, holdRefVal,
		session.StartedAt, stoppedAtVal, durationVal, costVal, session.PaymentStatus,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.Create: %w", err)
	}
	normalizeSessionTimes(session)
	return session, nil
}

func (r *pgParkingSessionRepository) FindByID(ctx context.Context, id int) (*domain.ParkingSession, error) {
	session := &domain.ParkingSession{}
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE id = $1`
	err := scanSession(r.db.QueryRowContext(ctx, query, id), session)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSessionRepository.FindByID: %w", err)
	}
	normalizeSessionTimes(session)
	return session, nil
}

func (r *pgParkingSessionRepository) Update(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	query := `UPDATE parking_sessions
	           SET stopped_at = $1, duration_minutes = $2, cost = $3, payment_status = $4, hold_ref = $5,
	               updated_at = CURRENT_TIMESTAMP
	           WHERE id = $6
	           RETURNING updated_at`

	var stoppedAtVal sql.NullTime
	if session.StoppedAt.Valid {
		stoppedAtVal = sql.NullTime{Time: session.StoppedAt.Time, Valid: true}
	}
	var durationVal sql.NullInt64
	if session.DurationMinutes.Valid {
		durationVal = sql.NullInt64{Int64: session.DurationMinutes.Int64, Valid: true}
	}
	var costVal sql.NullFloat64
	if session.Cost.Valid {
		costVal = sql.NullFloat64{Float64: session.Cost.Float64, Valid: true}
	}
	var holdRefVal sql.NullString
	if session.HoldRef.Valid {
		holdRefVal = sql.NullString{String: session.HoldRef.String, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		stoppedAtVal, durationVal, costVal, session.PaymentStatus, holdRefVal, session.ID,
	).Scan(&session.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSessionRepository.Update: %w", err)
	}
	session.UpdatedAt = session.UpdatedAt.In(time.UTC)
	return session, nil
}

func (r *pgParkingSessionRepository) FindPendingByPlate(ctx context.Context, licensePlate string) ([]domain.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + `
	           FROM parking_sessions
	           WHERE license_plate = $1 AND payment_status = $2 AND stopped_at IS NOT NULL
	           ORDER BY started_at, id`
	rows, err := r.db.QueryContext(ctx, query, licensePlate, domain.PaymentPending)
	if err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.FindPendingByPlate: %w", err)
	}
	defer rows.Close()

	var sessions []domain.ParkingSession
	for rows.Next() {
		var session domain.ParkingSession
		if err := scanSession(rows, &session); err != nil {
			return nil, fmt.Errorf("ParkingSessionRepository.FindPendingByPlate (scanning row): %w", err)
		}
		normalizeSessionTimes(&session)
		sessions = append(sessions, session)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.FindPendingByPlate (rows error): %w", err)
	}
	return sessions, nil
}

func (r *pgParkingSessionRepository) FindPendingByIDAndPlate(ctx context.Context, id int, licensePlate string) (*domain.ParkingSession, error) {
	session := &domain.ParkingSession{}
	query := `SELECT ` + sessionColumns + `
	           FROM parking_sessions
	           WHERE id = $1 AND license_plate = $2 AND payment_status = $3 AND stopped_at IS NOT NULL`
	err := scanSession(r.db.QueryRowContext(ctx, query, id, licensePlate, domain.PaymentPending), session)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSessionRepository.FindPendingByIDAndPlate: %w", err)
	}
	normalizeSessionTimes(session)
	return session, nil
}

func (r *pgParkingSessionRepository) Find(ctx context.Context, filter domain.SessionFilterDTO) ([]domain.ParkingSession, error) {
	baseQuery := `SELECT ` + sessionColumns + ` FROM parking_sessions`

	var conditions []string
	var args []interface{}
	argID := 1

	if filter.LotID != nil {
		conditions = append(conditions, fmt.Sprintf("lot_id = $%d", argID))
		args = append(args, *filter.LotID)
		argID++
	}
	if filter.LicensePlate != nil {
		conditions = append(conditions, fmt.Sprintf("license_plate = $%d", argID))
		args = append(args, *filter.LicensePlate)
		argID++
	}
	if filter.PaymentStatus != nil {
		conditions = append(conditions, fmt.Sprintf("payment_status = $%d", argID))
		args = append(args, *filter.PaymentStatus)
		argID++
	}
	if filter.Active != nil {
		if *filter.Active {
			conditions = append(conditions, "stopped_at IS NULL")
		} else {
			conditions = append(conditions, "stopped_at IS NOT NULL")
		}
	}

	query := baseQuery
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY started_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.Find: %w", err)
	}
	defer rows.Close()

	var sessions []domain.ParkingSession
	for rows.Next() {
		var session domain.ParkingSession
		if err := scanSession(rows, &session); err != nil {
			return nil, fmt.Errorf("ParkingSessionRepository.Find (scanning row): %w", err)
		}
		normalizeSessionTimes(&session)
		sessions = append(sessions, session)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.Find (rows error): %w", err)
	}
	return sessions, nil
}
