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

type pgPaymentRepository struct {
	db *sql.DB
}

func NewPgPaymentRepository(db *sql.DB) repository.PaymentRepository {
	return &pgPaymentRepository{db: db}
}

const paymentColumns = `id, transaction_reference, amount, initiator, session_ref, hash,
	                 method, issuer, bank, created_at, completed_at`

func scanPayment(row interface{ Scan(...interface{}) error }, p *domain.Payment) error {
	return row.Scan(
		&p.ID, &p.TransactionReference, &p.Amount, &p.Initiator, &p.SessionRef, &p.Hash,
		&p.Detail.Method, &p.Detail.Issuer, &p.Detail.Bank, &p.CreatedAt, &p.CompletedAt,
	)
}

func normalizePaymentTimes(p *domain.Payment) {
	p.CreatedAt = p.CreatedAt.In(time.UTC)
	p.CompletedAt = p.CompletedAt.In(time.UTC)
	p.Detail.Amount = p.Amount
	p.Detail.Date = p.CompletedAt
}

// CreateWithSessions: một transaction duy nhất cho cả payment lẫn việc chuyển
// trạng thái các phiên. Nếu có phiên nào không còn ở trạng thái pending thì
// toàn bộ bị hủy, không áp dụng nửa chừng.
func (r *pgPaymentRepository) CreateWithSessions(ctx context.Context, p *domain.Payment, sessionIDs []int, status domain.PaymentStatus) (*domain.Payment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("PaymentRepository.CreateWithSessions (begin tx): %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO payments
	           (transaction_reference, amount, initiator, session_ref, hash, method, issuer, bank, created_at, completed_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP, $9)
	           RETURNING id, created_at`

	var sessionRefVal sql.NullString
	if p.SessionRef.Valid {
		sessionRefVal = sql.NullString{String: p.SessionRef.String, Valid: true}
	}

	err = tx.QueryRowContext(ctx, query,
		p.TransactionReference, p.Amount, p.Initiator, sessionRefVal, p.Hash,
		p.Detail.Method, p.Detail.Issuer, p.Detail.Bank, p.CompletedAt,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: mã giao dịch '%s' đã tồn tại", repository.ErrDuplicateEntry, p.TransactionReference)
		}
		return nil, fmt.Errorf("PaymentRepository.CreateWithSessions: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE parking_sessions SET payment_status = $1, updated_at = CURRENT_TIMESTAMP
		  WHERE id = ANY($2) AND payment_status = $3`,
		status, pq.Array(sessionIDs), domain.PaymentPending)
	if err != nil {
		return nil, fmt.Errorf("PaymentRepository.CreateWithSessions (updating sessions): %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("PaymentRepository.CreateWithSessions (checking rows affected): %w", err)
	}
	if int(rowsAffected) != len(sessionIDs) {
		// Một phiên đã bị thanh toán ở request khác: hủy toàn bộ.
		return nil, fmt.Errorf("%w: chỉ cập nhật được %d/%d phiên", repository.ErrCapacityConflict, rowsAffected, len(sessionIDs))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("PaymentRepository.CreateWithSessions (commit): %w", err)
	}
	normalizePaymentTimes(p)
	return p, nil
}

func (r *pgPaymentRepository) FindByID(ctx context.Context, id int) (*domain.Payment, error) {
	p := &domain.Payment{}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	err := scanPayment(r.db.QueryRowContext(ctx, query, id), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("PaymentRepository.FindByID: %w", err)
	}
	normalizePaymentTimes(p)
	return p, nil
}

func (r *pgPaymentRepository) FindAll(ctx context.Context) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments ORDER BY initiator, created_at, id`
	return r.queryPayments(ctx, query)
}

func (r *pgPaymentRepository) FindByInitiator(ctx context.Context, initiator string) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE initiator = $1 ORDER BY created_at, id`
	return r.queryPayments(ctx, query, initiator)
}

func (r *pgPaymentRepository) queryPayments(ctx context.Context, query string, args ...interface{}) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("PaymentRepository (query): %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := scanPayment(rows, &p); err != nil {
			return nil, fmt.Errorf("PaymentRepository (scanning row): %w", err)
		}
		normalizePaymentTimes(&p)
		payments = append(payments, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("PaymentRepository (rows error): %w", err)
	}
	return payments, nil
}

func (r *pgPaymentRepository) Delete(ctx context.Context, id int) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("PaymentRepository.Delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("PaymentRepository.Delete (checking rows affected): %w", err)
	}
	return rowsAffected > 0, nil
}
