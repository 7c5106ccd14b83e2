package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"association-membership/internal/domain"
	"association-membership/internal/domain/model"
	"association-membership/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, reference, token, user_id, subscription_id, product_id, price, tax_rate, status, error_message, subscribed_until, created_at`

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (id, reference, token, user_id, subscription_id, product_id, price, tax_rate, status, error_message, subscribed_until, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Reference, p.Token, p.UserID, p.SubscriptionID, p.ProductID, p.Price, p.TaxRate, string(p.Status), p.ErrorMessage, p.SubscribedUntil, p.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE reference=$1`
	if inTx(tx) {
		q += ` FOR UPDATE`
	}
	q += `;`
	row, err := pickRow(ctx, r.pool, tx, q, reference)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

// SettleIfPending applies the single allowed transition pending -> terminal.
func (r *paymentRepo) SettleIfPending(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, errorMessage string) (bool, error) {
	const q = `UPDATE payments SET status=$2, error_message=$3 WHERE id=$1 AND status='';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), errorMessage)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) LatestValidated(ctx context.Context, tx repository.Tx, userID string, today time.Time) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments
WHERE user_id=$1 AND status='paid' AND subscribed_until >= $2::date
ORDER BY subscribed_until DESC, created_at DESC
LIMIT 1`
	if inTx(tx) {
		q += ` FOR UPDATE`
	}
	q += `;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, today)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) LatestPaid(ctx context.Context, tx repository.Tx, userID string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments
WHERE user_id=$1 AND status='paid'
ORDER BY subscribed_until DESC, created_at DESC
LIMIT 1`
	if inTx(tx) {
		q += ` FOR UPDATE`
	}
	q += `;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) MarkUnsubscribed(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE payments SET status=$2 WHERE id=$1 AND status='paid';`
	_, err := execSQL(ctx, r.pool, tx, q, id, string(model.PaymentStatusUnsubscribed))
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// ListRenewalDue selects paying users on a recurrent product whose newest
// paid payment ran out within the grace window ending today, excluding anyone
// with a charge attempt created since that expiry (already attempted this
// cycle).
func (r *paymentRepo) ListRenewalDue(ctx context.Context, tx repository.Tx, today time.Time, graceDays int) ([]string, error) {
	if graceDays <= 0 {
		graceDays = 1
	}
	const q = `
SELECT u.id FROM users u
JOIN LATERAL (
    SELECT p.subscribed_until, p.product_id
    FROM payments p
    WHERE p.user_id = u.id AND p.status = 'paid'
    ORDER BY p.subscribed_until DESC, p.created_at DESC
    LIMIT 1
) lv ON TRUE
JOIN products pr ON pr.id = lv.product_id
WHERE u.accreditation = $3
  AND pr.recurrent
  AND lv.subscribed_until <= $1::date
  AND lv.subscribed_until > $1::date - $2::int
  AND NOT EXISTS (
      SELECT 1 FROM payments p2
      WHERE p2.user_id = u.id AND p2.created_at >= lv.subscribed_until
  );`

	rows, err := queryRows(ctx, r.pool, tx, q, today, graceDays, int(model.AccreditationPaying))
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	var status string
	if err := row.Scan(&p.ID, &p.Reference, &p.Token, &p.UserID, &p.SubscriptionID, &p.ProductID, &p.Price, &p.TaxRate, &status, &p.ErrorMessage, &p.SubscribedUntil, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.Status = model.PaymentStatus(status)
	return p, nil
}
