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

var _ repository.CardRepository = (*cardRepo)(nil)

type cardRepo struct{ pool *pgxpool.Pool }

func NewCardRepo(pool *pgxpool.Pool) *cardRepo {
	return &cardRepo{pool: pool}
}

const cardColumns = `id, user_id, card_id, first_name, last_name, expires_on, available, created_at`

// GetOrCreate inserts the card unless the gateway card id is already vaulted.
// ON CONFLICT DO NOTHING makes the get-or-create atomic under concurrent
// notifications carrying the same card.
func (r *cardRepo) GetOrCreate(ctx context.Context, tx repository.Tx, c *model.Card) (bool, error) {
	const q = `
INSERT INTO cards (id, user_id, card_id, first_name, last_name, expires_on, available, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (card_id) DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, q, c.ID, c.UserID, c.CardID, c.FirstName, c.LastName, c.ExpiresOn, c.Available, c.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *cardRepo) FindAvailable(ctx context.Context, tx repository.Tx, userID string, today time.Time) (*model.Card, error) {
	q := `SELECT ` + cardColumns + ` FROM cards
WHERE user_id=$1 AND available AND expires_on >= $2::date
ORDER BY created_at DESC
LIMIT 1`
	if inTx(tx) {
		q += ` FOR UPDATE`
	}
	q += `;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, today)
	if err != nil {
		return nil, err
	}

	c := &model.Card{}
	if err := row.Scan(&c.ID, &c.UserID, &c.CardID, &c.FirstName, &c.LastName, &c.ExpiresOn, &c.Available, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return c, nil
}

// ExpireOlderThan is scoped to available rows only so it cannot clobber a
// card a concurrent notification is inserting.
func (r *cardRepo) ExpireOlderThan(ctx context.Context, tx repository.Tx, today time.Time) (int64, error) {
	const q = `UPDATE cards SET available=FALSE WHERE available AND expires_on < $1::date;`
	cmd, err := execSQL(ctx, r.pool, tx, q, today)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return cmd.RowsAffected(), nil
}

func (r *cardRepo) MarkUnavailable(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE cards SET available=FALSE WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
