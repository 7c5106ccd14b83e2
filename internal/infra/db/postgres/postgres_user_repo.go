package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"association-membership/internal/domain"
	"association-membership/internal/domain/model"
	"association-membership/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

const userColumns = `id, username, email, password_hash, accreditation, validate_token, reset_token, registered_at`

func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, username, email, password_hash, accreditation, validate_token, reset_token, registered_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  username=$2, email=$3, password_hash=$4, accreditation=$5, validate_token=$6, reset_token=$7;`

	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.Username, u.Email, u.PasswordHash, int(u.Accreditation), u.ValidateToken, u.ResetToken, u.RegisteredAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		// Concurrent registrations race past the use case's existence check
		// and land on the email/username unique constraints.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

const uniqueViolationCode = "23505"

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return r.findBy(ctx, tx, `id=$1`, id)
}

func (r *userRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	return r.findBy(ctx, tx, `email=$1`, email)
}

func (r *userRepo) FindByValidateToken(ctx context.Context, tx repository.Tx, token string) (*model.User, error) {
	return r.findBy(ctx, tx, `validate_token=$1 AND validate_token <> ''`, token)
}

func (r *userRepo) FindByResetToken(ctx context.Context, tx repository.Tx, token string) (*model.User, error) {
	return r.findBy(ctx, tx, `reset_token=$1 AND reset_token <> ''`, token)
}

func (r *userRepo) findBy(ctx context.Context, tx repository.Tx, where string, arg interface{}) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, err
	}

	u := &model.User{}
	var accreditation int
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &accreditation, &u.ValidateToken, &u.ResetToken, &u.RegisteredAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	u.Accreditation = model.Accreditation(accreditation)
	return u, nil
}

func (r *userRepo) SetAccreditation(ctx context.Context, tx repository.Tx, userID string, level model.Accreditation) error {
	const q = `UPDATE users SET accreditation=$2 WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, userID, int(level))
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// LapseExpired downgrades paying users whose newest paid payment expired
// strictly before today. Users with no paid payment are never matched: the
// MAX subquery yields NULL and the comparison fails.
func (r *userRepo) LapseExpired(ctx context.Context, tx repository.Tx, today time.Time) (int64, error) {
	const q = `
UPDATE users u SET accreditation = $2
WHERE u.accreditation = $3
  AND (SELECT MAX(p.subscribed_until) FROM payments p
        WHERE p.user_id = u.id AND p.status = 'paid') < $1::date;`

	cmd, err := execSQL(ctx, r.pool, tx, q, today, int(model.AccreditationValidated), int(model.AccreditationPaying))
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return cmd.RowsAffected(), nil
}
