package repository

import (
	"context"
	"time"

	"association-membership/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.User, error)
	FindByValidateToken(ctx context.Context, tx Tx, token string) (*model.User, error)
	FindByResetToken(ctx context.Context, tx Tx, token string) (*model.User, error)

	// SetAccreditation is the single storage write path for access levels.
	SetAccreditation(ctx context.Context, tx Tx, userID string, level model.Accreditation) error

	// LapseExpired bulk-downgrades paying users whose most recent validated
	// payment expired strictly before today. Users with no validated payment
	// are not matched. Returns the number of downgraded rows.
	LapseExpired(ctx context.Context, tx Tx, today time.Time) (int64, error)
}
