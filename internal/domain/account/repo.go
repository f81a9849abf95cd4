package account

import (
	"context"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, needsChange bool) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, visible []uuid.UUID, limit, offset int) ([]*User, int, error)
}
