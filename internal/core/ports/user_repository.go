package ports

import (
	"context"

	"github.com/workdesk/request-tracker/internal/core/domain"
)

// UserRepository is the credential store. Create and Update must surface a
// unique-constraint violation on username or email as domain.ErrUserExists.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id int64) error
}
