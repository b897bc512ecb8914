package identity

import (
	"context"
	"errors"

	"github.com/iyunix/go-dualotp/internal/domain"
)

var ErrIdentityNotFound = errors.New("identity not found")

// IdentityRepository persists identities. Find methods return nil, nil when no
// row matches.
type IdentityRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	FindByPhone(ctx context.Context, phone string) (*domain.Identity, error)
	FindByID(ctx context.Context, id string) (*domain.Identity, error)
	Insert(ctx context.Context, identity *domain.Identity) error

	// PromoteChannel ORs the verified flags and fills Name/Phone only where
	// they are still NULL. It never un-verifies a channel.
	PromoteChannel(ctx context.Context, id string, p domain.Promotion) error

	// FillMissingContact stores email/phone only where the column is NULL.
	FillMissingContact(ctx context.Context, id string, email, phone *string) error
}
