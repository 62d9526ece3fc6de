package outbound

import (
	"context"

	"github.com/arw/arw-api/domain/valueobject"
)

// IdentityProvider performs the authorization-code leg of a federated login.
type IdentityProvider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*valueobject.IdentityAssertion, error)
}
