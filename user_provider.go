package shop

import (
	"context"

	"github.com/goliatone/go-errors"
)

// UserStore is the persistence contract the auth core consumes. Each
// lookup returns the full record or a not-found error.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByPhone(ctx context.Context, phone string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
}

// UserProvider resolves identities against a UserStore
type UserProvider struct {
	store  UserStore
	logger Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserStore) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// VerifyIdentity finds the user for the classified identifier and checks
// the password. Lookup miss and password mismatch collapse into the same
// ErrInvalidCredentials so responses never reveal which part failed. The
// active flag is only checked after the password verified, so deactivated
// accounts cannot be probed with garbage credentials.
func (u *UserProvider) VerifyIdentity(ctx context.Context, identifier Identifier, password string) (Identity, error) {
	user, err := u.lookup(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.Active {
		return nil, ErrAccountInactive
	}

	return NewIdentityFromUser(user), nil
}

// FindIdentity resolves an identifier without checking credentials
func (u *UserProvider) FindIdentity(ctx context.Context, identifier Identifier) (Identity, error) {
	user, err := u.lookup(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	return NewIdentityFromUser(user), nil
}

func (u *UserProvider) lookup(ctx context.Context, identifier Identifier) (*User, error) {
	switch identifier.Kind {
	case IdentifierPhone:
		return u.store.FindByPhone(ctx, identifier.Value)
	case IdentifierEmail:
		return u.store.FindByEmail(ctx, identifier.Value)
	default:
		return u.store.FindByUsername(ctx, identifier.Value)
	}
}

var _ IdentityProvider = (*UserProvider)(nil)
