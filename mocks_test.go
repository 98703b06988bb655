package shop_test

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	shop "github.com/openmerce/go-shop"
)

// TestIdentity is a simple implementation of Identity for testing
type TestIdentity struct {
	id       string
	username string
	email    string
	role     string
}

func (t TestIdentity) ID() string       { return t.id }
func (t TestIdentity) Username() string { return t.username }
func (t TestIdentity) Email() string    { return t.email }
func (t TestIdentity) Role() string     { return t.role }

// MockIdentityProvider implements shop.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier shop.Identifier, password string) (shop.Identity, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(shop.Identity), args.Error(1)
}

func (m *MockIdentityProvider) FindIdentity(ctx context.Context, identifier shop.Identifier) (shop.Identity, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(shop.Identity), args.Error(1)
}

// MockTokenService implements shop.TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) Issue(identity shop.Identity, rememberMe bool) (string, error) {
	args := m.Called(identity, rememberMe)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) SignClaims(claims *shop.JWTClaims) (string, error) {
	args := m.Called(claims)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) Validate(tokenString string) (shop.AuthClaims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(shop.AuthClaims), args.Error(1)
}

// MockAuthenticator implements shop.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, identifier shop.Identifier, password string, rememberMe bool) (string, shop.Identity, error) {
	args := m.Called(ctx, identifier, password, rememberMe)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(shop.Identity), args.Error(2)
}

func (m *MockAuthenticator) LoginAdmin(ctx context.Context, identifier shop.Identifier, password string, rememberMe bool) (string, shop.Identity, error) {
	args := m.Called(ctx, identifier, password, rememberMe)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(shop.Identity), args.Error(2)
}

func (m *MockAuthenticator) ClaimsFromToken(token string) (shop.AuthClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(shop.AuthClaims), args.Error(1)
}

// MockRememberStore implements shop.RememberPreferenceStore
type MockRememberStore struct {
	mock.Mock
}

func (m *MockRememberStore) SetRememberMe(ctx context.Context, id string, rememberMe bool) error {
	args := m.Called(ctx, id, rememberMe)
	return args.Error(0)
}

// MockActivitySink implements shop.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event shop.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockUserStore implements shop.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) FindByUsername(ctx context.Context, username string) (*shop.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shop.User), args.Error(1)
}

func (m *MockUserStore) FindByPhone(ctx context.Context, phone string) (*shop.User, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shop.User), args.Error(1)
}

func (m *MockUserStore) FindByEmail(ctx context.Context, email string) (*shop.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shop.User), args.Error(1)
}

func (m *MockUserStore) FindByID(ctx context.Context, id string) (*shop.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shop.User), args.Error(1)
}

// MockUsers implements shop.Users. The embedded repository interface
// satisfies the generic CRUD surface without implementing it; tests only
// stub the methods they exercise.
type MockUsers struct {
	mock.Mock
	repository.Repository[*shop.User]
}

func (m *MockUsers) FindByUsername(ctx context.Context, username string) (*shop.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shop.User), args.Error(1)
}

func (m *MockUsers) FindByPhone(ctx context.Context, phone string) (*shop.User, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shop.User), args.Error(1)
}

func (m *MockUsers) FindByEmail(ctx context.Context, email string) (*shop.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shop.User), args.Error(1)
}

func (m *MockUsers) FindByID(ctx context.Context, id string) (*shop.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shop.User), args.Error(1)
}

func (m *MockUsers) Register(ctx context.Context, user *shop.User) (*shop.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shop.User), args.Error(1)
}

func (m *MockUsers) RegisterTx(ctx context.Context, tx bun.IDB, user *shop.User) (*shop.User, error) {
	args := m.Called(ctx, tx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shop.User), args.Error(1)
}

func (m *MockUsers) GetOrCreateByEmailTx(ctx context.Context, tx bun.IDB, record *shop.User) (*shop.User, bool, error) {
	args := m.Called(ctx, tx, record)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*shop.User), args.Bool(1), args.Error(2)
}

func (m *MockUsers) UsernameTaken(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) PhoneTaken(ctx context.Context, phone string) (bool, error) {
	args := m.Called(ctx, phone)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) SetRememberMe(ctx context.Context, id string, rememberMe bool) error {
	args := m.Called(ctx, id, rememberMe)
	return args.Error(0)
}

func (m *MockUsers) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockRepositoryManager implements shop.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
	users    shop.Users
	products shop.Products
}

func NewMockRepositoryManager(users shop.Users) *MockRepositoryManager {
	return &MockRepositoryManager{users: users}
}

func (m *MockRepositoryManager) Validate() error { return nil }

func (m *MockRepositoryManager) MustValidate() {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Users() shop.Users { return m.users }

func (m *MockRepositoryManager) Products() shop.Products { return m.products }
