package account_test

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	"github.com/vitalscan/backend/account"
)

// MockRepositoryManager implements account.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

// RunInTx invokes the callback with a zero transaction and propagates its
// error, after checking the registered expectation.
func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	if err := args.Error(0); err != nil {
		return err
	}

	var tx bun.Tx
	return f(ctx, tx)
}

func (m *MockRepositoryManager) Users() account.Users {
	args := m.Called()
	return args.Get(0).(account.Users)
}

// MockUsers implements account.Users. The embedded repository interface
// satisfies the methods the tests never exercise.
type MockUsers struct {
	mock.Mock
	repository.Repository[*account.User]
}

func (m *MockUsers) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*account.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.User), args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*account.User, error) {
	return m.GetByEmailTx(ctx, nil, email)
}

func (m *MockUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*account.User, error) {
	args := m.Called(ctx, tx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.User), args.Error(1)
}

func (m *MockUsers) GetByEmailOrUsername(ctx context.Context, email, username string) (*account.User, error) {
	return m.GetByEmailOrUsernameTx(ctx, nil, email, username)
}

func (m *MockUsers) GetByEmailOrUsernameTx(ctx context.Context, tx bun.IDB, email, username string) (*account.User, error) {
	args := m.Called(ctx, tx, email, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.User), args.Error(1)
}

func (m *MockUsers) GetByVerificationToken(ctx context.Context, token string, now time.Time) (*account.User, error) {
	return m.GetByVerificationTokenTx(ctx, nil, token, now)
}

func (m *MockUsers) GetByVerificationTokenTx(ctx context.Context, tx bun.IDB, token string, now time.Time) (*account.User, error) {
	args := m.Called(ctx, tx, token, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.User), args.Error(1)
}

func (m *MockUsers) GetByResetToken(ctx context.Context, token string, now time.Time) (*account.User, error) {
	return m.GetByResetTokenTx(ctx, nil, token, now)
}

func (m *MockUsers) GetByResetTokenTx(ctx context.Context, tx bun.IDB, token string, now time.Time) (*account.User, error) {
	args := m.Called(ctx, tx, token, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.User), args.Error(1)
}

func (m *MockUsers) MarkVerified(ctx context.Context, id uuid.UUID) error {
	return m.MarkVerifiedTx(ctx, nil, id)
}

func (m *MockUsers) MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockUsers) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return m.ResetPasswordTx(ctx, nil, id, passwordHash)
}

func (m *MockUsers) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, tx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) Create(ctx context.Context, record *account.User, criteria ...repository.InsertCriteria) (*account.User, error) {
	return m.CreateTx(ctx, nil, record, criteria...)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *account.User, criteria ...repository.InsertCriteria) (*account.User, error) {
	args := m.Called(ctx, tx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.User), args.Error(1)
}

func (m *MockUsers) UpdateTx(ctx context.Context, tx bun.IDB, record *account.User, criteria ...repository.UpdateCriteria) (*account.User, error) {
	args := m.Called(ctx, tx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.User), args.Error(1)
}

// recordingNotifier captures every notification for assertions.
type recordingNotifier struct {
	mu            sync.Mutex
	verifications []sentMail
	resets        []sentMail
}

type sentMail struct {
	email     string
	token     string
	expiresAt time.Time
}

func (r *recordingNotifier) SendVerification(ctx context.Context, email, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifications = append(r.verifications, sentMail{email, token, expiresAt})
	return nil
}

func (r *recordingNotifier) SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets = append(r.resets, sentMail{email, token, expiresAt})
	return nil
}

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}
