package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/fintrack/internal/models"
	"github.com/aws/aws-sdk-go-v2/service/ses"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc        func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc     func(ctx context.Context, email string) (*models.User, error)
	CreateFunc         func(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePasswordFunc func(ctx context.Context, id, passwordHash string) error
	UpdateRoleFunc     func(ctx context.Context, id, role string) error
	DeleteFunc         func(ctx context.Context, id string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) UpdateRole(ctx context.Context, id, role string) error {
	if m.UpdateRoleFunc != nil {
		return m.UpdateRoleFunc(ctx, id, role)
	}
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockCardRepository implements CardRepository for testing
type MockCardRepository struct {
	CreateFunc      func(ctx context.Context, card *models.Card) (*models.Card, error)
	GetByIDFunc     func(ctx context.Context, id string) (*models.Card, error)
	ListByOwnerFunc func(ctx context.Context, ownerID string, limit, offset int) ([]*models.Card, error)
	DeleteFunc      func(ctx context.Context, id string) error
}

func (m *MockCardRepository) Create(ctx context.Context, card *models.Card) (*models.Card, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, card)
	}
	c := *card
	c.ID = "card-1"
	c.CreatedAt = time.Now()
	return &c, nil
}

func (m *MockCardRepository) GetByID(ctx context.Context, id string) (*models.Card, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockCardRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.Card, error) {
	if m.ListByOwnerFunc != nil {
		return m.ListByOwnerFunc(ctx, ownerID, limit, offset)
	}
	return []*models.Card{}, nil
}

func (m *MockCardRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockTransactionRepository implements TransactionRepository for testing
type MockTransactionRepository struct {
	CreateFunc     func(ctx context.Context, t *models.Transaction) (*models.Transaction, error)
	GetByIDFunc    func(ctx context.Context, id string) (*models.Transaction, error)
	ListByCardFunc func(ctx context.Context, cardID string, limit, offset int) ([]*models.Transaction, error)
	DeleteFunc     func(ctx context.Context, id string) error
}

func (m *MockTransactionRepository) Create(ctx context.Context, t *models.Transaction) (*models.Transaction, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, t)
	}
	tx := *t
	tx.ID = "tx-1"
	tx.CreatedAt = time.Now()
	return &tx, nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockTransactionRepository) ListByCard(ctx context.Context, cardID string, limit, offset int) ([]*models.Transaction, error) {
	if m.ListByCardFunc != nil {
		return m.ListByCardFunc(ctx, cardID, limit, offset)
	}
	return []*models.Transaction{}, nil
}

func (m *MockTransactionRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockAuditStore keeps appended entries in memory.
type MockAuditStore struct {
	mu         sync.Mutex
	Entries    []models.AuditEntry
	AppendFunc func(ctx context.Context, entry models.AuditEntry) error
}

func (m *MockAuditStore) Append(ctx context.Context, entry models.AuditEntry) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockAuditStore) Query(_ context.Context, start, end time.Time) ([]models.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuditEntry
	for _, e := range m.Entries {
		if !e.Timestamp.Before(start) && !e.Timestamp.After(end) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockAuditStore) types() []models.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.EventType, 0, len(m.Entries))
	for _, e := range m.Entries {
		out = append(out, e.Type)
	}
	return out
}

// recordingNotifier collects alerts passed to Notify.
type recordingNotifier struct {
	mu     sync.Mutex
	alerts []models.Alert
}

func (n *recordingNotifier) Notify(_ context.Context, alert models.Alert) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

// MockSESClient implements sesSender for testing
type MockSESClient struct {
	mu            sync.Mutex
	Inputs        []*ses.SendEmailInput
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

func (m *MockSESClient) SendEmail(ctx context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.mu.Lock()
	m.Inputs = append(m.Inputs, params)
	m.mu.Unlock()
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, params)
	}
	return &ses.SendEmailOutput{}, nil
}

func (m *MockSESClient) sent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Inputs)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
