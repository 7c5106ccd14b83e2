// File: internal/usecase/mocks_test.go
//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"association-membership/internal/domain"
	"association-membership/internal/domain/model"
	"association-membership/internal/domain/ports/adapter"
	"association-membership/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MockUserRepo is a small in-memory implementation used by unit tests.
type MockUserRepo struct {
	mu    sync.RWMutex
	store map[string]*model.User

	SaveErr              error
	SetAccreditationFunc func(ctx context.Context, tx repository.Tx, userID string, level model.Accreditation) error
	LapseExpiredFunc     func(ctx context.Context, tx repository.Tx, today time.Time) (int64, error)
}

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{store: make(map[string]*model.User)}
}

func (m *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	return m.findBy(func(u *model.User) bool { return u.Email == email })
}

func (m *MockUserRepo) FindByValidateToken(ctx context.Context, tx repository.Tx, token string) (*model.User, error) {
	if token == "" {
		return nil, domain.ErrNotFound
	}
	return m.findBy(func(u *model.User) bool { return u.ValidateToken == token })
}

func (m *MockUserRepo) FindByResetToken(ctx context.Context, tx repository.Tx, token string) (*model.User, error) {
	if token == "" {
		return nil, domain.ErrNotFound
	}
	return m.findBy(func(u *model.User) bool { return u.ResetToken == token })
}

func (m *MockUserRepo) findBy(match func(*model.User) bool) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.store {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepo) SetAccreditation(ctx context.Context, tx repository.Tx, userID string, level model.Accreditation) error {
	if m.SetAccreditationFunc != nil {
		return m.SetAccreditationFunc(ctx, tx, userID, level)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Accreditation = level
	return nil
}

func (m *MockUserRepo) LapseExpired(ctx context.Context, tx repository.Tx, today time.Time) (int64, error) {
	if m.LapseExpiredFunc != nil {
		return m.LapseExpiredFunc(ctx, tx, today)
	}
	return 0, nil
}

// MockPaymentRepo keeps the ledger in memory and mirrors the conditional
// update semantics of the real repository.
type MockPaymentRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Payment

	SaveErr            error
	SaveFunc           func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	ListRenewalDueFunc func(ctx context.Context, tx repository.Tx, today time.Time, graceDays int) ([]string, error)
}

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{store: make(map[string]*model.Payment)}
}

func (m *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *MockPaymentRepo) Get(id string) *model.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (m *MockPaymentRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.Reference == reference {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPaymentRepo) SettleIfPending(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, errorMessage string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = status
	p.ErrorMessage = errorMessage
	return true, nil
}

func (m *MockPaymentRepo) LatestValidated(ctx context.Context, tx repository.Tx, userID string, today time.Time) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *model.Payment
	for _, p := range m.store {
		if p.UserID != userID || p.Status != model.PaymentStatusPaid {
			continue
		}
		if dateOnly(p.SubscribedUntil).Before(dateOnly(today)) {
			continue
		}
		if best == nil || p.SubscribedUntil.After(best.SubscribedUntil) {
			best = p
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *MockPaymentRepo) LatestPaid(ctx context.Context, tx repository.Tx, userID string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *model.Payment
	for _, p := range m.store {
		if p.UserID != userID || p.Status != model.PaymentStatusPaid {
			continue
		}
		if best == nil || p.SubscribedUntil.After(best.SubscribedUntil) {
			best = p
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *MockPaymentRepo) MarkUnsubscribed(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Status == model.PaymentStatusPaid {
		p.Status = model.PaymentStatusUnsubscribed
	}
	return nil
}

func (m *MockPaymentRepo) ListRenewalDue(ctx context.Context, tx repository.Tx, today time.Time, graceDays int) ([]string, error) {
	if m.ListRenewalDueFunc != nil {
		return m.ListRenewalDueFunc(ctx, tx, today, graceDays)
	}
	return nil, nil
}

// MockCardRepo stores cards keyed by gateway card id.
type MockCardRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Card // by CardID

	ExpireOlderThanFunc func(ctx context.Context, tx repository.Tx, today time.Time) (int64, error)
}

func NewMockCardRepo() *MockCardRepo {
	return &MockCardRepo{store: make(map[string]*model.Card)}
}

func (m *MockCardRepo) GetOrCreate(ctx context.Context, tx repository.Tx, c *model.Card) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[c.CardID]; ok {
		return false, nil
	}
	cp := *c
	m.store[c.CardID] = &cp
	return true, nil
}

func (m *MockCardRepo) FindAvailable(ctx context.Context, tx repository.Tx, userID string, today time.Time) (*model.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *model.Card
	for _, c := range m.store {
		if c.UserID != userID || !c.Available {
			continue
		}
		if dateOnly(c.ExpiresOn).Before(dateOnly(today)) {
			continue
		}
		if best == nil || c.CreatedAt.After(best.CreatedAt) {
			best = c
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *MockCardRepo) ExpireOlderThan(ctx context.Context, tx repository.Tx, today time.Time) (int64, error) {
	if m.ExpireOlderThanFunc != nil {
		return m.ExpireOlderThanFunc(ctx, tx, today)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, c := range m.store {
		if c.Available && dateOnly(c.ExpiresOn).Before(dateOnly(today)) {
			c.Available = false
			n++
		}
	}
	return n, nil
}

func (m *MockCardRepo) MarkUnavailable(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.store {
		if c.ID == id {
			c.Available = false
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MockCardRepo) Get(cardID string) *model.Card {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.store[cardID]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

// MockCatalogRepo holds a fixed catalog.
type MockCatalogRepo struct {
	mu       sync.RWMutex
	subs     map[string]*model.Subscription // by name
	products map[string]*model.Product      // by ID
}

func NewMockCatalogRepo() *MockCatalogRepo {
	return &MockCatalogRepo{
		subs:     make(map[string]*model.Subscription),
		products: make(map[string]*model.Product),
	}
}

func (m *MockCatalogRepo) ListSubscriptions(ctx context.Context, tx repository.Tx) ([]*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Subscription
	for _, s := range m.subs {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockCatalogRepo) ListProducts(ctx context.Context, tx repository.Tx, subscriptionID string) ([]*model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Product
	for _, p := range m.products {
		if p.SubscriptionID == subscriptionID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockCatalogRepo) FindSubscriptionByName(ctx context.Context, tx repository.Tx, name string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subs[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockCatalogRepo) FindProductByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockCatalogRepo) FindProduct(ctx context.Context, tx repository.Tx, subscriptionName, productName string) (*model.Subscription, *model.Product, error) {
	sub, err := m.FindSubscriptionByName(ctx, tx, subscriptionName)
	if err != nil {
		return nil, nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.products {
		if p.SubscriptionID == sub.ID && p.Name == productName {
			cp := *p
			return sub, &cp, nil
		}
	}
	return nil, nil, domain.ErrNotFound
}

func (m *MockCatalogRepo) SaveSubscription(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.subs[s.Name] = &cp
	return nil
}

func (m *MockCatalogRepo) SaveProduct(ctx context.Context, tx repository.Tx, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

// MockTxManager runs the callback directly; unit tests exercise the logic,
// not the transactionality.
type MockTxManager struct {
	WithTxFunc func(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, opts, fn)
	}
	return fn(ctx, repository.NoTX)
}

// MockPaymentGateway records charge requests and answers with a canned handle.
type MockPaymentGateway struct {
	mu       sync.Mutex
	Requests []adapter.ChargeRequest

	CreateChargeFunc   func(ctx context.Context, req adapter.ChargeRequest) (adapter.ChargeHandle, error)
	RetrieveChargeFunc func(ctx context.Context, id string) (*adapter.ChargeResult, error)
}

func (m *MockPaymentGateway) Name() string { return "mock" }

func (m *MockPaymentGateway) CreateCharge(ctx context.Context, req adapter.ChargeRequest) (adapter.ChargeHandle, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	n := len(m.Requests)
	m.mu.Unlock()
	if m.CreateChargeFunc != nil {
		return m.CreateChargeFunc(ctx, req)
	}
	return adapter.ChargeHandle{
		ID:               fmt.Sprintf("charge-%d", n),
		HostedPaymentURL: "https://pay.example/charge",
	}, nil
}

func (m *MockPaymentGateway) RetrieveCharge(ctx context.Context, id string) (*adapter.ChargeResult, error) {
	if m.RetrieveChargeFunc != nil {
		return m.RetrieveChargeFunc(ctx, id)
	}
	return &adapter.ChargeResult{ID: id, Kind: adapter.KindPayment}, nil
}

// MockAlertNotifier collects alert messages.
type MockAlertNotifier struct {
	mu       sync.Mutex
	Messages []string
}

func (m *MockAlertNotifier) Notify(ctx context.Context, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, message)
	return nil
}

// MockMailer records outbound mail.
type MockMailer struct {
	mu          sync.Mutex
	Validations []string // links
	Resets      []string
}

func (m *MockMailer) SendValidationLink(ctx context.Context, email, username, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Validations = append(m.Validations, link)
	return nil
}

func (m *MockMailer) SendPasswordResetLink(ctx context.Context, email, username, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Resets = append(m.Resets, link)
	return nil
}
