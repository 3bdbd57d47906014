package services

import (
	"context"
	"sync"
	"time"

	"github.com/promenade-labs/authcore/internal/models"
)

// MockFailedLoginStore implements FailedLoginStore in memory with the same
// increment semantics as the SQL upsert. A mutex makes concurrent calls
// behave like the database would.
type MockFailedLoginStore struct {
	mu      sync.Mutex
	records map[string]*models.FailedLoginRecord

	GetErr       error
	IncrementErr error
	ResetErr     error
}

func NewMockFailedLoginStore() *MockFailedLoginStore {
	return &MockFailedLoginStore{
		records: make(map[string]*models.FailedLoginRecord),
	}
}

func (m *MockFailedLoginStore) key(email, ip string) string {
	return email + "|" + ip
}

func (m *MockFailedLoginStore) Get(ctx context.Context, email, ipAddress string) (*models.FailedLoginRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}

	rec, ok := m.records[m.key(email, ipAddress)]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

func (m *MockFailedLoginStore) IncrementAttempt(ctx context.Context, email, ipAddress string, maxAttempts int, lockout time.Duration) (*models.FailedLoginRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IncrementErr != nil {
		return nil, m.IncrementErr
	}

	now := time.Now()
	rec, ok := m.records[m.key(email, ipAddress)]
	if !ok {
		rec = &models.FailedLoginRecord{
			Email:          email,
			IPAddress:      ipAddress,
			FirstAttemptAt: now,
		}
		m.records[m.key(email, ipAddress)] = rec
	}

	rec.AttemptCount++
	rec.LastAttemptAt = now
	// Every failure at or past the threshold re-extends the lockout,
	// matching the SQL upsert
	if rec.AttemptCount >= maxAttempts {
		until := now.Add(lockout)
		rec.BlockedUntil = &until
	}

	copied := *rec
	return &copied, nil
}

func (m *MockFailedLoginStore) Reset(ctx context.Context, email, ipAddress string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ResetErr != nil {
		return m.ResetErr
	}

	delete(m.records, m.key(email, ipAddress))
	return nil
}

// SeedRecord installs a record directly, bypassing the increment path
func (m *MockFailedLoginStore) SeedRecord(rec models.FailedLoginRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[m.key(rec.Email, rec.IPAddress)] = &rec
}

// RecordedEvent is an audit entry captured by MockAuditLogStore
type RecordedEvent struct {
	EventType string
	UserID    string
	Metadata  models.AuditMetadata
}

// MockAuditLogStore captures audit entries for assertions
type MockAuditLogStore struct {
	mu      sync.Mutex
	entries []RecordedEvent

	CreateErr error
}

func (m *MockAuditLogStore) Create(ctx context.Context, entry *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.entries = append(m.entries, RecordedEvent{
		EventType: entry.EventType,
		UserID:    entry.UserID,
		Metadata:  entry.Metadata,
	})
	return nil
}

func (m *MockAuditLogStore) Events() []RecordedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedEvent, len(m.entries))
	copy(out, m.entries)
	return out
}

// MockNotifier records notification calls
type MockNotifier struct {
	mu       sync.Mutex
	lockouts []string
	changes  []string
}

func (m *MockNotifier) NotifyLockout(ctx context.Context, email, ipAddress string, blockedUntil time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockouts = append(m.lockouts, email)
	return nil
}

func (m *MockNotifier) NotifyMFAChanged(ctx context.Context, email, event string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, event)
	return nil
}

func (m *MockNotifier) Lockouts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lockouts...)
}

func (m *MockNotifier) Changes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.changes...)
}

// MockMFAStore implements MFAStore in memory with the same compare-and-swap
// semantics as the SQL store.
type MockMFAStore struct {
	mu          sync.Mutex
	enrollments map[string]*models.MFAEnrollment
}

func NewMockMFAStore() *MockMFAStore {
	return &MockMFAStore{enrollments: make(map[string]*models.MFAEnrollment)}
}

func (m *MockMFAStore) GetByUserID(ctx context.Context, userID string) (*models.MFAEnrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.enrollments[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *e
	copied.BackupCodes = append([]models.BackupCodeEntry(nil), e.BackupCodes...)
	return &copied, nil
}

func (m *MockMFAStore) Upsert(ctx context.Context, enrollment *models.MFAEnrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *enrollment
	copied.BackupCodes = append([]models.BackupCodeEntry(nil), enrollment.BackupCodes...)
	copied.LastUsedAt = nil
	m.enrollments[enrollment.UserID] = &copied
	return nil
}

func (m *MockMFAStore) SetEnabled(ctx context.Context, userID string, enabled, verified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.enrollments[userID]
	if !ok {
		return models.ErrNotFound
	}
	e.Enabled = enabled
	e.Verified = verified
	return nil
}

func (m *MockMFAStore) UpdateLastUsedAt(ctx context.Context, userID string, usedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.enrollments[userID]
	if !ok {
		return models.ErrNotFound
	}
	e.LastUsedAt = &usedAt
	return nil
}

func (m *MockMFAStore) MarkBackupCodeUsed(ctx context.Context, userID string, index int, codeHash string, usedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.enrollments[userID]
	if !ok {
		return false, models.ErrNotFound
	}
	if index < 0 || index >= len(e.BackupCodes) {
		return false, nil
	}
	entry := &e.BackupCodes[index]
	if entry.CodeHash != codeHash || entry.UsedAt != nil {
		return false, nil
	}
	entry.UsedAt = &usedAt
	return true, nil
}

func (m *MockMFAStore) ReplaceBackupCodes(ctx context.Context, userID string, codes []models.BackupCodeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.enrollments[userID]
	if !ok {
		return models.ErrNotFound
	}
	e.BackupCodes = append([]models.BackupCodeEntry(nil), codes...)
	return nil
}

// MockPasswordVerifier accepts a single known password
type MockPasswordVerifier struct {
	Password string
}

func (m *MockPasswordVerifier) VerifyPassword(ctx context.Context, userID, password string) error {
	if password != m.Password {
		return models.ErrInvalidCredentials
	}
	return nil
}
