package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"registration-system/config"
	"registration-system/internal/status"
	"registration-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLedger is an in-memory RegistrationLedger with the same uniqueness
// guarantee the real unique index provides.
type fakeLedger struct {
	mu     sync.Mutex
	events map[string]*models.Event
	regs   map[string]*models.Registration
	nextID int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		events: map[string]*models.Event{},
		regs:   map[string]*models.Registration{},
	}
}

func (l *fakeLedger) addEvent(event *models.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events[event.ID] = event
}

func (l *fakeLedger) FindEvent(eventID string) (*models.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	event, ok := l.events[eventID]
	if !ok {
		return nil, status.ErrEventNotFound
	}
	copied := *event
	return &copied, nil
}

func (l *fakeLedger) FindRegistration(userID, eventID string) (*models.Registration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, reg := range l.regs {
		if reg.UserID == userID && reg.EventID == eventID {
			copied := *reg
			return &copied, nil
		}
	}
	return nil, status.ErrRegistrationNotFound
}

func (l *fakeLedger) FindRegistrationById(id string) (*models.Registration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	reg, ok := l.regs[id]
	if !ok {
		return nil, status.ErrRegistrationNotFound
	}
	copied := *reg
	return &copied, nil
}

func (l *fakeLedger) CreateRegistration(userID, eventID, refCode string) (*models.Registration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, reg := range l.regs {
		if reg.UserID == userID && reg.EventID == eventID {
			return nil, status.ErrAlreadyRegistered
		}
	}

	l.nextID++
	reg := &models.Registration{
		ID:        fmt.Sprintf("reg-%d", l.nextID),
		UserID:    userID,
		EventID:   eventID,
		RefCode:   refCode,
		CreatedAt: time.Now(),
	}
	l.regs[reg.ID] = reg

	copied := *reg
	return &copied, nil
}

func (l *fakeLedger) DeleteRegistration(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.regs[id]; !ok {
		return status.ErrRegistrationNotFound
	}
	delete(l.regs, id)
	return nil
}

func (l *fakeLedger) SetApproval(id string, approved *bool) (*models.Registration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	reg, ok := l.regs[id]
	if !ok {
		return nil, status.ErrRegistrationNotFound
	}
	reg.Approved = approved

	copied := *reg
	return &copied, nil
}

func (l *fakeLedger) SetCheckedIn(id string, value bool) (*models.Registration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	reg, ok := l.regs[id]
	if !ok {
		return nil, status.ErrRegistrationNotFound
	}
	reg.CheckedIn = value
	if value {
		now := time.Now()
		reg.CheckedInAt = &now
	} else {
		reg.CheckedInAt = nil
	}

	copied := *reg
	return &copied, nil
}

func (l *fakeLedger) ListByEvent(eventID string) ([]*models.Registration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := []*models.Registration{}
	for _, reg := range l.regs {
		if reg.EventID == eventID {
			copied := *reg
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (l *fakeLedger) ListByUser(userID string) ([]*models.Registration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := []*models.Registration{}
	for _, reg := range l.regs {
		if reg.UserID == userID {
			copied := *reg
			result = append(result, &copied)
		}
	}
	return result, nil
}

func setupTestWorkflow() (*RegistrationService, *fakeLedger) {
	ledger := newFakeLedger()
	tokens := NewCheckinTokenService(&config.Config{CheckinTokenTTL: 5 * time.Minute})
	return NewRegistrationService(ledger, tokens), ledger
}

func futureEvent(id string) *models.Event {
	return &models.Event{
		ID:      id,
		Title:   "Community Meetup",
		StartAt: time.Now().Add(24 * time.Hour),
		Status:  "publish",
	}
}

func TestRegister_Success(t *testing.T) {
	service, ledger := setupTestWorkflow()
	ledger.addEvent(futureEvent("event-1"))

	reg, err := service.Register("user-1", "event-1")

	require.NoError(t, err)
	assert.NotEmpty(t, reg.ID)
	assert.Nil(t, reg.Approved)
	assert.False(t, reg.CheckedIn)
	assert.NotEmpty(t, reg.RefCode)
	assert.False(t, reg.CreatedAt.IsZero())
}

func TestRegister_EventNotFound(t *testing.T) {
	service, _ := setupTestWorkflow()

	_, err := service.Register("user-1", "missing-event")

	assert.ErrorIs(t, err, status.ErrEventNotFound)
}

func TestRegister_EventInPast(t *testing.T) {
	service, ledger := setupTestWorkflow()
	ledger.addEvent(&models.Event{
		ID:      "past-event",
		Title:   "Yesterday's Meetup",
		StartAt: time.Now().Add(-time.Hour),
	})

	_, err := service.Register("user-1", "past-event")

	assert.ErrorIs(t, err, status.ErrEventInPast)
}

func TestRegister_Duplicate(t *testing.T) {
	service, ledger := setupTestWorkflow()
	ledger.addEvent(futureEvent("event-1"))

	_, err := service.Register("user-1", "event-1")
	require.NoError(t, err)

	_, err = service.Register("user-1", "event-1")
	assert.ErrorIs(t, err, status.ErrAlreadyRegistered)

	// A different user can still register.
	_, err = service.Register("user-2", "event-1")
	assert.NoError(t, err)
}

func TestRegister_ConcurrentSamePair(t *testing.T) {
	service, ledger := setupTestWorkflow()
	ledger.addEvent(futureEvent("event-1"))

	const attempts = 100

	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.Register("user-1", "event-1")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, status.ErrAlreadyRegistered)
		}
	}
	assert.Equal(t, 1, successes)

	regs, err := ledger.ListByEvent("event-1")
	require.NoError(t, err)
	assert.Len(t, regs, 1)
}

func TestCancel_NotFound(t *testing.T) {
	service, _ := setupTestWorkflow()

	err := service.Cancel("user-1", "event-1")

	assert.ErrorIs(t, err, status.ErrRegistrationNotFound)
}

func TestCancel_BlockedAfterCheckin(t *testing.T) {
	service, ledger := setupTestWorkflow()
	ledger.addEvent(futureEvent("event-1"))

	reg, err := service.Register("user-1", "event-1")
	require.NoError(t, err)

	approved := true
	_, err = service.SetApproval(reg.ID, &approved)
	require.NoError(t, err)

	token := service.Tokens.Issue("event-1")
	_, err = service.CheckIn("user-1", "event-1", token)
	require.NoError(t, err)

	err = service.Cancel("user-1", "event-1")
	assert.ErrorIs(t, err, status.ErrAlreadyCheckedIn)

	// Admin delete is not guarded.
	assert.NoError(t, service.AdminDelete(reg.ID))
}

func TestSetApproval_Transitions(t *testing.T) {
	service, ledger := setupTestWorkflow()
	ledger.addEvent(futureEvent("event-1"))

	reg, err := service.Register("user-1", "event-1")
	require.NoError(t, err)

	approved := true
	rejected := false

	// pending -> approved
	updated, err := service.SetApproval(reg.ID, &approved)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, updated.ApprovalState())

	// approved -> rejected
	updated, err = service.SetApproval(reg.ID, &rejected)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalRejected, updated.ApprovalState())

	// rejected -> pending again
	updated, err = service.SetApproval(reg.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalPending, updated.ApprovalState())
}

func TestSetApproval_Idempotent(t *testing.T) {
	service, ledger := setupTestWorkflow()
	ledger.addEvent(futureEvent("event-1"))

	reg, err := service.Register("user-1", "event-1")
	require.NoError(t, err)

	approved := true
	first, err := service.SetApproval(reg.ID, &approved)
	require.NoError(t, err)

	second, err := service.SetApproval(reg.ID, &approved)
	require.NoError(t, err)

	assert.Equal(t, first.ApprovalState(), second.ApprovalState())
	assert.Equal(t, first.CheckedIn, second.CheckedIn)
}

func TestSetApproval_NotFound(t *testing.T) {
	service, _ := setupTestWorkflow()

	approved := true
	_, err := service.SetApproval("missing", &approved)

	assert.ErrorIs(t, err, status.ErrRegistrationNotFound)
}

func TestCheckIn_GuardsInIsolation(t *testing.T) {
	approved := true
	rejected := false

	tests := []struct {
		name     string
		approval *bool
		prepare  func(service *RegistrationService, regID string)
		token    func(service *RegistrationService) string
		expected error
	}{
		{
			name:     "Pending registration",
			approval: nil,
			token:    func(s *RegistrationService) string { return s.Tokens.Issue("event-1") },
			expected: status.ErrNotApproved,
		},
		{
			name:     "Rejected registration",
			approval: &rejected,
			token:    func(s *RegistrationService) string { return s.Tokens.Issue("event-1") },
			expected: status.ErrNotApproved,
		},
		{
			name:     "Already checked in",
			approval: &approved,
			prepare: func(s *RegistrationService, regID string) {
				_, err := s.Ledger.SetCheckedIn(regID, true)
				if err != nil {
					panic(err)
				}
			},
			token:    func(s *RegistrationService) string { return s.Tokens.Issue("event-1") },
			expected: status.ErrAlreadyCheckedIn,
		},
		{
			name:     "Token for another event",
			approval: &approved,
			token:    func(s *RegistrationService) string { return s.Tokens.Issue("event-2") },
			expected: status.ErrTokenEventMismatch,
		},
		{
			name:     "Garbage token",
			approval: &approved,
			token:    func(s *RegistrationService) string { return "not-a-token" },
			expected: status.ErrMalformedToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, ledger := setupTestWorkflow()
			ledger.addEvent(futureEvent("event-1"))

			reg, err := service.Register("user-1", "event-1")
			require.NoError(t, err)

			_, err = service.SetApproval(reg.ID, tt.approval)
			require.NoError(t, err)

			if tt.prepare != nil {
				tt.prepare(service, reg.ID)
			}

			_, err = service.CheckIn("user-1", "event-1", tt.token(service))
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestCheckIn_MissingRegistration(t *testing.T) {
	service, ledger := setupTestWorkflow()
	ledger.addEvent(futureEvent("event-1"))

	token := service.Tokens.Issue("event-1")
	_, err := service.CheckIn("user-1", "event-1", token)

	assert.ErrorIs(t, err, status.ErrRegistrationNotFound)
}

func TestRevokeCheckIn_Idempotent(t *testing.T) {
	service, ledger := setupTestWorkflow()
	ledger.addEvent(futureEvent("event-1"))

	reg, err := service.Register("user-1", "event-1")
	require.NoError(t, err)

	// Revoking a never-checked-in registration is a no-op success.
	updated, err := service.RevokeCheckIn(reg.ID)
	require.NoError(t, err)
	assert.False(t, updated.CheckedIn)
	assert.Nil(t, updated.CheckedInAt)
}

func TestWorkflow_ApproveCheckinRevoke(t *testing.T) {
	service, ledger := setupTestWorkflow()
	ledger.addEvent(futureEvent("event-1"))

	// User registers: approval is pending.
	reg, err := service.Register("user-1", "event-1")
	require.NoError(t, err)
	assert.Nil(t, reg.Approved)

	// Admin approves.
	approved := true
	reg, err = service.SetApproval(reg.ID, &approved)
	require.NoError(t, err)
	assert.True(t, reg.IsApproved())

	// Display issues a token; user checks in within the window.
	token := service.Tokens.Issue("event-1")
	reg, err = service.CheckIn("user-1", "event-1", token)
	require.NoError(t, err)
	assert.True(t, reg.CheckedIn)
	require.NotNil(t, reg.CheckedInAt)

	// Second check-in with the same valid token is rejected.
	_, err = service.CheckIn("user-1", "event-1", token)
	assert.ErrorIs(t, err, status.ErrAlreadyCheckedIn)

	// Admin revokes the check-in; the timestamp is cleared.
	reg, err = service.RevokeCheckIn(reg.ID)
	require.NoError(t, err)
	assert.False(t, reg.CheckedIn)
	assert.Nil(t, reg.CheckedInAt)

	// Approval survives the revoke, so the user may check in again.
	reg, err = service.CheckIn("user-1", "event-1", token)
	require.NoError(t, err)
	assert.True(t, reg.CheckedIn)
}

func TestWorkflow_CancelAndReRegister(t *testing.T) {
	service, ledger := setupTestWorkflow()
	ledger.addEvent(futureEvent("event-1"))

	first, err := service.Register("user-1", "event-1")
	require.NoError(t, err)

	err = service.Cancel("user-1", "event-1")
	require.NoError(t, err)

	_, err = service.GetRegistration(first.ID)
	assert.ErrorIs(t, err, status.ErrRegistrationNotFound)

	// The pair is free again.
	second, err := service.Register("user-1", "event-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Nil(t, second.Approved)
}
