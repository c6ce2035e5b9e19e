package checkin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/checkin-api/internal/domain"
	"github.com/checkin-api/internal/pkg/keylock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockMatcher struct{ mock.Mock }

func (m *mockMatcher) Search(ctx context.Context, image []byte, threshold float64) ([]domain.MatchCandidate, error) {
	args := m.Called(ctx, image, threshold)
	if c, _ := args.Get(0).([]domain.MatchCandidate); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockRegistrationStore struct{ mock.Mock }

func (m *mockRegistrationStore) Get(ctx context.Context, registrationID string) (*domain.Registration, error) {
	args := m.Called(ctx, registrationID)
	if r, _ := args.Get(0).(*domain.Registration); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRegistrationStore) ListByEvent(ctx context.Context, eventID string) ([]domain.Registration, error) {
	args := m.Called(ctx, eventID)
	if r, _ := args.Get(0).([]domain.Registration); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRegistrationStore) MarkAttended(ctx context.Context, registrationID string, at time.Time) error {
	return m.Called(ctx, registrationID, at).Error(0)
}

type mockEventStore struct{ mock.Mock }

func (m *mockEventStore) Get(ctx context.Context, eventID string) (*domain.Event, error) {
	args := m.Called(ctx, eventID)
	if e, _ := args.Get(0).(*domain.Event); e != nil {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAttemptStore struct{ mock.Mock }

func (m *mockAttemptStore) Put(ctx context.Context, a *domain.ValidationAttempt) error {
	return m.Called(ctx, a).Error(0)
}

type mockSMSSender struct{ mock.Mock }

func (m *mockSMSSender) SendSMS(ctx context.Context, to, message string) error {
	return m.Called(ctx, to, message).Error(0)
}

// --- helpers ---

type testDeps struct {
	matcher  *mockMatcher
	regs     *mockRegistrationStore
	events   *mockEventStore
	attempts *mockAttemptStore
	sms      *mockSMSSender
}

func newTestDeps() *testDeps {
	d := &testDeps{
		matcher:  &mockMatcher{},
		regs:     &mockRegistrationStore{},
		events:   &mockEventStore{},
		attempts: &mockAttemptStore{},
		sms:      nil,
	}
	// Attempts are best-effort; most tests only care that a write happens.
	d.attempts.On("Put", mock.Anything, mock.Anything).Return(nil).Maybe()
	return d
}

func (d *testDeps) service(opts ...func(*ServiceDeps)) Service {
	deps := ServiceDeps{
		Matcher:          d.matcher,
		RegistrationRepo: d.regs,
		EventRepo:        d.events,
		AttemptRepo:      d.attempts,
		Locks:            keylock.New(),
		Threshold:        85,
		NameFallback:     true,
	}
	if d.sms != nil {
		deps.SMSSender = d.sms
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return NewService(deps)
}

func registeredReg(id, eventID, key string) domain.Registration {
	return domain.Registration{
		RegistrationID:   id,
		EventID:          eventID,
		FirstName:        "Jane",
		LastName:         "Doe",
		EnrollmentKey:    &key,
		PaymentStatus:    domain.PaymentPaid,
		AttendanceStatus: domain.AttendanceRegistered,
	}
}

func ptr[T any](v T) *T { return &v }

// --- CheckInByFace tests ---

func TestCheckInByFace_HappyPath(t *testing.T) {
	d := newTestDeps()
	reg := registeredReg("r1", "E1", "E1_Jane_Doe_1700000000000")
	d.matcher.On("Search", mock.Anything, mock.Anything, 85.0).Return(
		[]domain.MatchCandidate{{EnrollmentKey: "E1_Jane_Doe_1700000000000", Similarity: 97.5}}, nil)
	d.regs.On("ListByEvent", mock.Anything, "E1").Return([]domain.Registration{reg}, nil)
	d.regs.On("Get", mock.Anything, "r1").Return(&reg, nil)
	d.events.On("Get", mock.Anything, "E1").Return(&domain.Event{EventID: "E1", Name: "GopherCon"}, nil)
	d.regs.On("MarkAttended", mock.Anything, "r1", mock.Anything).Return(nil)

	res, err := d.service().CheckInByFace(context.Background(), "E1", []byte("photo"))

	require.NoError(t, err)
	assert.Equal(t, domain.StatusValidated, res.Status)
	assert.Equal(t, "r1", res.RegistrationID)
	require.NotNil(t, res.ValidatedAt)
	d.regs.AssertExpectations(t)
}

func TestCheckInByFace_NoCandidates(t *testing.T) {
	d := newTestDeps()
	d.matcher.On("Search", mock.Anything, mock.Anything, 85.0).Return([]domain.MatchCandidate{}, nil)

	res, err := d.service().CheckInByFace(context.Background(), "E1", []byte("photo"))

	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, res.Status)
	assert.Equal(t, domain.ReasonNoMatch, res.Reason)
	d.regs.AssertNotCalled(t, "MarkAttended", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckInByFace_ImageRejected(t *testing.T) {
	d := newTestDeps()
	d.matcher.On("Search", mock.Anything, mock.Anything, 85.0).Return(nil,
		&domain.ImageRejectedError{Reason: domain.ImageNoFace})

	res, err := d.service().CheckInByFace(context.Background(), "E1", []byte("photo"))

	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, res.Status)
	assert.Equal(t, domain.ReasonImageRejected, res.Reason)
}

func TestCheckInByFace_ProviderUnavailable(t *testing.T) {
	d := newTestDeps()
	d.matcher.On("Search", mock.Anything, mock.Anything, 85.0).Return(nil,
		domain.ErrProviderUnavailable)

	res, err := d.service().CheckInByFace(context.Background(), "E1", []byte("photo"))

	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, res.Status)
	assert.Equal(t, domain.ReasonProviderUnavailable, res.Reason)
}

func TestCheckInByFace_PaymentRequired(t *testing.T) {
	d := newTestDeps()
	reg := registeredReg("r1", "E1", "E1_Jane_Doe_1700000000000")
	reg.PaymentStatus = domain.PaymentUnpaid
	d.matcher.On("Search", mock.Anything, mock.Anything, 85.0).Return(
		[]domain.MatchCandidate{{EnrollmentKey: "E1_Jane_Doe_1700000000000", Similarity: 91}}, nil)
	d.regs.On("ListByEvent", mock.Anything, "E1").Return([]domain.Registration{reg}, nil)
	d.regs.On("Get", mock.Anything, "r1").Return(&reg, nil)
	d.events.On("Get", mock.Anything, "E1").Return(&domain.Event{EventID: "E1", Ticketed: true}, nil)

	res, err := d.service().CheckInByFace(context.Background(), "E1", []byte("photo"))

	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, res.Status)
	assert.Equal(t, domain.ReasonPaymentRequired, res.Reason)
	d.regs.AssertNotCalled(t, "MarkAttended", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckInByFace_AlreadyValidated(t *testing.T) {
	d := newTestDeps()
	prior := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	reg := registeredReg("r1", "E1", "E1_Jane_Doe_1700000000000")
	reg.AttendanceStatus = domain.AttendanceAttended
	reg.ValidatedAt = &prior
	d.matcher.On("Search", mock.Anything, mock.Anything, 85.0).Return(
		[]domain.MatchCandidate{{EnrollmentKey: "E1_Jane_Doe_1700000000000", Similarity: 96}}, nil)
	d.regs.On("ListByEvent", mock.Anything, "E1").Return([]domain.Registration{reg}, nil)
	d.regs.On("Get", mock.Anything, "r1").Return(&reg, nil)
	d.events.On("Get", mock.Anything, "E1").Return(&domain.Event{EventID: "E1"}, nil)

	res, err := d.service().CheckInByFace(context.Background(), "E1", []byte("photo"))

	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, res.Status)
	assert.Equal(t, domain.ReasonAlreadyValidated, res.Reason)
	require.NotNil(t, res.ValidatedAt)
	assert.Equal(t, prior, *res.ValidatedAt)
	d.regs.AssertNotCalled(t, "MarkAttended", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckInByFace_RecordsAttemptOnRejection(t *testing.T) {
	d := newTestDeps()
	d.attempts.ExpectedCalls = nil
	d.matcher.On("Search", mock.Anything, mock.Anything, 85.0).Return(
		[]domain.MatchCandidate{{EnrollmentKey: "not a key", Similarity: 88}}, nil)
	d.attempts.On("Put", mock.Anything, mock.MatchedBy(func(a *domain.ValidationAttempt) bool {
		return a.EventID == "E1" &&
			a.Channel == domain.ChannelFace &&
			a.Outcome == "rejected:no_match" &&
			a.TopSimilarity == 88
	})).Return(nil).Once()

	res, err := d.service().CheckInByFace(context.Background(), "E1", []byte("photo"))

	require.NoError(t, err)
	assert.Equal(t, domain.ReasonNoMatch, res.Reason)
	d.attempts.AssertExpectations(t)
}

func TestCheckInByFace_SendsConfirmationSMS(t *testing.T) {
	d := newTestDeps()
	d.sms = &mockSMSSender{}
	reg := registeredReg("r1", "E1", "E1_Jane_Doe_1700000000000")
	reg.Phone = ptr("+15550001111")
	d.matcher.On("Search", mock.Anything, mock.Anything, 85.0).Return(
		[]domain.MatchCandidate{{EnrollmentKey: "E1_Jane_Doe_1700000000000", Similarity: 99}}, nil)
	d.regs.On("ListByEvent", mock.Anything, "E1").Return([]domain.Registration{reg}, nil)
	d.regs.On("Get", mock.Anything, "r1").Return(&reg, nil)
	d.events.On("Get", mock.Anything, "E1").Return(&domain.Event{EventID: "E1", Name: "GopherCon"}, nil)
	d.regs.On("MarkAttended", mock.Anything, "r1", mock.Anything).Return(nil)
	d.sms.On("SendSMS", mock.Anything, "+15550001111", mock.Anything).Return(nil)

	res, err := d.service().CheckInByFace(context.Background(), "E1", []byte("photo"))

	require.NoError(t, err)
	assert.Equal(t, domain.StatusValidated, res.Status)
	d.sms.AssertExpectations(t)
}

// --- CheckInByCode tests ---

func TestCheckInByCode_HappyPath(t *testing.T) {
	d := newTestDeps()
	reg := registeredReg("r1", "E1", "E1_Jane_Doe_1700000000000")
	d.regs.On("Get", mock.Anything, "r1").Return(&reg, nil)
	d.events.On("Get", mock.Anything, "E1").Return(&domain.Event{EventID: "E1"}, nil)
	d.regs.On("MarkAttended", mock.Anything, "r1", mock.Anything).Return(nil)

	res, err := d.service().CheckInByCode(context.Background(), "E1", "r1")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusValidated, res.Status)
	assert.Equal(t, "r1", res.RegistrationID)
	d.regs.AssertExpectations(t)
}

func TestCheckInByCode_UnknownRegistration(t *testing.T) {
	d := newTestDeps()
	d.regs.On("Get", mock.Anything, "nope").Return(nil, domain.ErrNotFound)

	res, err := d.service().CheckInByCode(context.Background(), "E1", "nope")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, res.Status)
	assert.Equal(t, domain.ReasonUnknownRegistration, res.Reason)
}

func TestCheckInByCode_WrongEvent(t *testing.T) {
	d := newTestDeps()
	reg := registeredReg("r1", "E2", "E2_Jane_Doe_1700000000000")
	d.regs.On("Get", mock.Anything, "r1").Return(&reg, nil)

	res, err := d.service().CheckInByCode(context.Background(), "E1", "r1")

	require.NoError(t, err)
	assert.Equal(t, domain.ReasonUnknownRegistration, res.Reason)
	d.regs.AssertNotCalled(t, "MarkAttended", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckInByCode_EventIDComparedCanonically(t *testing.T) {
	d := newTestDeps()
	reg := registeredReg("r1", " E1 ", "E1_Jane_Doe_1700000000000")
	d.regs.On("Get", mock.Anything, "r1").Return(&reg, nil)
	d.events.On("Get", mock.Anything, " E1 ").Return(&domain.Event{EventID: "E1"}, nil)
	d.regs.On("MarkAttended", mock.Anything, "r1", mock.Anything).Return(nil)

	res, err := d.service().CheckInByCode(context.Background(), "E1", "r1")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusValidated, res.Status)
}

func TestCheckInByCode_EmptyCode(t *testing.T) {
	d := newTestDeps()

	res, err := d.service().CheckInByCode(context.Background(), "E1", "   ")

	require.NoError(t, err)
	assert.Equal(t, domain.ReasonUnknownRegistration, res.Reason)
	d.regs.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

// --- concurrency ---

// fakeRegistrationStore behaves like the real conditional write: the first
// MarkAttended wins, later ones fail with ErrAlreadyValidated.
type fakeRegistrationStore struct {
	mu     sync.Mutex
	reg    domain.Registration
	writes int
}

func (f *fakeRegistrationStore) Get(ctx context.Context, registrationID string) (*domain.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if registrationID != f.reg.RegistrationID {
		return nil, domain.ErrNotFound
	}
	cp := f.reg
	return &cp, nil
}

func (f *fakeRegistrationStore) ListByEvent(ctx context.Context, eventID string) ([]domain.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return []domain.Registration{f.reg}, nil
}

func (f *fakeRegistrationStore) MarkAttended(ctx context.Context, registrationID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reg.AttendanceStatus != domain.AttendanceRegistered {
		return domain.ErrAlreadyValidated
	}
	f.reg.AttendanceStatus = domain.AttendanceAttended
	f.reg.ValidatedAt = &at
	f.writes++
	return nil
}

func TestCheckInByCode_ConcurrentAttemptsValidateOnce(t *testing.T) {
	d := newTestDeps()
	store := &fakeRegistrationStore{reg: registeredReg("r1", "E1", "E1_Jane_Doe_1700000000000")}
	d.events.On("Get", mock.Anything, "E1").Return(&domain.Event{EventID: "E1"}, nil)
	svc := d.service(func(deps *ServiceDeps) { deps.RegistrationRepo = store })

	const attempts = 16
	results := make([]*domain.CheckinResult, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.CheckInByCode(context.Background(), "E1", "r1")
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	validated := 0
	for _, res := range results {
		require.NotNil(t, res)
		switch res.Status {
		case domain.StatusValidated:
			validated++
		case domain.StatusRejected:
			assert.Equal(t, domain.ReasonAlreadyValidated, res.Reason)
			assert.NotNil(t, res.ValidatedAt)
		}
	}
	assert.Equal(t, 1, validated)
	assert.Equal(t, 1, store.writes)
}

func TestCheckInByCode_LostRaceOutsideLock(t *testing.T) {
	d := newTestDeps()
	prior := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	reg := registeredReg("r1", "E1", "E1_Jane_Doe_1700000000000")
	attended := reg
	attended.AttendanceStatus = domain.AttendanceAttended
	attended.ValidatedAt = &prior
	d.regs.On("Get", mock.Anything, "r1").Return(&reg, nil).Once()
	d.events.On("Get", mock.Anything, "E1").Return(&domain.Event{EventID: "E1"}, nil)
	d.regs.On("MarkAttended", mock.Anything, "r1", mock.Anything).Return(domain.ErrAlreadyValidated)
	d.regs.On("Get", mock.Anything, "r1").Return(&attended, nil)

	res, err := d.service().CheckInByCode(context.Background(), "E1", "r1")

	require.NoError(t, err)
	assert.Equal(t, domain.ReasonAlreadyValidated, res.Reason)
	require.NotNil(t, res.ValidatedAt)
	assert.Equal(t, prior, *res.ValidatedAt)
}

func TestCheckInByCode_PropagatesStoreError(t *testing.T) {
	d := newTestDeps()
	storeErr := errors.New("dynamo error")
	d.regs.On("Get", mock.Anything, "r1").Return(nil, storeErr)

	_, err := d.service().CheckInByCode(context.Background(), "E1", "r1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, storeErr))
}
