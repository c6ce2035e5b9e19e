package checkin

import (
	"context"
	"errors"
	"testing"

	"github.com/checkin-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func resolver(d *testDeps, opts ...func(*ServiceDeps)) *service {
	return d.service(opts...).(*service)
}

func candidate(key string, similarity float64) domain.MatchCandidate {
	return domain.MatchCandidate{EnrollmentKey: key, Similarity: similarity}
}

func TestResolve_ExactLink(t *testing.T) {
	d := newTestDeps()
	reg := registeredReg("r1", "E1", "E1_Jane_Doe_1700000000000")
	other := registeredReg("r2", "E1", "E1_John_Smith_1700000000001")
	d.regs.On("ListByEvent", mock.Anything, "E1").Return([]domain.Registration{other, reg}, nil)

	got, err := resolver(d).resolve(context.Background(),
		[]domain.MatchCandidate{candidate("E1_Jane_Doe_1700000000000", 98)}, "E1")

	require.NoError(t, err)
	assert.Equal(t, "r1", got.RegistrationID)
}

func TestResolve_OtherEventCandidatesFiltered(t *testing.T) {
	d := newTestDeps()

	_, err := resolver(d).resolve(context.Background(),
		[]domain.MatchCandidate{
			candidate("E2_Jane_Doe_1700000000000", 99),
			candidate("E3_Jane_Doe_1700000000001", 97),
		}, "E1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoMatch))
	// No survivor means no reason to touch the store.
	d.regs.AssertNotCalled(t, "ListByEvent", mock.Anything, mock.Anything)
}

func TestResolve_MalformedKeysIgnored(t *testing.T) {
	d := newTestDeps()
	reg := registeredReg("r1", "E1", "E1_Jane_Doe_1700000000000")
	d.regs.On("ListByEvent", mock.Anything, "E1").Return([]domain.Registration{reg}, nil)

	got, err := resolver(d).resolve(context.Background(),
		[]domain.MatchCandidate{
			candidate("garbage", 99),
			candidate("E1_Jane_Doe_1700000000000", 95),
		}, "E1")

	require.NoError(t, err)
	assert.Equal(t, "r1", got.RegistrationID)
}

func TestResolve_NameFallback(t *testing.T) {
	d := newTestDeps()
	reg := domain.Registration{
		RegistrationID:   "r1",
		EventID:          "E1",
		FirstName:        "jane",
		LastName:         "DOE",
		PaymentStatus:    domain.PaymentPaid,
		AttendanceStatus: domain.AttendanceRegistered,
	}
	d.regs.On("ListByEvent", mock.Anything, "E1").Return([]domain.Registration{reg}, nil)

	got, err := resolver(d).resolve(context.Background(),
		[]domain.MatchCandidate{candidate("E1_Jane_Doe_1700000000000", 92)}, "E1")

	require.NoError(t, err)
	assert.Equal(t, "r1", got.RegistrationID)
}

func TestResolve_NameFallbackMultiTokenName(t *testing.T) {
	d := newTestDeps()
	reg := domain.Registration{
		RegistrationID:   "r1",
		EventID:          "E1",
		FirstName:        "Mary Jane",
		LastName:         "van der Berg",
		AttendanceStatus: domain.AttendanceRegistered,
	}
	d.regs.On("ListByEvent", mock.Anything, "E1").Return([]domain.Registration{reg}, nil)

	got, err := resolver(d).resolve(context.Background(),
		[]domain.MatchCandidate{candidate("E1_Mary_Jane_van_der_Berg_1700000000000", 94)}, "E1")

	require.NoError(t, err)
	assert.Equal(t, "r1", got.RegistrationID)
}

func TestResolve_NameFallbackDisabled(t *testing.T) {
	d := newTestDeps()
	reg := domain.Registration{
		RegistrationID:   "r1",
		EventID:          "E1",
		FirstName:        "Jane",
		LastName:         "Doe",
		AttendanceStatus: domain.AttendanceRegistered,
	}
	d.regs.On("ListByEvent", mock.Anything, "E1").Return([]domain.Registration{reg}, nil)

	_, err := resolver(d, func(deps *ServiceDeps) { deps.NameFallback = false }).resolve(
		context.Background(),
		[]domain.MatchCandidate{candidate("E1_Jane_Doe_1700000000000", 92)}, "E1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoMatch))
}

func TestResolve_LinkedWinsOverName(t *testing.T) {
	d := newTestDeps()
	linked := registeredReg("r1", "E1", "E1_Jane_Doe_1700000000000")
	unlinked := domain.Registration{
		RegistrationID:   "r2",
		EventID:          "E1",
		FirstName:        "Jane",
		LastName:         "Doe",
		AttendanceStatus: domain.AttendanceRegistered,
	}
	d.regs.On("ListByEvent", mock.Anything, "E1").Return([]domain.Registration{unlinked, linked}, nil)

	got, err := resolver(d).resolve(context.Background(),
		[]domain.MatchCandidate{candidate("E1_Jane_Doe_1700000000000", 96)}, "E1")

	require.NoError(t, err)
	assert.Equal(t, "r1", got.RegistrationID)
}

func TestResolve_AmbiguousLinks(t *testing.T) {
	d := newTestDeps()
	r1 := registeredReg("r1", "E1", "E1_Jane_Doe_1700000000000")
	r2 := registeredReg("r2", "E1", "E1_Jane_Doe_1700000000099")
	d.regs.On("ListByEvent", mock.Anything, "E1").Return([]domain.Registration{r1, r2}, nil)

	_, err := resolver(d).resolve(context.Background(),
		[]domain.MatchCandidate{
			candidate("E1_Jane_Doe_1700000000000", 96),
			candidate("E1_Jane_Doe_1700000000099", 93),
		}, "E1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAmbiguous))
}

func TestResolve_AmbiguousNames(t *testing.T) {
	d := newTestDeps()
	r1 := domain.Registration{RegistrationID: "r1", EventID: "E1", FirstName: "Jane", LastName: "Doe"}
	r2 := domain.Registration{RegistrationID: "r2", EventID: "E1", FirstName: "JANE", LastName: "doe"}
	d.regs.On("ListByEvent", mock.Anything, "E1").Return([]domain.Registration{r1, r2}, nil)

	_, err := resolver(d).resolve(context.Background(),
		[]domain.MatchCandidate{candidate("E1_Jane_Doe_1700000000000", 95)}, "E1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAmbiguous))
}

func TestResolve_NoRegistrationForSurvivor(t *testing.T) {
	d := newTestDeps()
	d.regs.On("ListByEvent", mock.Anything, "E1").Return([]domain.Registration{}, nil)

	_, err := resolver(d).resolve(context.Background(),
		[]domain.MatchCandidate{candidate("E1_Jane_Doe_1700000000000", 95)}, "E1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoMatch))
}

func TestResolve_ListError(t *testing.T) {
	d := newTestDeps()
	storeErr := errors.New("dynamo error")
	d.regs.On("ListByEvent", mock.Anything, "E1").Return(nil, storeErr)

	_, err := resolver(d).resolve(context.Background(),
		[]domain.MatchCandidate{candidate("E1_Jane_Doe_1700000000000", 95)}, "E1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, storeErr))
}
