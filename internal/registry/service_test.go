package registry

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coverlane/coverlane/common/errors"
	"github.com/coverlane/coverlane/internal/database"
	"github.com/coverlane/coverlane/internal/riskengine"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := database.NewSQLiteDB()
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	svc, err := NewService(zap.NewNop(), db)
	require.NoError(t, err)
	return svc
}

func TestBootstrap(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	authority := uuid.New()

	state, err := svc.Bootstrap(ctx, authority, 500)
	require.NoError(t, err)
	require.Equal(t, authority, state.Authority)
	require.Equal(t, uint64(500), state.ProtocolFeeBps)

	// Bootstrap runs exactly once.
	_, err = svc.Bootstrap(ctx, uuid.New(), 100)
	require.True(t, errors.Is(err, errors.CodeDuplicateRegistration))

	loaded, err := svc.State(ctx)
	require.NoError(t, err)
	require.Equal(t, state.ID, loaded.ID)
}

func TestBootstrapRejectsExcessiveFee(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Bootstrap(context.Background(), uuid.New(), 10001)
	require.True(t, errors.Is(err, errors.CodeInvalidAmount))
}

func TestStateBeforeBootstrap(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.State(context.Background())
	require.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestRegisterProtocol(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Bootstrap(ctx, uuid.New(), 500)
	require.NoError(t, err)

	authority := uuid.New()
	info, err := svc.RegisterProtocol(ctx, authority, "lendhub", 10_000_000)
	require.NoError(t, err)
	require.Equal(t, "lendhub", info.Name)
	require.Equal(t, uint8(50), info.RiskScore, "new protocols start at medium risk")
	require.True(t, info.IsActive)

	// One protocol per authority.
	_, err = svc.RegisterProtocol(ctx, authority, "lendhub-two", 1)
	require.True(t, errors.Is(err, errors.CodeDuplicateRegistration))

	infos, err := svc.ListProtocols(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
}

func TestSetProtocolFee(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	authority := uuid.New()
	_, err := svc.Bootstrap(ctx, authority, 500)
	require.NoError(t, err)

	require.NoError(t, svc.SetProtocolFee(ctx, authority, 250))
	state, err := svc.State(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(250), state.ProtocolFeeBps)

	err = svc.SetProtocolFee(ctx, uuid.New(), 100)
	require.True(t, errors.Is(err, errors.CodeUnauthorized))
}

func TestSetProtocolActive(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	authority := uuid.New()
	_, err := svc.Bootstrap(ctx, authority, 500)
	require.NoError(t, err)

	info, err := svc.RegisterProtocol(ctx, uuid.New(), "pausable", 1_000_000)
	require.NoError(t, err)

	// Governance pauses, the protocol's own authority may not.
	err = svc.SetProtocolActive(ctx, info.Authority, info.ID, false)
	require.True(t, errors.Is(err, errors.CodeUnauthorized))

	require.NoError(t, svc.SetProtocolActive(ctx, authority, info.ID, false))
	loaded, err := svc.GetProtocol(ctx, info.ID)
	require.NoError(t, err)
	require.False(t, loaded.IsActive)
}

func TestUpdateRisk(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	stateAuthority := uuid.New()
	_, err := svc.Bootstrap(ctx, stateAuthority, 500)
	require.NoError(t, err)

	protocolAuthority := uuid.New()
	info, err := svc.RegisterProtocol(ctx, protocolAuthority, "scored", 10_000_000)
	require.NoError(t, err)

	code := riskengine.CodeRiskParams{AuditCount: 3, BugBountySize: 100_000, ComplexityScore: 40}
	econ := riskengine.EconomicRiskParams{LiquidityDepth: 2_000_000, ConcentrationRisk: 30}
	oper := riskengine.OperationalRiskParams{GovernanceCount: 4, AdminCount: 2}

	score, err := svc.UpdateRisk(ctx, protocolAuthority, info.ID, code, econ, oper)
	require.NoError(t, err)
	require.Equal(t, riskengine.Score(info.TVLUSD, code, econ, oper), score)

	loaded, err := svc.GetProtocol(ctx, info.ID)
	require.NoError(t, err)
	require.Equal(t, score, loaded.RiskScore)

	// The state authority may also update.
	_, err = svc.UpdateRisk(ctx, stateAuthority, info.ID, code, econ, oper)
	require.NoError(t, err)

	// A stranger may not.
	_, err = svc.UpdateRisk(ctx, uuid.New(), info.ID, code, econ, oper)
	require.True(t, errors.Is(err, errors.CodeUnauthorized))
}

func TestUpdateRiskRejectsOutOfRangeParams(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	authority := uuid.New()
	_, err := svc.Bootstrap(ctx, authority, 500)
	require.NoError(t, err)
	info, err := svc.RegisterProtocol(ctx, authority, "bounds", 1)
	require.NoError(t, err)

	_, err = svc.UpdateRisk(ctx, authority, info.ID,
		riskengine.CodeRiskParams{ComplexityScore: 101},
		riskengine.EconomicRiskParams{},
		riskengine.OperationalRiskParams{})
	require.True(t, errors.Is(err, errors.CodeInvalidRiskParams))

	_, err = svc.UpdateRisk(ctx, authority, info.ID,
		riskengine.CodeRiskParams{},
		riskengine.EconomicRiskParams{ConcentrationRisk: 101},
		riskengine.OperationalRiskParams{})
	require.True(t, errors.Is(err, errors.CodeInvalidRiskParams))
}
