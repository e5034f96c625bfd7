package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coverlane/coverlane/common/errors"
	"github.com/coverlane/coverlane/internal/pricing"
	"github.com/coverlane/coverlane/internal/riskengine"
	"github.com/coverlane/coverlane/pkg/models"
)

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		errors.Abort(c, errors.New(errors.CodeInvalidRequest, "invalid identifier %q", c.Param("id")))
		return uuid.Nil, false
	}
	return id, true
}

func pathTier(c *gin.Context) (models.PoolType, bool) {
	raw, err := strconv.ParseUint(c.Param("tier"), 10, 8)
	if err != nil {
		errors.Abort(c, errors.New(errors.CodeInvalidPoolType, "invalid pool tier %q", c.Param("tier")))
		return 0, false
	}
	tier := models.PoolType(raw)
	if !tier.IsValid() {
		errors.Abort(c, errors.New(errors.CodeInvalidPoolType, "unknown pool tier %d", raw))
		return 0, false
	}
	return tier, true
}

func (s *Server) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		errors.Abort(c, errors.New(errors.CodeInvalidRequest, "invalid request body: %v", err))
		return false
	}
	if err := s.validator.Struct(req); err != nil {
		errors.Abort(c, errors.New(errors.CodeInvalidRequest, "request validation failed: %v", err))
		return false
	}
	return true
}

// --- control plane ---

type bootstrapRequest struct {
	ProtocolFeeBps uint64 `json:"protocol_fee_bps" validate:"max=10000"`
}

func (s *Server) bootstrap(c *gin.Context) {
	var req bootstrapRequest
	if !s.bind(c, &req) {
		return
	}
	state, err := s.registry.Bootstrap(c.Request.Context(), caller(c), req.ProtocolFeeBps)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, state)
}

func (s *Server) getState(c *gin.Context) {
	state, err := s.registry.State(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, state)
}

type setFeeRequest struct {
	FeeBps uint64 `json:"fee_bps" validate:"max=10000"`
}

func (s *Server) setProtocolFee(c *gin.Context) {
	var req setFeeRequest
	if !s.bind(c, &req) {
		return
	}
	if err := s.registry.SetProtocolFee(c.Request.Context(), caller(c), req.FeeBps); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- protocols ---

type registerProtocolRequest struct {
	Name   string `json:"name" validate:"required,min=1,max=64"`
	TVLUSD uint64 `json:"tvl_usd"`
}

func (s *Server) registerProtocol(c *gin.Context) {
	var req registerProtocolRequest
	if !s.bind(c, &req) {
		return
	}
	info, err := s.registry.RegisterProtocol(c.Request.Context(), caller(c), req.Name, req.TVLUSD)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (s *Server) listProtocols(c *gin.Context) {
	infos, err := s.registry.ListProtocols(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, infos)
}

func (s *Server) getProtocol(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	info, err := s.registry.GetProtocol(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, info)
}

type updateRiskRequest struct {
	Code        riskengine.CodeRiskParams        `json:"code"`
	Economic    riskengine.EconomicRiskParams    `json:"economic"`
	Operational riskengine.OperationalRiskParams `json:"operational"`
}

func (s *Server) updateRisk(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateRiskRequest
	if !s.bind(c, &req) {
		return
	}
	score, err := s.registry.UpdateRisk(c.Request.Context(), caller(c), id, req.Code, req.Economic, req.Operational)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"risk_score": score})
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (s *Server) setProtocolActive(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req setActiveRequest
	if !s.bind(c, &req) {
		return
	}
	if err := s.registry.SetProtocolActive(c.Request.Context(), caller(c), id, req.Active); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// quotePremium is the off-system quote endpoint; it runs the same pure
// function policy creation enforces.
func (s *Server) quotePremium(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	coverage, err := strconv.ParseUint(c.Query("coverage"), 10, 64)
	if err != nil {
		errors.Abort(c, errors.New(errors.CodeInvalidRequest, "invalid coverage %q", c.Query("coverage")))
		return
	}
	days, err := strconv.ParseUint(c.Query("days"), 10, 16)
	if err != nil {
		errors.Abort(c, errors.New(errors.CodeInvalidRequest, "invalid days %q", c.Query("days")))
		return
	}

	info, err := s.registry.GetProtocol(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	premium, err := pricing.QuotePremium(info.RiskScore, coverage, uint16(days))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"risk_score": info.RiskScore,
		"rate_bps":   pricing.PremiumRateBps(info.RiskScore),
		"premium":    premium,
	})
}

// --- capital pools ---

type initializePoolRequest struct {
	PoolType     uint8  `json:"pool_type" validate:"required"`
	YieldRateBps uint64 `json:"yield_rate_bps" validate:"max=10000"`
	TokenMint    string `json:"token_mint" validate:"required,max=16"`
}

func (s *Server) initializePool(c *gin.Context) {
	var req initializePoolRequest
	if !s.bind(c, &req) {
		return
	}
	pool, err := s.capital.InitializePool(c.Request.Context(), caller(c), models.PoolType(req.PoolType), req.YieldRateBps, req.TokenMint)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, pool)
}

func (s *Server) getPool(c *gin.Context) {
	tier, ok := pathTier(c)
	if !ok {
		return
	}
	pool, err := s.capital.GetPool(c.Request.Context(), tier)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, pool)
}

type amountRequest struct {
	Amount uint64 `json:"amount" validate:"required,gt=0"`
}

func (s *Server) provideCapital(c *gin.Context) {
	tier, ok := pathTier(c)
	if !ok {
		return
	}
	var req amountRequest
	if !s.bind(c, &req) {
		return
	}
	if err := s.capital.ProvideCapital(c.Request.Context(), caller(c), tier, req.Amount); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) withdrawCapital(c *gin.Context) {
	tier, ok := pathTier(c)
	if !ok {
		return
	}
	var req amountRequest
	if !s.bind(c, &req) {
		return
	}
	if err := s.capital.WithdrawCapital(c.Request.Context(), caller(c), tier, req.Amount); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) accruedYield(c *gin.Context) {
	tier, ok := pathTier(c)
	if !ok {
		return
	}
	yield, err := s.capital.AccruedYield(c.Request.Context(), caller(c), tier)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accrued_yield": yield})
}

// --- policies ---

type createPolicyRequest struct {
	ProtocolID     uuid.UUID `json:"protocol_id" validate:"required"`
	CoverageAmount uint64    `json:"coverage_amount" validate:"required,gt=0"`
	PremiumAmount  uint64    `json:"premium_amount"`
	DurationDays   uint16    `json:"duration_days" validate:"required,gt=0"`
}

func (s *Server) createPolicy(c *gin.Context) {
	var req createPolicyRequest
	if !s.bind(c, &req) {
		return
	}
	p, err := s.policies.CreatePolicy(c.Request.Context(), caller(c), req.ProtocolID, req.CoverageAmount, req.PremiumAmount, req.DurationDays)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) getPolicy(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := s.policies.GetPolicy(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// --- claims ---

type submitClaimRequest struct {
	PolicyID uuid.UUID `json:"policy_id" validate:"required"`
	Amount   uint64    `json:"amount" validate:"required,gt=0"`
	Evidence string    `json:"evidence" validate:"max=512"`
}

func (s *Server) submitClaim(c *gin.Context) {
	var req submitClaimRequest
	if !s.bind(c, &req) {
		return
	}
	claim, err := s.claims.SubmitClaim(c.Request.Context(), caller(c), req.PolicyID, req.Amount, req.Evidence)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, claim)
}

type resolveClaimRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes" validate:"max=512"`
}

func (s *Server) resolveClaim(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req resolveClaimRequest
	if !s.bind(c, &req) {
		return
	}
	claim, err := s.claims.ResolveClaim(c.Request.Context(), caller(c), id, req.Approve, req.Notes)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, claim)
}

func (s *Server) getClaim(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	claim, err := s.claims.GetClaim(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, claim)
}

// --- alerts ---

type createAlertRequest struct {
	AnomalyType uint8  `json:"anomaly_type" validate:"required"`
	Severity    uint8  `json:"severity" validate:"max=100"`
	Details     string `json:"details" validate:"max=512"`
}

func (s *Server) createAlert(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req createAlertRequest
	if !s.bind(c, &req) {
		return
	}
	alert, err := s.alerts.CreateAlert(c.Request.Context(), caller(c), id, models.AnomalyType(req.AnomalyType), req.Severity, req.Details)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, alert)
}

type confirmAlertRequest struct {
	Confirmed bool   `json:"confirmed"`
	Notes     string `json:"notes" validate:"max=512"`
}

func (s *Server) confirmAlert(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req confirmAlertRequest
	if !s.bind(c, &req) {
		return
	}
	if err := s.alerts.ConfirmAlert(c.Request.Context(), caller(c), id, req.Confirmed, req.Notes); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listAlerts(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	out, err := s.alerts.ListAlerts(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- ledger ---

func (s *Server) getBalance(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		errors.Abort(c, errors.New(errors.CodeInvalidRequest, "token query parameter is required"))
		return
	}
	balance, err := s.ledger.Balance(c.Request.Context(), caller(c), token)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "balance": balance})
}

type depositRequest struct {
	Token  string `json:"token" validate:"required,max=16"`
	Amount uint64 `json:"amount" validate:"required,gt=0"`
}

func (s *Server) deposit(c *gin.Context) {
	var req depositRequest
	if !s.bind(c, &req) {
		return
	}
	if err := s.ledger.Deposit(c.Request.Context(), caller(c), req.Token, req.Amount); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
