// Package registry is the protocol control plane: the bootstrap singleton
// state, protocol registration, governance toggles and risk score updates.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/coverlane/coverlane/common/errors"
	"github.com/coverlane/coverlane/internal/riskengine"
	"github.com/coverlane/coverlane/pkg/metrics"
	"github.com/coverlane/coverlane/pkg/models"
)

// RegistryService defines the protocol control-plane operations.
type RegistryService interface {
	Bootstrap(ctx context.Context, authority uuid.UUID, protocolFeeBps uint64) (*models.ProtocolState, error)
	State(ctx context.Context) (*models.ProtocolState, error)
	RegisterProtocol(ctx context.Context, authority uuid.UUID, name string, tvlUSD uint64) (*models.ProtocolInfo, error)
	GetProtocol(ctx context.Context, protocolID uuid.UUID) (*models.ProtocolInfo, error)
	ListProtocols(ctx context.Context) ([]*models.ProtocolInfo, error)
	SetProtocolFee(ctx context.Context, caller uuid.UUID, feeBps uint64) error
	SetProtocolActive(ctx context.Context, caller, protocolID uuid.UUID, active bool) error
	UpdateRisk(ctx context.Context, caller, protocolID uuid.UUID, code riskengine.CodeRiskParams, econ riskengine.EconomicRiskParams, oper riskengine.OperationalRiskParams) (uint8, error)
}

// Service implements RegistryService.
type Service struct {
	logger *zap.Logger
	db     *gorm.DB
}

// NewService creates a new registry service.
func NewService(logger *zap.Logger, db *gorm.DB) (*Service, error) {
	return &Service{logger: logger, db: db}, nil
}

// LoadState fetches the singleton protocol state inside tx.
func LoadState(tx *gorm.DB) (*models.ProtocolState, error) {
	var state models.ProtocolState
	if err := tx.First(&state).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NotFound("protocol state not bootstrapped")
		}
		return nil, fmt.Errorf("failed to load protocol state: %w", err)
	}
	return &state, nil
}

// Bootstrap creates the singleton ProtocolState and ProtocolRegistry. It may
// run exactly once for the lifetime of the deployment.
func (s *Service) Bootstrap(ctx context.Context, authority uuid.UUID, protocolFeeBps uint64) (*models.ProtocolState, error) {
	if protocolFeeBps > 10000 {
		return nil, errors.InvalidAmount("protocol fee %d exceeds 10000 bps", protocolFeeBps)
	}

	var state *models.ProtocolState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.ProtocolState{}).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check protocol state: %w", err)
		}
		if count > 0 {
			return errors.New(errors.CodeDuplicateRegistration, "protocol state already bootstrapped")
		}

		now := time.Now()
		state = &models.ProtocolState{
			ID:             uuid.New(),
			Authority:      authority,
			ProtocolFeeBps: protocolFeeBps,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Create(state).Error; err != nil {
			return fmt.Errorf("failed to create protocol state: %w", err)
		}

		reg := &models.ProtocolRegistry{
			ID:            uuid.New(),
			ProtocolCount: 0,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.Create(reg).Error; err != nil {
			return fmt.Errorf("failed to create protocol registry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("protocol state bootstrapped",
		zap.String("authority", authority.String()),
		zap.Uint64("protocol_fee_bps", protocolFeeBps))
	return state, nil
}

// State returns the singleton protocol state.
func (s *Service) State(ctx context.Context) (*models.ProtocolState, error) {
	return LoadState(s.db.WithContext(ctx))
}

// RegisterProtocol registers a protocol under the given authority with a
// default medium risk score, and bumps the registry counter.
func (s *Service) RegisterProtocol(ctx context.Context, authority uuid.UUID, name string, tvlUSD uint64) (*models.ProtocolInfo, error) {
	if name == "" {
		return nil, errors.New(errors.CodeInvalidRiskParams, "protocol name must not be empty")
	}

	var info *models.ProtocolInfo
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.ProtocolInfo{}).Where("authority = ?", authority).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check protocol: %w", err)
		}
		if count > 0 {
			return errors.New(errors.CodeDuplicateRegistration, "authority %s already registered a protocol", authority)
		}

		now := time.Now()
		info = &models.ProtocolInfo{
			ID:        uuid.New(),
			Authority: authority,
			Name:      name,
			TVLUSD:    tvlUSD,
			RiskScore: 50, // default medium risk until the first assessment
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Create(info).Error; err != nil {
			return fmt.Errorf("failed to create protocol: %w", err)
		}

		var reg models.ProtocolRegistry
		if err := tx.First(&reg).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.NotFound("protocol registry not bootstrapped")
			}
			return fmt.Errorf("failed to load registry: %w", err)
		}
		reg.ProtocolCount++
		reg.UpdatedAt = now
		if err := tx.Save(&reg).Error; err != nil {
			return fmt.Errorf("failed to save registry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ProtocolsRegistered.Inc()
	s.logger.Info("protocol registered",
		zap.String("protocol_id", info.ID.String()),
		zap.String("name", name),
		zap.Uint64("tvl_usd", tvlUSD))
	return info, nil
}

// GetProtocol fetches a protocol by id.
func (s *Service) GetProtocol(ctx context.Context, protocolID uuid.UUID) (*models.ProtocolInfo, error) {
	var info models.ProtocolInfo
	if err := s.db.WithContext(ctx).Where("id = ?", protocolID).First(&info).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NotFound("protocol %s not found", protocolID)
		}
		return nil, fmt.Errorf("failed to find protocol: %w", err)
	}
	return &info, nil
}

// ListProtocols returns all registered protocols.
func (s *Service) ListProtocols(ctx context.Context) ([]*models.ProtocolInfo, error) {
	var infos []*models.ProtocolInfo
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&infos).Error; err != nil {
		return nil, fmt.Errorf("failed to list protocols: %w", err)
	}
	return infos, nil
}

// SetProtocolFee updates the protocol fee. Only the state authority may call it.
func (s *Service) SetProtocolFee(ctx context.Context, caller uuid.UUID, feeBps uint64) error {
	if feeBps > 10000 {
		return errors.InvalidAmount("protocol fee %d exceeds 10000 bps", feeBps)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state, err := LoadState(tx)
		if err != nil {
			return err
		}
		if state.Authority != caller {
			return errors.Unauthorized("caller is not the protocol authority")
		}
		state.ProtocolFeeBps = feeBps
		state.UpdatedAt = time.Now()
		if err := tx.Save(state).Error; err != nil {
			return fmt.Errorf("failed to save protocol state: %w", err)
		}
		return nil
	})
}

// SetProtocolActive toggles a protocol's coverage eligibility. Only the state
// authority (governance) may call it.
func (s *Service) SetProtocolActive(ctx context.Context, caller, protocolID uuid.UUID, active bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state, err := LoadState(tx)
		if err != nil {
			return err
		}
		if state.Authority != caller {
			return errors.Unauthorized("caller is not the protocol authority")
		}

		var info models.ProtocolInfo
		if err := tx.Where("id = ?", protocolID).First(&info).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.NotFound("protocol %s not found", protocolID)
			}
			return fmt.Errorf("failed to find protocol: %w", err)
		}
		info.IsActive = active
		info.UpdatedAt = time.Now()
		if err := tx.Save(&info).Error; err != nil {
			return fmt.Errorf("failed to save protocol: %w", err)
		}
		return nil
	})
}

// UpdateRisk recomputes and stores a protocol's composite risk score. The
// caller must be the protocol's own authority or the state authority.
func (s *Service) UpdateRisk(ctx context.Context, caller, protocolID uuid.UUID, code riskengine.CodeRiskParams, econ riskengine.EconomicRiskParams, oper riskengine.OperationalRiskParams) (uint8, error) {
	if code.ComplexityScore > 100 {
		return 0, errors.InvalidRiskParams("complexity score %d exceeds 100", code.ComplexityScore)
	}
	if econ.ConcentrationRisk > 100 {
		return 0, errors.InvalidRiskParams("concentration risk %d exceeds 100", econ.ConcentrationRisk)
	}

	var score uint8
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state, err := LoadState(tx)
		if err != nil {
			return err
		}

		var info models.ProtocolInfo
		if err := tx.Where("id = ?", protocolID).First(&info).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.NotFound("protocol %s not found", protocolID)
			}
			return fmt.Errorf("failed to find protocol: %w", err)
		}

		if caller != info.Authority && caller != state.Authority {
			return errors.Unauthorized("caller may not update risk for protocol %s", protocolID)
		}

		score = riskengine.Score(info.TVLUSD, code, econ, oper)
		info.RiskScore = score
		info.UpdatedAt = time.Now()
		if err := tx.Save(&info).Error; err != nil {
			return fmt.Errorf("failed to save protocol: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.RiskUpdates.Inc()
	s.logger.Info("protocol risk updated",
		zap.String("protocol_id", protocolID.String()),
		zap.Uint8("risk_score", score))
	return score, nil
}
