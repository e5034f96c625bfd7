// Package alerts records exploit anomaly flags per protocol. Alerts are
// informational only; nothing here moves funds or gates coverage.
package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/coverlane/coverlane/common/errors"
	"github.com/coverlane/coverlane/internal/registry"
	"github.com/coverlane/coverlane/pkg/metrics"
	"github.com/coverlane/coverlane/pkg/models"
)

// Publisher receives every created alert. The websocket feed implements it.
type Publisher interface {
	PublishAlert(alert *models.ExploitAlert)
}

// AlertService defines the exploit-alert operations.
type AlertService interface {
	CreateAlert(ctx context.Context, caller, protocolID uuid.UUID, anomalyType models.AnomalyType, severity uint8, details string) (*models.ExploitAlert, error)
	ConfirmAlert(ctx context.Context, caller, alertID uuid.UUID, confirmed bool, notes string) error
	ListAlerts(ctx context.Context, protocolID uuid.UUID) ([]*models.ExploitAlert, error)
}

// Service implements AlertService.
type Service struct {
	logger    *zap.Logger
	db        *gorm.DB
	publisher Publisher
}

// NewService creates a new alert service. publisher may be nil.
func NewService(logger *zap.Logger, db *gorm.DB, publisher Publisher) (*Service, error) {
	return &Service{logger: logger, db: db, publisher: publisher}, nil
}

// CreateAlert appends an alert for a protocol, keyed by the protocol's
// monotonic alert sequence. Only the protocol's authority may raise alerts
// for it.
func (s *Service) CreateAlert(ctx context.Context, caller, protocolID uuid.UUID, anomalyType models.AnomalyType, severity uint8, details string) (*models.ExploitAlert, error) {
	if !anomalyType.IsValid() {
		return nil, errors.InvalidRiskParams("unknown anomaly type %d", anomalyType)
	}
	if severity > 100 {
		return nil, errors.InvalidRiskParams("severity %d exceeds 100", severity)
	}

	var alert *models.ExploitAlert
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var protocol models.ProtocolInfo
		if err := tx.Where("id = ?", protocolID).First(&protocol).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.NotFound("protocol %s not found", protocolID)
			}
			return fmt.Errorf("failed to find protocol: %w", err)
		}
		if caller != protocol.Authority {
			return errors.Unauthorized("caller may not raise alerts for protocol %s", protocolID)
		}

		// Sequence bump and alert insert commit together, so the
		// (protocol, seq) key stays collision-free.
		protocol.AlertSeq++
		protocol.UpdatedAt = time.Now()
		if err := tx.Save(&protocol).Error; err != nil {
			return fmt.Errorf("failed to save protocol: %w", err)
		}

		alert = &models.ExploitAlert{
			ID:          uuid.New(),
			ProtocolID:  protocolID,
			Seq:         protocol.AlertSeq,
			AnomalyType: anomalyType,
			Severity:    severity,
			Details:     details,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
		if err := tx.Create(alert).Error; err != nil {
			return fmt.Errorf("failed to create alert: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.AlertsCreated.WithLabelValues(anomalyType.String()).Inc()
	s.logger.Warn("exploit alert created",
		zap.String("protocol_id", protocolID.String()),
		zap.String("anomaly", anomalyType.String()),
		zap.Uint8("severity", severity))

	if s.publisher != nil {
		s.publisher.PublishAlert(alert)
	}
	return alert, nil
}

// ConfirmAlert sets the confirmation flag and notes on an alert, once. The
// state authority or the protocol's own authority may confirm.
func (s *Service) ConfirmAlert(ctx context.Context, caller, alertID uuid.UUID, confirmed bool, notes string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state, err := registry.LoadState(tx)
		if err != nil {
			return err
		}

		var alert models.ExploitAlert
		if err := tx.Where("id = ?", alertID).First(&alert).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.NotFound("alert %s not found", alertID)
			}
			return fmt.Errorf("failed to find alert: %w", err)
		}

		var protocol models.ProtocolInfo
		if err := tx.Where("id = ?", alert.ProtocolID).First(&protocol).Error; err != nil {
			return fmt.Errorf("failed to find protocol: %w", err)
		}
		if caller != state.Authority && caller != protocol.Authority {
			return errors.Unauthorized("caller may not confirm alert %s", alertID)
		}

		alert.IsConfirmed = confirmed
		alert.ResolutionNotes = notes
		alert.UpdatedAt = time.Now()
		if err := tx.Save(&alert).Error; err != nil {
			return fmt.Errorf("failed to save alert: %w", err)
		}
		return nil
	})
}

// ListAlerts returns a protocol's alerts in sequence order.
func (s *Service) ListAlerts(ctx context.Context, protocolID uuid.UUID) ([]*models.ExploitAlert, error) {
	var out []*models.ExploitAlert
	if err := s.db.WithContext(ctx).Where("protocol_id = ?", protocolID).Order("seq ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return out, nil
}
