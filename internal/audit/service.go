package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stanton-energie/heizoel-backend/internal/orders"
	"github.com/stanton-energie/heizoel-backend/internal/orderstream"
	"github.com/stanton-energie/heizoel-backend/pkg/config"
	"github.com/stanton-energie/heizoel-backend/pkg/db/models"
	"github.com/stanton-energie/heizoel-backend/pkg/enums"
	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
	"github.com/stanton-energie/heizoel-backend/pkg/metrics"
	"github.com/stanton-energie/heizoel-backend/pkg/outbox"
	"github.com/stanton-energie/heizoel-backend/pkg/outbox/payloads"
)

// StatusChange requests one lifecycle transition. OldStatus is the status the
// caller believes the order is in; a stale value is rejected.
type StatusChange struct {
	OrderID   uuid.UUID
	OldStatus enums.OrderStatus
	NewStatus enums.OrderStatus
	Notes     *string
	// Origin tags the live event so the writing viewer can skip its own echo.
	Origin string
}

// NoteInput appends one operator note.
type NoteInput struct {
	OrderID uuid.UUID
	Message string
	Origin  string
}

// Service records status transitions and notes and publishes them live.
type Service interface {
	RecordCreated(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.OrderStatusHistory, error)
	AddStatusChange(ctx context.Context, change StatusChange) (*models.OrderStatusHistory, error)
	AddNote(ctx context.Context, input NoteInput) (*models.OrderNote, error)
	History(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
	Notes(ctx context.Context, orderID uuid.UUID) ([]models.OrderNote, error)
	OpenTrail(ctx context.Context, orderID uuid.UUID) (*Trail, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the audit service.
type ServiceParams struct {
	Repo    Repository
	Orders  orders.Repository
	Tx      txRunner
	Outbox  outbox.Emitter
	Broker  orderstream.Broker
	Config  config.AuditConfig
	Logger  *logger.Logger
	Metrics *metrics.OrderMetrics
}

type service struct {
	repo    Repository
	orders  orders.Repository
	tx      txRunner
	outbox  outbox.Emitter
	broker  orderstream.Broker
	actor   string
	policy  string
	merge   string
	logg    *logger.Logger
	metrics *metrics.OrderMetrics
}

// NewService constructs the audit service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("audit repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Broker == nil:
		return nil, fmt.Errorf("order stream broker required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}

	cfg := params.Config
	if strings.TrimSpace(cfg.Actor) == "" {
		cfg.Actor = "admin"
	}
	if cfg.TransitionPolicy == "" {
		cfg.TransitionPolicy = config.TransitionPolicyFree
	}
	if cfg.MergePolicy == "" {
		cfg.MergePolicy = config.MergePolicyAppend
	}
	if cfg.TransitionPolicy != config.TransitionPolicyFree && cfg.TransitionPolicy != config.TransitionPolicyStrict {
		return nil, fmt.Errorf("unknown transition policy %q", cfg.TransitionPolicy)
	}
	if cfg.MergePolicy != config.MergePolicyAppend && cfg.MergePolicy != config.MergePolicyUpsert {
		return nil, fmt.Errorf("unknown merge policy %q", cfg.MergePolicy)
	}

	return &service{
		repo:    params.Repo,
		orders:  params.Orders,
		tx:      params.Tx,
		outbox:  params.Outbox,
		broker:  params.Broker,
		actor:   strings.TrimSpace(cfg.Actor),
		policy:  cfg.TransitionPolicy,
		merge:   cfg.MergePolicy,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// RecordCreated writes the first history entry (null -> order status) inside
// the caller's checkout transaction. The live event is left to the caller
// because nobody can be viewing an order that is not committed yet.
func (s *service) RecordCreated(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.OrderStatusHistory, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if order == nil {
		return nil, fmt.Errorf("order required")
	}
	entry := &models.OrderStatusHistory{
		ID:        uuid.New(),
		OrderID:   order.ID,
		NewStatus: order.Status,
		ChangedBy: s.actor,
	}
	if err := s.repo.WithTx(tx).InsertHistory(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) AddStatusChange(ctx context.Context, change StatusChange) (*models.OrderStatusHistory, error) {
	if change.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !change.NewStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown target status").
			WithDetails(map[string]any{"new_status": change.NewStatus})
	}
	notes := trimmedNotes(change.Notes)

	var (
		entry *models.OrderStatusHistory
		order *models.Order
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		current, err := ordersRepo.FindByIDForUpdate(ctx, change.OrderID)
		if err != nil {
			return err
		}
		if current == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if current.Status != change.OldStatus {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed since it was loaded").
				WithDetails(map[string]any{"current_status": current.Status, "old_status": change.OldStatus})
		}
		if err := s.checkTransition(current.Status, change.NewStatus); err != nil {
			return err
		}

		old := current.Status
		entry = &models.OrderStatusHistory{
			ID:        uuid.New(),
			OrderID:   current.ID,
			OldStatus: &old,
			NewStatus: change.NewStatus,
			ChangedBy: s.actor,
			Notes:     notes,
		}
		if err := s.repo.WithTx(tx).InsertHistory(ctx, entry); err != nil {
			return err
		}
		if err := ordersRepo.UpdateStatus(ctx, current.ID, change.NewStatus); err != nil {
			return err
		}
		current.Status = change.NewStatus
		order = current

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   current.ID,
			Actor:         &outbox.ActorRef{Name: s.actor, Role: string(enums.AdminRoleAdmin)},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     current.ID,
				OrderNumber: current.OrderNumber,
				HistoryID:   entry.ID,
				OldStatus:   entry.OldStatus,
				NewStatus:   entry.NewStatus,
				ChangedBy:   entry.ChangedBy,
				Notes:       entry.Notes,
			},
		})
	})
	if err != nil {
		return nil, translate(err, "record status change")
	}

	ctx = s.logg.WithOrderNumber(ctx, order.OrderNumber)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"old_status": change.OldStatus,
		"new_status": change.NewStatus,
	}), "order status changed")
	s.metrics.IncTransition(string(change.NewStatus))
	s.publish(ctx, orderstream.Event{Kind: orderstream.KindHistory, OrderID: entry.OrderID, Origin: change.Origin, History: entry})
	return entry, nil
}

func (s *service) checkTransition(current, next enums.OrderStatus) error {
	if s.policy != config.TransitionPolicyStrict {
		return nil
	}
	expected, ok := current.Next()
	if !ok || expected != next {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "status transition not allowed").
			WithDetails(map[string]any{"from": current, "to": next})
	}
	return nil
}

func (s *service) AddNote(ctx context.Context, input NoteInput) (*models.OrderNote, error) {
	message := strings.TrimSpace(input.Message)
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "note message required")
	}

	note := &models.OrderNote{
		ID:        uuid.New(),
		OrderID:   input.OrderID,
		Message:   message,
		CreatedBy: s.actor,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.WithTx(tx).FindByID(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if err := s.repo.WithTx(tx).InsertNote(ctx, note); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderNoteAdded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{Name: s.actor, Role: string(enums.AdminRoleAdmin)},
			Data: payloads.OrderNoteAddedEvent{
				OrderID:   order.ID,
				NoteID:    note.ID,
				CreatedBy: note.CreatedBy,
			},
		})
	})
	if err != nil {
		return nil, translate(err, "record note")
	}

	s.publish(ctx, orderstream.Event{Kind: orderstream.KindNote, OrderID: note.OrderID, Origin: input.Origin, Note: note})
	return note, nil
}

func (s *service) History(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	entries, err := s.repo.ListHistory(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load status history")
	}
	return entries, nil
}

func (s *service) Notes(ctx context.Context, orderID uuid.UUID) ([]models.OrderNote, error) {
	notes, err := s.repo.ListNotes(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notes")
	}
	return notes, nil
}

// publish runs after commit; a failed live push only costs viewers a reload.
func (s *service) publish(ctx context.Context, event orderstream.Event) {
	if err := s.broker.Publish(ctx, event); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "event_kind", string(event.Kind)), "publish live order event", err)
	}
}

func translate(err error, action string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func trimmedNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	v := strings.TrimSpace(*notes)
	if v == "" {
		return nil
	}
	return &v
}
