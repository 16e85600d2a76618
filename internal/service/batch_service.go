package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"stockroom/internal/domain"
	"stockroom/internal/feed"
	"stockroom/internal/inventory"
	"stockroom/internal/notification"
	"stockroom/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BatchInput carries the caller-editable fields of a batch
type BatchInput struct {
	Name     string
	Type     string
	SchoolID string
	Status   domain.BatchStatus
	Items    []domain.BatchLineItem
}

// BatchService defines the batch inventory operations
type BatchService interface {
	Add(ctx context.Context, input BatchInput, actor domain.Actor) (*domain.Batch, error)
	Get(ctx context.Context, id string) (*domain.Batch, error)
	List(ctx context.Context) ([]*domain.Batch, error)
	ListBySchool(ctx context.Context, schoolID string) ([]*domain.Batch, error)
	ListByStatus(ctx context.Context, status domain.BatchStatus) ([]*domain.Batch, error)
	Update(ctx context.Context, id string, input BatchInput) (*domain.Batch, error)
	UpdateStatus(ctx context.Context, id string, status domain.BatchStatus) error
	// Delete removes a batch. The batch_deleted notification is only recorded
	// when an actor is given.
	Delete(ctx context.Context, id string, actor domain.Actor) error
	// Watch streams the batch list newest first. A consumer has at most one
	// live watch; watching again cancels the previous stream.
	Watch(ctx context.Context, consumer string) (<-chan feed.Snapshot[domain.Batch], feed.CancelFunc)
	Refresh(ctx context.Context)
	Close()
}

type batchService struct {
	repo     repository.BatchRepository
	notifier Notifier
	registry *feed.Registry
	hub      *feed.Hub[feed.Snapshot[domain.Batch]]
	logger   *zap.Logger
	now      func() time.Time

	refreshMu sync.Mutex
}

// NewBatchService creates a new instance of BatchService
func NewBatchService(repo repository.BatchRepository, notifier Notifier, registry *feed.Registry, logger *zap.Logger) BatchService {
	return &batchService{
		repo:     repo,
		notifier: notifier,
		registry: registry,
		hub:      feed.NewHub[feed.Snapshot[domain.Batch]](),
		logger:   logger,
		now:      time.Now,
	}
}

func (s *batchService) Add(ctx context.Context, input BatchInput, actor domain.Actor) (*domain.Batch, error) {
	if err := validateBatchInput(input); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	createdBy := actor.Email
	if createdBy == "" {
		createdBy = actor.Label()
	}

	batch := &domain.Batch{
		ID:            uuid.New().String(),
		Name:          input.Name,
		Type:          input.Type,
		SchoolID:      input.SchoolID,
		Status:        input.Status,
		Items:         input.Items,
		CreatedBy:     createdBy,
		CreatedByUID:  actor.ID,
		CreatedByRole: actor.Role,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if batch.Status == "" {
		batch.Status = domain.BatchStatusActive
	}
	if batch.Items == nil {
		batch.Items = []domain.BatchLineItem{}
	}
	batch.RecountTotals()

	if err := s.repo.Create(ctx, batch); err != nil {
		s.logger.Error("Failed to create batch", zap.Error(err), zap.String("name", input.Name))
		return nil, err
	}

	s.logger.Info("Batch created",
		zap.String("batch_id", batch.ID),
		zap.String("name", batch.Name),
		zap.Int("total_quantity", batch.TotalQuantity),
		zap.String("actor_id", actor.UserID()),
	)

	if _, err := s.notifier.Add(ctx, notification.BatchCreated(batch.Name, len(batch.Items)), actor); err != nil {
		s.logger.Error("Failed to record batch notification", zap.Error(err), zap.String("batch_id", batch.ID))
	}

	s.Refresh(ctx)
	return batch, nil
}

func (s *batchService) Get(ctx context.Context, id string) (*domain.Batch, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *batchService) List(ctx context.Context) ([]*domain.Batch, error) {
	return s.repo.List(ctx)
}

func (s *batchService) ListBySchool(ctx context.Context, schoolID string) ([]*domain.Batch, error) {
	return s.repo.ListBySchool(ctx, schoolID)
}

func (s *batchService) ListByStatus(ctx context.Context, status domain.BatchStatus) ([]*domain.Batch, error) {
	if !status.Valid() {
		return nil, &inventory.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown batch status %q", status)}
	}
	return s.repo.ListByStatus(ctx, status)
}

func (s *batchService) Update(ctx context.Context, id string, input BatchInput) (*domain.Batch, error) {
	if err := validateBatchInput(input); err != nil {
		return nil, err
	}

	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	batch.Name = input.Name
	batch.Type = input.Type
	batch.SchoolID = input.SchoolID
	if input.Status != "" {
		batch.Status = input.Status
	}
	if input.Items != nil {
		batch.Items = input.Items
	}
	batch.RecountTotals()
	batch.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, batch); err != nil {
		return nil, err
	}

	s.logger.Info("Batch updated", zap.String("batch_id", id))
	s.Refresh(ctx)
	return batch, nil
}

func (s *batchService) UpdateStatus(ctx context.Context, id string, status domain.BatchStatus) error {
	if !status.Valid() {
		return &inventory.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown batch status %q", status)}
	}
	if err := s.repo.UpdateStatus(ctx, id, status, s.now().UTC()); err != nil {
		return err
	}

	s.logger.Info("Batch status updated", zap.String("batch_id", id), zap.String("status", string(status)))
	s.Refresh(ctx)
	return nil
}

func (s *batchService) Delete(ctx context.Context, id string, actor domain.Actor) error {
	batch, err := s.repo.Delete(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrBatchNotFound) {
			s.logger.Error("Failed to delete batch", zap.Error(err), zap.String("batch_id", id))
		}
		return err
	}

	s.logger.Info("Batch deleted", zap.String("batch_id", id), zap.String("actor_id", actor.UserID()))

	if !actor.IsZero() {
		if _, err := s.notifier.Add(ctx, notification.BatchDeleted(batch.Name), actor); err != nil {
			s.logger.Error("Failed to record batch notification", zap.Error(err), zap.String("batch_id", id))
		}
	}

	s.Refresh(ctx)
	return nil
}

func (s *batchService) Watch(ctx context.Context, consumer string) (<-chan feed.Snapshot[domain.Batch], feed.CancelFunc) {
	if _, ok := s.hub.Last(); !ok {
		s.Refresh(ctx)
	}
	ch, cancel := s.hub.Subscribe()
	return ch, s.registry.Track(consumer, QueryBatches, cancel)
}

// Refresh loads the batch list and publishes it to every watcher. A failed
// load is published as a snapshot carrying the error.
func (s *batchService) Refresh(ctx context.Context) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	batches, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("Failed to refresh batch list", zap.Error(err))
		s.hub.Publish(feed.Snapshot[domain.Batch]{Err: err, At: s.now().UTC()})
		return
	}
	s.hub.Publish(feed.Snapshot[domain.Batch]{Items: values(batches), At: s.now().UTC()})
}

func (s *batchService) Close() {
	s.hub.Close()
}

func validateBatchInput(input BatchInput) error {
	if input.Name == "" {
		return &inventory.ValidationError{Field: "name", Reason: "is required"}
	}
	if input.Status != "" && !input.Status.Valid() {
		return &inventory.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown batch status %q", input.Status)}
	}
	for _, item := range input.Items {
		for _, size := range item.Sizes {
			if size.Quantity < 0 {
				return &inventory.ValidationError{Field: "items.sizes.quantity", Reason: "must not be negative"}
			}
		}
	}
	return nil
}
