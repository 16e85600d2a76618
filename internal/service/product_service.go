package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stockroom/internal/domain"
	"stockroom/internal/feed"
	"stockroom/internal/inventory"
	"stockroom/internal/metrics"
	"stockroom/internal/notification"
	"stockroom/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductInput carries the caller-editable fields of a product
type ProductInput struct {
	Name     string
	Type     string
	Level    string
	Gender   string
	ImageURL string
	SchoolID string
	Variants []domain.Variant
}

// ProductService defines the catalog and stock status operations
type ProductService interface {
	Create(ctx context.Context, input ProductInput, actor domain.Actor) (*domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
	// Update replaces a product and raises a low_stock alert for every size
	// that dropped out of in-stock
	Update(ctx context.Context, id string, input ProductInput, actor domain.Actor) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	StockSummary(ctx context.Context) (inventory.Summary, error)
	ProductStock(ctx context.Context, id string) (inventory.ProductClassification, error)
	Watch(ctx context.Context, consumer string) (<-chan feed.Snapshot[domain.Product], feed.CancelFunc)
	Refresh(ctx context.Context)
	Close()
}

type productService struct {
	repo     repository.ProductRepository
	notifier Notifier
	registry *feed.Registry
	hub      *feed.Hub[feed.Snapshot[domain.Product]]
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time

	refreshMu sync.Mutex
}

// NewProductService creates a new instance of ProductService
func NewProductService(
	repo repository.ProductRepository,
	notifier Notifier,
	registry *feed.Registry,
	m *metrics.Metrics,
	logger *zap.Logger,
) ProductService {
	return &productService{
		repo:     repo,
		notifier: notifier,
		registry: registry,
		hub:      feed.NewHub[feed.Snapshot[domain.Product]](),
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *productService) Create(ctx context.Context, input ProductInput, actor domain.Actor) (*domain.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	product := &domain.Product{
		ID:        uuid.New().String(),
		Name:      input.Name,
		Type:      input.Type,
		Level:     input.Level,
		Gender:    input.Gender,
		ImageURL:  input.ImageURL,
		SchoolID:  input.SchoolID,
		Variants:  input.Variants,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if product.Variants == nil {
		product.Variants = []domain.Variant{}
	}

	if err := s.repo.Create(ctx, product); err != nil {
		s.logger.Error("Failed to create product", zap.Error(err), zap.String("name", input.Name))
		return nil, err
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID),
		zap.String("name", product.Name),
		zap.String("actor_id", actor.UserID()),
	)
	s.notify(ctx, notification.ProductCreated(product.Name, product.Type), actor)

	s.Refresh(ctx)
	return product, nil
}

func (s *productService) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *productService) List(ctx context.Context) ([]*domain.Product, error) {
	return s.repo.List(ctx, repository.SortOrderDesc)
}

func (s *productService) Update(ctx context.Context, id string, input ProductInput, actor domain.Actor) (*domain.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before := product.Clone()

	product.Name = input.Name
	product.Type = input.Type
	product.Level = input.Level
	product.Gender = input.Gender
	product.ImageURL = input.ImageURL
	product.SchoolID = input.SchoolID
	if input.Variants != nil {
		product.Variants = input.Variants
	}
	product.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product updated", zap.String("product_id", id), zap.String("actor_id", actor.UserID()))

	for _, alert := range degradedSizes(before, product) {
		s.notify(ctx, notification.LowStock(alert.label, alert.quantity), actor)
	}

	s.Refresh(ctx)
	return product, nil
}

func (s *productService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Product deleted", zap.String("product_id", id))
	s.Refresh(ctx)
	return nil
}

func (s *productService) StockSummary(ctx context.Context) (inventory.Summary, error) {
	products, err := s.repo.List(ctx, repository.SortOrderDesc)
	if err != nil {
		return inventory.Summary{}, err
	}

	summary := inventory.AggregateInventory(values(products))
	if s.metrics != nil {
		s.metrics.SetInventory(summary.Counts.InStock, summary.Counts.LowStock, summary.Counts.OutOfStock)
	}
	return summary, nil
}

func (s *productService) ProductStock(ctx context.Context, id string) (inventory.ProductClassification, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return inventory.ProductClassification{}, err
	}
	return inventory.ClassifyProduct(*product), nil
}

func (s *productService) Watch(ctx context.Context, consumer string) (<-chan feed.Snapshot[domain.Product], feed.CancelFunc) {
	if _, ok := s.hub.Last(); !ok {
		s.Refresh(ctx)
	}
	ch, cancel := s.hub.Subscribe()
	return ch, s.registry.Track(consumer, QueryProducts, cancel)
}

func (s *productService) Refresh(ctx context.Context) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	products, err := s.repo.List(ctx, repository.SortOrderDesc)
	if err != nil {
		s.logger.Error("Failed to refresh product list", zap.Error(err))
		s.hub.Publish(feed.Snapshot[domain.Product]{Err: err, At: s.now().UTC()})
		return
	}
	s.hub.Publish(feed.Snapshot[domain.Product]{Items: values(products), At: s.now().UTC()})
}

func (s *productService) Close() {
	s.hub.Close()
}

func (s *productService) notify(ctx context.Context, ev notification.Event, actor domain.Actor) {
	if _, err := s.notifier.Add(ctx, ev, actor); err != nil {
		s.logger.Error("Failed to record notification", zap.Error(err), zap.String("type", ev.Type))
	}
}

type sizeAlert struct {
	label    string
	quantity int
}

// degradedSizes lists sizes that were in stock (or absent) before and are low or out after
func degradedSizes(before, after *domain.Product) []sizeAlert {
	var alerts []sizeAlert
	for _, v := range after.Variants {
		prev := before.FindVariant(domain.VariantRef{VariantID: v.ID, Color: v.Color, VariantType: v.VariantType})
		for _, size := range v.Sizes {
			if inventory.SizeStatus(size) == inventory.InStock {
				continue
			}
			if prev != nil {
				if old := prev.FindSize(size.Size); old != nil && inventory.SizeStatus(*old) != inventory.InStock {
					continue
				}
			}
			alerts = append(alerts, sizeAlert{
				label:    stockLabel(after.Name, v.Color, v.VariantType, size.Size),
				quantity: inventory.OnHand(size),
			})
		}
	}
	return alerts
}

func stockLabel(productName, color, variantType, size string) string {
	return fmt.Sprintf("%s (%s %s, size %s)", productName, color, variantType, size)
}

func validateProductInput(input ProductInput) error {
	if input.Name == "" {
		return &inventory.ValidationError{Field: "name", Reason: "is required"}
	}
	for _, v := range input.Variants {
		for _, size := range v.Sizes {
			if size.Quantity < 0 {
				return &inventory.ValidationError{Field: "variants.sizes.quantity", Reason: "must not be negative"}
			}
		}
	}
	return nil
}
