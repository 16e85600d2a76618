package transport

import (
	"stockroom/internal/domain"
	"stockroom/internal/inventory"
	"stockroom/internal/service"

	"github.com/shopspring/decimal"
)

// SizeStockRequest is one size of a product variant
type SizeStockRequest struct {
	Size         string `json:"size" validate:"required"`
	Quantity     int    `json:"quantity" validate:"gte=0"`
	ReorderLevel *int   `json:"reorderLevel,omitempty" validate:"omitempty,gte=0"`
}

// VariantRequest is one color / cut combination of a product
type VariantRequest struct {
	ID                  string             `json:"id,omitempty"`
	Color               string             `json:"color"`
	VariantType         string             `json:"variantType"`
	DefaultReorderLevel *int               `json:"defaultReorderLevel,omitempty" validate:"omitempty,gte=0"`
	Sizes               []SizeStockRequest `json:"sizes" validate:"dive"`
}

// ProductRequest is the create / update payload for a product
type ProductRequest struct {
	Name     string           `json:"name" validate:"required,max=200"`
	Type     string           `json:"type" validate:"max=100"`
	Level    string           `json:"level"`
	Gender   string           `json:"gender"`
	ImageURL string           `json:"imageUrl" validate:"omitempty,url"`
	SchoolID string           `json:"schoolId"`
	Variants []VariantRequest `json:"variants" validate:"dive"`
}

func (req ProductRequest) input() service.ProductInput {
	in := service.ProductInput{
		Name:     req.Name,
		Type:     req.Type,
		Level:    req.Level,
		Gender:   req.Gender,
		ImageURL: req.ImageURL,
		SchoolID: req.SchoolID,
	}
	if req.Variants != nil {
		in.Variants = make([]domain.Variant, len(req.Variants))
		for i, v := range req.Variants {
			sizes := make([]domain.SizeStock, len(v.Sizes))
			for j, s := range v.Sizes {
				sizes[j] = domain.SizeStock{Size: s.Size, Quantity: s.Quantity, ReorderLevel: s.ReorderLevel}
			}
			in.Variants[i] = domain.Variant{
				ID:                  v.ID,
				Color:               v.Color,
				VariantType:         v.VariantType,
				DefaultReorderLevel: v.DefaultReorderLevel,
				Sizes:               sizes,
			}
		}
	}
	return in
}

// BatchSizeRequest is the quantity of one size in a batch line item
type BatchSizeRequest struct {
	Size     string `json:"size" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

// BatchItemRequest is one product configuration received in a batch
type BatchItemRequest struct {
	VariantType string             `json:"variantType" validate:"required"`
	Color       string             `json:"color" validate:"required"`
	Price       decimal.Decimal    `json:"price"`
	Sizes       []BatchSizeRequest `json:"sizes" validate:"dive"`
}

// BatchRequest is the create / update payload for a batch
type BatchRequest struct {
	Name     string             `json:"name" validate:"required,max=200"`
	Type     string             `json:"type"`
	SchoolID string             `json:"schoolId"`
	Status   string             `json:"status" validate:"omitempty,batch_status"`
	Items    []BatchItemRequest `json:"items" validate:"dive"`
}

func (req BatchRequest) input() service.BatchInput {
	in := service.BatchInput{
		Name:     req.Name,
		Type:     req.Type,
		SchoolID: req.SchoolID,
		Status:   domain.BatchStatus(req.Status),
	}
	if req.Items != nil {
		in.Items = make([]domain.BatchLineItem, len(req.Items))
		for i, item := range req.Items {
			sizes := make([]domain.BatchSize, len(item.Sizes))
			for j, s := range item.Sizes {
				sizes[j] = domain.BatchSize{Size: s.Size, Quantity: s.Quantity}
			}
			in.Items[i] = domain.BatchLineItem{
				VariantType: item.VariantType,
				Color:       item.Color,
				Price:       item.Price,
				Sizes:       sizes,
			}
		}
	}
	return in
}

// BatchStatusRequest changes the lifecycle state of a batch
type BatchStatusRequest struct {
	Status string `json:"status" validate:"required,batch_status"`
}

// ReorderRequest moves stock from a batch into a product variant.
// Quantity is checked by the transfer rules so the caller sees the same
// message whether it came over HTTP or not.
type ReorderRequest struct {
	ProductID   string `json:"productId" validate:"required"`
	VariantID   string `json:"variantId"`
	Color       string `json:"color"`
	VariantType string `json:"variantType"`
	BatchID     string `json:"batchId" validate:"required"`
	Size        string `json:"size" validate:"required"`
	Quantity    int    `json:"quantity"`
}

func (req ReorderRequest) transfer() inventory.TransferRequest {
	return inventory.TransferRequest{
		Variant: domain.VariantRef{
			ProductID:   req.ProductID,
			VariantID:   req.VariantID,
			Color:       req.Color,
			VariantType: req.VariantType,
		},
		BatchID:  req.BatchID,
		Size:     req.Size,
		Quantity: req.Quantity,
	}
}

// NotificationSettingsRequest switches live notification delivery on or off
type NotificationSettingsRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}
