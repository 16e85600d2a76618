// Command batchdump prints the structure of stored batches as indented JSON.
// It reads the same environment as the API server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"stockroom/internal/config"
	"stockroom/internal/database"
	"stockroom/internal/domain"
	"stockroom/internal/logger"
	"stockroom/internal/repository"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type sizeView struct {
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

type itemView struct {
	VariantType string     `json:"variantType"`
	Color       string     `json:"color"`
	Price       string     `json:"price,omitempty"`
	Remaining   int        `json:"remaining"`
	Sizes       []sizeView `json:"sizes"`
}

type batchView struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	SchoolID      string     `json:"schoolId,omitempty"`
	Status        string     `json:"status"`
	TotalQuantity int        `json:"totalQuantity"`
	TotalValue    string     `json:"totalValue"`
	CreatedBy     string     `json:"createdBy"`
	CreatedAt     time.Time  `json:"createdAt"`
	Items         []itemView `json:"items"`
}

func view(b *domain.Batch) batchView {
	v := batchView{
		ID:            b.ID,
		Name:          b.Name,
		Type:          b.Type,
		SchoolID:      b.SchoolID,
		Status:        string(b.Status),
		TotalQuantity: b.TotalQuantity,
		TotalValue:    b.TotalValue.StringFixed(2),
		CreatedBy:     b.CreatedBy,
		CreatedAt:     b.CreatedAt,
		Items:         make([]itemView, 0, len(b.Items)),
	}
	for i := range b.Items {
		item := &b.Items[i]
		iv := itemView{
			VariantType: item.VariantType,
			Color:       item.Color,
			Remaining:   item.Remaining(),
			Sizes:       make([]sizeView, 0, len(item.Sizes)),
		}
		if !item.Price.IsZero() {
			iv.Price = item.Price.StringFixed(2)
		}
		for _, s := range item.Sizes {
			iv.Sizes = append(iv.Sizes, sizeView{Size: s.Size, Quantity: s.Quantity})
		}
		v.Items = append(v.Items, iv)
	}
	return v
}

func dump(w io.Writer, batches []*domain.Batch) error {
	views := make([]batchView, 0, len(batches))
	for _, b := range batches {
		views = append(views, view(b))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(views)
}

func load(ctx context.Context, repo repository.BatchRepository, id, status, school string) ([]*domain.Batch, error) {
	switch {
	case id != "":
		b, err := repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return []*domain.Batch{b}, nil
	case status != "":
		if !domain.BatchStatus(status).Valid() {
			return nil, fmt.Errorf("unknown batch status %q", status)
		}
		return repo.ListByStatus(ctx, domain.BatchStatus(status))
	case school != "":
		return repo.ListBySchool(ctx, school)
	}
	return repo.List(ctx)
}

func main() {
	id := pflag.String("id", "", "dump a single batch")
	status := pflag.StringP("status", "s", "", "only batches in this status (active, depleted, archived)")
	school := pflag.String("school", "", "only batches for this school id")
	timeout := pflag.Duration("timeout", 30*time.Second, "overall query timeout")
	pflag.Parse()

	cfg := config.Load()
	log, err := logger.New(cfg.Server.Env, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	dbService, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbService.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	batches, err := load(ctx, repository.NewBatchRepository(dbService.DB()), *id, *status, *school)
	if err != nil {
		log.Fatal("Failed to load batches", zap.Error(err))
	}

	if err := dump(os.Stdout, batches); err != nil {
		log.Fatal("Failed to write batches", zap.Error(err))
	}
	log.Debug("Batches dumped", zap.Int("count", len(batches)))
}
