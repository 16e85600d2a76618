package notification

import (
	"fmt"
	"strings"

	"stockroom/internal/domain"
)

// Event is the content of a notification before attribution, id and timestamp are assigned
type Event struct {
	Type     string
	Title    string
	Message  string
	Category domain.Category
	Priority domain.Priority
	Icon     string
}

func BatchCreated(batchName string, productCount int) Event {
	return Event{
		Type:     domain.NotificationBatchCreated,
		Title:    "New Batch Created",
		Message:  fmt.Sprintf("Batch %q created with %d products", batchName, productCount),
		Category: domain.CategoryInventory,
		Priority: domain.PriorityMedium,
		Icon:     "📦",
	}
}

func BatchDeleted(batchName string) Event {
	return Event{
		Type:     domain.NotificationBatchDeleted,
		Title:    "Batch Deleted",
		Message:  fmt.Sprintf("Batch %q has been deleted", batchName),
		Category: domain.CategoryInventory,
		Priority: domain.PriorityMedium,
		Icon:     "🗑️",
	}
}

func ProductCreated(productName, productType string) Event {
	if productType == "" {
		productType = "Product"
	}
	return Event{
		Type:     domain.NotificationProductCreated,
		Title:    "New Product Added",
		Message:  fmt.Sprintf("%s %q has been added to inventory", productType, productName),
		Category: domain.CategoryInventory,
		Priority: domain.PriorityMedium,
		Icon:     "👕",
	}
}

// StockUpdated names the product, the variant configuration, the size and the units received
func StockUpdated(productName, color, variantType, size string, quantity int) Event {
	config := strings.TrimSpace(color + " " + variantType)
	return Event{
		Type:     domain.NotificationStockUpdated,
		Title:    "Stock Updated",
		Message:  fmt.Sprintf("%s (%s, size %s) received %d new items", productName, config, size, quantity),
		Category: domain.CategoryInventory,
		Priority: domain.PriorityLow,
		Icon:     "📈",
	}
}

func SchoolAdded(schoolName string) Event {
	return Event{
		Type:     domain.NotificationSchoolAdded,
		Title:    "New School Added",
		Message:  fmt.Sprintf("%s has been added to the system", schoolName),
		Category: domain.CategoryAdministration,
		Priority: domain.PriorityMedium,
		Icon:     "🏫",
	}
}

func StudentAdded(studentName, schoolName string) Event {
	return Event{
		Type:     domain.NotificationStudentAdded,
		Title:    "New Student Registered",
		Message:  fmt.Sprintf("%s has been registered at %s", studentName, schoolName),
		Category: domain.CategoryAdministration,
		Priority: domain.PriorityLow,
		Icon:     "👤",
	}
}

func LowStock(productName string, currentStock int) Event {
	return Event{
		Type:     domain.NotificationLowStock,
		Title:    "Low Stock Alert",
		Message:  fmt.Sprintf("%s is running low (%d items remaining)", productName, currentStock),
		Category: domain.CategoryAlert,
		Priority: domain.PriorityHigh,
		Icon:     "⚠️",
	}
}

func OrderCreated(orderNumber, customerName string) Event {
	return Event{
		Type:     domain.NotificationOrderCreated,
		Title:    "New Order Received",
		Message:  fmt.Sprintf("Order #%s from %s", orderNumber, customerName),
		Category: domain.CategoryOrders,
		Priority: domain.PriorityMedium,
		Icon:     "🛍️",
	}
}
