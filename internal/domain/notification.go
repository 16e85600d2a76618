package domain

import "time"

// Priority ranks how prominently a notification is shown
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Category groups notifications for filtering
type Category string

const (
	CategoryInventory      Category = "inventory"
	CategoryAdministration Category = "administration"
	CategoryAlert          Category = "alert"
	CategoryOrders         Category = "orders"
)

// Notification types emitted by mutating operations
const (
	NotificationBatchCreated   = "batch_created"
	NotificationBatchDeleted   = "batch_deleted"
	NotificationProductCreated = "product_created"
	NotificationStockUpdated   = "stock_updated"
	NotificationSchoolAdded    = "school_added"
	NotificationStudentAdded   = "student_added"
	NotificationLowStock       = "low_stock"
	NotificationOrderCreated   = "order_created"
)

// Notification is an append-only audit record shown in the notification center
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Category  Category  `json:"category"`
	Priority  Priority  `json:"priority"`
	Icon      string    `json:"icon,omitempty"`
	Read      bool      `json:"read"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	UserEmail string    `json:"userEmail,omitempty"`
}
