package messages

import "time"

const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// OrderChanged is published after a write to the registry has been applied.
type OrderChanged struct {
	Op        string    `json:"op"`
	OrderID   int64     `json:"order_id"`
	Order     *Order    `json:"order,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

type Order struct {
	ID          int64  `json:"id"`
	DriverName  string `json:"driver_name"`
	CarNumber   string `json:"car_number"`
	ClientPhone string `json:"client_phone"`
	OrderStatus string `json:"order_status"`
}
