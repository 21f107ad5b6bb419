package models

// Статусы, которые оператор использует как фильтры. Хранятся как обычный текст,
// БД их не проверяет.
const (
	StatusCompleted  = "Завершен"
	StatusInProgress = "В работе"
	StatusWaiting    = "Ожидание"
)

// Column limits of the orders table, in characters.
const (
	MaxTextLen        = 255
	MaxClientPhoneLen = 14
	MaxOrderStatusLen = 10
)

type Order struct {
	ID          int64  `json:"id"`
	DriverName  string `json:"driver_name"`
	CarNumber   string `json:"car_number"`
	ClientPhone string `json:"client_phone"`
	OrderStatus string `json:"order_status"`
}

func KnownStatuses() []string {
	return []string{StatusCompleted, StatusInProgress, StatusWaiting}
}
