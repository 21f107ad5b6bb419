package messages

// OrderIntake — заказ, пришедший из внешнего диспетчерского канала.
type OrderIntake struct {
	DriverName  string `json:"driver_name"`
	CarNumber   string `json:"car_number"`
	ClientPhone string `json:"client_phone"`
	OrderStatus string `json:"order_status"`
}
