package api

// Reservation statuses.
const (
	ReservationWaitingConfirmation = "WAITING_CONFIRMATION"
	ReservationWaitingPayment      = "WAITING_PAYMENT"
	ReservationOverdue             = "OVERDUE"
	ReservationConfirmed           = "CONFIRMED"
	ReservationCancelled           = "CANCELLED"
	ReservationInHouse             = "IN_HOUSE"
	ReservationNoShow              = "NO_SHOW"
	ReservationCompleted           = "COMPLETED"
)

// Payment statuses.
const (
	PaymentPaid       = "PAID"
	PaymentWaiting    = "WAITING"
	PaymentCancelled  = "CANCELLED"
	PaymentAuthorized = "AUTHORIZED"
	PaymentExpired    = "EXPIRED"
)

