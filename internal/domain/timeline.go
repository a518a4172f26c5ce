package domain

import "time"

// TimelineEvent описывает переход попытки оплаты между шагами.
type TimelineEvent struct {
	AttemptID string
	Type      string
	Step      PaymentStep
	Reason    string
	Occurred  time.Time
}
