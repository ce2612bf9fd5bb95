package orders

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPacked     Status = "packed"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// shipped is never a target here; MarkShipped owns that transition.
var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing: {StatusPacked: true, StatusCancelled: true},
	StatusPacked:     {StatusCancelled: true},
	StatusShipped:    {StatusDelivered: true, StatusCancelled: true},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

var shippable = map[Status]bool{
	StatusPending:    true,
	StatusProcessing: true,
	StatusPacked:     true,
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func CanShip(from Status) bool {
	return shippable[from]
}

func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	_, ok := validNext[st]
	return st, ok
}

// Terminal reports whether no further fulfillment change is allowed.
func (s Status) Terminal() bool {
	return len(validNext[s]) == 0
}
