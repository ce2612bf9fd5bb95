package orders

const (
	TopicOrderCreated     = "order.created"
	TopicPaymentCompleted = "order.payment.completed"
	TopicStatusChanged    = "order.status.changed"
)

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
