package notify

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Async sends order confirmations in the background of the request that
// completed the payment. It satisfies webhook.Notifier.
type Async struct {
	Service *Service
	Timeout time.Duration

	wg sync.WaitGroup
}

func (a *Async) OrderPaid(ctx context.Context, orderID, eventID string) error {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	bg := context.WithoutCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(bg, timeout)
		defer cancel()
		if err := a.Service.ConfirmOnce(ctx, orderID); err != nil {
			log.WithContext(ctx).WithError(err).WithFields(log.Fields{
				"order_id": orderID, "event_id": eventID,
			}).Warn("order confirmation failed")
		}
	}()
	return nil
}

// Wait blocks until every scheduled confirmation has finished.
func (a *Async) Wait() { a.wg.Wait() }
