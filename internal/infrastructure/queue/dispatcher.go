package queue

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/veriflow/accounts-api/internal/api/metrics"
	"github.com/veriflow/accounts-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher fans messages out to a fixed set of workers using consistent
// hashing on the recipient address, so mails to the same recipient leave in
// the order they were enqueued.
//
// Dispatcher implements ports.Notifier: Send enqueues and always returns
// nil, making every delivery fire-and-forget. Delivery failures are logged
// and counted, never surfaced to the enqueuing operation.
type Dispatcher struct {
	workers []chan ports.Message
	sender  ports.Notifier
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers
// wrapping the given synchronous sender. If numWorkers <= 0,
// defaultWorkers is used.
func NewDispatcher(numWorkers int, sender ports.Notifier, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.Message, numWorkers),
		sender:  sender,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.Message, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Send enqueues a message for its recipient's worker and returns nil. When
// the worker's buffer is full the message is dropped rather than blocking
// the caller; the drop is logged and counted.
func (d *Dispatcher) Send(_ context.Context, msg ports.Message) error {
	idx := d.shardIndex(msg.To)
	select {
	case d.workers[idx] <- msg:
		metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.MailSendFailuresTotal.WithLabelValues("queue_full").Inc()
		d.log.Error().Str("to", msg.To).Str("subject", msg.Subject).Msg("mail queue full, message dropped")
	}
	return nil
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(to string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(to))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.Message) {
	worker := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			metrics.MailQueueDepth.WithLabelValues(worker).Set(float64(len(ch)))
			if err := d.sender.Send(ctx, msg); err != nil {
				metrics.MailSendFailuresTotal.WithLabelValues("send_error").Inc()
				d.log.Error().Err(err).
					Str("to", msg.To).
					Int("worker_id", id).
					Msg("mail delivery failed")
			}
		}
	}
}
