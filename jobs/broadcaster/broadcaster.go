package broadcaster

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"tickbook/domain/events"
	"tickbook/infra/kafka"
	"tickbook/infra/outbox"
)

// Outbox is the subset of *outbox.Outbox the broadcaster drives.
type Outbox interface {
	ScanByState(fn func(outbox.Record) error, states ...outbox.State) error
	UpdateState(seq uint64, state outbox.State, retries uint32) error
	TruncateAcked() (int, error)
}

type Broadcaster struct {
	outbox    Outbox
	publisher kafka.Publisher
	interval  time.Duration
	log       *logrus.Entry
}

// Stats summarizes one Flush pass.
type Stats struct {
	Published int
	Failed    int
	Truncated int
}

// ------------------------------------------------
// CONSTRUCTOR
// ------------------------------------------------

func New(
	ob Outbox,
	publisher kafka.Publisher,
	interval time.Duration,
	logger *logrus.Logger,
) *Broadcaster {
	return &Broadcaster{
		outbox:    ob,
		publisher: publisher,
		interval:  interval,
		log:       logger.WithField("job", "broadcaster"),
	}
}

// ------------------------------------------------
// LOOP
// ------------------------------------------------

// Run flushes every interval until ctx is done, then makes one final pass
// so events appended during shutdown still go out.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.WithField("interval", b.interval.String()).Info("started")

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), b.interval)
			b.flushAndLog(final)
			cancel()
			b.log.Info("stopped")
			return
		case <-ticker.C:
			b.flushAndLog(ctx)
		}
	}
}

func (b *Broadcaster) flushAndLog(ctx context.Context) {
	st, err := b.Flush(ctx)
	if err != nil {
		b.log.WithError(err).Warn("flush failed")
		return
	}
	if st.Published > 0 || st.Failed > 0 {
		b.log.WithFields(logrus.Fields{
			"published": st.Published,
			"failed":    st.Failed,
			"truncated": st.Truncated,
		}).Debug("flushed")
	}
}

// ------------------------------------------------
// FLUSH
// ------------------------------------------------

var errStopPass = errors.New("broadcaster: stop pass")

// Flush publishes every unacknowledged record in sequence order: mark
// SENT, publish, mark ACKED. Records left SENT by a crash are sent again,
// so delivery is at least once. A publish failure marks the record FAILED
// with one more retry and ends the pass so ordering is kept.
func (b *Broadcaster) Flush(ctx context.Context) (Stats, error) {
	var st Stats

	err := b.outbox.ScanByState(func(rec outbox.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.outbox.UpdateState(rec.Seq, outbox.StateSent, rec.Retries); err != nil {
			return err
		}

		if err := b.publisher.Publish(ctx, keyOf(rec), rec.Payload); err != nil {
			st.Failed++
			b.log.WithError(err).WithFields(logrus.Fields{
				"seq":     rec.Seq,
				"retries": rec.Retries + 1,
			}).Warn("publish failed")
			if uerr := b.outbox.UpdateState(rec.Seq, outbox.StateFailed, rec.Retries+1); uerr != nil {
				return uerr
			}
			return errStopPass
		}

		st.Published++
		return b.outbox.UpdateState(rec.Seq, outbox.StateAcked, rec.Retries)
	}, outbox.StateNew, outbox.StateSent, outbox.StateFailed)
	if err != nil && !errors.Is(err, errStopPass) {
		return st, err
	}

	n, err := b.outbox.TruncateAcked()
	if err != nil {
		return st, err
	}
	st.Truncated = n
	return st, nil
}

func keyOf(rec outbox.Record) []byte {
	e, err := events.Decode(rec.Payload)
	if err != nil {
		return nil
	}
	return e.Key()
}

// ------------------------------------------------
// SHUTDOWN
// ------------------------------------------------

func (b *Broadcaster) Close() error {
	return b.publisher.Close()
}
