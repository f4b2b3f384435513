package messaging

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"omniscore/internal/compose"
	"omniscore/internal/infra"
)

// WorkerQueue is the queue group compose workers share.
const WorkerQueue = "omniscore-workers"

// JobHandler runs one raw job message.
type JobHandler func(ctx context.Context, data []byte) compose.Result

// JobWorker consumes compose jobs from "<prefix>.compose.jobs". Results go
// to the message reply subject, or to "<prefix>.compose.results" when the
// sender did not ask for a reply.
type JobWorker struct {
	conn        Conn
	prefix      string
	handle      JobHandler
	concurrency int
	logger      infra.Logger
}

func NewJobWorker(conn Conn, prefix string, handle JobHandler, concurrency int, logger infra.Logger) *JobWorker {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		prefix = "omniscore"
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &JobWorker{
		conn:        conn,
		prefix:      prefix,
		handle:      handle,
		concurrency: concurrency,
		logger:      infra.Component(logger, "job-worker"),
	}
}

func (w *JobWorker) JobSubject() string    { return w.prefix + ".compose.jobs" }
func (w *JobWorker) ResultSubject() string { return w.prefix + ".compose.results" }

// Serve handles messages until ctx is done or msgs is closed. At most
// concurrency jobs run at once; Serve waits for them before returning.
func (w *JobWorker) Serve(ctx context.Context, msgs <-chan *nats.Msg) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	w.logger.Info().Str("subject", w.JobSubject()).Int("concurrency", w.concurrency).Msg("worker started")

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case msg, ok := <-msgs:
			if !ok {
				break loop
			}
			g.Go(func() error {
				w.process(gctx, msg)
				return nil
			})
		}
	}

	err := g.Wait()
	w.logger.Info().Msg("worker stopped")
	return err
}

func (w *JobWorker) process(ctx context.Context, msg *nats.Msg) {
	res := w.handle(ctx, msg.Data)
	log := w.logger.With().Str("job_id", res.JobID).Str("status", string(res.Status)).Logger()
	if res.Status == compose.StatusFailed {
		log.Warn().Str("error", res.Error).Msg("job failed")
	} else {
		log.Info().Int("steps", len(res.Steps)).Msg("job succeeded")
	}

	data, err := json.Marshal(res)
	if err != nil {
		log.Error().Err(err).Msg("marshal job result")
		return
	}
	subject := msg.Reply
	if subject == "" {
		subject = w.ResultSubject()
	}
	if err := w.conn.Publish(subject, data); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("publish job result failed")
	}
}
