// Package audit persists best-effort report request history.
package audit

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/merchstats/reportgate/internal/db/models"
	"github.com/merchstats/reportgate/internal/repository"
)

// writeTimeout bounds a single audit insert so a slow store cannot back up
// the queue indefinitely.
const writeTimeout = 5 * time.Second

// Worker writes audit records in the background. Records are handed off
// through a bounded queue; when the queue is full the record is dropped
// with a log line. Every failure mode is absorbed here; audit outcomes
// never reach the response path.
type Worker struct {
	repo  repository.ReportAuditRepository
	queue chan *models.ReportAudit

	done      chan struct{}
	closeOnce sync.Once
}

// NewWorker starts a background audit writer with the given queue depth.
func NewWorker(repo repository.ReportAuditRepository, queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = 256
	}
	w := &Worker{
		repo:  repo,
		queue: make(chan *models.ReportAudit, queueSize),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

// Record enqueues an audit record without blocking the caller.
func (w *Worker) Record(record *models.ReportAudit) {
	select {
	case w.queue <- record:
	default:
		log.Printf("audit: queue full, dropping record for report %s", record.ReportName)
	}
}

// Close stops accepting records, drains the queue, and waits for the
// writer to finish. Safe to call more than once.
func (w *Worker) Close() {
	w.closeOnce.Do(func() { close(w.queue) })
	<-w.done
}

func (w *Worker) run() {
	defer close(w.done)

	for record := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := w.repo.Create(ctx, record); err != nil {
			log.Printf("audit: failed to persist record for report %s: %v", record.ReportName, err)
		}
		cancel()
	}
}
