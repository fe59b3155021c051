package outbox

import (
	"context"
	"errors"
	"log"
	"time"

	"modqueue/backend/internal/config"
	"modqueue/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrReplayNotFailed rejects replaying an entry that is not in the
// terminal failed state.
var ErrReplayNotFailed = errors.New("outbox: only failed entries can be replayed")

// Deliverer performs the external side effect for one claimed entry.
type Deliverer interface {
	Deliver(ctx context.Context, entry *models.OutboxEntry) error
}

// DispatcherConfig bounds retries and batch claims.
type DispatcherConfig struct {
	Interval         time.Duration
	BatchSize        int
	MaxAttempts      int
	RetryBaseSeconds int
	RetryMaxSeconds  int
}

// DefaultDispatcherConfig mirrors the process defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Interval:         config.OutboxInterval,
		BatchSize:        config.OutboxBatchSize,
		MaxAttempts:      config.OutboxMaxAttempts,
		RetryBaseSeconds: config.OutboxRetryBaseSeconds,
		RetryMaxSeconds:  config.OutboxRetryMaxSeconds,
	}
}

// Dispatcher claims due pending entries and hands them to the Deliverer.
// Multiple replicas partition work through FOR UPDATE SKIP LOCKED claims.
type Dispatcher struct {
	DB        *gorm.DB
	Deliverer Deliverer
	Cfg       DispatcherConfig

	now func() time.Time
}

func NewDispatcher(db *gorm.DB, d Deliverer, cfg DispatcherConfig) *Dispatcher {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Dispatcher{DB: db, Deliverer: d, Cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// BackoffDelay returns the delay before the given attempt number is
// retried: base * 2^(attempt-1), capped.
func BackoffDelay(attempt, baseSeconds, maxSeconds int) time.Duration {
	base := baseSeconds
	if base < 1 {
		base = 1
	}
	cap := maxSeconds
	if cap < base {
		cap = base
	}
	power := attempt - 1
	if power < 0 {
		power = 0
	}
	seconds := base
	for i := 0; i < power; i++ {
		seconds *= 2
		if seconds >= cap {
			seconds = cap
			break
		}
	}
	if seconds > cap {
		seconds = cap
	}
	return time.Duration(seconds) * time.Second
}

// MarkDone finalizes a successfully delivered entry.
func MarkDone(entry *models.OutboxEntry, now time.Time) {
	entry.Attempts++
	entry.Status = models.OutboxDone
	entry.NextRetryAt = now
	entry.LastError = nil
}

// MarkRetryOrFail schedules the next retry with backoff, or marks the
// entry failed once the attempt ceiling is reached.
func MarkRetryOrFail(entry *models.OutboxEntry, deliverErr error, now time.Time, cfg DispatcherConfig) {
	entry.Attempts++
	msg := deliverErr.Error()
	if len(msg) > 1000 {
		msg = msg[:1000]
	}
	entry.LastError = &msg

	if entry.Attempts >= cfg.MaxAttempts {
		entry.Status = models.OutboxFailed
		entry.NextRetryAt = now
		return
	}
	entry.Status = models.OutboxPending
	entry.NextRetryAt = now.Add(BackoffDelay(entry.Attempts, cfg.RetryBaseSeconds, cfg.RetryMaxSeconds))
}

// processNext claims and handles a single due entry. Returns false when
// nothing was due.
func (d *Dispatcher) processNext(ctx context.Context) (bool, error) {
	now := d.now()
	handled := false

	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.OutboxEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND next_retry_at <= ?", models.OutboxPending, now).
			Order("next_retry_at asc, id asc").
			First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		handled = true

		if deliverErr := d.Deliverer.Deliver(ctx, &entry); deliverErr != nil {
			MarkRetryOrFail(&entry, deliverErr, now, d.Cfg)
			if entry.Status == models.OutboxFailed {
				log.Printf("ERROR: Outbox entry %d (%s) moved to failed after %d attempts: %v",
					entry.ID, entry.EventType, entry.Attempts, deliverErr)
			}
		} else {
			MarkDone(&entry, now)
		}
		return tx.Save(&entry).Error
	})
	if err != nil {
		return false, err
	}
	return handled, nil
}

// ProcessPending drains up to one batch of due entries.
func (d *Dispatcher) ProcessPending(ctx context.Context) (int, error) {
	processed := 0
	for i := 0; i < d.Cfg.BatchSize; i++ {
		handled, err := d.processNext(ctx)
		if err != nil {
			return processed, err
		}
		if !handled {
			break
		}
		processed++
	}
	return processed, nil
}

// Run polls until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Println("Outbox dispatcher started.")
	ticker := time.NewTicker(d.Cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Outbox dispatcher stopped.")
			return
		case <-ticker.C:
			processed, err := d.ProcessPending(ctx)
			if err != nil {
				log.Printf("ERROR: Outbox dispatch pass failed: %v", err)
				continue
			}
			if processed > 0 {
				log.Printf("INFO: Outbox dispatcher delivered %d event(s)", processed)
			}
		}
	}
}

// Replay moves a failed entry back to pending for another delivery cycle.
// Operator-only: the dispatcher itself never resurrects failed entries.
func (d *Dispatcher) Replay(ctx context.Context, entryID uint) error {
	now := d.now()
	res := d.DB.WithContext(ctx).Model(&models.OutboxEntry{}).
		Where("id = ? AND status = ?", entryID, models.OutboxFailed).
		Updates(map[string]interface{}{
			"status":        models.OutboxPending,
			"attempts":      0,
			"next_retry_at": now,
			"last_error":    nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrReplayNotFailed
	}
	return nil
}

// ReplayAllFailed requeues every failed entry, returning the count.
func (d *Dispatcher) ReplayAllFailed(ctx context.Context) (int, error) {
	now := d.now()
	res := d.DB.WithContext(ctx).Model(&models.OutboxEntry{}).
		Where("status = ?", models.OutboxFailed).
		Updates(map[string]interface{}{
			"status":        models.OutboxPending,
			"attempts":      0,
			"next_retry_at": now,
			"last_error":    nil,
		})
	return int(res.RowsAffected), res.Error
}
