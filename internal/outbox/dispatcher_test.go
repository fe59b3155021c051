package outbox_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"modqueue/backend/internal/models"
	"modqueue/backend/internal/outbox"

	"github.com/stretchr/testify/assert"
)

func testConfig() outbox.DispatcherConfig {
	cfg := outbox.DefaultDispatcherConfig()
	cfg.MaxAttempts = 3
	cfg.RetryBaseSeconds = 30
	cfg.RetryMaxSeconds = 3600
	return cfg
}

// TestBackoffDelay_DoublesAndCaps verifies the base*2^(attempt-1) schedule.
func TestBackoffDelay_DoublesAndCaps(t *testing.T) {
	assert.Equal(t, 30*time.Second, outbox.BackoffDelay(1, 30, 3600))
	assert.Equal(t, 60*time.Second, outbox.BackoffDelay(2, 30, 3600))
	assert.Equal(t, 120*time.Second, outbox.BackoffDelay(3, 30, 3600))
	assert.Equal(t, 1920*time.Second, outbox.BackoffDelay(7, 30, 3600))
	assert.Equal(t, 3600*time.Second, outbox.BackoffDelay(8, 30, 3600), "delay is capped at the max")
	assert.Equal(t, 3600*time.Second, outbox.BackoffDelay(50, 30, 3600), "large attempts stay at the cap")
}

// TestBackoffDelay_DegenerateInputs verifies the guards around bad attempt
// and base values.
func TestBackoffDelay_DegenerateInputs(t *testing.T) {
	assert.Equal(t, 30*time.Second, outbox.BackoffDelay(0, 30, 3600), "attempt below 1 behaves like the first attempt")
	assert.Equal(t, time.Second, outbox.BackoffDelay(1, 0, 3600), "base below 1 becomes 1 second")
	assert.Equal(t, 30*time.Second, outbox.BackoffDelay(1, 30, 5), "cap below base collapses to the base")
}

// TestMarkDone verifies a delivered entry is finalized and its error cleared.
func TestMarkDone(t *testing.T) {
	prev := "boom"
	entry := &models.OutboxEntry{
		Status:    models.OutboxPending,
		Attempts:  2,
		LastError: &prev,
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	outbox.MarkDone(entry, now)

	assert.Equal(t, models.OutboxDone, entry.Status)
	assert.Equal(t, 3, entry.Attempts)
	assert.Nil(t, entry.LastError)
}

// TestMarkRetryOrFail_SchedulesRetry verifies a failed attempt under the
// ceiling goes back to pending with a backoff delay.
func TestMarkRetryOrFail_SchedulesRetry(t *testing.T) {
	entry := &models.OutboxEntry{Status: models.OutboxPending, Attempts: 0}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	outbox.MarkRetryOrFail(entry, errors.New("telegram unavailable"), now, testConfig())

	assert.Equal(t, models.OutboxPending, entry.Status)
	assert.Equal(t, 1, entry.Attempts)
	if assert.NotNil(t, entry.LastError) {
		assert.Equal(t, "telegram unavailable", *entry.LastError)
	}
	assert.Equal(t, now.Add(30*time.Second), entry.NextRetryAt)
}

// TestMarkRetryOrFail_TerminalAtMaxAttempts verifies the entry parks as
// failed once the ceiling is reached, keeping the last error.
func TestMarkRetryOrFail_TerminalAtMaxAttempts(t *testing.T) {
	entry := &models.OutboxEntry{Status: models.OutboxPending, Attempts: 2}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	outbox.MarkRetryOrFail(entry, errors.New("still down"), now, testConfig())

	assert.Equal(t, models.OutboxFailed, entry.Status)
	assert.Equal(t, 3, entry.Attempts)
	if assert.NotNil(t, entry.LastError) {
		assert.Equal(t, "still down", *entry.LastError)
	}
}

// TestMarkRetryOrFail_TruncatesLongErrors verifies oversized error messages
// are cut before storage.
func TestMarkRetryOrFail_TruncatesLongErrors(t *testing.T) {
	entry := &models.OutboxEntry{Status: models.OutboxPending}
	long := strings.Repeat("x", 5000)

	outbox.MarkRetryOrFail(entry, errors.New(long), time.Now().UTC(), testConfig())

	if assert.NotNil(t, entry.LastError) {
		assert.Len(t, *entry.LastError, 1000)
	}
}

// TestEnqueueTx_ValidatesBeforeSQL verifies bad payloads and keys are
// rejected without touching the database.
func TestEnqueueTx_ValidatesBeforeSQL(t *testing.T) {
	_, err := outbox.EnqueueTx(nil, outbox.EventFeedbackApproved, []byte(`{"case_id":1}`), "")
	assert.Error(t, err, "empty dedupe key must be rejected")

	_, err = outbox.EnqueueTx(nil, outbox.EventFeedbackApproved, []byte(`{broken`), "feedback:1:github-issue")
	assert.Error(t, err, "invalid JSON payload must be rejected")

	_, err = outbox.EnqueueTx(nil, "", []byte(`{}`), "feedback:1:github-issue")
	assert.Error(t, err, "empty event type must be rejected")
}
