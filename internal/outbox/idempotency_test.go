package outbox

import (
	"sync"
	"testing"

	"modqueue/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
	"gorm.io/gorm/utils/tests"
)

var schemaCache sync.Map

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true})
	if err != nil {
		t.Fatalf("failed to open dry-run db: %v", err)
	}
	return db
}

// TestDedupeKeyConflict_MatchesUniqueIndex verifies the conflict target is
// backed by a unique index on dedupe_key, so enqueueing twice yields
// exactly one row.
func TestDedupeKeyConflict_MatchesUniqueIndex(t *testing.T) {
	s, err := schema.Parse(&models.OutboxEntry{}, &schemaCache, schema.NamingStrategy{})
	assert.NoError(t, err)

	found := false
	for _, idx := range s.ParseIndexes() {
		if idx.Class != "UNIQUE" || len(idx.Fields) != 1 {
			continue
		}
		if idx.Fields[0].DBName == "dedupe_key" {
			found = true
			assert.Empty(t, idx.Where, "the outbox dedupe index must not be partial")
		}
	}
	assert.True(t, found, "integration_outbox needs a unique index on dedupe_key")
}

// TestDedupeKeyConflict_GeneratedSQL verifies the insert carries the
// conflict target the unique index can arbitrate.
func TestDedupeKeyConflict_GeneratedSQL(t *testing.T) {
	db := dryRunDB(t)

	entry := models.OutboxEntry{
		EventType: EventFeedbackApproved,
		Payload:   []byte(`{"case_id":7}`),
		DedupeKey: "feedback:7:github-issue",
		Status:    models.OutboxPending,
	}
	sql := db.Clauses(dedupeKeyConflict()).Create(&entry).Statement.SQL.String()

	assert.Contains(t, sql, "ON CONFLICT")
	assert.Contains(t, sql, "dedupe_key")
	assert.Contains(t, sql, "DO NOTHING")
}

// TestEnqueueTx_DuplicateKeyIsSilentNoOp verifies a zero-row insert (the
// shape a conflicting dedupe_key produces) is reported as not-inserted
// without an error.
func TestEnqueueTx_DuplicateKeyIsSilentNoOp(t *testing.T) {
	db := dryRunDB(t)

	inserted, err := EnqueueTx(db, EventFeedbackApproved, []byte(`{"case_id":7}`), "feedback:7:github-issue")

	assert.NoError(t, err)
	assert.False(t, inserted)
}
