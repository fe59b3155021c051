package ledger

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
// backed by a unique index on dedupe_key, so applying the same key twice
// changes the balance exactly once.
func TestDedupeKeyConflict_MatchesUniqueIndex(t *testing.T) {
	s, err := schema.Parse(&models.LedgerEntry{}, &schemaCache, schema.NamingStrategy{})
	assert.NoError(t, err)

	found := false
	for _, idx := range s.ParseIndexes() {
		if idx.Class != "UNIQUE" || len(idx.Fields) != 1 {
			continue
		}
		if idx.Fields[0].DBName == "dedupe_key" {
			found = true
			assert.Empty(t, idx.Where, "the ledger dedupe index must not be partial")
		}
	}
	assert.True(t, found, "points_ledger needs a unique index on dedupe_key")
}

// TestDedupeKeyConflict_GeneratedSQL verifies the insert carries the
// conflict target the unique index can arbitrate.
func TestDedupeKeyConflict_GeneratedSQL(t *testing.T) {
	db := dryRunDB(t)

	entry := models.LedgerEntry{
		UserID:    1001,
		Amount:    10,
		EventType: models.EventFeedbackApproved,
		DedupeKey: "feedback:7:reward",
		Reason:    "Reward for approved feedback #7",
	}
	sql := db.Clauses(dedupeKeyConflict()).Create(&entry).Statement.SQL.String()

	assert.Contains(t, sql, "ON CONFLICT")
	assert.Contains(t, sql, "dedupe_key")
	assert.Contains(t, sql, "DO NOTHING")
}

// TestApplyTx_DuplicateKeyReportsAlreadyApplied verifies the zero-row
// insert path: a duplicate apply is not an error, it comes back with
// Changed=false and the caller proceeds as if the apply succeeded.
func TestApplyTx_DuplicateKeyReportsAlreadyApplied(t *testing.T) {
	// A dry-run insert affects zero rows, which is exactly the shape a
	// conflicting dedupe_key produces.
	db := dryRunDB(t)

	result, err := ApplyTx(db, ApplyInput{
		UserID:    1001,
		Amount:    10,
		EventType: models.EventFeedbackApproved,
		DedupeKey: "feedback:7:reward",
		Reason:    "Reward for approved feedback #7",
	})

	assert.NoError(t, err)
	assert.False(t, result.Changed)
	assert.NotNil(t, result.Entry)
}
