package casestore

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

// TestCaseRefConflict_MatchesDedupeIndex verifies the insert-or-ignore
// conflict target names the same columns and predicate as the unique index
// the model migrates; Postgres needs an exact match to infer the arbiter.
func TestCaseRefConflict_MatchesDedupeIndex(t *testing.T) {
	s, err := schema.Parse(&models.Case{}, &schemaCache, schema.NamingStrategy{})
	assert.NoError(t, err)

	var dedupe *schema.Index
	for _, idx := range s.ParseIndexes() {
		if idx.Name == "idx_cases_kind_ref" {
			dedupe = idx
		}
	}
	if !assert.NotNil(t, dedupe, "the (kind, ref) dedupe index must exist") {
		return
	}
	assert.Equal(t, "UNIQUE", dedupe.Class)
	assert.Equal(t, "ref <> ''", dedupe.Where)

	cols := []string{}
	for _, f := range dedupe.Fields {
		cols = append(cols, f.DBName)
	}
	assert.Equal(t, []string{"kind", "ref"}, cols)
}

// TestCaseRefConflict_GeneratedSQL verifies the statement carries the full
// conflict target including the partial-index predicate.
func TestCaseRefConflict_GeneratedSQL(t *testing.T) {
	db := dryRunDB(t)

	c := models.Case{
		Kind:            models.KindAppeal,
		Status:          models.StatusOpen,
		Ref:             "complaint_7",
		SubmitterUserID: 1001,
		Reason:          "Unfair block",
	}
	stmt := db.Clauses(caseRefConflict()).Create(&c).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, "ON CONFLICT")
	assert.Contains(t, sql, "kind")
	assert.Contains(t, sql, "ref")
	assert.Contains(t, sql, "ref <> ''")
	assert.Contains(t, sql, "DO NOTHING")
}
