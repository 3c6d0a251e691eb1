package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestDumpPgxError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_campaigns_name", TableName: "campaigns", Message: "duplicate key value"}
	err := Wrap(CodeConflict, fmt.Errorf("insert: %w", pgErr), "campaign name taken")

	d := Dump(err)
	assert.Equal(t, CodeConflict, d.Code)
	assert.Equal(t, "23505", d.SQLState)
	assert.Equal(t, "ux_campaigns_name", d.Constraint)
	assert.Equal(t, "campaigns", d.Table)
	assert.GreaterOrEqual(t, len(d.Chain), 3)

	fields := d.LogFields()
	assert.Equal(t, "ux_campaigns_name", fields["db_constraint"])
	assert.NotContains(t, fields, "db_column")
}

func TestDumpSQLiteUniqueMessage(t *testing.T) {
	d := Dump(stdErrors.New("UNIQUE constraint failed: price_rules.name"))
	assert.Equal(t, "price_rules", d.Table)
	assert.Equal(t, "name", d.Column)
	assert.Equal(t, "23505", d.SQLState)
}

func TestDumpPlainError(t *testing.T) {
	assert.Equal(t, ErrorDump{}, Dump(nil))

	d := Dump(New(CodeNotFound, "campaign not found"))
	fields := d.LogFields()
	assert.Equal(t, map[string]any{"error": "campaign not found", "error_code": CodeNotFound}, fields)
}
