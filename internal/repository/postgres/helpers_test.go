package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericConversion(t *testing.T) {
	for _, s := range []string{"0", "4600.00", "1999.99", "-12.5", "123456789012.34"} {
		var num pgtype.Numeric
		require.NoError(t, num.Scan(s))
		assert.True(t, pgNumericToDecimal(num).Equal(decimal.RequireFromString(s)), "conversion of %s", s)
	}

	assert.True(t, pgNumericToDecimal(pgtype.Numeric{}).IsZero())
	assert.Nil(t, pgNumericToDecimalPtr(pgtype.Numeric{}))

	var num pgtype.Numeric
	require.NoError(t, num.Scan("5000"))
	ptr := pgNumericToDecimalPtr(num)
	require.NotNil(t, ptr)
	assert.Equal(t, "5000.00", ptr.StringFixed(2))
}

func TestDateConversion(t *testing.T) {
	period := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, period, pgDateToTime(timeToPgDate(period)))
	assert.True(t, pgDateToTime(pgtype.Date{}).IsZero())
}

func TestUUIDConversion(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, id, pgToUUID(uuidToPg(id)))
	assert.False(t, uuidToPg(uuid.Nil).Valid)
	assert.Equal(t, uuid.Nil, pgToUUID(pgtype.UUID{}))
}

func TestPgTextToStringPtr(t *testing.T) {
	assert.Nil(t, pgTextToStringPtr(pgtype.Text{}))
	got := pgTextToStringPtr(pgtype.Text{String: "Alice", Valid: true})
	require.NotNil(t, got)
	assert.Equal(t, "Alice", *got)
}

func TestMigrationURL(t *testing.T) {
	assert.Equal(t, "pgx5://user:pw@localhost:5432/smartspend?sslmode=disable",
		migrationURL("postgres://user:pw@localhost:5432/smartspend?sslmode=disable"))
	assert.Equal(t, "pgx5://localhost/smartspend", migrationURL("postgresql://localhost/smartspend"))
	assert.Equal(t, "pgx5://already", migrationURL("pgx5://already"))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_init.up.sql")
	assert.Contains(t, names, "000002_budget_alert_states.up.sql")
	assert.Len(t, names, 4, "every up migration has a down")
}
