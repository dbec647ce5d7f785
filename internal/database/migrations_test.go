package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	t.Run("all tables exist", func(t *testing.T) {
		expectedTables := []string{
			"stock_data",
			"stock_metadata",
		}

		for _, tableName := range expectedTables {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM information_schema.tables
					WHERE table_schema = 'public'
					AND table_name = $1
				)
			`, tableName).Scan(&exists)

			require.NoError(t, err, "failed to check table existence for %s", tableName)
			assert.True(t, exists, "table %s should exist", tableName)
		}
	})

	t.Run("stock_data has correct columns", func(t *testing.T) {
		expectedColumns := map[string]string{
			"id":         "integer",
			"symbol":     "character varying",
			"date":       "date",
			"open":       "numeric",
			"high":       "numeric",
			"low":        "numeric",
			"close":      "numeric",
			"volume":     "bigint",
			"created_at": "timestamp without time zone",
		}

		for colName, expectedType := range expectedColumns {
			var actualType string
			err := testDB.GetRawConn().QueryRow(`
				SELECT data_type
				FROM information_schema.columns
				WHERE table_name = 'stock_data' AND column_name = $1
			`, colName).Scan(&actualType)

			require.NoError(t, err, "column %s should exist in stock_data", colName)
			assert.Equal(t, expectedType, actualType, "column %s should have type %s", colName, expectedType)
		}
	})

	t.Run("stock_data enforces the natural key", func(t *testing.T) {
		var count int
		err := testDB.GetRawConn().QueryRow(`
			SELECT COUNT(*)
			FROM information_schema.table_constraints
			WHERE table_name = 'stock_data' AND constraint_type = 'UNIQUE'
		`).Scan(&count)

		require.NoError(t, err)
		assert.Equal(t, 1, count, "stock_data should have a unique (symbol, date) constraint")
	})

	t.Run("stock_metadata keys on symbol", func(t *testing.T) {
		var count int
		err := testDB.GetRawConn().QueryRow(`
			SELECT COUNT(*)
			FROM information_schema.table_constraints
			WHERE table_name = 'stock_metadata' AND constraint_type = 'PRIMARY KEY'
		`).Scan(&count)

		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}
