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

	t.Run("price_data_daily table exists", func(t *testing.T) {
		var exists bool
		err := testDB.GetRawConn().QueryRow(`
			SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_schema = 'public'
				AND table_name = 'price_data_daily'
			)
		`).Scan(&exists)

		require.NoError(t, err)
		assert.True(t, exists, "table price_data_daily should exist")
	})

	t.Run("price_data_daily table has correct columns", func(t *testing.T) {
		expectedColumns := map[string]struct {
			dataType string
			nullable string
		}{
			"id":         {"integer", "NO"},
			"symbol":     {"character varying", "NO"},
			"date":       {"date", "NO"},
			"open":       {"numeric", "YES"},
			"high":       {"numeric", "YES"},
			"low":        {"numeric", "YES"},
			"close":      {"numeric", "YES"},
			"volume":     {"bigint", "NO"},
			"created_at": {"timestamp without time zone", "NO"},
		}

		for colName, expected := range expectedColumns {
			var dataType, nullable string
			err := testDB.GetRawConn().QueryRow(`
				SELECT data_type, is_nullable
				FROM information_schema.columns
				WHERE table_name = 'price_data_daily' AND column_name = $1
			`, colName).Scan(&dataType, &nullable)

			require.NoError(t, err, "column %s should exist in price_data_daily table", colName)
			assert.Equal(t, expected.dataType, dataType, "column %s should have type %s", colName, expected.dataType)
			assert.Equal(t, expected.nullable, nullable, "column %s nullability", colName)
		}
	})

	t.Run("indexes exist", func(t *testing.T) {
		for _, idx := range []string{"idx_price_data_symbol", "idx_price_data_date"} {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM pg_indexes
					WHERE tablename = 'price_data_daily' AND indexname = $1
				)
			`, idx).Scan(&exists)

			require.NoError(t, err)
			assert.True(t, exists, "index %s should exist on price_data_daily", idx)
		}
	})

	t.Run("unique constraint on symbol and date", func(t *testing.T) {
		var priceUnique bool
		err := testDB.GetRawConn().QueryRow(`
			SELECT EXISTS (
				SELECT FROM pg_constraint c
				JOIN pg_class t ON c.conrelid = t.oid
				WHERE t.relname = 'price_data_daily'
				AND c.contype = 'u'
			)
		`).Scan(&priceUnique)
		require.NoError(t, err)
		assert.True(t, priceUnique, "price_data_daily should have unique constraint on (symbol, date)")
	})

	t.Run("price_data_fetches table has correct columns", func(t *testing.T) {
		expectedColumns := map[string]string{
			"id":         "integer",
			"symbol":     "character varying",
			"start_date": "date",
			"end_date":   "date",
			"fetched_at": "timestamp without time zone",
		}

		for colName, expected := range expectedColumns {
			var dataType string
			err := testDB.GetRawConn().QueryRow(`
				SELECT data_type
				FROM information_schema.columns
				WHERE table_name = 'price_data_fetches' AND column_name = $1
			`, colName).Scan(&dataType)

			require.NoError(t, err, "column %s should exist in price_data_fetches table", colName)
			assert.Equal(t, expected, dataType, "column %s should have type %s", colName, expected)
		}
	})

	t.Run("price_data_fetches rejects inverted windows", func(t *testing.T) {
		_, err := testDB.GetRawConn().Exec(`
			INSERT INTO price_data_fetches (symbol, start_date, end_date)
			VALUES ('BPCL', '2025-08-19', '2025-08-11')
		`)
		assert.Error(t, err)
	})

	t.Run("migrate is idempotent", func(t *testing.T) {
		require.NoError(t, testDB.RunMigrations())
	})
}
