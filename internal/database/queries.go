package database

// Migration bookkeeping
const (
	CreateMigrationsTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			migration_name VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`

	SelectAppliedMigrationsSQL = `SELECT migration_name FROM schema_migrations`

	InsertMigrationSQL = `INSERT INTO schema_migrations (migration_name) VALUES ($1)`
)

// Session queries
const (
	GetSessionSQL = `
		SELECT data FROM order_sessions WHERE id = $1`

	UpsertSessionSQL = `
		INSERT INTO order_sessions (id, store_id, item_count, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			store_id = EXCLUDED.store_id,
			item_count = EXCLUDED.item_count,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`

	DeleteStaleSessionsSQL = `
		DELETE FROM order_sessions WHERE updated_at < $1`
)
