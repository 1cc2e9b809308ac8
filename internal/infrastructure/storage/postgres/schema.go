package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"repairpos/pkg/logger"
)

//go:embed schema.sql
var schemaSQL string

// advisory lock key serializing concurrent bootstraps
const schemaLockKey = 7_301_042

// EnsureSchema applies the bootstrap schema. The DDL is idempotent, so it
// runs on every start of the seed command.
func EnsureSchema(ctx context.Context, pool *Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", schemaLockKey); err != nil {
		return fmt.Errorf("lock schema: %w", err)
	}
	defer func() {
		if _, err := conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", schemaLockKey); err != nil {
			logger.Warn(ctx, "schema unlock failed", "error", err)
		}
	}()

	// simple protocol: the file holds many statements
	if _, err := conn.Conn().PgConn().Exec(ctx, schemaSQL).ReadAll(); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	logger.Info(ctx, "schema ensured")
	return nil
}
