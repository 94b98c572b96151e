package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"staking-vault-lab/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded vault schema in lexical file
// order. Every statement uses IF NOT EXISTS, so reruns are safe.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := sqlFiles(PostgresFS, "postgres")
	if err != nil {
		return fmt.Errorf("list postgres migrations: %w", err)
	}

	for _, name := range files {
		sql, err := fs.ReadFile(PostgresFS, "postgres/"+name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if strings.TrimSpace(string(sql)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}
