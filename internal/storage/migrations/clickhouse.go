package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"strings"

	chstore "staking-vault-lab/internal/storage/clickhouse"
)

// RunClickhouseMigrations creates the history database if missing and
// applies the embedded schema files. The returned connection is bound to
// the target database and is meant to back the history stores.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}

	if err := ensureDatabase(ctx, dsn, dbName); err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse db: %w", err)
	}

	files, err := sqlFiles(ClickhouseFS, "clickhouse")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("list clickhouse migrations: %w", err)
	}

	for _, name := range files {
		sql, err := fs.ReadFile(ClickhouseFS, "clickhouse/"+name)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		// The driver rejects multi-statement Exec, so each file is split
		// on semicolons and run statement by statement.
		stmts, err := splitStatements(string(sql))
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("split migration %s: %w", name, err)
		}
		for _, stmt := range stmts {
			if err := conn.Exec(ctx, stmt); err != nil {
				conn.Close()
				return nil, fmt.Errorf("apply migration %s: %w", name, err)
			}
		}
	}

	return conn, nil
}

// ensureDatabase connects without a database selected and issues the
// CREATE DATABASE, then drops the admin connection.
func ensureDatabase(ctx context.Context, dsn, dbName string) error {
	adminConn, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse admin: %w", err)
	}
	if err := adminConn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", dbName)); err != nil {
		adminConn.Close()
		return fmt.Errorf("create database %s: %w", dbName, err)
	}
	if err := adminConn.Close(); err != nil {
		return fmt.Errorf("close admin connection: %w", err)
	}
	return nil
}

// splitStatements cuts a migration file into single statements on bare
// semicolons, after stripping blank lines and -- comments.
//
// The splitter does not parse SQL. Migration files must therefore keep
// semicolons out of string literals (checked below, a quoted semicolon is
// an error) and use -- comments only.
func splitStatements(input string) ([]string, error) {
	var kept []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, line)
	}
	joined := strings.Join(kept, "\n")

	if err := rejectQuotedSemicolons(joined); err != nil {
		return nil, err
	}

	var stmts []string
	for _, part := range strings.Split(joined, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts, nil
}

// rejectQuotedSemicolons errors when a semicolon sits inside a
// single-quoted literal, which the splitter would cut in half.
func rejectQuotedSemicolons(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			// doubled quote is an escape, not a string boundary
			if i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
		case ';':
			if inString {
				return fmt.Errorf("semicolon inside string literal")
			}
		}
	}
	return nil
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	return db, nil
}
