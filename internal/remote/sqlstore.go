package remote

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// sqlStore backs the remote store with a relational database. Each subject
// gets its own attendance table, mirroring the per-subject collections of
// the MongoDB backend.
type sqlStore struct {
	db      *sql.DB
	dialect string // "postgres" or "mysql"
}

func openPostgres(ctx context.Context, uri string) (Store, error) {
	return openSQL(ctx, "postgres", uri)
}

func openMySQL(ctx context.Context, dsn string) (Store, error) {
	return openSQL(ctx, "mysql", dsn)
}

func openSQL(ctx context.Context, dialect, dsn string) (Store, error) {
	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dialect, err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", dialect, err)
	}

	return &sqlStore{db: db, dialect: dialect}, nil
}

// tableName derives the per-subject table name. Subjects come from user
// input, so anything outside [a-z0-9_] is stripped before the name is
// interpolated into DDL.
func tableName(subject string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(subject) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" {
		name = "unknown"
	}
	return "attendance_" + name
}

func (s *sqlStore) placeholder(n int) string {
	if s.dialect == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *sqlStore) ensureTable(ctx context.Context, table string) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		enrollment VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		subject VARCHAR(255) NOT NULL,
		date VARCHAR(32) NOT NULL,
		timestamp VARCHAR(32) NOT NULL,
		status VARCHAR(32) NOT NULL,
		batch_id VARCHAR(64) NOT NULL
	)`, table)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return nil
}

func (s *sqlStore) Insert(ctx context.Context, subject string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	table := tableName(subject)
	if err := s.ensureTable(ctx, table); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := make([]string, 7)
	for i := range placeholders {
		placeholders[i] = s.placeholder(i + 1)
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (enrollment, name, subject, date, timestamp, status, batch_id) VALUES (%s)",
		table, strings.Join(placeholders, ", "),
	)

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		if _, err := stmt.ExecContext(ctx, d.Enrollment, d.Name, d.Subject, d.Date, d.Timestamp, d.Status, d.BatchID); err != nil {
			return fmt.Errorf("failed to insert attendance row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit attendance batch: %w", err)
	}
	return nil
}

func (s *sqlStore) Close(ctx context.Context) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database connection: %w", err)
	}
	return nil
}
