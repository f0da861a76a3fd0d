/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package backend publishes indexed corpus runs to a shared PostgreSQL
// database so several analysts can query the same speech acts.
package backend

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"scriptturns/internal/corpus"
	applog "scriptturns/internal/log"
	"scriptturns/internal/storage"
	"scriptturns/internal/version"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Publisher writes runs into the shared database.
type Publisher struct {
	db  *sql.DB
	log *slog.Logger
}

// Open connects to dsn, verifies the connection and applies pending migrations.
func Open(ctx context.Context, dsn string) (*Publisher, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("database dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	p := &Publisher{db: db, log: applog.WithComponent("backend")}
	if err := p.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return p, nil
}

// Close releases the connection pool.
func (p *Publisher) Close() error { return p.db.Close() }

// Publish stores run and recs. Rows already present (same run, document,
// character and speech id) are left untouched, so publishing is idempotent.
// It returns the number of speech acts inserted.
func (p *Publisher) Publish(ctx context.Context, run storage.Run, recs []corpus.Record) (int64, error) {
	if run.ID == "" {
		return 0, errors.New("run id is required")
	}
	if run.App == "" {
		run.App = version.String()
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs(run_id, started_at, finished_at, app, documents, records)
		 VALUES($1, $2, $3, $4, $5, $6) ON CONFLICT (run_id) DO NOTHING`,
		run.ID, nonZero(run.Started), nonZero(run.Finished), run.App, run.Documents, len(recs),
	); err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	ins, err := tx.PrepareContext(ctx,
		`INSERT INTO speech_acts(run_id, document, character, speech_id, line_index, text)
		 VALUES($1, $2, $3, $4, $5, $6) ON CONFLICT (run_id, document, character, speech_id) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = ins.Close() }()
	var inserted int64
	for _, r := range recs {
		res, err := ins.ExecContext(ctx, run.ID, r.Document, r.Character, r.SpeechID, r.LineIndex, r.Text)
		if err != nil {
			return 0, fmt.Errorf("insert speech act %s: %w", r.CharacterID(), err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += n
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	p.log.InfoContext(ctx, "run published", slog.String("run", run.ID), slog.Int64("inserted", inserted), slog.Int("records", len(recs)))
	return inserted, nil
}

func nonZero(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

// WithPassword injects password into dsn unless it already carries one.
// URL and key/value DSNs are both accepted.
func WithPassword(dsn, password string) (string, error) {
	if password == "" {
		return dsn, nil
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		if u.User == nil {
			return "", errors.New("dsn has no user to attach a password to")
		}
		if _, has := u.User.Password(); has {
			return dsn, nil
		}
		u.User = url.UserPassword(u.User.Username(), password)
		return u.String(), nil
	}
	if strings.Contains(dsn, "password=") {
		return dsn, nil
	}
	esc := strings.NewReplacer(`\`, `\\`, "'", `\'`).Replace(password)
	return strings.TrimSpace(dsn + " password='" + esc + "'"), nil
}

// migrationFiles lists the embedded .sql files in version order.
func migrationFiles() ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(strings.ToLower(name), ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return files, nil
}

// applyMigrations applies embedded SQL migrations in filename order and
// records each applied version in schema_migrations.
func (p *Publisher) applyMigrations(ctx context.Context) error {
	files, err := migrationFiles()
	if err != nil {
		return err
	}
	if _, err := p.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied := map[int64]bool{}
	rows, err := p.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, fname := range files {
		v, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[v] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		p.log.InfoContext(ctx, "applying migration", slog.String("file", fname))
		if err := p.applyOne(ctx, v, fname, string(b)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) applyOne(ctx context.Context, v int64, name, sqlText string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback() }()
	if strings.TrimSpace(sqlText) != "" {
		if _, err := tx.ExecContext(ctx, sqlText); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES($1, $2)`, v, name); err != nil {
		return fmt.Errorf("record %s: %w", name, err)
	}
	return tx.Commit()
}

func parseVersion(name string) (int64, error) {
	base := path.Base(name)
	prefix, _, ok := strings.Cut(base, "_")
	if !ok {
		return 0, errors.New("invalid migration filename: " + name)
	}
	v, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}
