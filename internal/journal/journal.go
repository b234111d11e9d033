// Package journal keeps a local sqlite log of sent and simulated transactions.
package journal

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/marinade-finance/marinade-cli-utils/pkg/transaction"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Entry is one journal row.
type Entry struct {
	ID           int64
	CreatedAt    time.Time
	Command      string
	Signature    string
	Signers      []string
	Instructions int
	Simulated    bool
	Error        string
}

type Journal struct {
	db      *sql.DB
	mu      sync.Mutex
	command string
}

var _ transaction.Recorder = (*Journal)(nil)

// DefaultPath is the journal location under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve config dir")
	}
	return filepath.Join(dir, "marinade-cli", "journal.db"), nil
}

// Open opens or creates the journal at path. ":memory:" keeps it in memory.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, errors.Wrapf(err, "failed to create journal dir for %s", path)
		}
	}
	log.Debug().Msgf("opening journal at: '%s'", path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open journal")
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping journal")
	}
	j := &Journal{db: db}
	if err := j.initTables(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to init journal tables")
	}
	return j, nil
}

func (j *Journal) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS tx (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at INTEGER NOT NULL,
			command TEXT NOT NULL,
			signature TEXT,
			signers TEXT NOT NULL,
			instructions INTEGER NOT NULL,
			simulated INTEGER NOT NULL,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_signature ON tx(signature)`,
	}
	for i, query := range queries {
		if _, err := j.db.Exec(query); err != nil {
			return errors.Wrapf(err, "failed to execute query: %d", i)
		}
	}
	return nil
}

// WithCommand tags subsequent records with the CLI command that produced them.
func (j *Journal) WithCommand(command string) *Journal {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.command = command
	return j
}

func (j *Journal) Record(ctx context.Context, r transaction.Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	var signature sql.NullString
	if r.Signature != (solana.Signature{}) {
		signature = sql.NullString{String: r.Signature.String(), Valid: true}
	}
	var errText sql.NullString
	if r.Err != nil {
		errText = sql.NullString{String: r.Err.Error(), Valid: true}
	}
	signers := make([]string, 0, len(r.Signers))
	for _, s := range r.Signers {
		signers = append(signers, s.String())
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO tx (created_at, command, signature, signers, instructions, simulated, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UnixMilli(), j.command, signature, strings.Join(signers, ","),
		r.Instructions, r.Simulated, errText,
	)
	return errors.Wrap(err, "failed to insert journal record")
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, created_at, command, signature, signers, instructions, simulated, error
		FROM tx ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query journal")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			createdAt int64
			signature sql.NullString
			signers   string
			errText   sql.NullString
		)
		if err := rows.Scan(&e.ID, &createdAt, &e.Command, &signature, &signers, &e.Instructions, &e.Simulated, &errText); err != nil {
			return nil, errors.Wrap(err, "failed to scan journal row")
		}
		e.CreatedAt = time.UnixMilli(createdAt)
		e.Signature = signature.String
		e.Error = errText.String
		if signers != "" {
			e.Signers = strings.Split(signers, ",")
		}
		entries = append(entries, e)
	}
	return entries, errors.WithStack(rows.Err())
}

func (j *Journal) Close() error {
	return j.db.Close()
}
