package ingest

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/agentic-research/fmsx/api"
)

// Schema is the layout of a local query database.
const Schema = `
CREATE TABLE IF NOT EXISTS annotations (
	name TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	record JSON NOT NULL
);
CREATE TABLE IF NOT EXISTS files (
	id TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	record JSON NOT NULL
);
`

// SQLiteWriter bulk-loads annotations and file records into a local query
// database. Inserts are batched into transactions of batchSize rows.
type SQLiteWriter struct {
	db        *sql.DB
	tx        *sql.Tx
	stmtAnn   *sql.Stmt
	stmtFile  *sql.Stmt
	batchSize int
	count     int
	annPos    int
	filePos   int
	logger    *zap.Logger
	mu        sync.Mutex
}

// NewSQLiteWriter creates a new writer and initializes the schema.
func NewSQLiteWriter(dbPath string, logger *zap.Logger) (*SQLiteWriter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Performance tuning for bulk insert
	if _, err := db.Exec("PRAGMA synchronous = OFF"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	w := &SQLiteWriter{
		db:        db,
		batchSize: 10000,
		logger:    logger,
	}
	if err := w.beginTx(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func (w *SQLiteWriter) beginTx() error {
	var err error
	w.tx, err = w.db.Begin()
	if err != nil {
		return err
	}
	w.stmtAnn, err = w.tx.Prepare(`INSERT OR REPLACE INTO annotations (name, position, record) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	w.stmtFile, err = w.tx.Prepare(`INSERT OR REPLACE INTO files (id, position, record) VALUES (?, ?, ?)`)
	return err
}

func (w *SQLiteWriter) commitTx() error {
	if w.stmtAnn != nil {
		_ = w.stmtAnn.Close()
	}
	if w.stmtFile != nil {
		_ = w.stmtFile.Close()
	}
	return w.tx.Commit()
}

// AddAnnotation stores one annotation definition. Order of calls is kept.
func (w *SQLiteWriter) AddAnnotation(a api.AnnotationResponse) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode annotation %s: %w", a.Name, err)
	}
	if _, err := w.stmtAnn.Exec(a.Name, w.annPos, string(raw)); err != nil {
		return fmt.Errorf("insert annotation %s: %w", a.Name, err)
	}
	w.annPos++
	return w.tick()
}

// AddFile stores one file record. Records without file_id get a positional id.
func (w *SQLiteWriter) AddFile(rec api.FileRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := api.NewFileDetail(rec).ID()
	if id == "" {
		id = fmt.Sprintf("file-%d", w.filePos)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode file %s: %w", id, err)
	}
	if _, err := w.stmtFile.Exec(id, w.filePos, string(raw)); err != nil {
		return fmt.Errorf("insert file %s: %w", id, err)
	}
	w.filePos++
	return w.tick()
}

func (w *SQLiteWriter) tick() error {
	w.count++
	if w.count < w.batchSize {
		return nil
	}
	w.logger.Debug("commit batch", zap.Int("rows", w.count))
	if err := w.commitTx(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	w.count = 0
	return w.beginTx()
}

// Close commits the open batch, indexes positions and closes the database.
func (w *SQLiteWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.commitTx(); err != nil {
		_ = w.db.Close()
		return err
	}
	// Create indices after bulk load for speed
	if _, err := w.db.Exec(`CREATE INDEX IF NOT EXISTS idx_files_position ON files(position)`); err != nil {
		w.logger.Warn("index creation failed", zap.Error(err))
	}
	return w.db.Close()
}

// Counts reports how many annotations and files were written.
func (w *SQLiteWriter) Counts() (annotations, files int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.annPos, w.filePos
}
