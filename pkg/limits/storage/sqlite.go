package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteBackend implements Backend using SQLite for persistence.
// This backend provides durable storage and is suitable for single-instance
// deployments where the ledger must survive restarts.
//
// Amounts are stored as exact decimal text and summed in Go, so aggregates
// never pass through floating point. Instants are stored as UTC unix
// nanoseconds next to the original UTC offset in seconds.
//
// SQLiteBackend uses a write-ahead log (WAL) and periodic checkpointing. It
// implements Transactional: WithinTx opens an IMMEDIATE transaction so the
// duplicate check, aggregate reads and append run under the database write lock.
type SQLiteBackend struct {
	sqliteLedger

	db               *sql.DB
	dbPath           string
	snapshotInterval time.Duration
	done             chan struct{}
	closeOnce        sync.Once
}

// SQLiteBackendConfig configures the SQLite backend.
type SQLiteBackendConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// SnapshotInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	SnapshotInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// sqliteStatements holds the pre-compiled statements shared by the backend
// and its transactions.
type sqliteStatements struct {
	exists  *sql.Stmt
	count   *sql.Stmt
	amounts *sql.Stmt
	insert  *sql.Stmt
	get     *sql.Stmt
	list    *sql.Stmt
	totals  *sql.Stmt
	accAmts *sql.Stmt
}

func (s *sqliteStatements) close() {
	for _, st := range []*sql.Stmt{s.exists, s.count, s.amounts, s.insert, s.get, s.list, s.totals, s.accAmts} {
		if st != nil {
			st.Close()
		}
	}
}

// sqliteLedger implements the ledger operations against either the database
// or an open transaction, depending on how bind resolves a statement.
type sqliteLedger struct {
	stmts *sqliteStatements
	bind  func(ctx context.Context, st *sql.Stmt) *sql.Stmt
	now   func() time.Time
}

const attemptColumns = `load_id, customer_id, amount, occurred_at, zone_offset, accepted, recorded_at`

// NewSQLiteBackend creates a new SQLite storage backend with default settings.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	return NewSQLiteBackendWithConfig(SQLiteBackendConfig{
		DBPath:           dbPath,
		SnapshotInterval: 5 * time.Minute,
		BusyTimeout:      5 * time.Second,
	})
}

// NewSQLiteBackendWithConfig creates a new SQLite backend with custom configuration.
func NewSQLiteBackendWithConfig(cfg SQLiteBackendConfig) (*SQLiteBackend, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.SnapshotInterval == 0 {
		cfg.SnapshotInterval = 5 * time.Minute
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	// Open database with WAL mode, busy timeout and write-locking transactions
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate",
		cfg.DBPath, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	backend := &SQLiteBackend{
		db:               db,
		dbPath:           cfg.DBPath,
		snapshotInterval: cfg.SnapshotInterval,
		done:             make(chan struct{}),
	}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	stmts, err := prepareStatements(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	backend.sqliteLedger = sqliteLedger{
		stmts: stmts,
		bind:  func(_ context.Context, st *sql.Stmt) *sql.Stmt { return st },
		now:   time.Now,
	}

	go backend.checkpointLoop()

	return backend, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS load_attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		load_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		occurred_at INTEGER NOT NULL,
		zone_offset INTEGER NOT NULL,
		accepted INTEGER NOT NULL,
		recorded_at INTEGER NOT NULL,
		UNIQUE (load_id, customer_id)
	);

	CREATE INDEX IF NOT EXISTS idx_load_attempts_customer_time ON load_attempts(customer_id, occurred_at);
	CREATE INDEX IF NOT EXISTS idx_load_attempts_time ON load_attempts(occurred_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func prepareStatements(db *sql.DB) (*sqliteStatements, error) {
	stmts := &sqliteStatements{}
	window := `customer_id = ? AND occurred_at BETWEEN ? AND ? AND (? = 0 OR accepted = 1)`

	queries := []struct {
		dst  **sql.Stmt
		name string
		sql  string
	}{
		{&stmts.exists, "exists", `SELECT 1 FROM load_attempts WHERE load_id = ? AND customer_id = ? LIMIT 1`},
		{&stmts.count, "count", `SELECT COUNT(*) FROM load_attempts WHERE ` + window},
		{&stmts.amounts, "amounts", `SELECT amount FROM load_attempts WHERE ` + window},
		{&stmts.insert, "insert", `INSERT INTO load_attempts (` + attemptColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (load_id, customer_id) DO NOTHING`},
		{&stmts.get, "get", `SELECT ` + attemptColumns + ` FROM load_attempts WHERE load_id = ? AND customer_id = ?`},
		{&stmts.list, "list", `SELECT ` + attemptColumns + ` FROM load_attempts WHERE ` + window + ` ORDER BY occurred_at, id`},
		{&stmts.totals, "totals", `SELECT COUNT(*), COALESCE(SUM(accepted), 0), COUNT(DISTINCT customer_id)
			FROM load_attempts WHERE occurred_at BETWEEN ? AND ?`},
		{&stmts.accAmts, "accepted amounts", `SELECT amount FROM load_attempts WHERE occurred_at BETWEEN ? AND ? AND accepted = 1`},
	}

	for _, q := range queries {
		st, err := db.Prepare(q.sql)
		if err != nil {
			stmts.close()
			return nil, fmt.Errorf("failed to prepare %s statement: %w", q.name, err)
		}
		*q.dst = st
	}

	return stmts, nil
}

// WithinTx runs fn inside an IMMEDIATE transaction.
func (s *SQLiteBackend) WithinTx(ctx context.Context, fn func(tx Backend) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txBackend := &sqliteTx{
		sqliteLedger: sqliteLedger{
			stmts: s.stmts,
			bind:  tx.StmtContext,
			now:   s.now,
		},
	}

	if err := fn(txBackend); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *SQLiteBackend) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases any resources held by the backend.
// Close is idempotent and safe to call multiple times.
func (s *SQLiteBackend) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		if s.stmts != nil {
			s.stmts.close()
		}

		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

// checkpointLoop runs periodic WAL checkpoints.
func (s *SQLiteBackend) checkpointLoop() {
	ticker := time.NewTicker(s.snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}

// sqliteTx is the Backend view of an open transaction.
type sqliteTx struct {
	sqliteLedger
}

// Ping is a no-op inside a transaction.
func (t *sqliteTx) Ping(ctx context.Context) error { return ctx.Err() }

// Close is a no-op; the transaction is finished by WithinTx.
func (t *sqliteTx) Close() error { return nil }

// Exists reports whether an attempt with the given key has been recorded.
func (l *sqliteLedger) Exists(ctx context.Context, loadID string, customerID string) (bool, error) {
	var one int
	err := l.bind(ctx, l.stmts.exists).QueryRowContext(ctx, loadID, customerID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check attempt: %w", err)
	}
	return true, nil
}

// SumAmount returns the exact sum of attempt amounts matching the query.
func (l *sqliteLedger) SumAmount(ctx context.Context, q WindowQuery) (decimal.Decimal, error) {
	rows, err := l.bind(ctx, l.stmts.amounts).QueryContext(ctx, windowArgs(q)...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum amounts: %w", err)
	}
	return sumAmountRows(rows)
}

// CountAttempts returns the number of attempts matching the query.
func (l *sqliteLedger) CountAttempts(ctx context.Context, q WindowQuery) (int64, error) {
	var count int64
	if err := l.bind(ctx, l.stmts.count).QueryRowContext(ctx, windowArgs(q)...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return count, nil
}

// Append records a new attempt.
func (l *sqliteLedger) Append(ctx context.Context, attempt *LoadAttempt) error {
	if err := validateAttempt(attempt); err != nil {
		return err
	}

	recordedAt := attempt.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = l.now()
	}
	_, offset := attempt.OccurredAt.Zone()

	result, err := l.bind(ctx, l.stmts.insert).ExecContext(ctx,
		attempt.LoadID,
		attempt.CustomerID,
		attempt.Amount.String(),
		attempt.OccurredAt.UnixNano(),
		offset,
		boolToInt(attempt.Accepted),
		recordedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to append attempt: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrDuplicateKey
	}
	return nil
}

// Get returns the attempt with the given key.
func (l *sqliteLedger) Get(ctx context.Context, loadID string, customerID string) (*LoadAttempt, error) {
	row := l.bind(ctx, l.stmts.get).QueryRowContext(ctx, loadID, customerID)
	attempt, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}
	return attempt, nil
}

// List returns the attempts matching the query ordered by OccurredAt.
func (l *sqliteLedger) List(ctx context.Context, q WindowQuery) ([]*LoadAttempt, error) {
	rows, err := l.bind(ctx, l.stmts.list).QueryContext(ctx, windowArgs(q)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*LoadAttempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return attempts, nil
}

// Totals aggregates every customer's attempts in [start, end].
func (l *sqliteLedger) Totals(ctx context.Context, start, end time.Time) (Totals, error) {
	totals := Totals{AcceptedAmount: decimal.Zero}

	err := l.bind(ctx, l.stmts.totals).QueryRowContext(ctx, start.UnixNano(), end.UnixNano()).
		Scan(&totals.Attempts, &totals.Accepted, &totals.Customers)
	if err != nil {
		return Totals{}, fmt.Errorf("failed to aggregate totals: %w", err)
	}

	rows, err := l.bind(ctx, l.stmts.accAmts).QueryContext(ctx, start.UnixNano(), end.UnixNano())
	if err != nil {
		return Totals{}, fmt.Errorf("failed to sum accepted amounts: %w", err)
	}
	totals.AcceptedAmount, err = sumAmountRows(rows)
	if err != nil {
		return Totals{}, err
	}
	return totals, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (*LoadAttempt, error) {
	var (
		loadID, customerID, amount string
		occurredAt, recordedAt     int64
		offset, accepted           int
	)
	if err := row.Scan(&loadID, &customerID, &amount, &occurredAt, &offset, &accepted, &recordedAt); err != nil {
		return nil, err
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount %q for load %s: %w", amount, loadID, err)
	}

	return &LoadAttempt{
		LoadID:     loadID,
		CustomerID: customerID,
		Amount:     value,
		OccurredAt: time.Unix(0, occurredAt).In(zoneFor(offset)),
		Accepted:   accepted == 1,
		RecordedAt: time.Unix(0, recordedAt).UTC(),
	}, nil
}

func sumAmountRows(rows *sql.Rows) (decimal.Decimal, error) {
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan amount: %w", err)
		}
		value, err := decimal.NewFromString(amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("corrupt amount %q: %w", amount, err)
		}
		sum = sum.Add(value)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("error iterating rows: %w", err)
	}
	return sum, nil
}

func windowArgs(q WindowQuery) []any {
	return []any{q.CustomerID, q.Start.UnixNano(), q.End.UnixNano(), boolToInt(q.AcceptedOnly)}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// zoneFor returns the location used to rebuild a stored instant.
func zoneFor(offset int) *time.Location {
	if offset == 0 {
		return time.UTC
	}
	return time.FixedZone("", offset)
}
