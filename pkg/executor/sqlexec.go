package executor

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/TFMV/equibench/pkg/equivalence"
	"github.com/TFMV/equibench/pkg/errors"
)

// Options configures a SQLExecutor.
type Options struct {
	Driver  string
	DSN     string
	Dialect string
	Family  Family

	// ExplainPrefix and ExplainAnalyzePrefix are prepended to a statement to
	// request its plan. Engine packages supply these.
	ExplainPrefix        string
	ExplainAnalyzePrefix string

	// SlowQueryThreshold promotes an execution's debug log line to a warning.
	SlowQueryThreshold time.Duration

	Logger zerolog.Logger
}

// SQLExecutor implements Executor over database/sql. It pins exactly one
// *sql.Conn between Connect and Close so every statement of a benchmark
// lifecycle shares cache and session state.
type SQLExecutor struct {
	opts Options
	db   *sql.DB
	conn *sql.Conn
	log  zerolog.Logger
}

// NewSQLExecutor creates an executor over the given driver and DSN. The
// driver must already be registered with database/sql.
func NewSQLExecutor(opts Options) *SQLExecutor {
	if opts.SlowQueryThreshold <= 0 {
		opts.SlowQueryThreshold = time.Second
	}
	return &SQLExecutor{
		opts: opts,
		log: opts.Logger.With().
			Str("driver", opts.Driver).
			Str("family", opts.Family.String()).
			Logger(),
	}
}

// Connect opens the pool and pins the single connection.
func (e *SQLExecutor) Connect(ctx context.Context) error {
	if e.conn != nil {
		return nil
	}
	db, err := sql.Open(e.opts.Driver, e.opts.DSN)
	if err != nil {
		return errors.Wrap(err, errors.CodeConnection, "failed to open database")
	}
	// One pinned connection, nothing idle behind it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return errors.Wrap(err, errors.CodeConnection, "failed to acquire connection")
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		db.Close()
		return errors.Wrap(err, errors.CodeConnection, "connection ping failed")
	}

	e.db = db
	e.conn = conn
	e.log.Debug().Str("dialect", e.opts.Dialect).Msg("executor connected")
	return nil
}

// Close releases the pinned connection and the pool.
func (e *SQLExecutor) Close() error {
	var firstErr error
	if e.conn != nil {
		if err := e.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		e.conn = nil
	}
	if e.db != nil {
		if err := e.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		e.db = nil
	}
	if firstErr != nil {
		return errors.Wrap(firstErr, errors.CodeConnection, "failed to close executor")
	}
	return nil
}

// Execute runs a statement on the pinned connection and materializes rows.
func (e *SQLExecutor) Execute(ctx context.Context, query string, timeout time.Duration) (*ResultSet, error) {
	if e.conn == nil {
		return nil, errors.New(errors.CodeConnection, "executor is not connected")
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := e.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, e.classify(err, query)
	}
	rs, err := ScanRows(rows)
	if err != nil {
		return nil, e.classify(err, query)
	}
	e.logQuery(query, time.Since(start), rs.RowCount())
	return rs, nil
}

// Explain captures the plan text for a statement on the pinned connection.
func (e *SQLExecutor) Explain(ctx context.Context, query string, analyze bool) (string, error) {
	if e.conn == nil {
		return "", errors.New(errors.CodeConnection, "executor is not connected")
	}

	prefix := e.opts.ExplainPrefix
	if analyze && e.opts.ExplainAnalyzePrefix != "" {
		prefix = e.opts.ExplainAnalyzePrefix
	}
	rows, err := e.conn.QueryContext(ctx, prefix+query)
	if err != nil {
		return "", e.classify(err, query)
	}
	rs, err := ScanRows(rows)
	if err != nil {
		return "", e.classify(err, query)
	}

	var b strings.Builder
	for _, row := range rs.Rows {
		for _, cell := range row {
			text := equivalence.Canon(cell)
			if text == "" || text == "<NULL>" {
				continue
			}
			b.WriteString(text)
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

// Dialect returns the executor's dialect identifier.
func (e *SQLExecutor) Dialect() string { return e.opts.Dialect }

// Family returns the executor's engine family.
func (e *SQLExecutor) Family() Family { return e.opts.Family }

func (e *SQLExecutor) classify(err error, query string) error {
	code := errors.Classify(err)
	if code == errors.CodeUnknown {
		code = errors.CodeExecution
	}
	return errors.Wrapf(err, code, "statement failed: %s", truncate(query, 120))
}

func (e *SQLExecutor) logQuery(query string, elapsed time.Duration, rowCount int64) {
	evt := e.log.Debug()
	if elapsed > e.opts.SlowQueryThreshold {
		evt = e.log.Warn().Bool("slow_query", true)
	}
	evt.
		Dur("duration", elapsed).
		Int64("rows", rowCount).
		Str("sql", truncate(query, 120)).
		Msg("statement executed")
}

// ScanRows materializes *sql.Rows into typed values and closes them.
func ScanRows(rows *sql.Rows) (*ResultSet, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &ResultSet{Columns: columns}
	for rows.Next() {
		raw := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]equivalence.Value, len(columns))
		for i, cell := range raw {
			row[i] = equivalence.FromDriver(cell)
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

// truncate shortens long statements for logging.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
