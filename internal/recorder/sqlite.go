package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"CryptoBoard/internal/collector"
	"CryptoBoard/internal/model"
)

// SQLiteRecorder appends snapshots and chart renders to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the board writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS market_snapshots (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp         INTEGER NOT NULL,
			total_market_cap  REAL,
			total_volume      REAL,
			btc_dominance_pct REAL,
			active_count      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON market_snapshots(timestamp)`,

		`CREATE TABLE IF NOT EXISTS snapshot_assets (
			snapshot_id        INTEGER NOT NULL REFERENCES market_snapshots(id),
			rank               INTEGER,
			symbol             TEXT,
			price_usd          REAL,
			percent_change_24h REAL,
			percent_change_7d  REAL,
			market_cap         REAL,
			volume_24h         REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assets_snapshot ON snapshot_assets(snapshot_id)`,

		`CREATE TABLE IF NOT EXISTS chart_renders (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			slot         TEXT,
			symbol       TEXT,
			time_window  TEXT,
			points       INTEGER,
			last_price   REAL,
			change_pct   REAL,
			high         REAL,
			low          REAL,
			rsi          REAL,
			ma20         REAL,
			ma50         REAL,
			signal_label TEXT,
			signal_score REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_charts_ts ON chart_renders(timestamp)`,

		`CREATE TABLE IF NOT EXISTS fetch_errors (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			target    TEXT,
			kind      TEXT,
			message   TEXT
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSnapshot(snap *model.MarketSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO market_snapshots
		(timestamp, total_market_cap, total_volume, btc_dominance_pct, active_count)
		VALUES (?,?,?,?,?)`,
		unixOrNow(snap.FetchedAt), snap.TotalMarketCap, snap.TotalVolume,
		snap.BTCDominancePct, snap.ActiveCount,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("snapshot id: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO snapshot_assets
		(snapshot_id, rank, symbol, price_usd, percent_change_24h, percent_change_7d, market_cap, volume_24h)
		VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare asset insert: %w", err)
	}
	defer stmt.Close()
	for _, a := range snap.Assets {
		var rank sql.NullInt64
		if a.Rank != nil {
			rank = sql.NullInt64{Int64: int64(*a.Rank), Valid: true}
		}
		if _, err := stmt.Exec(id, rank, a.Symbol, a.PriceUSD, a.PercentChange24h,
			a.PercentChange7d, a.MarketCap, a.Volume24h); err != nil {
			return fmt.Errorf("insert asset %s: %w", a.Symbol, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordChart(slot string, chart *model.ChartData) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := chart.Series
	ind := chart.Indicators
	var rsi sql.NullFloat64
	if ind.RSIValid {
		rsi = sql.NullFloat64{Float64: ind.RSI, Valid: true}
	}

	_, err := r.db.Exec(`INSERT INTO chart_renders
		(timestamp, slot, symbol, time_window, points, last_price, change_pct, high, low,
		 rsi, ma20, ma50, signal_label, signal_score)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		unixOrNow(s.FetchedAt), slot, s.Symbol, s.Window.String(), len(s.Prices),
		ind.LastPrice, ind.ChangePct, ind.High, ind.Low,
		rsi, ind.MA20, ind.MA50, string(chart.Signal.Label), chart.Signal.Score,
	)
	return err
}

func (r *SQLiteRecorder) RecordError(target string, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kind := "error"
	if k := collector.KindOf(cause); k != 0 {
		kind = k.String()
	}
	_, err := r.db.Exec(`INSERT INTO fetch_errors (timestamp, target, kind, message) VALUES (?,?,?,?)`,
		time.Now().Unix(), target, kind, cause.Error(),
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}

func unixOrNow(t time.Time) int64 {
	if t.IsZero() {
		return time.Now().Unix()
	}
	return t.Unix()
}
