package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/piot-cda/internal/data"
)

const (
	// DefaultLimit is used when a query asks for zero or fewer rows.
	DefaultLimit = 50

	// MaxLimit caps every query.
	MaxLimit = 500

	// timeLayout is fixed-width so stored timestamps sort as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// Store is the SQLite history.
//
// Thread Safety:
//   - Safe for concurrent use; *sql.DB serialises access.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a Store on an open, migrated database.
//
// Parameters:
//   - db: Connection with the history schema applied
//
// Returns:
//   - *Store: Ready for use
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// RecordSensorData appends a sensor reading.
func (s *Store) RecordSensorData(ctx context.Context, d *data.SensorData) error {
	if d == nil {
		return ErrNilData
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sensor_history (name, type_id, location_id, value, status_code, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		d.Name, d.TypeID, d.LocationID, d.Value, d.StatusCode, s.stamp(d.TimeStamp),
	)
	if err != nil {
		return fmt.Errorf("inserting sensor history: %w", err)
	}
	return nil
}

// RecordActuatorData appends an actuator command or response.
func (s *Store) RecordActuatorData(ctx context.Context, d *data.ActuatorData) error {
	if d == nil {
		return ErrNilData
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO actuator_history
		 (name, type_id, location_id, command, value, state_data, is_response, status_code, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Name, d.TypeID, d.LocationID, d.Command, d.Value, d.StateData, d.IsResponse, d.StatusCode,
		s.stamp(d.TimeStamp),
	)
	if err != nil {
		return fmt.Errorf("inserting actuator history: %w", err)
	}
	return nil
}

// RecordSystemPerformanceData appends a performance snapshot.
func (s *Store) RecordSystemPerformanceData(ctx context.Context, d *data.SystemPerformanceData) error {
	if d == nil {
		return ErrNilData
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO system_performance_history
		 (name, location_id, cpu_utilization, disk_utilization, memory_utilization, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		d.Name, d.LocationID, d.CPUUtilization, d.DiskUtilization, d.MemoryUtilization,
		s.stamp(d.TimeStamp),
	)
	if err != nil {
		return fmt.Errorf("inserting performance history: %w", err)
	}
	return nil
}

// SensorHistory returns the latest readings for name, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - name: Sensor name
//   - limit: Maximum rows (default 50, max 500)
//
// Returns:
//   - []*data.SensorData: Readings ordered by timestamp descending
//   - error: ErrNameRequired, or the underlying query error
func (s *Store) SensorHistory(ctx context.Context, name string, limit int) ([]*data.SensorData, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, type_id, location_id, value, status_code, recorded_at
		 FROM sensor_history
		 WHERE name = ?
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`,
		name, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying sensor history: %w", err)
	}
	defer rows.Close()

	var out []*data.SensorData
	for rows.Next() {
		var (
			d          data.SensorData
			status     int
			recordedAt string
		)
		if err := rows.Scan(&d.Name, &d.TypeID, &d.LocationID, &d.Value, &status, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning sensor history: %w", err)
		}
		if d.TimeStamp, err = parseStamp(recordedAt); err != nil {
			return nil, err
		}
		// SetStatusCode would restamp the record.
		d.StatusCode, d.HasError = status, status < 0
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensor history: %w", err)
	}
	return out, nil
}

// ActuatorHistory returns the latest commands and responses for name,
// newest first. limit behaves as in SensorHistory.
func (s *Store) ActuatorHistory(ctx context.Context, name string, limit int) ([]*data.ActuatorData, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, type_id, location_id, command, value, state_data, is_response, status_code, recorded_at
		 FROM actuator_history
		 WHERE name = ?
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`,
		name, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying actuator history: %w", err)
	}
	defer rows.Close()

	var out []*data.ActuatorData
	for rows.Next() {
		var (
			d          data.ActuatorData
			status     int
			recordedAt string
		)
		if err := rows.Scan(&d.Name, &d.TypeID, &d.LocationID, &d.Command, &d.Value,
			&d.StateData, &d.IsResponse, &status, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning actuator history: %w", err)
		}
		if d.TimeStamp, err = parseStamp(recordedAt); err != nil {
			return nil, err
		}
		// SetStatusCode would restamp the record.
		d.StatusCode, d.HasError = status, status < 0
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating actuator history: %w", err)
	}
	return out, nil
}

// SystemPerformanceHistory returns the latest snapshots, newest first.
func (s *Store) SystemPerformanceHistory(ctx context.Context, limit int) ([]*data.SystemPerformanceData, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, location_id, cpu_utilization, disk_utilization, memory_utilization, recorded_at
		 FROM system_performance_history
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying performance history: %w", err)
	}
	defer rows.Close()

	var out []*data.SystemPerformanceData
	for rows.Next() {
		d := data.NewSystemPerformanceData()
		var recordedAt string
		if err := rows.Scan(&d.Name, &d.LocationID, &d.CPUUtilization, &d.DiskUtilization,
			&d.MemoryUtilization, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning performance history: %w", err)
		}
		if d.TimeStamp, err = parseStamp(recordedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating performance history: %w", err)
	}
	return out, nil
}

// Prune deletes every row recorded before olderThan, across all tables, in
// one transaction.
//
// Returns:
//   - int64: Total rows deleted
//   - error: nil on success, otherwise the underlying database error
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting prune: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	cutoff := olderThan.UTC().Format(timeLayout)
	var total int64
	for _, table := range []string{"sensor_history", "actuator_history", "system_performance_history"} {
		res, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE recorded_at < ?", cutoff)
		if err != nil {
			return 0, fmt.Errorf("pruning %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("checking rows affected: %w", err)
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing prune: %w", err)
	}
	return total, nil
}

// stamp formats ts for storage, substituting the current time for a zero
// timestamp.
func (s *Store) stamp(ts time.Time) string {
	if ts.IsZero() {
		ts = s.now()
	}
	return ts.UTC().Format(timeLayout)
}

func parseStamp(value string) (time.Time, error) {
	ts, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing recorded_at: %w", err)
	}
	return ts, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}
