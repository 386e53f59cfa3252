// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package registry persists discovered devices and their last health
// verdict in SQLite.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/netip"
	"sort"
	"time"

	"github.com/ManuGH/rtspscout/internal/netscan"
	"github.com/ManuGH/rtspscout/internal/stream"
	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)
)

var ErrNotFound = errors.New("device not found")

const defaultRTSPPort = 554

// Device is one registered camera.
type Device struct {
	IPAddress   string     `json:"ip_address"`
	Name        string     `json:"name"`
	Hostname    string     `json:"hostname,omitempty"`
	Vendor      string     `json:"vendor"`
	Port        int        `json:"port"`
	RTSPURL     string     `json:"rtsp_url"`
	Status      string     `json:"status"`
	LastError   string     `json:"last_error,omitempty"`
	LastSeen    *time.Time `json:"last_seen,omitempty"`
	LastChecked *time.Time `json:"last_checked,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Store is the SQLite-backed device registry.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open initializes the registry at dbPath and runs migrations.
func Open(dbPath string) (*Store, error) {
	// pragmas go in the DSN so they apply to every pooled connection
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		dbPath, (5 * time.Second).Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS devices (
		ip_address TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		hostname TEXT NOT NULL DEFAULT '',
		vendor TEXT NOT NULL DEFAULT 'Unknown',
		port INTEGER NOT NULL DEFAULT 554,
		rtsp_url TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'ONLINE' CHECK(status IN ('ONLINE', 'OFFLINE', 'UNREACHABLE')),
		last_error TEXT NOT NULL DEFAULT '',
		last_seen TEXT,
		last_checked TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_devices_status ON devices(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertDevices records freshly discovered devices as ONLINE. Existing rows
// keep their hostname, vendor and URL when the new descriptor lacks them.
func (s *Store) UpsertDevices(ctx context.Context, devices []netscan.DeviceDescriptor) (int, error) {
	if len(devices) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO devices (ip_address, name, hostname, vendor, port, rtsp_url, status, last_error, last_seen, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, 'ONLINE', '', ?, ?, ?)
	ON CONFLICT(ip_address) DO UPDATE SET
		hostname = COALESCE(NULLIF(excluded.hostname, ''), devices.hostname),
		vendor = CASE WHEN excluded.vendor = 'Unknown' THEN devices.vendor ELSE excluded.vendor END,
		rtsp_url = CASE WHEN ? = '' THEN devices.rtsp_url ELSE excluded.rtsp_url END,
		status = 'ONLINE',
		last_error = '',
		last_seen = excluded.last_seen,
		updated_at = excluded.updated_at
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := formatTime(s.now())
	n := 0
	for _, d := range devices {
		if d.IPAddress == "" {
			continue
		}
		vendor := d.Vendor
		if vendor == "" {
			vendor = netscan.VendorUnknown
		}
		if _, err := stmt.ExecContext(ctx,
			d.IPAddress, deviceName(d), d.Hostname, vendor, devicePort(d), deviceURL(d),
			now, now, now, d.RTSPURL,
		); err != nil {
			return 0, fmt.Errorf("upsert %s: %w", d.IPAddress, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// UpdateHealth stores a health verdict. last_seen only moves on ONLINE.
func (s *Store) UpdateHealth(ctx context.Context, res stream.HealthResult) error {
	checked := res.CheckedAt
	if checked.IsZero() {
		checked = s.now()
	}
	ts := formatTime(checked)
	result, err := s.db.ExecContext(ctx, `
	UPDATE devices SET
		status = ?,
		last_error = ?,
		last_checked = ?,
		last_seen = CASE WHEN ? = 'ONLINE' THEN ? ELSE last_seen END,
		updated_at = ?
	WHERE ip_address = ?
	`, string(res.Status), res.ErrorMessage, ts, string(res.Status), ts, ts, res.IPAddress)
	if err != nil {
		return fmt.Errorf("update health %s: %w", res.IPAddress, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

const selectColumns = `
	SELECT ip_address, name, hostname, vendor, port, rtsp_url, status, last_error,
	       last_seen, last_checked, created_at, updated_at
	FROM devices`

// Get returns one device by IP.
func (s *Store) Get(ctx context.Context, ip string) (*Device, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE ip_address = ?`, ip)
	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// List returns all devices in address order.
func (s *Store) List(ctx context.Context) ([]Device, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return lessIP(out[i].IPAddress, out[j].IPAddress) })
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(r rowScanner) (*Device, error) {
	var (
		d                   Device
		lastSeen, lastCheck sql.NullString
		created, updated    string
	)
	if err := r.Scan(&d.IPAddress, &d.Name, &d.Hostname, &d.Vendor, &d.Port, &d.RTSPURL, &d.Status,
		&d.LastError, &lastSeen, &lastCheck, &created, &updated); err != nil {
		return nil, err
	}
	d.LastSeen = parseNullTime(lastSeen)
	d.LastChecked = parseNullTime(lastCheck)
	d.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	d.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &d, nil
}

func deviceName(d netscan.DeviceDescriptor) string {
	if d.Hostname != "" {
		return d.Hostname
	}
	return "Camera-" + d.IPAddress
}

func devicePort(d netscan.DeviceDescriptor) int {
	if len(d.OpenPorts) > 0 {
		return d.OpenPorts[0]
	}
	return defaultRTSPPort
}

func deviceURL(d netscan.DeviceDescriptor) string {
	if d.RTSPURL != "" {
		return d.RTSPURL
	}
	return fmt.Sprintf("rtsp://%s:%d/stream1", d.IPAddress, defaultRTSPPort)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func lessIP(a, b string) bool {
	pa, errA := netip.ParseAddr(a)
	pb, errB := netip.ParseAddr(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return pa.Less(pb)
}
