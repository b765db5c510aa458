// Package datasource opens database connections from configured URLs and
// reports the vendor behind them.
package datasource

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/pgEdge/modmigrate/internal/config"
)

var (
	ErrNoURL             = errors.New("datasource url is not configured")
	ErrUnsupportedVendor = errors.New("unsupported database vendor")
)

// DataSource is a lazily opened connection pool. Pools created through New are
// owned by the DataSource and released by Close. Pools wrapped with FromDB are
// left open.
type DataSource struct {
	props  config.DataSource
	vendor Vendor
	owned  bool

	mu sync.Mutex
	db *sql.DB
}

func New(props config.DataSource) *DataSource {
	return &DataSource{
		props:  props,
		vendor: DetectVendor(props.URL),
		owned:  true,
	}
}

// FromDB wraps a pool that's managed by the caller. The URL is only used to
// identify the vendor.
func FromDB(db *sql.DB, url string) *DataSource {
	return &DataSource{
		props:  config.DataSource{URL: url},
		vendor: DetectVendor(url),
		db:     db,
	}
}

func (d *DataSource) URL() string {
	return d.props.URL
}

func (d *DataSource) User() string {
	return d.props.User
}

func (d *DataSource) Vendor() Vendor {
	return d.vendor
}

// VendorID returns the vendor identifier, or an empty string when the URL
// doesn't match a known vendor. It fails when there's no URL to inspect.
func (d *DataSource) VendorID() (string, error) {
	if d.props.URL == "" {
		return "", ErrNoURL
	}
	return string(d.vendor), nil
}

// InitSQL returns the statements that are executed, one at a time, on every
// new connection. Blank entries are dropped.
func (d *DataSource) InitSQL() []string {
	var stmts []string
	for _, stmt := range d.props.InitSQLs {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// Key identifies the database and user that this datasource connects to.
func (d *DataSource) Key() string {
	return trimJDBC(d.props.URL) + "|" + d.props.User
}

// String returns the URL with any password redacted.
func (d *DataSource) String() string {
	raw := trimJDBC(d.props.URL)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return raw
	}
	return u.Redacted()
}

// DB returns the underlying pool, opening it on first use.
func (d *DataSource) DB() (*sql.DB, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		return d.db, nil
	}
	connector, err := d.connector()
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)
	if d.vendor == VendorSQLite {
		// In-memory databases are per-connection.
		db.SetMaxOpenConns(1)
	}
	d.db = db

	return db, nil
}

func (d *DataSource) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.owned || d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	if err != nil {
		return fmt.Errorf("failed to close datasource %s: %w", d, err)
	}
	return nil
}

func trimJDBC(url string) string {
	url = strings.TrimSpace(url)
	if len(url) >= 5 && strings.EqualFold(url[:5], "jdbc:") {
		return url[5:]
	}
	return url
}
