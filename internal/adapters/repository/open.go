package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net/url"
	"strings"

	"github.com/lib/pq"
	"golang.org/x/oauth2"

	_ "modernc.org/sqlite"
)

// ConnectionConfig describes how to reach the database.
type ConnectionConfig struct {
	Driver string
	DSN    string
	// Tokens, when set, supplies an access token used as the password of every
	// new postgres connection. Ignored for sqlite.
	Tokens       oauth2.TokenSource
	MaxOpenConns int
}

// Open returns a verified connection pool for cfg.
func Open(ctx context.Context, cfg ConnectionConfig) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, ErrMissingDSN
	}
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	switch d.name {
	case DriverPostgres:
		var connector driver.Connector
		if cfg.Tokens != nil {
			connector = NewTokenConnector(cfg.DSN, oauth2.ReuseTokenSource(nil, cfg.Tokens))
		} else {
			connector, err = pq.NewConnector(cfg.DSN)
			if err != nil {
				return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
			}
		}
		db = sql.OpenDB(connector)
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
	case DriverSQLite:
		db, err = sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		// A single connection keeps in-memory databases alive and serialises writers.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return db, nil
}

// TokenConnector opens postgres connections authenticated with an access
// token fetched per connection, in the style of managed identity logins.
type TokenConnector struct {
	dsn    string
	tokens oauth2.TokenSource
}

// NewTokenConnector returns a connector for dsn whose password is replaced
// by the current token from tokens.
func NewTokenConnector(dsn string, tokens oauth2.TokenSource) *TokenConnector {
	return &TokenConnector{dsn: dsn, tokens: tokens}
}

// Connect implements driver.Connector.
func (c *TokenConnector) Connect(ctx context.Context) (driver.Conn, error) {
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenUnavailable, err)
	}
	if tok.AccessToken == "" {
		return nil, ErrTokenUnavailable
	}
	dsn, err := withPassword(c.dsn, tok.AccessToken)
	if err != nil {
		return nil, err
	}
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	return connector.Connect(ctx)
}

// Driver implements driver.Connector.
func (c *TokenConnector) Driver() driver.Driver {
	return &pq.Driver{}
}

// withPassword sets the password in a URL or key/value postgres DSN.
func withPassword(dsn, password string) (string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("failed to parse postgres dsn: %w", err)
		}
		username := ""
		if u.User != nil {
			username = u.User.Username()
		}
		u.User = url.UserPassword(username, password)
		return u.String(), nil
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(password)
	return strings.TrimSpace(dsn) + " password='" + escaped + "'", nil
}
