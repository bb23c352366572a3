package environment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync/atomic"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// MySQLName is the environment name served by the mysql provider.
const MySQLName = "mysql"

// MySQLSettings holds connection settings for the mysql environment. Blank
// fields are read from the .env file, then the process environment
// (DB_HOST, DB_PORT, DB_USERNAME, DB_PASSWORD), then defaults.
type MySQLSettings struct {
	Host     string
	Port     string
	User     string
	Password string
	Prefix   string
	EnvFile  string
}

// MySQLProvider gives every group its own scratch database, created on
// setup and dropped on teardown. Test commands receive its name as DB_DATABASE.
type MySQLProvider struct {
	settings MySQLSettings
	base     Provider
	open     func(dsn string) (*sql.DB, error)
	seq      atomic.Int64
}

// NewMySQLProvider creates a mysql provider layered over base.
func NewMySQLProvider(settings MySQLSettings, base Provider) *MySQLProvider {
	return &MySQLProvider{
		settings: settings.resolve(),
		base:     base,
		open: func(dsn string) (*sql.DB, error) {
			return sql.Open("mysql", dsn)
		},
	}
}

// resolve fills blank settings from the .env file, the environment and defaults.
func (s MySQLSettings) resolve() MySQLSettings {
	dotenv := map[string]string{}
	if s.EnvFile != "" {
		// .env file might not exist, that's okay - use environment variables
		if values, err := godotenv.Read(s.EnvFile); err == nil {
			dotenv = values
		}
	}
	lookup := func(current, key, fallback string) string {
		if current != "" {
			return current
		}
		if v := dotenv[key]; v != "" {
			return v
		}
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	s.Host = lookup(s.Host, "DB_HOST", "127.0.0.1")
	s.Port = lookup(s.Port, "DB_PORT", "3306")
	s.User = lookup(s.User, "DB_USERNAME", "root")
	s.Password = lookup(s.Password, "DB_PASSWORD", "")
	if s.Prefix == "" {
		s.Prefix = "envrun"
	}
	return s
}

// DSN returns the server DSN, without a database selected.
func (s MySQLSettings) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = s.User
	cfg.Passwd = s.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(s.Host, s.Port)
	return cfg.FormatDSN()
}

// DatabaseName builds the scratch database name for the seq-th acquisition of env.
func DatabaseName(prefix, env string, seq int64) string {
	safe := strings.Map(func(r rune) rune {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, env)
	return fmt.Sprintf("%s_%s_%d", prefix, safe, seq)
}

// isValidDatabaseName validates database name (basic check)
func isValidDatabaseName(name string) bool {
	if len(name) == 0 || len(name) > 64 {
		return false
	}
	for _, r := range name {
		if r != '_' && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// Setup acquires the base environment and creates the scratch database.
func (p *MySQLProvider) Setup(ctx context.Context, name string, opts Options) (Environment, error) {
	base, err := p.base.Setup(ctx, name, opts)
	if err != nil {
		return nil, err
	}

	env, err := p.createDatabase(ctx, base)
	if err != nil {
		if terr := base.Teardown(context.WithoutCancel(ctx)); terr != nil {
			err = errors.Join(err, terr)
		}
		return nil, err
	}
	return env, nil
}

func (p *MySQLProvider) createDatabase(ctx context.Context, base Environment) (*mysqlEnv, error) {
	db, err := p.open(p.settings.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database server: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database server: %w", err)
	}

	dbName := DatabaseName(p.settings.Prefix, base.Name(), p.seq.Add(1))
	if !isValidDatabaseName(dbName) {
		db.Close()
		return nil, fmt.Errorf("invalid database name: %s", dbName)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", dbName)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create database %s: %w", dbName, err)
	}

	return &mysqlEnv{Environment: base, db: db, name: dbName, settings: p.settings}, nil
}

type mysqlEnv struct {
	Environment
	db       *sql.DB
	name     string
	settings MySQLSettings
}

func (e *mysqlEnv) Vars() map[string]string {
	vars := map[string]string{}
	for k, v := range e.Environment.Vars() {
		vars[k] = v
	}
	vars["DB_CONNECTION"] = "mysql"
	vars["DB_HOST"] = e.settings.Host
	vars["DB_PORT"] = e.settings.Port
	vars["DB_USERNAME"] = e.settings.User
	vars["DB_PASSWORD"] = e.settings.Password
	vars["DB_DATABASE"] = e.name
	return vars
}

// Teardown drops the scratch database, then releases the base environment.
func (e *mysqlEnv) Teardown(ctx context.Context) error {
	var dropErr error
	if _, err := e.db.ExecContext(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", e.name)); err != nil {
		dropErr = fmt.Errorf("failed to drop database %s: %w", e.name, err)
	}
	return errors.Join(dropErr, e.db.Close(), e.Environment.Teardown(ctx))
}
