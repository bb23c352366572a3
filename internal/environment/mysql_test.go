package environment

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseName(t *testing.T) {
	tests := []struct {
		prefix, env string
		seq         int64
		expected    string
	}{
		{"envrun", "mysql", 1, "envrun_mysql_1"},
		{"envrun", "happy-dom", 2, "envrun_happy_dom_2"},
		{"ci", "a.b c", 10, "ci_a_b_c_10"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			name := DatabaseName(tt.prefix, tt.env, tt.seq)
			assert.Equal(t, tt.expected, name)
			assert.True(t, isValidDatabaseName(name))
		})
	}
}

func TestIsValidDatabaseName(t *testing.T) {
	assert.False(t, isValidDatabaseName(""))
	assert.False(t, isValidDatabaseName("a`; DROP"))
	assert.False(t, isValidDatabaseName(string(make([]byte, 65))))
	assert.True(t, isValidDatabaseName("envrun_node_1"))
}

func TestMySQLSettings_Resolve(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DB_HOST=db.internal\nDB_PASSWORD=secret\n"), 0644))
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_USERNAME", "")

	s := MySQLSettings{User: "tester", EnvFile: envFile}.resolve()

	assert.Equal(t, "db.internal", s.Host, ".env fills blank host")
	assert.Equal(t, "3307", s.Port, "process environment fills blank port")
	assert.Equal(t, "tester", s.User, "explicit settings win")
	assert.Equal(t, "secret", s.Password)
	assert.Equal(t, "envrun", s.Prefix)
	assert.True(t, strings.HasPrefix(s.DSN(), "tester:secret@tcp(db.internal:3307)/"), s.DSN())
}

func TestMySQLProvider_SetupFailureReleasesBase(t *testing.T) {
	rec := &recorder{}
	connErr := errors.New("connection refused")
	p := NewMySQLProvider(MySQLSettings{Host: "localhost"}, &fakeProvider{rec: rec})
	p.open = func(string) (*sql.DB, error) { return nil, connErr }

	_, err := p.Setup(context.Background(), MySQLName, nil)

	assert.ErrorIs(t, err, connErr)
	assert.Equal(t, []string{"setup:mysql", "teardown:mysql"}, rec.list())
}
