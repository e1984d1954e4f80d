package repository

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithParam(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"postgres://u:p@localhost:5432/db", "postgres://u:p@localhost:5432/db?sslmode=disable"},
		{"postgresql://localhost/db?application_name=x", "postgresql://localhost/db?application_name=x&sslmode=disable"},
		{"host=localhost dbname=db", "host=localhost dbname=db sslmode=disable"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, withParam(tt.dsn, "sslmode=disable"))
	}
}

func TestPoolConfig(t *testing.T) {
	dev, err := PoolConfig("postgres://u:p@localhost:5432/db", "development")
	require.NoError(t, err)
	assert.Nil(t, dev.ConnConfig.TLSConfig)
	assert.NotEqual(t, pgx.QueryExecModeSimpleProtocol, dev.ConnConfig.DefaultQueryExecMode)

	prod, err := PoolConfig("postgres://u:p@db.internal:6543/db?sslmode=require", "production")
	require.NoError(t, err)
	assert.Equal(t, pgx.QueryExecModeSimpleProtocol, prod.ConnConfig.DefaultQueryExecMode)
	assert.EqualValues(t, 25, prod.MaxConns)

	_, err = PoolConfig("postgres://%zz", "production")
	assert.Error(t, err)
}
