package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/brgy-records-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:           "db.internal",
		Port:           5433,
		User:           "brgy",
		Password:       "it's a secret",
		Name:           "barangay_records",
		SSLMode:        "require",
		ConnectTimeout: 3 * time.Second,
	})
	assert.Equal(t, `host=db.internal port=5433 user=brgy password='it\'s a secret' dbname=barangay_records sslmode=require application_name=brgy-records-api connect_timeout=3`, dsn)
}

func TestDSNQuotesEmptyPassword(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres", Name: "x", SSLMode: "disable"})
	assert.Contains(t, dsn, "password=''")
	assert.NotContains(t, dsn, "connect_timeout")
}
