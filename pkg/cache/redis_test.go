package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/brgy-records-api/pkg/config"
)

func TestOptions(t *testing.T) {
	opts := Options(config.RedisConfig{Host: "cache", Port: 6380, Password: "pw", DB: 2})
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, pingTimeout, opts.DialTimeout)
}

func TestOptionsIPv6(t *testing.T) {
	opts := Options(config.RedisConfig{Host: "::1", Port: 6379})
	assert.Equal(t, "[::1]:6379", opts.Addr)
}
