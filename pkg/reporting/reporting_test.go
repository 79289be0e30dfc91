package reporting

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/postfeed/config"
)

func TestInit_EmptyDSNDisabled(t *testing.T) {
	require.NoError(t, Init(config.SentryConfig{}))
	assert.False(t, Enabled())

	// 未启用时均为空操作
	req := httptest.NewRequest("GET", "/", nil)
	CaptureError(req, errors.New("boom"))
	CapturePanic(req, "boom")
	Flush()
}

func TestInit_BadDSN(t *testing.T) {
	err := Init(config.SentryConfig{DSN: "not a dsn"})
	assert.Error(t, err)
	assert.False(t, Enabled())
}
