// Package reporting 把 500 与 panic 上报到 Sentry
package reporting

import (
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/d60-Lab/postfeed/config"
)

var enabled bool

// Init DSN 为空时不启用
func Init(cfg config.SentryConfig) error {
	if cfg.DSN == "" {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		SampleRate:  cfg.SampleRate,
	}); err != nil {
		return err
	}
	enabled = true
	return nil
}

// Enabled 是否已初始化
func Enabled() bool { return enabled }

// CaptureError 上报错误并附带请求信息
func CaptureError(r *http.Request, err error) {
	if !enabled || err == nil {
		return
	}
	hub := sentry.CurrentHub().Clone()
	hub.Scope().SetRequest(r)
	hub.CaptureException(err)
}

// CapturePanic 上报 panic 值
func CapturePanic(r *http.Request, v interface{}) {
	if !enabled {
		return
	}
	hub := sentry.CurrentHub().Clone()
	hub.Scope().SetRequest(r)
	hub.Recover(v)
}

// Flush 退出前等待发送
func Flush() {
	if enabled {
		sentry.Flush(2 * time.Second)
	}
}
