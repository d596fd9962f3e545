package acceptor

import (
	"time"

	"github.com/lk2023060901/roomchat-go/internal/network/framer"
	"github.com/lk2023060901/roomchat-go/internal/network/session"
)

type options struct {
	sessions     session.SessionManager
	maxLineBytes int
	readTimeout  time.Duration
	writeTimeout time.Duration

	// accept 临时错误的退避参数。
	backoffInitial time.Duration
	backoffMax     time.Duration
}

func defaultOptions() *options {
	return &options{
		maxLineBytes:   framer.DefaultMaxLineBytes,
		backoffInitial: 5 * time.Millisecond,
		backoffMax:     time.Second,
	}
}

// Option 用于配置接入器行为的选项函数。
type Option func(opt *options)

// WithSessionManager 指定接入器使用的会话注册表，未指定时使用默认容量的 ClientRegistry。
func WithSessionManager(sm session.SessionManager) Option {
	return func(opt *options) {
		opt.sessions = sm
	}
}

func WithMaxLineBytes(n int) Option {
	return func(opt *options) {
		opt.maxLineBytes = n
	}
}

// WithReadTimeout 设置单行读取的超时时间，为 0 表示不设置。
func WithReadTimeout(d time.Duration) Option {
	return func(opt *options) {
		opt.readTimeout = d
	}
}

// WithWriteTimeout 设置单次写出的超时时间，为 0 表示不设置。
func WithWriteTimeout(d time.Duration) Option {
	return func(opt *options) {
		opt.writeTimeout = d
	}
}

func WithAcceptBackoff(initial, max time.Duration) Option {
	return func(opt *options) {
		opt.backoffInitial = initial
		opt.backoffMax = max
	}
}
