// Package chat 组装注册表、路由、命令解释器与接入层，构成完整的聊天服务。
package chat

import (
	"context"
	"net"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/lk2023060901/roomchat-go/internal/chat/command"
	"github.com/lk2023060901/roomchat-go/internal/chat/router"
	network "github.com/lk2023060901/roomchat-go/internal/network"
	"github.com/lk2023060901/roomchat-go/internal/network/acceptor"
	"github.com/lk2023060901/roomchat-go/internal/network/framer"
	"github.com/lk2023060901/roomchat-go/internal/network/session"
	"github.com/lk2023060901/roomchat-go/pkg/log"
	"github.com/lk2023060901/roomchat-go/pkg/util/merr"
)

const (
	DefaultAddress      = ":6667"
	DefaultWriteTimeout = 10 * time.Second
)

// Config 为聊天服务的运行参数。
type Config struct {
	Address      string        `mapstructure:"address"`
	MaxClients   int           `mapstructure:"max-clients"`
	MaxLineBytes int           `mapstructure:"max-line-bytes"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`  // 0 表示不限制
	WriteTimeout time.Duration `mapstructure:"write-timeout"` // 0 表示不限制
}

// DefaultConfig 返回默认配置。
func DefaultConfig() Config {
	return Config{
		Address:      DefaultAddress,
		MaxClients:   session.DefaultCapacity,
		MaxLineBytes: framer.DefaultMaxLineBytes,
		WriteTimeout: DefaultWriteTimeout,
	}
}

// Validate 校验配置，错误为 merr.ErrParameterInvalid。
func (c Config) Validate() error {
	if c.MaxClients <= 0 {
		return merr.WrapErrParameterInvalidMsg("server.max-clients must be positive, got %d", c.MaxClients)
	}
	if c.MaxLineBytes < 16 {
		return merr.WrapErrParameterInvalidMsg("server.max-line-bytes must be at least 16, got %d", c.MaxLineBytes)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return merr.WrapErrParameterInvalidMsg("server timeouts must not be negative")
	}
	return nil
}

// Server 是多房间聊天服务。
type Server struct {
	log.Binder

	cfg      Config
	registry *session.ClientRegistry
	router   router.Router
	interp   *command.Interpreter
}

// NewServer 根据配置创建聊天服务。
func NewServer(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	registry := session.NewClientRegistry(cfg.MaxClients)
	rt := router.New(registry)
	return &Server{
		cfg:      cfg,
		registry: registry,
		router:   rt,
		interp:   command.NewInterpreter(rt, registry),
	}, nil
}

// Registry 返回服务使用的会话注册表。
func (s *Server) Registry() session.SessionManager {
	return s.registry
}

// Interpreter 返回命令解释器，可在 Serve 之前注册额外命令。
func (s *Server) Interpreter() *command.Interpreter {
	return s.interp
}

// ListenAndServe 在配置的地址上监听并提供服务，直至 ctx 取消。
// ctx 取消时返回 nil，包括监听尚未完成的情况。
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.cfg.Address == "" {
		return merr.WrapErrParameterInvalidMsg("server.address is empty")
	}
	ln, err := network.Listen(ctx, s.cfg.Address)
	if err != nil {
		// 绑定完成前 ctx 已取消，按正常停止处理。
		if ctx.Err() != nil {
			return nil
		}
		return errors.Wrap(err, "chat")
	}
	return s.Serve(ctx, ln)
}

// Serve 在 ln 上提供服务，直至 ctx 取消；返回时 ln 已关闭。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	acc, err := acceptor.NewBaseAcceptor(ln,
		acceptor.WithSessionManager(s.registry),
		acceptor.WithMaxLineBytes(s.cfg.MaxLineBytes),
		acceptor.WithReadTimeout(s.cfg.ReadTimeout),
		acceptor.WithWriteTimeout(s.cfg.WriteTimeout),
	)
	if err != nil {
		return err
	}
	logger := s.Logger()
	acc.SetLogger(logger.With(log.FieldComponent("acceptor")))

	h := &handler{
		router: s.router,
		interp: s.interp,
	}
	h.SetLogger(logger.With(log.FieldComponent("handler")))

	logger.Info("chat server starting",
		zap.Stringer("addr", ln.Addr()),
		zap.Int("maxClients", s.cfg.MaxClients),
		zap.Int("maxLineBytes", s.cfg.MaxLineBytes),
		zap.Duration("readTimeout", s.cfg.ReadTimeout),
		zap.Duration("writeTimeout", s.cfg.WriteTimeout))
	defer logger.Info("chat server stopped")

	return acc.Serve(ctx, h)
}
