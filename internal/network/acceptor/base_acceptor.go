package acceptor

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	network "github.com/lk2023060901/roomchat-go/internal/network"
	"github.com/lk2023060901/roomchat-go/internal/network/framer"
	"github.com/lk2023060901/roomchat-go/internal/network/session"
	"github.com/lk2023060901/roomchat-go/pkg/log"
	"github.com/lk2023060901/roomchat-go/pkg/metrics"
	"github.com/lk2023060901/roomchat-go/pkg/util/conc"
	"github.com/lk2023060901/roomchat-go/pkg/util/merr"
)

// BaseAcceptor 是 Acceptor 接口的基础 TCP 实现。
//
// 设计目标：
//   - 接入循环是唯一的准入点：注册表已满时直接关闭连接，不写出任何内容；
//   - 每个连接在协程池中拥有独立的 worker，同一会话上的 Handler 串行执行；
//   - 会话的离开流程（广播、关闭、注销）在 worker 的 defer 中执行，panic 时同样生效。
type BaseAcceptor struct {
	log.Binder

	ln  net.Listener
	opt *options

	closeOnce sync.Once
}

// 确保 BaseAcceptor 实现了 Acceptor 接口。
var _ Acceptor = (*BaseAcceptor)(nil)

// NewBaseAcceptor 使用已有的 Listener 创建一个基础接入器。
func NewBaseAcceptor(ln net.Listener, opts ...Option) (*BaseAcceptor, error) {
	if ln == nil {
		return nil, merr.WrapErrServiceInternal("listener is nil", "acceptor")
	}
	opt := defaultOptions()
	for _, o := range opts {
		o(opt)
	}
	if opt.sessions == nil {
		opt.sessions = session.NewClientRegistry(session.DefaultCapacity)
	}
	return &BaseAcceptor{
		ln:  ln,
		opt: opt,
	}, nil
}

// NewTCPAcceptor 在给定地址上监听 TCP，并创建一个基础接入器。
func NewTCPAcceptor(addr string, opts ...Option) (*BaseAcceptor, error) {
	if addr == "" {
		return nil, merr.WrapErrParameterInvalidMsg("acceptor: addr is empty")
	}
	ln, err := network.Listen(context.Background(), addr)
	if err != nil {
		return nil, errors.Wrap(err, "acceptor")
	}
	return NewBaseAcceptor(ln, opts...)
}

// Addr 实现 Acceptor.Addr。
func (a *BaseAcceptor) Addr() net.Addr {
	return a.ln.Addr()
}

// Sessions 实现 Acceptor.Sessions。
func (a *BaseAcceptor) Sessions() session.SessionManager {
	return a.opt.sessions
}

// Close 实现 Acceptor.Close。
func (a *BaseAcceptor) Close() error {
	var err error
	a.closeOnce.Do(func() {
		err = a.ln.Close()
	})
	return err
}

// Serve 实现 Acceptor.Serve。
//
// ctx 取消或 Close 被调用时返回 nil；退出前关闭全部会话并等待所有 worker 结束。
func (a *BaseAcceptor) Serve(ctx context.Context, h Handler) error {
	if h == nil {
		return merr.WrapErrServiceInternal("handler is nil", "acceptor")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, func() {
		_ = a.Close()
	})
	defer stop()

	pool := conc.NewPool[any](a.opt.sessions.Cap(), conc.WithConcealPanic(true))
	defer pool.Release()

	var wg sync.WaitGroup
	defer func() {
		a.opt.sessions.Range(func(sess session.Session) bool {
			_ = sess.Close()
			return true
		})
		wg.Wait()
	}()

	logger := a.Logger().With(zap.Stringer("addr", a.ln.Addr()))
	logger.Info("acceptor serving", zap.Int("capacity", a.opt.sessions.Cap()))

	bo := a.newBackoff()
	for {
		conn, err := a.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				logger.Info("acceptor stopped")
				return nil
			}
			if isTemporary(err) {
				delay := bo.NextBackOff()
				h.OnError(nil, network.StageAccept, err)
				logger.RatedWarn(1, "accept failed, retrying", zap.Error(err), zap.Duration("delay", delay))
				select {
				case <-time.After(delay):
					continue
				case <-ctx.Done():
					return nil
				}
			}
			h.OnError(nil, network.StageAccept, err)
			return errors.Wrap(err, "acceptor: accept failed")
		}
		bo.Reset()
		a.admit(ctx, conn, h, pool, &wg)
	}
}

// admit 在注册表中为 conn 分配会话，并将其生命周期提交到协程池。
func (a *BaseAcceptor) admit(ctx context.Context, conn net.Conn, h Handler, pool *conc.Pool[any], wg *sync.WaitGroup) {
	sess, err := a.opt.sessions.Register(func(id uint64) session.Session {
		return session.NewBaseSession(ctx, id, conn, session.WithWriteTimeout(a.opt.writeTimeout))
	})
	if err != nil {
		_ = conn.Close()
		metrics.ConnectionsRejected.Inc()
		h.OnRejected(conn, err)
		return
	}
	metrics.ConnectionsAdmitted.Inc()

	started := atomic.NewBool(false)
	wg.Add(1)
	future := pool.Submit(func() (any, error) {
		defer wg.Done()
		started.Store(true)
		a.handleSession(sess, h)
		return nil, nil
	})

	// 提交失败时任务不会执行，需要在这里完成清理。
	select {
	case <-future.Done():
		if err := future.Err(); err != nil && !started.Load() {
			wg.Done()
			h.OnError(sess, network.StageAccept, err)
			_ = sess.Close()
			a.opt.sessions.Unregister(sess.ID())
		}
	default:
	}
}

// handleSession 运行单个会话的生命周期：Joining -> Active -> Leaving -> Closed。
func (a *BaseAcceptor) handleSession(sess session.Session, h Handler) {
	ctx := log.WithSession(sess.Context(), sess.ID(), sess.RemoteAddr().String())

	var cause error
	defer func() {
		if r := recover(); r != nil {
			cause = errors.Newf("session worker panicked: %v", r)
			log.Ctx(ctx).Error("session worker panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
		a.leave(ctx, sess, h, cause)
	}()

	if err := h.OnConnected(ctx, sess); err != nil {
		cause = err
		return
	}
	sess.SetState(session.StateActive)

	conn := sess.Conn()
	lines := framer.NewLineFramer(conn, a.opt.maxLineBytes)
	for {
		if a.opt.readTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(a.opt.readTimeout)); err != nil {
				cause = errors.Mark(err, network.ErrRecvFailed)
				return
			}
		}

		line, err := lines.ReadLine()
		if err != nil {
			if !isClosed(err) {
				h.OnError(sess, network.StageRecv, err)
				cause = errors.Mark(err, network.ErrRecvFailed)
			}
			return
		}

		if err := h.OnMessage(ctx, sess, line); err != nil {
			if !errors.Is(err, network.ErrSessionQuit) {
				h.OnError(sess, network.StageDispatch, err)
			}
			cause = err
			return
		}
	}
}

// leave 执行离开流程，每个会话只会执行一次。
func (a *BaseAcceptor) leave(ctx context.Context, sess session.Session, h Handler, cause error) {
	sess.SetState(session.StateLeaving)
	h.OnSessionClosed(ctx, sess, cause)
	_ = sess.Close()
	a.opt.sessions.Unregister(sess.ID())
	sess.SetState(session.StateClosed)
	metrics.SessionDuration.Observe(time.Since(sess.ConnectedAt()).Seconds())
}

func (a *BaseAcceptor) newBackoff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = a.opt.backoffInitial
	bo.MaxInterval = a.opt.backoffMax
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

// isTemporary 判断 accept 错误是否可以重试（例如文件描述符耗尽）。
func isTemporary(err error) bool {
	var te interface{ Temporary() bool }
	if errors.As(err, &te) {
		return te.Temporary()
	}
	return false
}

// isClosed 判断读取错误是否属于正常断开。
func isClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
