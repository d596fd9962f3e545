package session

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"
)

// BaseSession 提供了 Session 接口的基础实现。
//
// 设计目标：
//   - 显示名、房间号、状态使用原子变量保存，广播时无需持有任何锁即可读取；
//   - 写出使用会话级互斥锁串行化，每次写出可选地设置写超时；
//   - Close 幂等，先取消上下文再关闭连接。
type BaseSession struct {
	id uint64

	ctx    context.Context
	cancel context.CancelFunc

	conn net.Conn

	remoteAddr net.Addr
	localAddr  net.Addr

	name  atomic.String
	room  atomic.Int32
	state atomic.Int32

	writeMu      sync.Mutex
	writeTimeout time.Duration

	connectedAt time.Time
	closed      atomic.Bool
	closeOnce   sync.Once
}

// 确保 BaseSession 实现了 Session 接口。
var _ Session = (*BaseSession)(nil)

// Option 用于定制 BaseSession。
type Option func(s *BaseSession)

// WithWriteTimeout 设置单次写出的超时时间，为 0 表示不设置 deadline。
func WithWriteTimeout(d time.Duration) Option {
	return func(s *BaseSession) {
		s.writeTimeout = d
	}
}

// NewBaseSession 创建一个基于 net.Conn 的基础 Session 实例。
//
// 参数：
//   - parent：会话所属的上层上下文；若为 nil，则使用 context.Background()；
//   - id    ：会话 ID，通常由注册表分配；
//   - conn  ：底层网络连接。
//
// 新会话的显示名为十进制 ID，位于默认房间，状态为 StateJoining。
func NewBaseSession(parent context.Context, id uint64, conn net.Conn, opts ...Option) *BaseSession {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	s := &BaseSession{
		id:          id,
		ctx:         ctx,
		cancel:      cancel,
		conn:        conn,
		remoteAddr:  conn.RemoteAddr(),
		localAddr:   conn.LocalAddr(),
		connectedAt: time.Now(),
	}
	s.name.Store(strconv.FormatUint(id, 10))
	s.room.Store(DefaultRoom)
	s.state.Store(int32(StateJoining))

	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BaseSession) ID() uint64 {
	return s.id
}

func (s *BaseSession) Context() context.Context {
	return s.ctx
}

func (s *BaseSession) RemoteAddr() net.Addr {
	return s.remoteAddr
}

func (s *BaseSession) LocalAddr() net.Addr {
	return s.localAddr
}

func (s *BaseSession) Conn() net.Conn {
	return s.conn
}

func (s *BaseSession) DisplayName() string {
	return s.name.Load()
}

// SetDisplayName 实现 Session.SetDisplayName。
func (s *BaseSession) SetDisplayName(name string) string {
	return s.name.Swap(TruncateName(name))
}

func (s *BaseSession) RoomID() int {
	return int(s.room.Load())
}

func (s *BaseSession) SetRoomID(room int) {
	s.room.Store(int32(room))
}

func (s *BaseSession) State() State {
	return State(s.state.Load())
}

func (s *BaseSession) SetState(state State) {
	s.state.Store(int32(state))
}

func (s *BaseSession) ConnectedAt() time.Time {
	return s.connectedAt
}

// Write 实现 Session.Write。
//
// 同一会话上的并发写出通过 writeMu 串行化，保证每条消息完整地写出。
func (s *BaseSession) Write(text string) error {
	if s.closed.Load() {
		return errors.Wrapf(net.ErrClosed, "session %d", s.id)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return errors.Wrapf(err, "session %d set write deadline", s.id)
		}
	}
	if _, err := s.conn.Write([]byte(text)); err != nil {
		return errors.Wrapf(err, "session %d write", s.id)
	}
	return nil
}

// Close 实现 Session.Close。
func (s *BaseSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		// 先取消上下文，再关闭连接。
		if s.cancel != nil {
			s.cancel()
		}
		if s.conn != nil {
			err = s.conn.Close()
		}
	})
	return err
}

// Info 实现 Session.Info。
func (s *BaseSession) Info() Info {
	remote := ""
	if s.remoteAddr != nil {
		remote = s.remoteAddr.String()
	}
	return Info{
		ID:          s.id,
		Name:        s.DisplayName(),
		Room:        s.RoomID(),
		State:       s.State().String(),
		Remote:      remote,
		ConnectedAt: s.connectedAt,
	}
}
