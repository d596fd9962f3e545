package acceptor

import (
	"context"
	"net"

	network "github.com/lk2023060901/roomchat-go/internal/network"
	"github.com/lk2023060901/roomchat-go/internal/network/session"
)

// Handler 由框架使用者实现，用于在连接生命周期的各个阶段插入自定义逻辑。
//
// 说明：
//   - 同一会话上的 OnConnected/OnMessage/OnSessionClosed 在该会话的 worker 协程中串行调用；
//   - 不同会话的回调并发执行，实现需保证并发安全。
type Handler interface {
	// OnConnected 在会话注册完成、进入 Joining 阶段后调用一次。
	//
	// 返回非 nil 错误时会话直接进入 Leaving 阶段。
	OnConnected(ctx context.Context, sess session.Session) error

	// OnMessage 每读到一行（已去除行尾）调用一次。
	//
	// 返回非 nil 错误时结束会话；network.ErrSessionQuit 表示客户端主动退出。
	OnMessage(ctx context.Context, sess session.Session, line string) error

	// OnSessionClosed 在 Leaving 阶段、关闭连接与注销之前调用一次。
	//
	// 参数 cause 为结束原因，对端正常关闭时为 nil。
	OnSessionClosed(ctx context.Context, sess session.Session, cause error)

	// OnRejected 在注册表已满、连接被直接关闭后调用。
	OnRejected(conn net.Conn, err error)

	// OnError 在各个阶段发生错误时被调用，sess 在接入阶段为 nil。
	OnError(sess session.Session, stage network.Stage, err error)
}

// Acceptor 抽象了服务器侧的 TCP 接入层。
//
// 职责：
//   - 顺序接受连接，并依据注册表容量决定是否接纳；
//   - 为每个接纳的连接分配会话，并在协程池中运行其生命周期；
//   - 退出时关闭所有会话并等待 worker 结束。
type Acceptor interface {
	// Serve 启动接入循环，阻塞直至 ctx 取消、Close 被调用或出现不可恢复的错误。
	Serve(ctx context.Context, h Handler) error

	// Close 关闭监听器，可重复调用。
	Close() error

	// Addr 返回监听地址。
	Addr() net.Addr

	// Sessions 返回接入器使用的会话注册表。
	Sessions() session.SessionManager
}
