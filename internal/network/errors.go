package network

import "github.com/cockroachdb/errors"

// Stage 表示连接生命周期中的处理阶段。
//
// 主要用于在回调中标记错误发生的位置，便于监控与排查。
type Stage string

const (
	StageAccept   Stage = "accept"   // 接受新连接
	StageRecv     Stage = "recv"     // 从连接读取一行
	StageDispatch Stage = "dispatch" // 行 -> 命令执行
	StageSend     Stage = "send"     // 写出到连接
)

// 统一的错误码常量。
//
// 注意：这些是用于日志/监控的稳定字符串，真正的 error 对象在下面构造。
const (
	ErrCodeSessionQuit = "network:session_quit"
	ErrCodeRecvFailed  = "network:recv_failed"
	ErrCodeSendFailed  = "network:send_failed"
)

var (
	// ErrSessionQuit 表示客户端主动请求结束会话（/quit），不视为故障。
	ErrSessionQuit = errors.New(ErrCodeSessionQuit)

	// ErrRecvFailed 表示在读取底层连接数据时发生错误。
	ErrRecvFailed = errors.New(ErrCodeRecvFailed)

	// ErrSendFailed 表示在发送数据到对端时发生错误。
	ErrSendFailed = errors.New(ErrCodeSendFailed)
)
