package session

import (
	"context"
	"net"
	"time"
	"unicode/utf8"
)

const (
	// FirstID 为注册表分配的第一个会话 ID。
	FirstID uint64 = 100

	// MaxDisplayNameBytes 为显示名的最大字节数。
	MaxDisplayNameBytes = 31

	MinRoom     = 1
	MaxRoom     = 5
	DefaultRoom = 1
)

// State 表示会话所处的生命周期阶段。
type State int32

const (
	StateJoining State = iota
	StateActive
	StateLeaving
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	case StateLeaving:
		return "leaving"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session 抽象了一条聊天连接。
//
// 约定：
//   - ID 由注册表在接入时分配，会话存活期间全局唯一；
//   - 显示名与房间号会被其他连接的广播并发读取，实现需保证并发安全；
//   - Write 可能被多个协程同时调用，实现需保证同一会话上的写出互不交叉。
type Session interface {
	// ID 返回会话编号。
	ID() uint64

	// Context 返回与会话关联的上下文，会话关闭时被取消。
	Context() context.Context

	// RemoteAddr 返回对端地址。
	RemoteAddr() net.Addr

	// LocalAddr 返回本端地址。
	LocalAddr() net.Addr

	// Conn 返回底层连接，仅供持有该会话的 worker 读取使用。
	Conn() net.Conn

	// DisplayName 返回当前显示名。
	DisplayName() string

	// SetDisplayName 设置显示名并返回旧值，超长的名字会被截断。
	SetDisplayName(name string) (old string)

	// RoomID 返回当前所在房间号。
	RoomID() int

	// SetRoomID 切换房间，调用方负责校验范围。
	SetRoomID(room int)

	State() State
	SetState(state State)

	// Write 将文本原样写入连接。
	Write(text string) error

	// Close 关闭连接并取消 Context，可重复调用。
	Close() error

	// ConnectedAt 返回会话建立时间。
	ConnectedAt() time.Time

	// Info 返回会话当前状态的只读快照。
	Info() Info
}

// Info 为会话的只读快照，用于列表展示与管理接口。
type Info struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Room        int       `json:"room"`
	State       string    `json:"state"`
	Remote      string    `json:"remote"`
	ConnectedAt time.Time `json:"connected_at"`
}

// TruncateName 将 name 截断到至多 MaxDisplayNameBytes 字节，不会截断多字节字符。
func TruncateName(name string) string {
	if len(name) <= MaxDisplayNameBytes {
		return name
	}
	cut := MaxDisplayNameBytes
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut]
}

// ValidRoom 判断 room 是否在合法范围内。
func ValidRoom(room int) bool {
	return room >= MinRoom && room <= MaxRoom
}
