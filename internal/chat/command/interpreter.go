package command

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/lk2023060901/roomchat-go/internal/chat/message"
	"github.com/lk2023060901/roomchat-go/internal/chat/router"
	network "github.com/lk2023060901/roomchat-go/internal/network"
	"github.com/lk2023060901/roomchat-go/internal/network/session"
	"github.com/lk2023060901/roomchat-go/pkg/log"
	"github.com/lk2023060901/roomchat-go/pkg/metrics"
	"github.com/lk2023060901/roomchat-go/pkg/util/merr"
)

// HandlerFunc 处理一条解析成功的命令。
//
// 返回 network.ErrSessionQuit 表示结束会话；返回 merr.ErrConnectionFault 表示
// 发送者自身的连接已不可用。
type HandlerFunc func(ctx context.Context, sess session.Session, cmd Command) error

// rejectReplies 为解析失败时回复给发送者的文本。
var rejectReplies = map[Kind]string{
	KindNick:    message.NameEmpty,
	KindRoom:    message.InvalidRoom,
	KindWhisper: message.MessageNull,
	KindUnknown: message.UnknownCmd,
}

// Interpreter 维护命令类型到 HandlerFunc 的映射。
//
// 路由表需在开始服务前注册完毕，Execute 期间只读。
type Interpreter struct {
	router   router.Router
	sessions session.SessionManager
	handlers map[Kind]HandlerFunc
}

// NewInterpreter 创建一个已注册全部内置命令的解释器。
func NewInterpreter(rt router.Router, sm session.SessionManager) *Interpreter {
	i := &Interpreter{
		router:   rt,
		sessions: sm,
	}
	i.handlers = map[Kind]HandlerFunc{
		KindChat:    i.handleChat,
		KindQuit:    i.handleQuit,
		KindTest:    i.handleTest,
		KindNick:    i.handleNick,
		KindRoom:    i.handleRoom,
		KindWhisper: i.handleWhisper,
		KindList:    i.handleList,
		KindHelp:    i.handleHelp,
	}
	return i
}

// Register 为 kind 注册处理函数，同一类型不允许重复注册。
func (i *Interpreter) Register(kind Kind, h HandlerFunc) error {
	if kind == KindNone || kind == KindUnknown {
		return merr.WrapErrParameterInvalidMsg("command: kind %s cannot be registered", kind)
	}
	if h == nil {
		return merr.WrapErrParameterInvalidMsg("command: handler is nil for kind %s", kind)
	}
	if _, exists := i.handlers[kind]; exists {
		return merr.WrapErrParameterInvalidMsg("command: kind %s already registered", kind)
	}
	i.handlers[kind] = h
	return nil
}

// Unregister 移除 kind 的处理函数，返回是否存在。
func (i *Interpreter) Unregister(kind Kind) bool {
	_, ok := i.handlers[kind]
	delete(i.handlers, kind)
	return ok
}

// Execute 解析并执行一行输入。
//
// 参数错误与未知命令只回复发送者，返回 nil；其余返回值见 HandlerFunc。
func (i *Interpreter) Execute(ctx context.Context, sess session.Session, line string) error {
	cmd, err := Parse(line)
	if err != nil {
		return i.reject(ctx, sess, cmd, err)
	}
	if cmd.Kind == KindNone {
		return nil
	}

	h, ok := i.handlers[cmd.Kind]
	if !ok {
		return i.reject(ctx, sess, Command{Kind: KindUnknown}, merr.WrapErrUnknownCommand(cmd.Kind.String()))
	}

	err = h(ctx, sess, cmd)
	metrics.CommandsTotal.WithLabelValues(cmd.Kind.String(), resultOf(err)).Inc()
	return err
}

func (i *Interpreter) reject(ctx context.Context, sess session.Session, cmd Command, cause error) error {
	result := metrics.ResultBadArgs
	if errors.Is(cause, merr.ErrUnknownCommand) {
		result = metrics.ResultUnknown
	}
	metrics.CommandsTotal.WithLabelValues(cmd.Kind.String(), result).Inc()
	log.Ctx(ctx).Debug("command rejected", zap.Stringer("kind", cmd.Kind), zap.Error(cause))

	reply, ok := rejectReplies[cmd.Kind]
	if !ok {
		reply = message.UnknownCmd
	}
	return i.router.SendSelf(ctx, sess, reply)
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, network.ErrSessionQuit):
		return metrics.ResultQuit
	default:
		return metrics.ResultFault
	}
}

func (i *Interpreter) handleChat(ctx context.Context, sess session.Session, cmd Command) error {
	i.router.BroadcastRoom(ctx, message.Chat(sess.DisplayName(), cmd.Text), sess.RoomID(), sess.ID())
	return nil
}

func (i *Interpreter) handleQuit(ctx context.Context, sess session.Session, cmd Command) error {
	return network.ErrSessionQuit
}

func (i *Interpreter) handleTest(ctx context.Context, sess session.Session, cmd Command) error {
	return i.router.SendSelf(ctx, sess, message.Boop)
}

func (i *Interpreter) handleNick(ctx context.Context, sess session.Session, cmd Command) error {
	old := sess.SetDisplayName(cmd.Name)
	i.router.BroadcastAll(ctx, message.Rename(old, sess.DisplayName()))
	return nil
}

func (i *Interpreter) handleRoom(ctx context.Context, sess session.Session, cmd Command) error {
	sess.SetRoomID(cmd.Room)
	i.router.BroadcastAll(ctx, message.RoomChanged(sess.DisplayName(), cmd.Room))
	return nil
}

func (i *Interpreter) handleWhisper(ctx context.Context, sess session.Session, cmd Command) error {
	rep := i.router.Unicast(ctx, message.Whisper(sess.DisplayName(), cmd.Text), cmd.Target)
	if rep.Matched == 0 {
		log.Ctx(ctx).Debug("whisper target not found", zap.Uint64("target", cmd.Target))
	}
	return nil
}

func (i *Interpreter) handleList(ctx context.Context, sess session.Session, cmd Command) error {
	infos := lo.Map(i.sessions.Snapshot(), func(s session.Session, _ int) session.Info {
		return s.Info()
	})
	return i.router.SendSelf(ctx, sess, message.List(infos))
}

func (i *Interpreter) handleHelp(ctx context.Context, sess session.Session, cmd Command) error {
	return i.router.SendSelf(ctx, sess, message.Help)
}
