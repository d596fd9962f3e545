package chat

import (
	"context"
	"net"

	"go.uber.org/zap"

	"github.com/lk2023060901/roomchat-go/internal/chat/command"
	"github.com/lk2023060901/roomchat-go/internal/chat/message"
	"github.com/lk2023060901/roomchat-go/internal/chat/router"
	network "github.com/lk2023060901/roomchat-go/internal/network"
	"github.com/lk2023060901/roomchat-go/internal/network/acceptor"
	"github.com/lk2023060901/roomchat-go/internal/network/session"
	"github.com/lk2023060901/roomchat-go/pkg/log"
)

// handler 将接入层的连接生命周期映射为聊天语义。
type handler struct {
	log.Binder

	router router.Router
	interp *command.Interpreter
}

var _ acceptor.Handler = (*handler)(nil)

// OnConnected 广播加入消息，并向新会话发送帮助提示。
func (h *handler) OnConnected(ctx context.Context, sess session.Session) error {
	log.Ctx(ctx).Info("session joined")
	h.router.BroadcastAll(ctx, message.Joined(sess.DisplayName()))
	return h.router.SendSelf(ctx, sess, message.HelpHint)
}

func (h *handler) OnMessage(ctx context.Context, sess session.Session, line string) error {
	return h.interp.Execute(ctx, sess, line)
}

// OnSessionClosed 向所有会话广播离开消息，此时离开者仍在注册表中。
func (h *handler) OnSessionClosed(ctx context.Context, sess session.Session, cause error) {
	fields := []zap.Field{zap.String("name", sess.DisplayName())}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	log.Ctx(ctx).Info("session leaving", fields...)
	h.router.BroadcastAll(ctx, message.Left(sess.DisplayName()))
}

func (h *handler) OnRejected(conn net.Conn, err error) {
	h.Logger().RatedWarn(1, "connection rejected",
		log.FieldRemote(conn.RemoteAddr().String()), zap.Error(err))
}

func (h *handler) OnError(sess session.Session, stage network.Stage, err error) {
	logger := h.Logger().With(log.FieldStage(string(stage)))
	if sess != nil {
		logger = logger.With(log.FieldSessionID(sess.ID()))
	}
	logger.Warn("session error", zap.Error(err))
}
