package router

import (
	"context"

	"go.uber.org/zap"

	"github.com/lk2023060901/roomchat-go/internal/network/session"
	"github.com/lk2023060901/roomchat-go/pkg/log"
	"github.com/lk2023060901/roomchat-go/pkg/metrics"
	"github.com/lk2023060901/roomchat-go/pkg/util/merr"
)

// Report 汇总一次投递的结果。
type Report struct {
	// Matched 为符合条件的接收者数量。
	Matched int
	// Delivered 为写出成功的接收者数量。
	Delivered int
	// Failed 为写出失败的会话 ID，按 ID 升序。
	Failed []uint64
}

// Router 负责将文本投递给一组会话。
//
// 约定：
//   - 每次广播基于注册表的一份快照，快照之后加入的会话不会收到本条消息；
//   - 每个接收者的写出彼此独立，单个失败只记录日志与指标，不影响其余接收者；
//   - 投递失败不会返回给发送者。
type Router interface {
	// BroadcastAll 投递给所有会话。
	BroadcastAll(ctx context.Context, text string) Report

	// BroadcastRoom 投递给 roomID 中除 excludeID 以外的会话。
	BroadcastRoom(ctx context.Context, text string, roomID int, excludeID uint64) Report

	// Unicast 投递给指定会话，目标不存在时返回空 Report。
	Unicast(ctx context.Context, text string, targetID uint64) Report

	// SendSelf 直接写给 sess，失败时返回 merr.ErrConnectionFault。
	SendSelf(ctx context.Context, sess session.Session, text string) error
}

// 投递失败日志的限流分组：每秒 1 条，最多累积 60 条。
const (
	rateGroup      = "chat.router"
	rateCredit     = 1
	rateMaxBalance = 60
)

// defaultRouter 是 Router 接口的基础实现。
type defaultRouter struct {
	sessions session.SessionManager
	logger   *log.MLogger
}

// 编译期断言：确保 defaultRouter 实现了 Router 接口。
var _ Router = (*defaultRouter)(nil)

// New 创建一个基于给定注册表的 Router 实例。
func New(sm session.SessionManager) Router {
	return &defaultRouter{
		sessions: sm,
		logger: log.With(log.FieldComponent("router")).
			WithRateGroup(rateGroup, rateCredit, rateMaxBalance),
	}
}

// BroadcastAll 实现 Router.BroadcastAll。
func (r *defaultRouter) BroadcastAll(ctx context.Context, text string) Report {
	return r.fanout(metrics.ScopeAll, text, func(session.Session) bool {
		return true
	})
}

// BroadcastRoom 实现 Router.BroadcastRoom。
func (r *defaultRouter) BroadcastRoom(ctx context.Context, text string, roomID int, excludeID uint64) Report {
	return r.fanout(metrics.ScopeRoom, text, func(sess session.Session) bool {
		return sess.ID() != excludeID && sess.RoomID() == roomID
	})
}

// Unicast 实现 Router.Unicast。
func (r *defaultRouter) Unicast(ctx context.Context, text string, targetID uint64) Report {
	var rep Report
	sess, ok := r.sessions.Get(targetID)
	if !ok {
		return rep
	}
	rep.Matched = 1
	r.deliver(metrics.ScopeUnicast, sess, text, &rep)
	return rep
}

// SendSelf 实现 Router.SendSelf。
func (r *defaultRouter) SendSelf(ctx context.Context, sess session.Session, text string) error {
	if err := sess.Write(text); err != nil {
		metrics.DeliveryFailures.WithLabelValues(metrics.ScopeSelf).Inc()
		return merr.WrapErrConnectionFault(sess.ID(), err)
	}
	metrics.MessagesDelivered.WithLabelValues(metrics.ScopeSelf).Inc()
	return nil
}

func (r *defaultRouter) fanout(scope, text string, match func(session.Session) bool) Report {
	var rep Report
	r.sessions.Range(func(sess session.Session) bool {
		if !match(sess) {
			return true
		}
		rep.Matched++
		r.deliver(scope, sess, text, &rep)
		return true
	})
	return rep
}

func (r *defaultRouter) deliver(scope string, sess session.Session, text string, rep *Report) {
	if err := sess.Write(text); err != nil {
		rep.Failed = append(rep.Failed, sess.ID())
		metrics.DeliveryFailures.WithLabelValues(scope).Inc()
		r.logger.RatedWarn(1, "deliver message failed",
			zap.String("scope", scope),
			log.FieldSessionID(sess.ID()),
			zap.Error(merr.WrapErrDeliveryFailure(sess.ID(), err)))
		return
	}
	rep.Delivered++
	metrics.MessagesDelivered.WithLabelValues(scope).Inc()
}
