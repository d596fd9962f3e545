// Package admin 提供只读的运维 HTTP 接口：指标、会话快照与健康检查。
package admin

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/lk2023060901/roomchat-go/internal/json"
	network "github.com/lk2023060901/roomchat-go/internal/network"
	"github.com/lk2023060901/roomchat-go/internal/network/session"
	"github.com/lk2023060901/roomchat-go/internal/version"
	"github.com/lk2023060901/roomchat-go/pkg/log"
	"github.com/lk2023060901/roomchat-go/pkg/util/conc"
	"github.com/lk2023060901/roomchat-go/pkg/util/merr"
	"github.com/lk2023060901/roomchat-go/pkg/util/typeutil"
)

const (
	DefaultAddress         = ":9106"
	defaultShutdownTimeout = 5 * time.Second
	readHeaderTimeout      = 5 * time.Second
)

// Config 为运维接口的配置。
type Config struct {
	Enable  bool   `mapstructure:"enable"`
	Address string `mapstructure:"address"`
}

// SessionsResponse 为 GET /sessions 的响应体。
type SessionsResponse struct {
	Count    int            `json:"count"`
	Capacity int            `json:"capacity"`
	Sessions []session.Info `json:"sessions"`
}

// HealthResponse 为 GET /healthz 的响应体。
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Sessions int    `json:"sessions"`
}

type errorResponse struct {
	Code  int32  `json:"code"`
	Error string `json:"error"`
}

// Server 是运维 HTTP 服务。
type Server struct {
	log.Binder

	sessions session.SessionManager
	gatherer prometheus.Gatherer
	http     *http.Server
}

// NewServer 创建运维服务，gatherer 为 nil 时使用 prometheus.DefaultGatherer。
func NewServer(addr string, sessions session.SessionManager, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		sessions: sessions,
		gatherer: gatherer,
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Handler 返回全部路由。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /sessions", s.handleSessions)
	mux.HandleFunc("GET /sessions/{id}", s.handleSession)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// ListenAndServe 监听配置的地址并提供服务，直至 ctx 取消。
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := network.Listen(ctx, s.http.Addr)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return errors.Wrap(err, "admin")
	}
	return s.Serve(ctx, ln)
}

// Serve 在 ln 上提供服务，ctx 取消后优雅关闭并返回 nil。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	logger := s.Logger().With(zap.Stringer("addr", ln.Addr()))
	logger.Info("admin server starting")

	served := conc.Go(func() (struct{}, error) {
		return struct{}{}, s.http.Serve(ln)
	})

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "admin: shutdown")
		}
		<-served.Done()
		logger.Info("admin server stopped")
		return nil
	case <-served.Done():
		if err := served.Err(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "admin: serve")
		}
		return nil
	}
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	infos := lo.Map(s.sessions.Snapshot(), func(sess session.Session, _ int) session.Info {
		return sess.Info()
	})
	// 支持 ?room=1&room=3 形式的多房间过滤。
	if values := r.URL.Query()["room"]; len(values) > 0 {
		rooms := typeutil.NewSet[int]()
		for _, v := range values {
			n, err := strconv.Atoi(v)
			if err != nil {
				s.writeError(w, http.StatusBadRequest, merr.WrapErrParameterInvalid("room number", v, "room filter"))
				return
			}
			if !session.ValidRoom(n) {
				s.writeError(w, http.StatusBadRequest,
					merr.WrapErrParameterInvalidRange(session.MinRoom, session.MaxRoom, n, "room filter"))
				return
			}
			rooms.Insert(n)
		}
		infos = lo.Filter(infos, func(info session.Info, _ int) bool {
			return rooms.Contain(info.Room)
		})
	}
	s.writeJSON(w, http.StatusOK, SessionsResponse{
		Count:    len(infos),
		Capacity: s.sessions.Cap(),
		Sessions: infos,
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, merr.WrapErrParameterInvalidMsg("invalid session id %q", r.PathValue("id")))
		return
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, merr.WrapErrSessionNotFound(id))
		return
	}
	s.writeJSON(w, http.StatusOK, sess.Info())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Version:  version.String(),
		Sessions: s.sessions.Count(),
	})
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{
		Code:  merr.Code(err),
		Error: err.Error(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger().Warn("write admin response failed", zap.Error(err))
	}
}
