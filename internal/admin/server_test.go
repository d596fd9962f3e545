package admin

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/roomchat-go/internal/json"
	"github.com/lk2023060901/roomchat-go/internal/network/session"
	"github.com/lk2023060901/roomchat-go/internal/network/session/sessiontest"
	"github.com/lk2023060901/roomchat-go/internal/version"
	"github.com/lk2023060901/roomchat-go/pkg/util/merr"
)

type AdminSuite struct {
	suite.Suite

	registry *session.ClientRegistry
	server   *Server
	handler  http.Handler
}

func (s *AdminSuite) SetupTest() {
	s.registry = session.NewClientRegistry(5)
	for i := 0; i < 3; i++ {
		sess, err := s.registry.Register(func(id uint64) session.Session {
			return session.NewBaseSession(context.Background(), id, sessiontest.NewConn("10.1.1.1:5000"))
		})
		s.Require().NoError(err)
		if i == 2 {
			sess.SetRoomID(4)
			sess.SetDisplayName("carol")
		}
	}

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "admin_test_total"})
	reg.MustRegister(counter)
	counter.Inc()

	s.server = NewServer("127.0.0.1:0", s.registry, reg)
	s.handler = s.server.Handler()
}

func (s *AdminSuite) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (s *AdminSuite) TestSessions() {
	rec := s.get("/sessions")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("application/json", rec.Header().Get("Content-Type"))

	var resp SessionsResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(3, resp.Count)
	s.Equal(5, resp.Capacity)
	s.Require().Len(resp.Sessions, 3)
	s.Equal(uint64(100), resp.Sessions[0].ID)
	s.Equal("carol", resp.Sessions[2].Name)
	s.Equal("10.1.1.1:5000", resp.Sessions[0].Remote)
}

func (s *AdminSuite) TestSessionsByRoom() {
	var resp SessionsResponse
	rec := s.get("/sessions?room=4")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(1, resp.Count)
	s.Equal(uint64(102), resp.Sessions[0].ID)

	rec = s.get("/sessions?room=1&room=4")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(3, resp.Count)

	var errResp errorResponse
	rec = s.get("/sessions?room=9")
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &errResp))
	s.Contains(errResp.Error, "9 out of range 1 <= value <= 5")

	rec = s.get("/sessions?room=x")
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &errResp))
	s.Contains(errResp.Error, "[actual=x]")
}

func (s *AdminSuite) TestSessionByID() {
	rec := s.get("/sessions/101")
	s.Require().Equal(http.StatusOK, rec.Code)
	var info session.Info
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &info))
	s.Equal(uint64(101), info.ID)
	s.Equal("101", info.Name)
	s.Equal(session.DefaultRoom, info.Room)

	rec = s.get("/sessions/999")
	s.Equal(http.StatusNotFound, rec.Code)
	var errResp errorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &errResp))
	s.Equal(merr.Code(merr.ErrSessionNotFound), errResp.Code)

	s.Equal(http.StatusBadRequest, s.get("/sessions/abc").Code)
}

func (s *AdminSuite) TestHealth() {
	rec := s.get("/healthz")
	s.Require().Equal(http.StatusOK, rec.Code)
	var resp HealthResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("ok", resp.Status)
	s.Equal(version.String(), resp.Version)
	s.Equal(3, resp.Sessions)
}

func (s *AdminSuite) TestMetrics() {
	rec := s.get("/metrics")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "admin_test_total 1")
}

func (s *AdminSuite) TestMethodNotAllowed() {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", strings.NewReader("{}")))
	s.Equal(http.StatusMethodNotAllowed, rec.Code)
}

func (s *AdminSuite) TestServeAndShutdown() {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.server.Serve(ctx, ln)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	s.Require().NoError(err)
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(resp.Body.Close())
	s.Require().NoError(err)
	s.Contains(string(body), `"status":"ok"`)

	cancel()
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(5 * time.Second):
		s.Fail("admin server did not stop")
	}
}

func (s *AdminSuite) TestListenAndServeCanceledBeforeBind() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.NoError(s.server.ListenAndServe(ctx))
}

func TestAdmin(t *testing.T) {
	suite.Run(t, new(AdminSuite))
}
