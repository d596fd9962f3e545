package chat

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/roomchat-go/internal/chat/message"
	"github.com/lk2023060901/roomchat-go/pkg/util/merr"
)

type client struct {
	conn net.Conn
}

type ServerSuite struct {
	suite.Suite

	server *Server
	addr   string
	cancel context.CancelFunc
	done   chan error
}

func (s *ServerSuite) startServer(maxClients int) {
	cfg := DefaultConfig()
	cfg.MaxClients = maxClients
	cfg.WriteTimeout = time.Second

	srv, err := NewServer(cfg)
	s.Require().NoError(err)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	s.server = srv
	s.addr = ln.Addr().String()
	s.cancel = cancel
	s.done = make(chan error, 1)
	go func() {
		s.done <- srv.Serve(ctx, ln)
	}()
}

func (s *ServerSuite) SetupTest() {
	s.startServer(4)
}

func (s *ServerSuite) TearDownTest() {
	s.cancel()
	select {
	case err := <-s.done:
		s.NoError(err)
	case <-time.After(5 * time.Second):
		s.Fail("serve did not return")
	}
}

// connect 建立连接并读完自己的加入消息与提示。
func (s *ServerSuite) connect(name string) *client {
	conn, err := net.Dial("tcp", s.addr)
	s.Require().NoError(err)
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	c := &client{conn: conn}
	s.expect(c, message.Joined(name)+message.HelpHint)
	return c
}

// expect 读取与 want 等长的字节并比较。
func (s *ServerSuite) expect(c *client, want string) {
	buf := make([]byte, len(want))
	_, err := io.ReadFull(c.conn, buf)
	s.Require().NoError(err, "waiting for %q", want)
	s.Require().Equal(want, string(buf))
}

func (s *ServerSuite) send(c *client, line string) {
	_, err := c.conn.Write([]byte(line + "\r\n"))
	s.Require().NoError(err)
}

// twoClients 返回在房间 1 的 A(100) 与 B(101)。
func (s *ServerSuite) twoClients() (*client, *client) {
	a := s.connect("100")
	b := s.connect("101")
	s.expect(a, message.Joined("101"))
	return a, b
}

func (s *ServerSuite) TestChatWithinRoom() {
	a, b := s.twoClients()
	defer a.conn.Close()
	defer b.conn.Close()

	s.send(a, "hello")
	s.expect(b, "> [100] hello\r\n")

	// A 之后收到的第一段数据是 /test 的回复，说明 hello 没有回显给 A。
	s.send(a, "/test")
	s.expect(a, message.Boop)
}

func (s *ServerSuite) TestNickAnnouncedToAll() {
	a, b := s.twoClients()
	defer a.conn.Close()
	defer b.conn.Close()

	s.send(b, "/nick bob")
	want := "> user [101] is now known as [bob]\r\n"
	s.expect(a, want)
	s.expect(b, want)

	s.send(b, "hi")
	s.expect(a, "> [bob] hi\r\n")
}

func (s *ServerSuite) TestRoomSwitchIsolates() {
	a, b := s.twoClients()
	defer a.conn.Close()
	defer b.conn.Close()

	s.send(a, "/room 3")
	want := "> [100] is now in room number 3\r\n"
	s.expect(a, want)
	s.expect(b, want)

	s.send(b, "room one only")
	s.send(a, "/test")
	s.expect(a, message.Boop)

	s.send(b, "/room 3")
	s.expect(a, "> [101] is now in room number 3\r\n")
	s.expect(b, "> [101] is now in room number 3\r\n")
	s.send(b, "together")
	s.expect(a, "> [101] together\r\n")
}

func (s *ServerSuite) TestWhisperOnlyTarget() {
	a, b := s.twoClients()
	defer a.conn.Close()
	defer b.conn.Close()
	c := s.connect("102")
	defer c.conn.Close()
	s.expect(a, message.Joined("102"))
	s.expect(b, message.Joined("102"))

	s.send(b, "/nick bob")
	rename := "> user [101] is now known as [bob]\r\n"
	s.expect(a, rename)
	s.expect(b, rename)
	s.expect(c, rename)

	s.send(b, "/whisper 100 secret")
	s.expect(a, "> [bob][whisper] secret\r\n")

	s.send(c, "/test")
	s.expect(c, message.Boop)
	s.send(b, "/test")
	s.expect(b, message.Boop)
}

func (s *ServerSuite) TestCapacityRejection() {
	clients := make([]*client, 0, 4)
	for i := 0; i < 4; i++ {
		c, err := net.Dial("tcp", s.addr)
		s.Require().NoError(err)
		s.Require().NoError(c.SetReadDeadline(time.Now().Add(5 * time.Second)))
		clients = append(clients, &client{conn: c})
	}
	defer func() {
		for _, c := range clients {
			_ = c.conn.Close()
		}
	}()
	s.Eventually(func() bool { return s.server.Registry().Count() == 4 }, 2*time.Second, 10*time.Millisecond)

	extra, err := net.Dial("tcp", s.addr)
	s.Require().NoError(err)
	defer extra.Close()
	s.Require().NoError(extra.SetReadDeadline(time.Now().Add(5 * time.Second)))
	data, err := io.ReadAll(extra)
	s.NoError(err)
	s.Empty(data)
	s.Equal(4, s.server.Registry().Count())
}

func (s *ServerSuite) TestDisconnectAnnounced() {
	a, b := s.twoClients()
	defer b.conn.Close()

	s.Require().NoError(a.conn.Close())
	s.expect(b, message.Left("100"))
	s.Eventually(func() bool { return s.server.Registry().Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	_, ok := s.server.Registry().Get(100)
	s.False(ok)
}

func (s *ServerSuite) TestQuitAnnouncesCurrentName() {
	a, b := s.twoClients()
	defer a.conn.Close()
	defer b.conn.Close()

	s.send(a, "/nick alice")
	rename := "> user [100] is now known as [alice]\r\n"
	s.expect(a, rename)
	s.expect(b, rename)

	s.send(a, "/quit")
	s.expect(b, message.Left("alice"))
	s.Eventually(func() bool { return s.server.Registry().Count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func (s *ServerSuite) TestList() {
	a, b := s.twoClients()
	defer a.conn.Close()
	defer b.conn.Close()

	s.send(a, "/list")
	s.expect(a, "=============================\nClients in server: 2\r\n"+
		"[100] 100 - room: 1\r\n"+
		"[101] 101 - room: 1\r\n"+
		"=============================\r\n")
}

func TestServer(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

// TestDefaultCapacity 对应默认容量 50 时第 51 个连接被拒绝。
func TestDefaultCapacity(t *testing.T) {
	s := new(ServerSuite)
	s.SetT(t)
	s.startServer(DefaultConfig().MaxClients)
	defer s.TearDownTest()

	conns := make([]net.Conn, 0, 50)
	defer func() {
		for _, c := range conns {
			_ = c.Close()
		}
	}()
	for i := 0; i < 50; i++ {
		c, err := net.Dial("tcp", s.addr)
		s.Require().NoError(err)
		conns = append(conns, c)
	}
	s.Eventually(func() bool { return s.server.Registry().Count() == 50 }, 5*time.Second, 10*time.Millisecond)

	extra, err := net.Dial("tcp", s.addr)
	s.Require().NoError(err)
	defer extra.Close()
	s.Require().NoError(extra.SetReadDeadline(time.Now().Add(5 * time.Second)))
	data, err := io.ReadAll(extra)
	s.NoError(err)
	s.Empty(data)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.MaxClients = 0
	assert.ErrorIs(t, cfg.Validate(), merr.ErrParameterInvalid)

	cfg = DefaultConfig()
	cfg.MaxLineBytes = 8
	assert.ErrorIs(t, cfg.Validate(), merr.ErrParameterInvalid)

	cfg = DefaultConfig()
	cfg.WriteTimeout = -time.Second
	_, err := NewServer(cfg)
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)

	cfg = DefaultConfig()
	cfg.Address = ""
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	assert.ErrorIs(t, srv.ListenAndServe(context.Background()), merr.ErrParameterInvalid)
}

func TestListenAndServeCanceledBeforeBind(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Address = "127.0.0.1:0"
	srv, err := NewServer(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, srv.ListenAndServe(ctx))
	assert.Equal(t, 0, srv.Registry().Count())
}
