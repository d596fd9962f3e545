package connector

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	network "github.com/lk2023060901/roomchat-go/internal/network"
	"github.com/lk2023060901/roomchat-go/internal/network/framer"
	"github.com/lk2023060901/roomchat-go/pkg/util/conc"
)

// DefaultReadBytes 为客户端单次读取的字节数上限。
const DefaultReadBytes = 512

// Config 描述客户端连接的基础配置。
type Config struct {
	// ReadBytes 为单次从标准输入或连接读取的最大字节数。
	ReadBytes int

	// DialTimeout 为建立连接的超时时间，为 0 表示只受 ctx 控制。
	DialTimeout time.Duration
}

func defaultConfig() Config {
	return Config{
		ReadBytes: DefaultReadBytes,
	}
}

// ClientConn 抽象了客户端侧的一条连接，在本地输入输出与服务器之间双向转发。
type ClientConn interface {
	RemoteAddr() net.Addr
	LocalAddr() net.Addr

	// Pipe 将 in 的内容发送到服务器，并将服务器的输出写入 out。
	//
	// 任一方向结束（输入 EOF、服务器关闭连接或 ctx 取消）时关闭连接并返回。
	Pipe(ctx context.Context, in io.Reader, out io.Writer) error

	Close() error
}

// Connector 抽象了客户端的拨号器。
type Connector interface {
	Dial(ctx context.Context, addr string) (ClientConn, error)
}

// tcpConnector 是基于 TCP 的默认 Connector 实现。
type tcpConnector struct {
	cfg Config
}

// NewTCPConnector 创建一个基于 TCP 的 Connector。
func NewTCPConnector(cfg Config) Connector {
	def := defaultConfig()
	if cfg.ReadBytes <= 0 {
		cfg.ReadBytes = def.ReadBytes
	}
	return &tcpConnector{cfg: cfg}
}

func (c *tcpConnector) Dial(ctx context.Context, addr string) (ClientConn, error) {
	if c.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.DialTimeout)
		defer cancel()
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "connector: dial %s", addr)
	}
	return newTCPClientConn(conn, c.cfg), nil
}

// tcpClientConn 是基于 TCP 的 ClientConn 默认实现。
type tcpClientConn struct {
	conn net.Conn
	cfg  Config

	closeOnce sync.Once
}

func newTCPClientConn(conn net.Conn, cfg Config) *tcpClientConn {
	return &tcpClientConn{
		conn: conn,
		cfg:  cfg,
	}
}

func (c *tcpClientConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }
func (c *tcpClientConn) LocalAddr() net.Addr  { return c.conn.LocalAddr() }

func (c *tcpClientConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

// Pipe 实现 ClientConn.Pipe。
func (c *tcpClientConn) Pipe(ctx context.Context, in io.Reader, out io.Writer) error {
	// 使用 conc.Go 启动收发协程，避免直接使用原生 go 关键字。
	up := conc.Go(func() (struct{}, error) {
		return struct{}{}, c.sendLoop(in)
	})
	down := conc.Go(func() (struct{}, error) {
		return struct{}{}, c.recvLoop(out)
	})

	var err error
	select {
	case <-ctx.Done():
	case <-up.Done():
		err = up.Err()
	case <-down.Done():
		err = down.Err()
	}
	_ = c.Close()
	return err
}

// sendLoop 按块读取 in，将结尾的 '\n' 转换为 "\r\n" 后写入连接。
func (c *tcpClientConn) sendLoop(in io.Reader) error {
	buf := make([]byte, c.cfg.ReadBytes)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			if _, werr := c.conn.Write(framer.EnsureCRLF(buf[:n])); werr != nil {
				if errors.Is(werr, net.ErrClosed) {
					return nil
				}
				return errors.Mark(errors.Wrap(werr, "connector: send"), network.ErrSendFailed)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, "connector: read input")
		}
	}
}

// recvLoop 将连接上收到的字节原样写入 out，直到连接关闭。
func (c *tcpClientConn) recvLoop(out io.Writer) error {
	buf := make([]byte, c.cfg.ReadBytes)
	_, err := io.CopyBuffer(out, onlyReader{c.conn}, buf)
	if err == nil || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return errors.Mark(errors.Wrap(err, "connector: recv"), network.ErrRecvFailed)
}

// onlyReader 隐藏 net.Conn 的 WriterTo 实现，保证 CopyBuffer 使用给定的缓冲区。
type onlyReader struct {
	io.Reader
}
