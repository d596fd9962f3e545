// Package sessiontest 提供会话相关测试使用的内存连接。
package sessiontest

import (
	"bytes"
	"net"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// Addr 是一个固定字符串的 net.Addr。
type Addr string

func (a Addr) Network() string { return "tcp" }
func (a Addr) String() string  { return string(a) }

// ErrInjected 为 FailWrites 注入的写错误。
var ErrInjected = errors.New("sessiontest: injected write failure")

// Conn 记录所有写出内容的 net.Conn 实现，Read 总是返回 EOF 之前的预置数据。
type Conn struct {
	mu        sync.Mutex
	written   bytes.Buffer
	input     *bytes.Reader
	failWrite bool
	closed    bool
	deadline  time.Time

	remote Addr
	local  Addr
}

var _ net.Conn = (*Conn)(nil)

// NewConn 创建一个对端地址为 remote 的记录连接。
func NewConn(remote string) *Conn {
	return &Conn{
		input:  bytes.NewReader(nil),
		remote: Addr(remote),
		local:  Addr("127.0.0.1:6667"),
	}
}

// WithInput 预置 Read 返回的数据。
func (c *Conn) WithInput(data string) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = bytes.NewReader([]byte(data))
	return c
}

// FailWrites 控制后续 Write 是否返回 ErrInjected。
func (c *Conn) FailWrites(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failWrite = fail
}

// Written 返回目前写出的全部内容。
func (c *Conn) Written() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written.String()
}

// Reset 清空已记录的写出内容。
func (c *Conn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written.Reset()
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// WriteDeadline 返回最近一次设置的写超时。
func (c *Conn) WriteDeadline() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deadline
}

func (c *Conn) Read(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	return c.input.Read(b)
}

func (c *Conn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	if c.failWrite {
		return 0, ErrInjected
	}
	return c.written.Write(b)
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Conn) LocalAddr() net.Addr  { return c.local }
func (c *Conn) RemoteAddr() net.Addr { return c.remote }

func (c *Conn) SetDeadline(t time.Time) error {
	return c.SetWriteDeadline(t)
}

func (c *Conn) SetReadDeadline(time.Time) error { return nil }

func (c *Conn) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = t
	return nil
}
