package framer

import (
	"bufio"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
)

// DefaultMaxLineBytes 为服务器侧单行的默认上限，单位字节。
const DefaultMaxLineBytes = 2048

// minLineBytes 为 bufio.Reader 允许的最小缓冲区大小。
const minLineBytes = 16

// Framer 抽象了基于行的拆包/封包能力。
//
// 约定：
//   - 一行以 '\n' 结束，读取时在第一个 '\r' 或 '\n' 处截断；
//   - 超过上限的行只保留前 MaxLineBytes 字节，其余字节丢弃到下一个换行为止；
//   - 写出时不做任何转换，调用方负责提供完整的 CRLF 文本。
type Framer interface {
	// ReadLine 读取下一行，返回值不包含行尾。
	//
	// 对端在最后一行未换行就关闭时，先返回这部分内容，下一次调用再返回 io.EOF。
	ReadLine() (string, error)

	// WriteLine 将 text 原样写入 w。
	WriteLine(w io.Writer, text string) error
}

// LineFramer 使用 '\n' 作为帧边界，适用于 TCP 文本协议。
type LineFramer struct {
	r       *bufio.Reader
	maxLine int
}

// 编译期断言：确保 LineFramer 实现了 Framer 接口。
var _ Framer = (*LineFramer)(nil)

// NewLineFramer 创建一个从 r 读取的行帧编码器。
// maxLine <= 0 时使用 DefaultMaxLineBytes。
func NewLineFramer(r io.Reader, maxLine int) *LineFramer {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineBytes
	}
	if maxLine < minLineBytes {
		maxLine = minLineBytes
	}
	return &LineFramer{
		r:       bufio.NewReaderSize(r, maxLine),
		maxLine: maxLine,
	}
}

// ReadLine 实现 Framer.ReadLine。
func (f *LineFramer) ReadLine() (string, error) {
	line, err := f.r.ReadSlice('\n')
	switch {
	case err == nil:
		return Strip(string(line)), nil

	case errors.Is(err, bufio.ErrBufferFull):
		// ReadSlice 返回的切片在下次读取时失效，先复制。
		kept := string(line)
		if derr := f.discardLine(); derr != nil && !errors.Is(derr, io.EOF) {
			return "", derr
		}
		return Strip(kept), nil

	case errors.Is(err, io.EOF):
		if len(line) == 0 {
			return "", io.EOF
		}
		return Strip(string(line)), nil

	default:
		return "", err
	}
}

// discardLine 丢弃当前行剩余的字节，直到遇到换行。
func (f *LineFramer) discardLine() error {
	for {
		_, err := f.r.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return err
	}
}

// WriteLine 实现 Framer.WriteLine。
func (f *LineFramer) WriteLine(w io.Writer, text string) error {
	if _, err := io.WriteString(w, text); err != nil {
		return errors.Wrap(err, "framer: write line failed")
	}
	return nil
}

// MaxLineBytes 返回单行上限。
func (f *LineFramer) MaxLineBytes() int {
	return f.maxLine
}

// Strip 在第一个 '\r' 或 '\n' 处截断 s。
func Strip(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}

// EnsureCRLF 将结尾的单个 '\n' 替换为 "\r\n"，已是 CRLF 或没有换行时保持原样。
func EnsureCRLF(b []byte) []byte {
	n := len(b)
	if n == 0 || b[n-1] != '\n' {
		return b
	}
	if n >= 2 && b[n-2] == '\r' {
		return b
	}
	out := make([]byte, 0, n+1)
	out = append(out, b[:n-1]...)
	return append(out, '\r', '\n')
}
