package framer

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, f *LineFramer) []string {
	t.Helper()
	var lines []string
	for {
		line, err := f.ReadLine()
		if err == io.EOF {
			return lines
		}
		require.NoError(t, err)
		lines = append(lines, line)
	}
}

func TestReadLineStripsTerminators(t *testing.T) {
	f := NewLineFramer(strings.NewReader("hello\r\n/nick bob\n\r\nmid\rtail\n"), 0)
	assert.Equal(t, []string{"hello", "/nick bob", "", "mid"}, readAll(t, f))
	assert.Equal(t, DefaultMaxLineBytes, f.MaxLineBytes())
}

func TestReadLinePartialAtEOF(t *testing.T) {
	f := NewLineFramer(strings.NewReader("first\r\nno newline"), 0)
	assert.Equal(t, []string{"first", "no newline"}, readAll(t, f))

	_, err := f.ReadLine()
	assert.Equal(t, io.EOF, err)
}

func TestReadLineDiscardsOverflow(t *testing.T) {
	long := strings.Repeat("a", 40) + strings.Repeat("b", 100)
	f := NewLineFramer(strings.NewReader(long+"\r\nnext\r\n"), 40)

	lines := readAll(t, f)
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Repeat("a", 40), lines[0])
	assert.Equal(t, "next", lines[1])
}

func TestReadLineOverflowAtEOF(t *testing.T) {
	f := NewLineFramer(strings.NewReader(strings.Repeat("z", 50)), 20)
	lines := readAll(t, f)
	assert.Equal(t, []string{strings.Repeat("z", 20)}, lines)
}

func TestMinimumBuffer(t *testing.T) {
	f := NewLineFramer(strings.NewReader("x\n"), 1)
	assert.Equal(t, minLineBytes, f.MaxLineBytes())
}

func TestWriteLine(t *testing.T) {
	var buf bytes.Buffer
	f := NewLineFramer(strings.NewReader(""), 0)
	require.NoError(t, f.WriteLine(&buf, "> *boop*\r\n> "))
	assert.Equal(t, "> *boop*\r\n> ", buf.String())
}

func TestStrip(t *testing.T) {
	assert.Equal(t, "abc", Strip("abc"))
	assert.Equal(t, "abc", Strip("abc\r\n"))
	assert.Equal(t, "", Strip("\nabc"))
}

func TestEnsureCRLF(t *testing.T) {
	assert.Equal(t, "hi\r\n", string(EnsureCRLF([]byte("hi\n"))))
	assert.Equal(t, "hi\r\n", string(EnsureCRLF([]byte("hi\r\n"))))
	assert.Equal(t, "partial", string(EnsureCRLF([]byte("partial"))))
	assert.Equal(t, "\r\n", string(EnsureCRLF([]byte("\n"))))
	assert.Empty(t, EnsureCRLF(nil))
}
