package log

import (
	"bytes"

	"go.uber.org/zap/zaptest"
)

// testingWriter 将日志转发到 t.Logf，用作测试 Logger 的输出。
//
// failOnWrite 为 true 时每次写入都会让测试失败，用于 zap 内部错误输出。
type testingWriter struct {
	t           zaptest.TestingT
	failOnWrite bool
}

func (w *testingWriter) Write(p []byte) (int, error) {
	n := len(p)
	w.t.Logf("%s", bytes.TrimRight(p, "\n"))
	if w.failOnWrite {
		w.t.Fail()
	}
	return n, nil
}

func (w *testingWriter) Sync() error {
	return nil
}
