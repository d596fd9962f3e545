package network

import (
	"context"
	"net"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/roomchat-go/pkg/util/retry"
)

const (
	listenAttempts = 5
	listenSleep    = 100 * time.Millisecond
	listenMaxSleep = time.Second
)

// Listen 在 addr 上监听 TCP。
//
// 端口仍被上一个进程占用（EADDRINUSE）时按指数退避重试，其余错误立即返回。
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	var lc net.ListenConfig
	var ln net.Listener
	err := retry.Do(ctx, func() error {
		var err error
		ln, err = lc.Listen(ctx, "tcp", addr)
		if err != nil && !errors.Is(err, syscall.EADDRINUSE) {
			return retry.Unrecoverable(err)
		}
		return err
	}, retry.Attempts(listenAttempts), retry.Sleep(listenSleep), retry.MaxSleepTime(listenMaxSleep))
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", addr)
	}
	return ln, nil
}
