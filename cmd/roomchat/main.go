// roomchat 是聊天服务的终端客户端：标准输入发往服务器，服务器输出写到标准输出。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lk2023060901/roomchat-go/internal/network/connector"
)

var (
	addr        = flag.String("addr", "127.0.0.1:6667", "chat server address")
	dialTimeout = flag.Duration("dial-timeout", 5*time.Second, "timeout for connecting to the server")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := connector.NewTCPConnector(connector.Config{
		ReadBytes:   connector.DefaultReadBytes,
		DialTimeout: *dialTimeout,
	}).Dial(ctx, *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "roomchat: %v\n", err)
		return 1
	}
	defer conn.Close()

	if err := conn.Pipe(ctx, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "roomchat: %v\n", err)
		return 1
	}
	return 0
}
