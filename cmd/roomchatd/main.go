// roomchatd 是多房间聊天服务的守护进程。
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/lk2023060901/roomchat-go/application"
	"github.com/lk2023060901/roomchat-go/internal/version"
	zlog "github.com/lk2023060901/roomchat-go/pkg/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" {
			fmt.Println(version.String())
			return 0
		}
	}

	app := application.New()
	if err := app.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "roomchatd: %v\n", err)
		return 1
	}

	undo, err := maxprocs.Set(maxprocs.Logger(zlog.S().Infof))
	defer undo()
	if err != nil {
		zlog.Warn("set GOMAXPROCS failed", zap.Error(err))
	}

	app.OnSignal(func(kind application.SignalKind, sig os.Signal) {
		if kind == application.SignalShutdown {
			fmt.Fprintf(os.Stderr, "roomchatd: %s received, shutting down\n", sig)
		}
	})

	if err := app.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "roomchatd: %v\n", err)
		return 1
	}
	return 0
}
