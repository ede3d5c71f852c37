// Command codersmeet は開発者向けSNSのAPIサーバーとワーカーを起動する。
//
// 使い方:
//
//	codersmeet [serve|worker|migrate|healthcheck]
package main

import (
	"log/slog"
	"os"

	"github.com/hitoshi/codersmeet/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("application exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
