package main

import (
	"context"

	"github.com/botkeeper/botkeeper/internal/cli"
)

func main() {
	cfg := cli.LoadConfig()
	app := cli.NewApp(cfg)
	app.Main(context.Background())
}
