package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"TopicScribe/internal/app"
	"TopicScribe/internal/cli"
	"TopicScribe/internal/config"
)

func main() {
	root := cli.NewRootCommand(func(ctx context.Context, cfg config.Config, logger *slog.Logger) (cli.Service, error) {
		return app.New(ctx, cfg, logger)
	})

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "topicscribe:", err)
		os.Exit(cli.ExitCode(err))
	}
}
