package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/devpub/internal"
	pkgconfig "github.com/starford/devpub/pkg/config"
)

type runFunc func(ctx context.Context, opts ...internal.Option) error

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if dir := cmd.String("dir"); dir != "" {
		cfg.Articles.Dir = dir
	}
	return cfg, nil
}

func action(run runFunc) func(context.Context, *cli.Command) error {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return run(ctx, internal.WithConfig(cfg))
	}
}

func main() {
	publish := action(internal.Run)

	cmd := &cli.Command{
		Name:   "devpub",
		Usage:  "Publish local markdown articles to DEV.to (Forem), creating or updating posts by title",
		Action: publish,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Articles directory (overrides articles.dir)",
				Sources: cli.EnvVars("DEVPUB_ARTICLES_DIR"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "publish",
				Usage:  "Publish every article once",
				Action: publish,
			},
			{
				Name:   "watch",
				Usage:  "Publish every article, then republish files as they change",
				Action: action(internal.RunWatch),
			},
			{
				Name:   "mcp",
				Usage:  "Serve the publishing tools over MCP on stdio",
				Action: action(internal.RunMCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
