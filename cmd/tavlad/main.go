package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	charmLog "github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/hylla/tavla/internal/adapters/realtime/hub"
	"github.com/hylla/tavla/internal/adapters/realtime/redisrelay"
	"github.com/hylla/tavla/internal/adapters/server"
	"github.com/hylla/tavla/internal/adapters/storage/sqlite"
	"github.com/hylla/tavla/internal/config"
	"github.com/hylla/tavla/internal/engine"
	"github.com/hylla/tavla/internal/platform"
)

var version = "dev"

// main handles main.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run runs the requested command flow.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("tavlad", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFlag := fs.String("config", "", "path to config.toml (overrides the platform default)")
	dbFlag := fs.String("db", "", "path to the sqlite database (overrides config)")
	devFlag := fs.Bool("dev", false, "use the dev config and database locations")
	versionFlag := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	if *versionFlag {
		fmt.Fprintln(stdout, "tavlad", version)
		return nil
	}

	devMode := *devFlag
	if !devMode {
		devMode = envBool("TAVLA_DEV_MODE")
	}

	paths, err := platform.DefaultPathsWithOptions(platform.Options{AppName: "tavla", DevMode: devMode})
	if err != nil {
		return fmt.Errorf("resolve platform paths: %w", err)
	}

	configPath := strings.TrimSpace(*configFlag)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("TAVLA_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}

	dbPath := strings.TrimSpace(*dbFlag)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("TAVLA_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}

	logger := charmLog.NewWithOptions(stderr, charmLog.Options{
		ReportTimestamp: true,
		Prefix:          "tavlad",
	})
	if devMode {
		logger.SetLevel(charmLog.DebugLevel)
	}

	command := firstArg(fs.Args())
	switch command {
	case "", "serve":
		return runServe(ctx, cfg, logger)
	case "paths":
		fmt.Fprintln(stdout, "app: tavla")
		fmt.Fprintln(stdout, "dev_mode:", strconv.FormatBool(devMode))
		fmt.Fprintln(stdout, "config:", configPath)
		fmt.Fprintln(stdout, "data_dir:", paths.DataDir)
		fmt.Fprintln(stdout, "db:", cfg.Database.Path)
		return nil
	case "migrate":
		return runMigrate(cfg, logger)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runServe wires the storage, realtime, and HTTP layers and serves until the
// context is cancelled.
func runServe(ctx context.Context, cfg config.Config, logger *charmLog.Logger) error {
	logger.Info("opening sqlite store", "db_path", cfg.Database.Path)
	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open sqlite store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("sqlite close failed", "db_path", cfg.Database.Path, "err", closeErr)
		}
	}()

	h := hub.New(cfg.Realtime.Buffer)
	var broadcaster engine.Broadcaster = engine.NewRouter(h, h, logger)

	if addr := strings.TrimSpace(cfg.Realtime.RedisAddr); addr != "" {
		origin := strings.TrimSpace(cfg.Realtime.Origin)
		if origin == "" {
			if hostname, hostErr := os.Hostname(); hostErr == nil {
				origin = hostname
			}
		}
		client := redis.NewClient(&redis.Options{Addr: addr})
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				logger.Warn("redis close failed", "addr", addr, "err", closeErr)
			}
		}()
		logger.Info("redis relay enabled", "addr", addr, "channel", cfg.Realtime.Channel, "origin", origin)

		publisher := redisrelay.NewPublisher(client, cfg.Realtime.Channel, origin, logger)
		go redisrelay.Subscribe(ctx, client, cfg.Realtime.Channel, origin, broadcaster, logger)
		broadcaster = engine.FanOut(broadcaster, publisher)
	}

	eng := engine.New(store, broadcaster, nil, nil, logger, engine.Config{LockWait: cfg.LockWait()})
	srv := server.New(server.Config{Bind: cfg.Server.Bind}, eng, h, server.StaticTokens(cfg.Server.Tokens), logger)

	logger.Info("serving", "bind", cfg.Server.Bind)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("run server: %w", err)
	}
	return nil
}

// runMigrate opens the store, which applies pending migrations, and exits.
func runMigrate(cfg config.Config, logger *charmLog.Logger) error {
	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open sqlite store: %w", err)
	}
	logger.Info("migrations applied", "db_path", cfg.Database.Path)
	return store.Close()
}

// firstArg returns the first positional argument, if any.
func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return strings.TrimSpace(args[0])
}

// envBool reads a boolean environment variable, treating parse failures as
// false.
func envBool(name string) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return v
}
