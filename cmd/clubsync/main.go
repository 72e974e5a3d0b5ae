// Command clubsync mirrors a sports club into a local cache and prints the
// dashboard analytics computed from it.
//
//	clubsync [flags] sync|stale|analytics|clubs
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"sports_club_backend/internal/client/cache"
	"sports_club_backend/internal/client/syncer"
	"sports_club_backend/pkg/utils"
)

func main() {
	_ = godotenv.Load()

	serverURL := flag.String("server", utils.Getenv("CLUBSYNC_SERVER", "http://localhost:8080/api/v1/exec"), "exec endpoint of the API server")
	token := flag.String("token", os.Getenv("CLUBSYNC_TOKEN"), "bearer token")
	clubID := flag.String("club", "", "sports club id (empty keeps the selected club)")
	cachePath := flag.String("cache", utils.Getenv("CLUBSYNC_CACHE", "clubsync.db"), "path of the local cache file")
	full := flag.Bool("full", false, "replace the cache instead of fetching deltas")
	maxAge := flag.Duration("max-age", 5*time.Minute, "staleness threshold for the stale command")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(level).With().Timestamp().Logger()

	if err := run(logger, flag.Arg(0), *serverURL, *token, *clubID, *cachePath, *full, *maxAge); err != nil {
		logger.Error().Err(err).Msg("clubsync failed")
		os.Exit(1)
	}
}

func run(logger zerolog.Logger, command, serverURL, token, clubID, cachePath string, full bool, maxAge time.Duration) error {
	if command == "" {
		command = "sync"
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := cache.Open(cachePath)
	if err != nil {
		return err
	}
	defer store.Close()

	client := syncer.NewAPIClient(serverURL, token, "", nil)
	svc := syncer.NewService(client, store, logger, nil)

	if clubID != "" {
		if err := svc.SelectClub(ctx, clubID); err != nil {
			return err
		}
	}
	selected, err := svc.SelectedClub(ctx)
	if err != nil {
		return err
	}
	svc = syncer.NewService(client.WithClub(selected), store, logger, nil)

	switch command {
	case "sync":
		results, err := svc.SyncAll(ctx, full)
		if err != nil {
			return err
		}
		return printJSON(results)
	case "stale":
		results, err := svc.SyncIfStale(ctx, maxAge)
		if err != nil {
			return err
		}
		return printJSON(results)
	case "analytics":
		snap, err := svc.Analytics(ctx)
		if err != nil {
			return fmt.Errorf("no analytics yet, run sync first: %w", err)
		}
		return printJSON(snap)
	case "clubs":
		clubs, err := client.FetchSportsClubs(ctx)
		if err != nil {
			return err
		}
		return printJSON(clubs)
	}
	return fmt.Errorf("unknown command %q", command)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
