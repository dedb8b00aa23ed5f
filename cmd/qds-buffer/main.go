// qds-buffer is the operator tooling around the QDS buffer library:
//
//	qds-buffer check [files...]   validate data-set files without buffering
//	qds-buffer feed [files...]    ingest data-set files and dump the buffer
//
// With no file arguments, both subcommands glob feed.dir/feed.pattern from
// the configuration.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/basekick-labs/qds-buffer/internal/config"
	"github.com/basekick-labs/qds-buffer/internal/logger"
	"github.com/basekick-labs/qds-buffer/internal/qdsjson"
	"github.com/basekick-labs/qds-buffer/internal/telemetry"
	"github.com/basekick-labs/qds-buffer/pkg/datasource"
	"github.com/basekick-labs/qds-buffer/pkg/qds"
)

// Version is set at build time
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("version", Version).Msg("Starting qds-buffer...")

	files, err := resolveFiles(cfg, os.Args[2:])
	if err != nil {
		log.Error().Err(err).Msg("Failed to resolve input files")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "check":
		os.Exit(runCheck(cfg, files))
	case "feed":
		os.Exit(runFeed(cfg, files))
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: qds-buffer <check|feed> [files...]")
}

// resolveFiles returns the explicit arguments, or the sorted glob of
// feed.dir/feed.pattern when none are given.
func resolveFiles(cfg *config.Config, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	files, err := filepath.Glob(filepath.Join(cfg.Feed.Dir, cfg.Feed.Pattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// runCheck validates every file concurrently and reports failures.
func runCheck(cfg *config.Config, files []string) int {
	checkLog := logger.Get("check")

	var g errgroup.Group
	g.SetLimit(cfg.Feed.Workers)

	failed := make([]error, len(files))
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			data, err := os.ReadFile(file)
			if err == nil {
				err = qdsjson.Parse(data, qdsjson.NewState())
			}
			if err != nil {
				failed[i] = err
				checkLog.Error().Str("file", file).Err(err).Msg("validation failed")
			}
			return nil
		})
	}
	g.Wait()

	bad := 0
	for _, err := range failed {
		if err != nil {
			bad++
		}
	}
	checkLog.Info().Int("files", len(files)).Int("failed", bad).Msg("check finished")
	if bad > 0 {
		return 1
	}
	return 0
}

// runFeed validates the files concurrently, adds the valid ones in file
// order with monotonic ids, then dumps the resulting buffer.
func runFeed(cfg *config.Config, files []string) int {
	feedLog := logger.Get("feed")

	ds := datasource.New(datasource.Options{
		BufferSize:          cfg.Buffer.Size,
		CounterMode:         cfg.Buffer.CounterMode,
		AllowOverflow:       cfg.Buffer.AllowOverflow,
		ResetJournalSize:    cfg.Buffer.ResetJournalSize,
		DeletionJournalSize: cfg.Buffer.DeletionJournalSize,
		CompressRefsOver:    cfg.Buffer.CompressRefsOverBytes,
		Logger:              logger.Get("datasource"),
	})

	// Pre-validate in parallel; ids must be handed out in order, so the
	// adds themselves stay sequential.
	contents := make([][]byte, len(files))
	var g errgroup.Group
	g.SetLimit(cfg.Feed.Workers)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			data, err := os.ReadFile(file)
			if err == nil {
				err = qdsjson.Parse(data, qdsjson.NewState())
			}
			if err != nil {
				feedLog.Error().Str("file", file).Err(err).Msg("skipping file")
				return nil
			}
			contents[i] = data
			return nil
		})
	}
	g.Wait()

	var id int64
	for i, data := range contents {
		if data == nil {
			continue
		}
		evicted, accepted, err := ds.Add(id, data)
		switch {
		case err != nil:
			feedLog.Error().Str("file", files[i]).Int64("id", id).Err(err).Msg("add failed")
		case !accepted:
			feedLog.Warn().Str("file", files[i]).Int64("id", id).Msg("declined by locked entries")
		default:
			feedLog.Debug().Str("file", files[i]).Int64("id", id).Int("evicted", evicted).Msg("added")
		}
		id++
	}

	dumpBuffer(ds)

	telemetry.Get().LogSummary(feedLog)
	return 0
}

// dumpBuffer prints every buffered data set as wire JSON.
func dumpBuffer(ds datasource.DataSourceOut) {
	lock := ds.SharedLock()
	lock.Lock()
	defer lock.Unlock()

	for _, entry := range ds.Entries() {
		out, err := qds.ToJSON(entry.Measurements)
		if err != nil {
			log.Error().Int64("id", entry.ID).Err(err).Msg("serialization failed")
			continue
		}
		fmt.Printf("%d\t%s\n", entry.ID, out)
	}
}
