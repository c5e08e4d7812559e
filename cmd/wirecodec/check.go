package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var checkWatch bool

var checkCmd = &cobra.Command{
	Use:   "check FILE...",
	Short: "Validate declaration files",
	Long: `Load and analyze each declaration file, reporting every resolution error.

With --watch the files are checked again whenever they change, until
interrupted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		failed := checkFiles(out, args)
		if !checkWatch {
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return watchFiles(ctx, out, args)
	},
}

func init() {
	checkCmd.Flags().BoolVarP(&checkWatch, "watch", "w", false, "re-check files when they change")
	rootCmd.AddCommand(checkCmd)
}

// checkFiles reports on each file and returns the number that failed.
func checkFiles(out io.Writer, paths []string) int {
	failed := 0
	for _, path := range paths {
		if !checkFile(out, path) {
			failed++
		}
	}
	return failed
}

func checkFile(out io.Writer, path string) bool {
	s, err := loadSchema(path)
	if err != nil {
		fmt.Fprintf(out, "FAIL %s\n  %v\n", path, err)
		return false
	}
	fmt.Fprintf(out, "ok   %s (%d types)\n", path, len(s.Types()))
	return true
}

// watchFiles re-checks a file on every write or create event. Directories
// are watched instead of the files so editors that replace files on save
// are still seen.
func watchFiles(ctx context.Context, out io.Writer, paths []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]string, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("absolute path: %w", err)
		}
		watched[abs] = p
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch directory: %w", err)
		}
		dirs[dir] = true
	}
	logger.Info("watching declaration files", zap.Strings("files", paths))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			path, ok := watched[event.Name]
			if !ok || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			logger.Debug("declaration file changed",
				zap.String("file", path),
				zap.String("event", event.Op.String()))
			checkFile(out, path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("file watcher error", zap.Error(err))
		}
	}
}
