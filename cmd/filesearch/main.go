package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"filesearch/internal/config"
	"filesearch/internal/opener"
	"filesearch/internal/server"
	"filesearch/internal/service"
	"filesearch/internal/tui"
	"filesearch/internal/watch"
)

var (
	rootCmd = &cobra.Command{
		Use:   "filesearch",
		Short: "Semantic search over local images, text files and PDFs",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}
	cfgPath      string
	storeFlag    string
	embedderFlag string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to YAML config file (defaults to ./config.yaml, then ~/.config/filesearch/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "Vector store: bolt, sqlite, qdrant or memory")
	rootCmd.PersistentFlags().StringVar(&embedderFlag, "embedder", "", "Embedder: clip, openai or local")

	indexCmd.Flags().StringSlice("category", nil, "Only index these categories (image, text, pdf)")
	searchCmd.Flags().IntP("limit", "n", 0, "Maximum number of results (defaults to search.default_limit)")
	searchCmd.Flags().Bool("json", false, "Print results as JSON")
	watchCmd.Flags().StringSlice("category", nil, "Only index these categories (image, text, pdf)")
	tuiCmd.Flags().IntP("limit", "n", 10, "Maximum number of results")

	rootCmd.AddCommand(indexCmd, searchCmd, removeCmd, statusCmd, dirsCmd, filesCmd, openCmd, serveCmd, watchCmd, tuiCmd)
}

// mustApp loads configuration and assembles the service, exiting on failure.
func mustApp(ctx context.Context, logw io.Writer, progress service.ProgressFunc) *app {
	cfg, err := loadConfig(cfgPath, embedderFlag, storeFlag)
	if err != nil {
		log.Fatalf("%v", err)
	}
	a, err := newApp(ctx, cfg, logw, progress)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return a
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// directoriesOrConfigured returns args, or the configured directories when args is empty.
func directoriesOrConfigured(args []string, cfg *config.AppConfig) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if len(cfg.Indexer.Directories) > 0 {
		return cfg.Indexer.Directories, nil
	}
	return nil, errors.New("no directories given and none configured in indexer.directories")
}

var indexCmd = &cobra.Command{
	Use:   "index [dir...]",
	Short: "Index new files under the given directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a := mustApp(ctx, cmd.ErrOrStderr(), progressPrinter(cmd.ErrOrStderr()))
		defer a.Close()

		dirs, err := directoriesOrConfigured(args, a.cfg)
		if err != nil {
			return err
		}
		cats, _ := cmd.Flags().GetStringSlice("category")
		exts, err := categoryExtensions(a.svc.Classifier(), cats)
		if err != nil {
			return err
		}

		start := time.Now()
		report, err := a.svc.Index(ctx, dirs, exts)
		fmt.Fprintf(cmd.OutOrStdout(), "Discovered %d new files, committed %d, failed %d (%d failed batches) in %v\n",
			report.Discovered, report.Committed, report.Failed, report.FailedBatches, time.Since(start).Round(time.Millisecond))
		return err
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed files by meaning",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := mustApp(ctx, cmd.ErrOrStderr(), nil)
		defer a.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = a.cfg.Search.DefaultLimit
		}
		query := strings.Join(args, " ")
		results := a.svc.Search(ctx, query, limit)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}
		if len(results) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No results.")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SIMILARITY\tTYPE\tPATH")
		for _, r := range results {
			fmt.Fprintf(tw, "%.4f\t%s\t%s\n", r.Similarity, r.Category, r.Path)
		}
		return tw.Flush()
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <path>",
	Short: "Remove every indexed file whose path starts with path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := mustApp(ctx, cmd.ErrOrStderr(), nil)
		defer a.Close()

		prefix := service.ResolvePrefix(args[0])
		n, err := a.svc.Remove(ctx, prefix)
		if err != nil {
			return fmt.Errorf("remove %s: %w", prefix, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d files under %s\n", n, prefix)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index size and active backends",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := mustApp(ctx, cmd.ErrOrStderr(), nil)
		defer a.Close()

		st, err := a.svc.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed files: %d\nEmbedder:      %s\nStore:         %s\n", st.IndexCount, st.Embedder, st.Store)
		return nil
	},
}

var dirsCmd = &cobra.Command{
	Use:   "dirs",
	Short: "List directories that contain indexed files",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := mustApp(ctx, cmd.ErrOrStderr(), nil)
		defer a.Close()

		dirs, err := a.svc.Directories(ctx)
		if err != nil {
			return err
		}
		for _, d := range dirs {
			fmt.Fprintln(cmd.OutOrStdout(), d)
		}
		return nil
	},
}

var filesCmd = &cobra.Command{
	Use:   "files <dir>",
	Short: "List indexed files under a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := mustApp(ctx, cmd.ErrOrStderr(), nil)
		defer a.Close()

		files, err := a.svc.Files(ctx, service.ResolvePrefix(args[0]))
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, f := range files {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Category, f.ModifiedAt.Local().Format(time.DateTime), f.RelativePath)
		}
		return tw.Flush()
	},
}

var openCmd = &cobra.Command{
	Use:   "open <path>",
	Short: "Open a file with the system's default application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return openPath(opener.New(), args[0])
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP search API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a := mustApp(ctx, cmd.ErrOrStderr(), nil)
		defer a.Close()

		srv := server.New(a.cfg.Server.Addr, a.svc, a.cfg.Search.DefaultLimit, a.log)
		errCh := make(chan error, 1)
		go func() {
			a.log.Info("HTTP server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		a.log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [dir...]",
	Short: "Index directories and keep the index up to date as files change",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a := mustApp(ctx, cmd.ErrOrStderr(), nil)
		defer a.Close()

		dirs, err := directoriesOrConfigured(args, a.cfg)
		if err != nil {
			return err
		}
		roots := make([]string, 0, len(dirs))
		for _, d := range dirs {
			r, err := service.ResolveDir(d)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", d, err)
			}
			roots = append(roots, r)
		}
		cats, _ := cmd.Flags().GetStringSlice("category")
		exts, err := categoryExtensions(a.svc.Classifier(), cats)
		if err != nil {
			return err
		}

		debounce := time.Duration(a.cfg.Indexer.WatchDebounceMs) * time.Millisecond
		w, err := watch.New(a.svc, roots, exts, debounce, a.log)
		if err != nil {
			return err
		}
		return w.Run(ctx)
	},
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive search",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := mustApp(cmd.Context(), io.Discard, nil)
		defer a.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		_, err := tea.NewProgram(tui.New(a.svc, opener.New(), limit), tea.WithAltScreen()).Run()
		return err
	},
}
