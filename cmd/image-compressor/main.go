package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/altair823/image-compressor/internal/compressor"
	"github.com/altair823/image-compressor/internal/config"
	"github.com/altair823/image-compressor/internal/crawler"
	"github.com/altair823/image-compressor/internal/factor"
	"github.com/altair823/image-compressor/internal/logger"
	"github.com/altair823/image-compressor/internal/statistics"
	"github.com/altair823/image-compressor/internal/web"
)

var (
	cfgFile         string
	sourceDir       string
	destDir         string
	threads         int
	quality         float64
	ratio           float64
	deleteOriginal  bool
	preserveModTime bool
	overwrite       bool
	verbose         bool
	quiet           bool
	port            int
	version         string
	buildTime       string
)

// rootCmd compresses a directory tree of images into a mirrored tree of
// size/quality-reduced JPEGs.
var rootCmd = &cobra.Command{
	Use:   "image-compressor",
	Short: "Bulk-convert a directory tree of images into reduced JPEGs",
	Long: `image-compressor walks a source directory tree, compresses every image
it finds into a quality/size-reduced JPEG and writes the results into a
destination tree mirroring the source structure.

Compression aggressiveness is controlled by a quality (0-100) and a resize
ratio (0-1], either fixed for the whole run or derived per image from its
dimensions and file size by the built-in threshold rule.

Files that cannot be decoded are reported and skipped; they never abort the
rest of the batch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompress(cmd)
	},
}

// scanCmd reports what a compression run would process, without writing.
var scanCmd = &cobra.Command{
	Use:   "scan [directory]",
	Short: "List the files a compression run would process",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(args)
	},
}

// serveCmd starts the status web server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web interface server",
	Long: `Starts an HTTP server exposing a REST API to launch compression runs and
a websocket stream of per-file outcomes. Access it at
http://localhost:<port> (default: 8080).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

// versionCmd prints build information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("image-compressor %s (built %s)\n", orUnknown(version), orUnknown(buildTime))
	},
}

func orUnknown(s string) string {
	if s == "" {
		return "dev"
	}
	return s
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	rootCmd.Flags().StringVar(&sourceDir, "source", "", "source directory containing images")
	rootCmd.Flags().StringVar(&destDir, "dest", "", "destination directory for compressed JPEGs")
	rootCmd.Flags().IntVar(&threads, "threads", 0, "worker count (default from config)")
	rootCmd.Flags().Float64Var(&quality, "quality", 0, "fixed JPEG quality 0-100 (default: per-image threshold rule)")
	rootCmd.Flags().Float64Var(&ratio, "ratio", 0, "fixed resize ratio (0,1] (default: per-image threshold rule)")
	rootCmd.Flags().BoolVar(&deleteOriginal, "delete-original", false, "delete source files after successful compression")
	rootCmd.Flags().BoolVar(&preserveModTime, "preserve-mod-time", false, "stamp outputs with the source capture time")
	rootCmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace existing files in the destination tree")

	serveCmd.Flags().IntVar(&port, "port", 0, "port to run the web server on (default from config)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig merges the config file with command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if sourceDir != "" {
		cfg.SourceDirectory = sourceDir
	}
	if destDir != "" {
		cfg.DestinationDirectory = destDir
	}
	if threads > 0 {
		cfg.Threads = threads
	}
	if deleteOriginal {
		cfg.DeleteOriginal = true
	}
	if preserveModTime {
		cfg.PreserveModTime = true
	}
	if overwrite {
		cfg.Overwrite = true
	}
	if port > 0 {
		cfg.Web.Port = port
	}
	return cfg, nil
}

// setupLogger builds the run logger honoring --verbose/--quiet.
func setupLogger(cfg *config.Config) (*logrus.Logger, error) {
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if quiet {
		cfg.Logging.Level = "error"
	}
	return logger.New(cfg.Logging)
}

// runCompress executes the folder compression with per-file outcome
// reporting and a final summary.
func runCompress(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.SourceDirectory == "" || cfg.DestinationDirectory == "" {
		return fmt.Errorf("--source and --dest are required")
	}

	log, err := setupLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	fc := compressor.NewFolder(cfg.SourceDirectory, cfg.DestinationDirectory)
	if err := fc.SetLogger(log); err != nil {
		return err
	}
	if err := fc.SetThreadCount(cfg.Threads); err != nil {
		return err
	}
	if err := fc.SetDeleteOriginal(cfg.DeleteOriginal); err != nil {
		return err
	}
	if err := fc.SetPreserveModTime(cfg.PreserveModTime); err != nil {
		return err
	}
	if err := fc.SetOverwrite(cfg.Overwrite); err != nil {
		return err
	}

	// An explicit quality/ratio pins a fixed factor; otherwise the built-in
	// per-image threshold rule applies.
	if cmd.Flags().Changed("quality") || cmd.Flags().Changed("ratio") {
		q, r := cfg.Quality, cfg.ResizeRatio
		if cmd.Flags().Changed("quality") {
			q = quality
		}
		if cmd.Flags().Changed("ratio") {
			r = ratio
		}
		f, err := factor.New(q, r)
		if err != nil {
			return err
		}
		if err := fc.SetFactor(f); err != nil {
			return err
		}
	}

	stats := statistics.New()
	if files, err := crawler.ListFiles(cfg.SourceDirectory); err == nil {
		stats.AddFound(int64(len(files)))
	}

	outcomes := make(chan compressor.Outcome, 64)
	if err := fc.SetOutcomes(outcomes); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- fc.Compress()
		close(outcomes)
	}()

	for o := range outcomes {
		if o.Failed() {
			stats.IncrementFailed()
			stats.RecordError(o.SourcePath, o.Err)
			continue
		}
		stats.IncrementCompressed()
		if in, err := os.Stat(o.SourcePath); err == nil {
			if out, err := os.Stat(o.DestPath); err == nil {
				stats.AddBytes(in.Size(), out.Size())
			}
		}
	}

	if err := <-done; err != nil {
		return fmt.Errorf("compression failed: %w", err)
	}
	stats.Finish()

	if !quiet {
		fmt.Println(stats.GetSummary())
	}
	return nil
}

// runScan enumerates the tree and reports what would be compressed.
func runScan(args []string) error {
	dir := sourceDir
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "" {
		dir = "."
	}

	files, err := crawler.ListFiles(dir)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	var totalBytes int64
	for _, f := range files {
		if info, err := os.Stat(f); err == nil {
			totalBytes += info.Size()
		}
	}
	fmt.Printf("%s: %d files, %.2f MB\n", dir, len(files), float64(totalBytes)/(1<<20))
	return nil
}

// runServe starts the web interface server.
func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log, err := setupLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	server := web.NewServer(cfg, log)
	return server.Start(cfg.Web.Port)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
