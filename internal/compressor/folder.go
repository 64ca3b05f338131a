package compressor

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/altair823/image-compressor/internal/crawler"
	"github.com/altair823/image-compressor/internal/factor"
)

// DefaultThreadCount is the worker pool size used when none is configured.
const DefaultThreadCount = 4

// FolderCompressor compresses every regular file under a source root into a
// mirrored destination tree using a bounded worker pool. Configuration is
// locked for the duration of a Compress call; per-file outcomes are reported
// through an optional channel, never through the batch return value.
type FolderCompressor struct {
	mu      sync.Mutex
	running bool

	source          string
	dest            string
	threadCount     int
	calculator      factor.Calculator
	outcomes        chan<- Outcome
	deleteOriginal  bool
	preserveModTime bool
	overwrite       bool
	log             *logrus.Logger
}

// NewFolder returns a FolderCompressor for the given source and destination
// roots with the default worker count and the built-in threshold calculator.
func NewFolder(source, dest string) *FolderCompressor {
	return &FolderCompressor{
		source:      source,
		dest:        dest,
		threadCount: DefaultThreadCount,
		calculator:  factor.Default(),
		log:         logrus.StandardLogger(),
	}
}

// configure runs fn under the configuration lock, refusing while a run is in
// flight.
func (fc *FolderCompressor) configure(fn func()) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.running {
		return ErrRunInFlight
	}
	fn()
	return nil
}

// SetThreadCount sets the worker pool size. Zero or negative counts are a
// configuration error, not a silent clamp.
func (fc *FolderCompressor) SetThreadCount(n int) error {
	if n < 1 {
		return fmt.Errorf("thread count must be at least 1, got %d", n)
	}
	return fc.configure(func() { fc.threadCount = n })
}

// SetCalculator replaces the factor calculator used for every file. The
// calculator is invoked concurrently from all workers and must be pure.
func (fc *FolderCompressor) SetCalculator(calc factor.Calculator) error {
	return fc.configure(func() { fc.calculator = calc })
}

// SetFactor pins a fixed Factor for every file in the run.
func (fc *FolderCompressor) SetFactor(f factor.Factor) error {
	return fc.configure(func() { fc.calculator = factor.Fixed(f) })
}

// SetOutcomes installs the channel per-file outcomes are sent on. Sends
// block, so the receiver must drain the channel until Compress returns.
func (fc *FolderCompressor) SetOutcomes(ch chan<- Outcome) error {
	return fc.configure(func() { fc.outcomes = ch })
}

// SetDeleteOriginal removes source files after successful compression and
// prunes source directories left empty at the end of the run.
func (fc *FolderCompressor) SetDeleteOriginal(v bool) error {
	return fc.configure(func() { fc.deleteOriginal = v })
}

// SetPreserveModTime stamps outputs with the source capture time.
func (fc *FolderCompressor) SetPreserveModTime(v bool) error {
	return fc.configure(func() { fc.preserveModTime = v })
}

// SetOverwrite replaces existing target files instead of failing them.
func (fc *FolderCompressor) SetOverwrite(v bool) error {
	return fc.configure(func() { fc.overwrite = v })
}

// SetLogger replaces the logger used for run progress.
func (fc *FolderCompressor) SetLogger(log *logrus.Logger) error {
	return fc.configure(func() { fc.log = log })
}

// runConfig is the configuration snapshot a run operates on, immune to any
// setter called while the run is draining.
type runConfig struct {
	source          string
	dest            string
	threadCount     int
	calculator      factor.Calculator
	outcomes        chan<- Outcome
	deleteOriginal  bool
	preserveModTime bool
	overwrite       bool
	log             *logrus.Logger
}

// Compress enumerates the source tree, mirrors its directory structure under
// the destination root and fans the files out across the worker pool. It
// blocks until every dispatched job has finished. The returned error covers
// scheduler-level failures only (missing source root, uncreatable
// destination); individual file failures are reported exclusively through
// the outcome channel.
func (fc *FolderCompressor) Compress() error {
	fc.mu.Lock()
	if fc.running {
		fc.mu.Unlock()
		return ErrRunInFlight
	}
	fc.running = true
	cfg := runConfig{
		source:          fc.source,
		dest:            fc.dest,
		threadCount:     fc.threadCount,
		calculator:      fc.calculator,
		outcomes:        fc.outcomes,
		deleteOriginal:  fc.deleteOriginal,
		preserveModTime: fc.preserveModTime,
		overwrite:       fc.overwrite,
		log:             fc.log,
	}
	fc.mu.Unlock()
	defer func() {
		fc.mu.Lock()
		fc.running = false
		fc.mu.Unlock()
	}()

	info, err := os.Stat(cfg.source)
	if err != nil {
		return fmt.Errorf("source root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source root %s is not a directory", cfg.source)
	}

	files, err := crawler.ListFiles(cfg.source)
	if err != nil {
		return fmt.Errorf("enumerate source tree: %w", err)
	}

	// The destination skeleton must exist before any worker starts, so no
	// worker ever writes into a not-yet-created directory.
	if err := crawler.MirrorTree(cfg.source, cfg.dest); err != nil {
		return fmt.Errorf("mirror destination tree: %w", err)
	}

	cfg.log.WithFields(logrus.Fields{
		"source":  cfg.source,
		"dest":    cfg.dest,
		"files":   len(files),
		"workers": cfg.threadCount,
	}).Info("Starting folder compression")

	if len(files) == 0 {
		return nil
	}

	jobs := make(chan string, len(files))
	var wg sync.WaitGroup
	wg.Add(cfg.threadCount)
	for i := 0; i < cfg.threadCount; i++ {
		go func() {
			defer wg.Done()
			for path := range jobs {
				fc.processOne(cfg, path)
			}
		}()
	}
	for _, path := range files {
		jobs <- path
	}
	close(jobs)
	wg.Wait()

	cfg.log.WithField("files", len(files)).Info("Folder compression finished")

	if cfg.deleteOriginal {
		if err := crawler.PruneEmptyDirs(cfg.source); err != nil {
			cfg.log.WithError(err).Warn("Source tree not fully pruned")
		}
	}
	return nil
}

// processOne runs the per-file pipeline for path and reports its outcome.
func (fc *FolderCompressor) processOne(cfg runConfig, path string) {
	rel, err := filepath.Rel(cfg.source, filepath.Dir(path))
	if err != nil {
		fc.report(cfg, Outcome{SourcePath: path, Err: fmt.Errorf("relativize %s: %w", path, err)})
		return
	}

	c := New(path, filepath.Join(cfg.dest, rel))
	c.SetCalculator(cfg.calculator)
	c.SetDeleteOriginal(cfg.deleteOriginal)
	c.SetPreserveModTime(cfg.preserveModTime)
	c.SetOverwrite(cfg.overwrite)

	target, err := c.CompressToJPEG()
	fc.report(cfg, Outcome{SourcePath: path, DestPath: target, Err: err})
}

func (fc *FolderCompressor) report(cfg runConfig, o Outcome) {
	if o.Failed() {
		cfg.log.WithField("file", o.SourcePath).WithError(o.Err).Warn("Compression failed")
	} else {
		cfg.log.WithFields(logrus.Fields{
			"file":   o.SourcePath,
			"output": o.DestPath,
		}).Debug("Compression complete")
	}
	if cfg.outcomes != nil {
		cfg.outcomes <- o
	}
}
