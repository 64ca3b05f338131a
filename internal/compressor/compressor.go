// Package compressor converts image files into size/quality-reduced JPEG
// outputs, one file at a time through Compressor and in bulk over a
// directory tree through FolderCompressor.
package compressor

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/altair823/image-compressor/internal/extractor"
	"github.com/altair823/image-compressor/internal/factor"
)

// Compressor runs the per-file pipeline: decode the source image, resolve a
// compression Factor from its dimensions and byte size, resize, re-encode as
// JPEG and write the result into the destination directory.
type Compressor struct {
	sourcePath      string
	destDir         string
	calculator      factor.Calculator
	deleteOriginal  bool
	preserveModTime bool
	overwrite       bool
}

// New returns a Compressor for one source file writing into destDir. The
// built-in threshold calculator is used until replaced.
func New(sourcePath, destDir string) *Compressor {
	return &Compressor{
		sourcePath: sourcePath,
		destDir:    destDir,
		calculator: factor.Default(),
	}
}

// SetCalculator replaces the factor calculator.
func (c *Compressor) SetCalculator(calc factor.Calculator) {
	c.calculator = calc
}

// SetFactor pins a fixed Factor regardless of image size.
func (c *Compressor) SetFactor(f factor.Factor) {
	c.calculator = factor.Fixed(f)
}

// SetDeleteOriginal controls whether the source file is removed after a
// successful write.
func (c *Compressor) SetDeleteOriginal(v bool) {
	c.deleteOriginal = v
}

// SetPreserveModTime controls whether the output is stamped with the EXIF
// capture time of the source (falling back to its modification time).
func (c *Compressor) SetPreserveModTime(v bool) {
	c.preserveModTime = v
}

// SetOverwrite controls whether an existing target file is replaced.
func (c *Compressor) SetOverwrite(v bool) {
	c.overwrite = v
}

// CompressToJPEG runs the pipeline and returns the path of the written
// JPEG. Any failure is returned as an error carrying the failing stage;
// the method never panics, so a worker can always move on to its next job.
func (c *Compressor) CompressToJPEG() (string, error) {
	info, err := os.Stat(c.sourcePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	img, err := imaging.Open(c.sourcePath, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: decode %s: %v", ErrUnsupportedImage, c.sourcePath, err)
	}

	bounds := img.Bounds()
	f, err := c.calculator(bounds.Dx(), bounds.Dy(), info.Size())
	if err != nil {
		return "", fmt.Errorf("resolve factor for %s: %w", c.sourcePath, err)
	}

	if f.Ratio() != 1.0 {
		width := scaleDimension(bounds.Dx(), f.Ratio())
		height := scaleDimension(bounds.Dy(), f.Ratio())
		img = imaging.Resize(img, width, height, imaging.Linear)
	}

	var buf bytes.Buffer
	quality := int(math.Round(f.Quality()))
	if quality < 1 {
		quality = 1 // codec floor; quality 0 maps to the strongest compression
	}
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return "", fmt.Errorf("encode %s: %w", c.sourcePath, err)
	}

	target, err := c.write(buf.Bytes())
	if err != nil {
		return "", err
	}

	if c.preserveModTime {
		if tm, err := extractor.TimestampFor(c.sourcePath); err == nil {
			_ = os.Chtimes(target, time.Now(), tm)
		}
	}

	if c.deleteOriginal {
		if err := os.Remove(c.sourcePath); err != nil {
			return target, fmt.Errorf("delete original %s: %w", c.sourcePath, err)
		}
	}
	return target, nil
}

// write stores the encoded bytes at <destDir>/<stem>.jpg via a temporary
// file so a crashed run never leaves a truncated output behind.
func (c *Compressor) write(data []byte) (string, error) {
	if err := os.MkdirAll(c.destDir, 0755); err != nil {
		return "", fmt.Errorf("%w: create %s: %v", ErrWriteOutput, c.destDir, err)
	}

	stem := strings.TrimSuffix(filepath.Base(c.sourcePath), filepath.Ext(c.sourcePath))
	target := filepath.Join(c.destDir, stem+".jpg")
	if !c.overwrite {
		if _, err := os.Stat(target); err == nil {
			return "", fmt.Errorf("%w: %s", ErrTargetExists, target)
		}
	}

	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return target, nil
}

// scaleDimension applies the resize ratio to one dimension, rounding to the
// nearest pixel and never dropping below one.
func scaleDimension(d int, ratio float64) int {
	scaled := int(math.Round(float64(d) * ratio))
	if scaled < 1 {
		return 1
	}
	return scaled
}
