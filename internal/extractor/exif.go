// Package extractor reads capture timestamps from image metadata.
package extractor

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// exifExtensions are the formats goexif can be expected to parse.
var exifExtensions = []string{".jpg", ".jpeg", ".tiff", ".tif", ".cr2", ".nef", ".dng"}

// SupportsFile reports whether the file may carry EXIF metadata.
func SupportsFile(path string) bool {
	return slices.Contains(exifExtensions, strings.ToLower(filepath.Ext(path)))
}

// CaptureTime returns the EXIF capture time of the image at path.
func CaptureTime(path string) (time.Time, error) {
	file, err := os.Open(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	x, err := exif.Decode(file)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode EXIF of %s: %w", path, err)
	}
	tm, err := x.DateTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("no capture time in %s: %w", path, err)
	}
	return tm, nil
}

// TimestampFor returns the timestamp to stamp onto the compressed copy of
// path: the EXIF capture time when present, the source modification time
// otherwise.
func TimestampFor(path string) (time.Time, error) {
	if SupportsFile(path) {
		if tm, err := CaptureTime(path); err == nil {
			return tm, nil
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.ModTime(), nil
}
