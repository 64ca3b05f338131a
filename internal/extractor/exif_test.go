package extractor

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
)

func TestSupportsFile(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"photo.jpg", true},
		{"photo.JPEG", true},
		{"scan.tiff", true},
		{"raw.NEF", true},
		{"icon.png", false},
		{"notes.txt", false},
		{"noext", false},
	}
	for _, c := range cases {
		if got := SupportsFile(c.path); got != c.want {
			t.Errorf("SupportsFile(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestCaptureTimeWithoutEXIF(t *testing.T) {
	// A freshly encoded JPEG carries no EXIF block.
	path := filepath.Join(t.TempDir(), "plain.jpg")
	img := imaging.New(32, 32, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	if err := imaging.Save(img, path); err != nil {
		t.Fatal(err)
	}
	if _, err := CaptureTime(path); err == nil {
		t.Fatal("expected error for JPEG without EXIF")
	}
}

func TestTimestampForFallsBackToModTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.jpg")
	img := imaging.New(32, 32, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	if err := imaging.Save(img, path); err != nil {
		t.Fatal(err)
	}
	want := time.Date(2020, 6, 15, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(path, want, want); err != nil {
		t.Fatal(err)
	}

	got, err := TimestampFor(path)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(want) {
		t.Fatalf("TimestampFor = %v, want source mtime %v", got, want)
	}
}

func TestTimestampForMissingFile(t *testing.T) {
	if _, err := TimestampFor(filepath.Join(t.TempDir(), "nope.jpg")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
