package compressor

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/altair823/image-compressor/internal/factor"
)

// writeImage generates a synthetic image fixture at path; the extension
// picks the encoded format.
func writeImage(t *testing.T, path string, width, height int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	img := imaging.New(width, height, color.NRGBA{R: 40, G: 120, B: 200, A: 255})
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.NRGBA{R: uint8(x % 256), G: 0, B: 0, A: 255})
	}
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save fixture %s: %v", path, err)
	}
}

func mustFactor(t *testing.T, quality, ratio float64) factor.Factor {
	t.Helper()
	f, err := factor.New(quality, ratio)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestCompressToJPEGHalvesDimensions(t *testing.T) {
	srcDir, destDir := t.TempDir(), t.TempDir()
	src := filepath.Join(srcDir, "a.png")
	writeImage(t, src, 1000, 800)

	c := New(src, destDir)
	c.SetFactor(mustFactor(t, 80, 0.5))
	target, err := c.CompressToJPEG()
	if err != nil {
		t.Fatal(err)
	}
	if target != filepath.Join(destDir, "a.jpg") {
		t.Fatalf("unexpected target path %s", target)
	}

	out, err := imaging.Open(target)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	if out.Bounds().Dx() != 500 || out.Bounds().Dy() != 400 {
		t.Fatalf("output is %dx%d, want 500x400", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestCompressToJPEGRatioOneKeepsDimensions(t *testing.T) {
	srcDir, destDir := t.TempDir(), t.TempDir()
	src := filepath.Join(srcDir, "b.png")
	writeImage(t, src, 123, 77)

	c := New(src, destDir)
	c.SetFactor(mustFactor(t, 90, 1.0))
	target, err := c.CompressToJPEG()
	if err != nil {
		t.Fatal(err)
	}
	out, err := imaging.Open(target)
	if err != nil {
		t.Fatal(err)
	}
	if out.Bounds().Dx() != 123 || out.Bounds().Dy() != 77 {
		t.Fatalf("output is %dx%d, want 123x77", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestCompressToJPEGCorruptSource(t *testing.T) {
	srcDir, destDir := t.TempDir(), t.TempDir()
	src := filepath.Join(srcDir, "broken.jpg")
	if err := os.WriteFile(src, []byte("this is not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	c := New(src, destDir)
	_, err := c.CompressToJPEG()
	if !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage, got %v", err)
	}

	// A failed file must never be copied verbatim.
	entries, readErr := os.ReadDir(destDir)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("destination should stay empty, found %v", entries)
	}
}

func TestCompressToJPEGMissingSource(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "nope.png"), t.TempDir())
	if _, err := c.CompressToJPEG(); !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage, got %v", err)
	}
}

func TestCompressToJPEGInvalidCalculatedFactor(t *testing.T) {
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "c.png")
	writeImage(t, src, 64, 64)

	c := New(src, t.TempDir())
	c.SetCalculator(func(width, height int, fileSize int64) (factor.Factor, error) {
		return factor.New(200, 0.5)
	})
	if _, err := c.CompressToJPEG(); !errors.Is(err, factor.ErrInvalidFactor) {
		t.Fatalf("expected ErrInvalidFactor, got %v", err)
	}
}

func TestCompressToJPEGExistingTarget(t *testing.T) {
	srcDir, destDir := t.TempDir(), t.TempDir()
	src := filepath.Join(srcDir, "d.png")
	writeImage(t, src, 64, 64)

	c := New(src, destDir)
	c.SetFactor(mustFactor(t, 80, 1.0))
	if _, err := c.CompressToJPEG(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.CompressToJPEG(); !errors.Is(err, ErrTargetExists) {
		t.Fatalf("expected ErrTargetExists on second run, got %v", err)
	}

	c.SetOverwrite(true)
	if _, err := c.CompressToJPEG(); err != nil {
		t.Fatalf("overwrite run failed: %v", err)
	}
}

func TestCompressToJPEGDeleteOriginal(t *testing.T) {
	srcDir, destDir := t.TempDir(), t.TempDir()
	src := filepath.Join(srcDir, "e.png")
	writeImage(t, src, 64, 64)

	c := New(src, destDir)
	c.SetFactor(mustFactor(t, 80, 1.0))
	c.SetDeleteOriginal(true)
	if _, err := c.CompressToJPEG(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("original file should have been deleted")
	}
}

func TestScaleDimension(t *testing.T) {
	cases := []struct {
		d     int
		ratio float64
		want  int
	}{
		{1000, 0.5, 500},
		{777, 0.5, 389},
		{3, 0.1, 1},
		{1, 0.001, 1},
		{100, 0.333, 33},
	}
	for _, c := range cases {
		if got := scaleDimension(c.d, c.ratio); got != c.want {
			t.Errorf("scaleDimension(%d, %v) = %d, want %d", c.d, c.ratio, got, c.want)
		}
	}
}
