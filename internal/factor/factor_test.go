package factor

import (
	"errors"
	"sync"
	"testing"
)

func TestNewValidRanges(t *testing.T) {
	cases := []struct {
		quality float64
		ratio   float64
	}{
		{0, 1},
		{100, 1},
		{80, 0.5},
		{50, 0.001},
		{0.5, 0.999},
	}
	for _, c := range cases {
		f, err := New(c.quality, c.ratio)
		if err != nil {
			t.Fatalf("New(%v, %v): unexpected error: %v", c.quality, c.ratio, err)
		}
		if f.Quality() != c.quality || f.Ratio() != c.ratio {
			t.Fatalf("New(%v, %v): fields did not round-trip, got (%v, %v)",
				c.quality, c.ratio, f.Quality(), f.Ratio())
		}
	}
}

func TestNewInvalidRanges(t *testing.T) {
	cases := []struct {
		name    string
		quality float64
		ratio   float64
	}{
		{"negative quality", -1, 0.5},
		{"quality above 100", 100.01, 0.5},
		{"zero ratio", 80, 0},
		{"negative ratio", 80, -0.5},
		{"ratio above 1", 80, 1.01},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := New(c.quality, c.ratio)
			if err == nil {
				t.Fatalf("New(%v, %v): expected error", c.quality, c.ratio)
			}
			if !errors.Is(err, ErrInvalidFactor) {
				t.Fatalf("New(%v, %v): error %v does not wrap ErrInvalidFactor", c.quality, c.ratio, err)
			}
		})
	}
}

func TestFixedIgnoresInputs(t *testing.T) {
	f, err := New(75, 0.7)
	if err != nil {
		t.Fatal(err)
	}
	calc := Fixed(f)
	for _, in := range [][3]int64{{0, 0, 0}, {1920, 1080, 1 << 20}, {8000, 8000, 50 << 20}} {
		got, err := calc(int(in[0]), int(in[1]), in[2])
		if err != nil {
			t.Fatalf("fixed calculator returned error: %v", err)
		}
		if got != f {
			t.Fatalf("fixed calculator returned %+v, want %+v", got, f)
		}
	}
}

func TestDefaultThresholds(t *testing.T) {
	calc := Default()

	small, err := calc(640, 480, 100<<10)
	if err != nil {
		t.Fatal(err)
	}
	large, err := calc(6000, 4000, 20<<20)
	if err != nil {
		t.Fatal(err)
	}
	if small.Quality() <= large.Quality() {
		t.Fatalf("large image should compress harder: small quality %v, large quality %v",
			small.Quality(), large.Quality())
	}
	if small.Ratio() <= large.Ratio() {
		t.Fatalf("large image should shrink harder: small ratio %v, large ratio %v",
			small.Ratio(), large.Ratio())
	}
}

// Calculators run from multiple workers at once; this is a data-race canary
// for go test -race.
func TestCalculatorConcurrentUse(t *testing.T) {
	calc := Default()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, err := calc(1000+n, 800+j, int64(j)<<10); err != nil {
					t.Errorf("calculator failed: %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}
