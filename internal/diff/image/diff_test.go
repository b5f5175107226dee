package image

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func createRandomBuffer(pixels int, seed int64) PixelBuffer {
	r := rand.New(rand.NewSource(seed))
	buffer := make(PixelBuffer, 3*pixels)
	for i := range buffer {
		buffer[i] = uint8(r.Intn(256))
	}
	return buffer
}

func TestLumaDiff_Calculate(t *testing.T) {
	ld := NewLumaDiff()

	t.Run("NoDifference", func(t *testing.T) {
		img := createRandomBuffer(64*48, 1)

		result := ld.Calculate(img, append(PixelBuffer(nil), img...))

		if result.Score != 0.0 {
			t.Errorf("Expected Score to be 0.0, got %v", result.Score)
		}
		for i, e := range result.Errors {
			if e != 0.0 {
				t.Fatalf("Expected pixel %d error to be 0.0, got %v", i, e)
			}
		}
	})

	t.Run("BlackAndWhite", func(t *testing.T) {
		reference := PixelBuffer{0, 0, 0, 255, 255, 255}

		result := ld.Calculate(reference, PixelBuffer{0, 0, 0, 255, 255, 255})
		if result.Score != 0.0 {
			t.Errorf("Expected Score to be 0.0, got %v", result.Score)
		}

		result = ld.Calculate(reference, PixelBuffer{255, 255, 255, 0, 0, 0})
		if result.Score <= 0.0 {
			t.Errorf("Expected Score to be positive, got %v", result.Score)
		}
		if diff := cmp.Diff(ErrorField{1, 1}, result.Errors); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if result.Score != 1.0 {
			t.Errorf("Expected Score to be 1.0, got %v", result.Score)
		}
	})

	t.Run("NormalizesEachImageIndependently", func(t *testing.T) {
		// The source is a uniformly darker copy; after stretching both luma
		// fields to [0, 1] they are identical.
		reference := PixelBuffer{0, 0, 0, 200, 200, 200}
		source := PixelBuffer{0, 0, 0, 100, 100, 100}

		result := ld.Calculate(reference, source)
		if math.Abs(result.Score) > 1e-15 {
			t.Errorf("Expected Score to be 0.0, got %v", result.Score)
		}
	})

	t.Run("ScoreIsMeanOfRawErrors", func(t *testing.T) {
		reference := PixelBuffer{0, 0, 0, 255, 255, 255, 0, 0, 0, 255, 255, 255}
		source := PixelBuffer{0, 0, 0, 255, 255, 255, 255, 255, 255, 255, 255, 255}

		result := ld.Calculate(reference, source)
		if diff := cmp.Diff(ErrorField{0, 0, 1, 0}, result.Errors); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if result.Score != 0.25 {
			t.Errorf("Expected Score to be 0.25, got %v", result.Score)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		result := ld.Calculate(PixelBuffer{}, PixelBuffer{})
		if result.Score != 0.0 || len(result.Errors) != 0 {
			t.Errorf("Expected empty result, got %+v", result)
		}
	})
}

func TestLabDiff_Calculate(t *testing.T) {
	ld := NewLabDiff()

	t.Run("NoDifference", func(t *testing.T) {
		img := createRandomBuffer(64*48, 2)

		result := ld.Calculate(img, append(PixelBuffer(nil), img...))

		if result.Score != 0.0 {
			t.Errorf("Expected Score to be 0.0, got %v", result.Score)
		}
	})

	t.Run("BlackAndWhite", func(t *testing.T) {
		result := ld.Calculate(PixelBuffer{0, 0, 0}, PixelBuffer{255, 255, 255})

		if math.Abs(result.Score-100.0) > 1e-3 {
			t.Errorf("Expected Score to be about 100, got %v", result.Score)
		}
	})

	t.Run("MeanOverPixels", func(t *testing.T) {
		reference := PixelBuffer{0, 0, 0, 0, 0, 0}
		source := PixelBuffer{255, 255, 255, 0, 0, 0}

		result := ld.Calculate(reference, source)

		if diff := cmp.Diff(0.0, result.Errors[1]); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(result.Errors[0]/2, result.Score, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("Symmetric", func(t *testing.T) {
		a := createRandomBuffer(100, 3)
		b := createRandomBuffer(100, 4)

		if diff := cmp.Diff(ld.Calculate(a, b), ld.Calculate(b, a), cmpopts.EquateApprox(0, 1e-12)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("NonNegative", func(t *testing.T) {
		result := ld.Calculate(createRandomBuffer(500, 5), createRandomBuffer(500, 6))
		for i, e := range result.Errors {
			if e < 0 || math.IsNaN(e) {
				t.Fatalf("pixel %d: invalid error %v", i, e)
			}
		}
	})
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"Luma": ModeLuma, "lab": ModeLab, " LUMA ": ModeLuma} {
		got, err := ParseMode(in)
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseMode(%q): want %s, got %s", in, want, got)
		}
	}

	if _, err := ParseMode("SSIM"); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("want ErrInvalidMode, got %v", err)
	}
}

func TestNewDiffer(t *testing.T) {
	d, err := NewDiffer(ModeLuma)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := d.(*LumaDiff); !ok {
		t.Errorf("want *LumaDiff, got %T", d)
	}

	d, err = NewDiffer(ModeLab)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := d.(*LabDiff); !ok {
		t.Errorf("want *LabDiff, got %T", d)
	}

	if _, err := NewDiffer(Mode("Rgb")); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("want ErrInvalidMode, got %v", err)
	}
}

func BenchmarkLumaDiff_Calculate(b *testing.B) {
	ld := NewLumaDiff()
	reference := createRandomBuffer(1920*1080, 7)
	source := createRandomBuffer(1920*1080, 8)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ld.Calculate(reference, source)
	}
}
