package recognition

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// stubDetector reports a single fixed face box for images whose top-left
// pixel is bright enough (the "face marker"), mimicking a detector without
// linking OpenCV.
type stubDetector struct {
	fn func(img *image.Gray) []image.Rectangle
}

func (d stubDetector) Detect(img *image.Gray) []image.Rectangle { return d.fn(img) }

func markerDetector() stubDetector {
	return stubDetector{fn: func(img *image.Gray) []image.Rectangle {
		b := img.Bounds()
		if img.GrayAt(b.Min.X, b.Min.Y).Y >= 16 {
			return []image.Rectangle{image.Rect(8, 8, 40, 40)}
		}
		return nil
	}}
}

// graySig is an exact-pixel signature used by the stub classifier to match
// probe regions against training regions.
func graySig(img *image.Gray) uint64 {
	b := img.Bounds()
	sum := uint64(b.Dx())<<40 | uint64(b.Dy())<<28
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sum += uint64(img.GrayAt(x, y).Y)
		}
	}
	return sum
}

type memoryFitter struct {
	failTrain   bool
	trainCalls  int
	lastRegions []*image.Gray
	lastLabels  []int
}

func (f *memoryFitter) Train(regions []*image.Gray, labels []int) (Classifier, error) {
	f.trainCalls++
	f.lastRegions = regions
	f.lastLabels = labels
	if f.failTrain {
		return nil, fmt.Errorf("fit failed")
	}
	c := &memoryClassifier{}
	for i, region := range regions {
		c.sigs = append(c.sigs, graySig(region))
		c.labels = append(c.labels, labels[i])
	}
	return c, nil
}

// memoryClassifier returns distance 10 for an exact training-region match and
// 100 for everything else, so the default threshold of 55 cleanly splits
// accept from reject.
type memoryClassifier struct {
	sigs   []uint64
	labels []int
	closed bool
}

func (c *memoryClassifier) Predict(region *image.Gray) (int, float64, error) {
	s := graySig(region)
	for i, sig := range c.sigs {
		if sig == s {
			return c.labels[i], 10, nil
		}
	}
	return 0, 100, nil
}

func (c *memoryClassifier) Close() { c.closed = true }

type memorySink struct {
	entries []string
	err     error
}

func (s *memorySink) Log(name, age string) error {
	s.entries = append(s.entries, name+"/"+age)
	return s.err
}

func uniformGray(v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func writeEnrollImage(t *testing.T, dir, name string, v uint8) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("failed to create %s: %v", name, err)
	}
	defer f.Close()
	if err := png.Encode(f, uniformGray(v)); err != nil {
		t.Fatalf("failed to encode %s: %v", name, err)
	}
}

func frameBytes(t *testing.T, v uint8) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, uniformGray(v)); err != nil {
		t.Fatalf("failed to encode frame: %v", err)
	}
	return buf.Bytes()
}
