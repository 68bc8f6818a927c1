package media

import (
	"image"
	"log"
	"os"

	"gocv.io/x/gocv"
)

// CascadeFaceDetector provides Haar-cascade face detection via OpenCV. It
// implements recognition.FaceDetector.
type CascadeFaceDetector struct {
	classifier gocv.CascadeClassifier
	Enabled    bool

	// detection parameters, matching the frontal-face defaults the training
	// photos were captured under
	ScaleFactor  float64
	MinNeighbors int
	MinSize      image.Point
}

// NewCascadeFaceDetector loads the Haar cascade file. A missing or unloadable
// cascade disables the detector instead of failing startup; a disabled
// detector reports zero faces everywhere.
func NewCascadeFaceDetector(cascadePath string) *CascadeFaceDetector {
	if cascadePath == "" {
		log.Println("detection(cascade): cascade path is empty, disabling face detector")
		return &CascadeFaceDetector{Enabled: false}
	}

	if _, err := os.Stat(cascadePath); os.IsNotExist(err) {
		log.Printf("detection(cascade): ERROR - cascade file does not exist: %s", cascadePath)
		return &CascadeFaceDetector{Enabled: false}
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cascadePath) {
		log.Printf("detection(cascade): ERROR - failed to load cascade file: %s", cascadePath)
		classifier.Close()
		return &CascadeFaceDetector{Enabled: false}
	}
	log.Printf("detection(cascade): successfully loaded cascade %s", cascadePath)

	return &CascadeFaceDetector{
		classifier:   classifier,
		Enabled:      true,
		ScaleFactor:  1.1,
		MinNeighbors: 5,
		MinSize:      image.Pt(30, 30),
	}
}

func (d *CascadeFaceDetector) Close() {
	if d != nil && d.Enabled {
		d.classifier.Close()
		log.Println("detection(cascade): closed classifier")
		d.Enabled = false
	}
}

// Detect runs the cascade over a grayscale image and returns the candidate
// face boxes in the order the cascade emits them.
func (d *CascadeFaceDetector) Detect(img *image.Gray) []image.Rectangle {
	if d == nil || !d.Enabled || img == nil {
		return nil
	}

	mat, err := gocv.ImageGrayToMatGray(img)
	if err != nil {
		log.Printf("detection(cascade): failed to convert image to Mat: %v", err)
		return nil
	}
	defer mat.Close()

	return d.classifier.DetectMultiScaleWithParams(
		mat, d.ScaleFactor, d.MinNeighbors, 0, d.MinSize, image.Pt(0, 0),
	)
}
