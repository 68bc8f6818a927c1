package media

import (
	"fmt"
	"image"
	"log"

	"gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"

	"github.com/camwatch/faceattend/recognition"
)

// LBPHTrainer fits an OpenCV LBPH face recognizer over cropped grayscale
// regions. It implements recognition.ClassifierTrainer.
type LBPHTrainer struct{}

// Train builds a fresh recognizer instance from the given samples. OpenCV
// errors surface as panics from the cgo layer; they are converted to an error
// so the training pass can degrade to "no model" instead of crashing.
func (LBPHTrainer) Train(regions []*image.Gray, labels []int) (classifier recognition.Classifier, err error) {
	defer func() {
		if r := recover(); r != nil {
			classifier = nil
			err = fmt.Errorf("lbph training panicked: %v", r)
		}
	}()

	if len(regions) == 0 || len(regions) != len(labels) {
		return nil, fmt.Errorf("lbph training requires matching samples and labels, got %d/%d", len(regions), len(labels))
	}

	mats := make([]gocv.Mat, 0, len(regions))
	defer func() {
		for _, m := range mats {
			m.Close()
		}
	}()
	for _, region := range regions {
		mat, convErr := gocv.ImageGrayToMatGray(region)
		if convErr != nil {
			return nil, fmt.Errorf("failed to convert training region to Mat: %w", convErr)
		}
		mats = append(mats, mat)
	}

	labelsMat := gocv.NewMatWithSize(len(labels), 1, gocv.MatTypeCV32SC1)
	defer labelsMat.Close()
	for i, label := range labels {
		labelsMat.SetIntAt(i, 0, int32(label))
	}

	rec := contrib.NewLBPHFaceRecognizer()
	rec.Train(mats, labelsMat)
	log.Printf("recognition(lbph): trained recognizer over %d sample(s)", len(regions))

	return &LBPHClassifier{rec: rec}, nil
}

// LBPHClassifier wraps one trained LBPH recognizer instance.
type LBPHClassifier struct {
	rec *contrib.LBPHFaceRecognizer
}

// Predict classifies a cropped face region, returning the predicted label
// and the LBPH match distance (0 is a perfect match).
func (c *LBPHClassifier) Predict(region *image.Gray) (label int, distance float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lbph prediction panicked: %v", r)
		}
	}()

	mat, convErr := gocv.ImageGrayToMatGray(region)
	if convErr != nil {
		return 0, 0, fmt.Errorf("failed to convert region to Mat: %w", convErr)
	}
	defer mat.Close()

	resp := c.rec.PredictExtendedResponse(mat)
	if resp.Label < 0 {
		return 0, 0, fmt.Errorf("lbph returned no prediction")
	}
	return int(resp.Label), float64(resp.Confidence), nil
}

func (c *LBPHClassifier) Close() {
	if c != nil && c.rec != nil {
		c.rec.Close()
		c.rec = nil
	}
}
