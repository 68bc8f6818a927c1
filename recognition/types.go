package recognition

import "image"

// UnknownIdentity is returned for detections that were rejected by the
// acceptance threshold or classified without a trained model.
const UnknownIdentity = "Unknown"

// FaceDetector finds candidate face bounding boxes in a grayscale image. The
// order of the returned boxes is up to the detector and is preserved through
// recognition results.
type FaceDetector interface {
	Detect(img *image.Gray) []image.Rectangle
}

// Classifier is one trained classifier instance. Labels are dense integers
// valid only against the instance that produced them.
type Classifier interface {
	// Predict returns the closest label and its match distance (lower is
	// better) for a cropped face region.
	Predict(region *image.Gray) (label int, distance float64, err error)
	Close()
}

// ClassifierTrainer fits a Classifier over cropped face regions and their
// labels. Called with at least one sample.
type ClassifierTrainer interface {
	Train(regions []*image.Gray, labels []int) (Classifier, error)
}

// AttendanceSink receives accepted identities; implementations must be safe
// for use from the recognition path and must never block it for long.
type AttendanceSink interface {
	Log(name, age string) error
}

// Box is a detected face bounding box in frame coordinates.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Result is one recognition outcome for one detected face.
type Result struct {
	Identity string   `json:"identity"`
	Age      *string  `json:"age,omitempty"`
	Box      Box      `json:"box"`
	Distance *float64 `json:"distance,omitempty"`
}

func boxFromRect(r image.Rectangle) Box {
	return Box{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}
