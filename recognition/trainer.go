package recognition

import (
	"image"
	"image/draw"
	"log"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/camwatch/faceattend/store"
)

// Trainer builds a Model from the current enrollment set. Training is pure:
// it never writes to the metadata store, and running it twice over unchanged
// inputs yields models that make identical accept/reject decisions.
type Trainer struct {
	detector FaceDetector
	fitter   ClassifierTrainer
}

func NewTrainer(detector FaceDetector, fitter ClassifierTrainer) *Trainer {
	return &Trainer{detector: detector, fitter: fitter}
}

// Train walks the enrollment images in the given order, takes the first
// detected face of each (training assumes one face per enrollment photo),
// and fits a classifier over the collected regions. Images without a
// detectable face are skipped with a warning. Zero usable samples is a valid
// cold-start state and yields a nil model, not an error; so does a classifier
// fit failure.
func (t *Trainer) Train(dir string, files []string, metadata map[string]store.EnrollmentRecord) (*Model, error) {
	var regions []*image.Gray
	var labels []int

	names := make(map[int]string)
	ages := make(map[int]string)
	var sampleIDs []string

	for _, file := range files {
		img, err := imaging.Open(filepath.Join(dir, file))
		if err != nil {
			log.Printf("training: failed to read %s, skipping: %v", file, err)
			continue
		}
		gray := Grayscale(img)

		boxes := t.detector.Detect(gray)
		if len(boxes) == 0 {
			log.Printf("training: Warning - no face detected in %s, skipping", file)
			continue
		}

		// first reported detection only; recognition processes every box,
		// but enrollment photos are assumed to contain a single face
		box := boxes[0].Intersect(gray.Bounds())
		if box.Empty() {
			log.Printf("training: Warning - face box outside image bounds in %s, skipping", file)
			continue
		}

		label := len(sampleIDs)
		regions = append(regions, cropGray(gray, box))
		labels = append(labels, label)
		sampleIDs = append(sampleIDs, file)

		record, ok := metadata[file]
		if !ok {
			names[label] = UnknownIdentity
			ages[label] = "?"
			continue
		}
		names[label] = record.Name
		ages[label] = record.Age.String()
	}

	if len(regions) == 0 {
		log.Printf("training: no usable faces in %s, recognition will report everyone as %s", dir, UnknownIdentity)
		return nil, nil
	}

	classifier, err := t.fitter.Train(regions, labels)
	if err != nil {
		log.Printf("training: classifier fit failed, falling back to no model: %v", err)
		return nil, nil
	}

	log.Printf("training: complete, %d face(s) learned from %s", len(regions), dir)
	return &Model{
		classifier: classifier,
		names:      names,
		ages:       ages,
		sampleIDs:  sampleIDs,
	}, nil
}

// Grayscale converts any decoded image to 8-bit grayscale.
func Grayscale(img image.Image) *image.Gray {
	if gray, ok := img.(*image.Gray); ok {
		return gray
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

// cropGray copies a sub-region into its own backing buffer so the crop does
// not pin the full frame in memory.
func cropGray(img *image.Gray, box image.Rectangle) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, box.Dx(), box.Dy()))
	draw.Draw(out, out.Bounds(), img, box.Min, draw.Src)
	return out
}
