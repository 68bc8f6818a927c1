package recognition

import (
	"bytes"
	"log"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/camwatch/faceattend/store"
)

// Context owns the process-wide recognition state: the current trained model
// and its staleness flag. All access is serialized by one mutex so a retrain
// can never swap the model out from under an in-flight classification.
type Context struct {
	mu sync.Mutex

	store     *store.MetadataStore
	imageDir  string
	detector  FaceDetector
	trainer   *Trainer
	sink      AttendanceSink
	threshold float64

	model *Model
	stale bool
}

func NewContext(metaStore *store.MetadataStore, imageDir string, detector FaceDetector, trainer *Trainer, sink AttendanceSink, threshold float64) *Context {
	return &Context{
		store:     metaStore,
		imageDir:  imageDir,
		detector:  detector,
		trainer:   trainer,
		sink:      sink,
		threshold: threshold,
		stale:     true,
	}
}

// Invalidate marks the current model stale. The next Recognize call rebuilds
// before classifying, so recognition never runs against a model older than
// the most recent committed enrollment.
func (c *Context) Invalidate() {
	c.mu.Lock()
	c.stale = true
	c.mu.Unlock()
}

// Rebuild retrains from the enrollment set and swaps in the fresh model.
func (c *Context) Rebuild() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rebuildLocked()
}

func (c *Context) rebuildLocked() error {
	files, err := store.ListImages(c.imageDir)
	if err != nil {
		return err
	}
	metadata := c.store.Load()

	model, err := c.trainer.Train(c.imageDir, files, metadata)
	if err != nil {
		return err
	}

	if c.model != nil {
		c.model.Close()
	}
	c.model = model
	c.stale = false
	return nil
}

// ModelSampleCount reports the sample count of the current model; zero when
// no model is loaded.
func (c *Context) ModelSampleCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model.SampleCount()
}

// Recognize detects and classifies every face in one encoded frame. An
// undecodable frame yields an empty result list, a per-region classification
// failure downgrades only that region to Unknown, and attendance logging
// never changes or delays the returned results.
func (c *Context) Recognize(frame []byte) []Result {
	img, err := imaging.Decode(bytes.NewReader(frame))
	if err != nil {
		log.Printf("recognition: failed to decode frame, returning no results: %v", err)
		return []Result{}
	}
	gray := Grayscale(img)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stale {
		if err := c.rebuildLocked(); err != nil {
			log.Printf("recognition: rebuild on stale model failed: %v", err)
		}
	}

	boxes := c.detector.Detect(gray)
	results := make([]Result, 0, len(boxes))

	for _, rect := range boxes {
		box := rect.Intersect(gray.Bounds())
		if box.Empty() {
			continue
		}

		result := Result{Identity: UnknownIdentity, Box: boxFromRect(rect)}

		if c.model != nil {
			label, distance, err := c.model.classifier.Predict(cropGray(gray, box))
			if err != nil {
				log.Printf("recognition: prediction failed for region %v: %v", result.Box, err)
				results = append(results, result)
				continue
			}

			d := distance
			result.Distance = &d
			if distance < c.threshold {
				name, age := c.model.Identify(label)
				result.Identity = name
				result.Age = &age
			}
		}

		if result.Identity != UnknownIdentity && c.sink != nil {
			age := "?"
			if result.Age != nil {
				age = *result.Age
			}
			if err := c.sink.Log(result.Identity, age); err != nil {
				log.Printf("recognition: attendance log failed for %s: %v", result.Identity, err)
			}
		}

		results = append(results, result)
	}

	return results
}

// Close releases the current model.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model != nil {
		c.model.Close()
		c.model = nil
	}
}
