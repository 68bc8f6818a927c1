package utils

import (
	"os"

	"github.com/rwcarlsen/goexif/exif"
)

// PhotoTakenAt extracts the EXIF capture time of a photo as a unix timestamp.
// Returns nil when the file has no parsable EXIF date; enrollment works fine
// without it.
func PhotoTakenAt(imagePath string) *int64 {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	exifData, err := exif.Decode(f)
	if err != nil {
		return nil
	}

	takenAt, err := exifData.DateTime()
	if err != nil {
		return nil
	}
	ts := takenAt.Unix()
	return &ts
}
