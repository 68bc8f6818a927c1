package utils

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// GenerateThumbnail creates a thumbnail of an enrollment photo with a UUID
// filename and returns the full path where it was saved.
func GenerateThumbnail(originalImagePath, thumbnailDir string, maxSize int) (string, error) {
	if err := os.MkdirAll(thumbnailDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create thumbnail directory %s: %w", thumbnailDir, err)
	}

	img, err := imaging.Open(originalImagePath)
	if err != nil {
		return "", fmt.Errorf("failed to open image %s: %w", originalImagePath, err)
	}

	thumb := imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)

	thumbUUID, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID for thumbnail: %w", err)
	}
	thumbnailSavePath := filepath.Join(thumbnailDir, thumbUUID.String()+".jpg")

	if err := imaging.Save(thumb, thumbnailSavePath, imaging.JPEGQuality(80)); err != nil {
		return "", fmt.Errorf("failed to save thumbnail to %s: %w", thumbnailSavePath, err)
	}

	log.Printf("generated thumbnail for %s at %s", originalImagePath, thumbnailSavePath)
	return thumbnailSavePath, nil
}
