package store

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/facette/natsort"
)

var enrollmentImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// IsEnrollmentImage checks if the filename has an extension accepted for
// enrollment photos.
func IsEnrollmentImage(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return enrollmentImageExtensions[ext]
}

// ListImages enumerates the enrollment image filenames under dir in natural
// sort order, so repeated training passes over an unchanged set see the same
// iteration order. A missing directory is created and yields an empty list.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("store: enrollment directory %s missing, creating it", dir)
			if mkErr := os.MkdirAll(dir, 0755); mkErr != nil {
				return nil, fmt.Errorf("failed to create enrollment directory %s: %w", dir, mkErr)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list enrollment directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !IsEnrollmentImage(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	natsort.Sort(names)
	return names, nil
}
