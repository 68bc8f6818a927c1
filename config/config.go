package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	DefaultEnrollmentSubDir = "database"
	DefaultThumbnailsSubDir = "thumbnails"
	DefaultMetadataFilename = "metadata.json"
)

const (
	// lower is stricter. 85 was too loose (matching everyone); 55 works for
	// most webcams. If still too loose, try 45.
	defaultConfidenceThreshold = 55.0

	defaultAttendanceCooldownSecs = 60
	defaultRetrainQueueSize       = 16
	defaultNumRetrainWorkers      = 1
	defaultThumbnailMaxSize       = 300
)

type Config struct {
	// enrollment image storage (one face photo per enrolled person)
	EnrollmentDir string

	// metadata document path (imageId -> name/age), lives inside EnrollmentDir
	MetadataPath string

	// append-only attendance log
	AttendancePath string

	// generated thumbnails of enrolled photos
	ThumbnailsPath string

	// Haar cascade file used by the face detector
	CascadePath string

	// recognition tunables
	ConfidenceThreshold float64
	AttendanceCooldown  time.Duration

	// retrain worker settings
	RetrainQueueSize  int
	NumRetrainWorkers int

	ThumbnailMaxSize int
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvFloatOrDefault(envVar string, defaultVal float64) float64 {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %g. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	enrollDir := getEnvOrDefault("ENROLLMENT_DIR", DefaultEnrollmentSubDir)
	absEnrollDir, err := filepath.Abs(enrollDir)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for enrollment directory '%s': %w", enrollDir, err)
	}

	metadataPath := getEnvOrDefault("METADATA_PATH", filepath.Join(absEnrollDir, DefaultMetadataFilename))

	attendancePath := getEnvOrDefault("ATTENDANCE_PATH", "attendance.csv")
	absAttendancePath, err := filepath.Abs(attendancePath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for attendance log '%s': %w", attendancePath, err)
	}

	thumbsDir := getEnvOrDefault("THUMBNAILS_DIR", DefaultThumbnailsSubDir)
	absThumbsDir, err := filepath.Abs(thumbsDir)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for thumbnails directory '%s': %w", thumbsDir, err)
	}

	cascadePath := getEnvOrDefault("FACE_CASCADE_PATH", "./models/haarcascade_frontalface_default.xml")

	threshold := getEnvFloatOrDefault("CONFIDENCE_THRESHOLD", defaultConfidenceThreshold)
	cooldownSecs := getEnvIntOrDefault("ATTENDANCE_COOLDOWN_SECONDS", defaultAttendanceCooldownSecs)

	queueSize := getEnvIntOrDefault("RETRAIN_QUEUE_SIZE", defaultRetrainQueueSize)
	numWorkers := getEnvIntOrDefault("NUM_RETRAIN_WORKERS", defaultNumRetrainWorkers)
	thumbMaxSize := getEnvIntOrDefault("THUMBNAIL_MAX_SIZE", defaultThumbnailMaxSize)

	cfg := Config{
		EnrollmentDir:       absEnrollDir,
		MetadataPath:        metadataPath,
		AttendancePath:      absAttendancePath,
		ThumbnailsPath:      absThumbsDir,
		CascadePath:         cascadePath,
		ConfidenceThreshold: threshold,
		AttendanceCooldown:  time.Duration(cooldownSecs) * time.Second,
		RetrainQueueSize:    queueSize,
		NumRetrainWorkers:   numWorkers,
		ThumbnailMaxSize:    thumbMaxSize,
	}

	return cfg, nil
}
