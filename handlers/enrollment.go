package handlers

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/camwatch/faceattend/config"
	"github.com/camwatch/faceattend/store"
	"github.com/camwatch/faceattend/utils"
)

const maxEnrollmentUploadBytes = 32 << 20

// ModelInvalidator marks the trained model stale after an enrollment commits.
type ModelInvalidator interface {
	Invalidate()
}

// RetrainQueuer schedules a background model rebuild.
type RetrainQueuer interface {
	QueueRetrain() bool
}

type EnrollmentHandler struct {
	Cfg     config.Config
	Store   *store.MetadataStore
	Model   ModelInvalidator
	Retrain RetrainQueuer
}

// Enroll accepts a multipart form with one face photo plus name and age,
// stores the photo in the enrollment directory, commits the metadata entry,
// and invalidates the trained model. A metadata persistence failure is
// surfaced as an explicit error so the caller knows the enrollment did not
// take.
func (eh *EnrollmentHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxEnrollmentUploadBytes); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_form", "Failed to parse multipart form: "+err.Error())
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	age := strings.TrimSpace(r.FormValue("age"))
	if name == "" {
		WriteAPIError(w, http.StatusBadRequest, "missing_name", "Missing required field: name")
		return
	}
	if age == "" {
		age = "?"
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "missing_file", "Missing required field: file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "read_failed", "Failed to read uploaded file")
		return
	}

	if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_image", "Uploaded file is not a decodable image")
		return
	}

	imageID := sanitizeImageID(header.Filename)
	if imageID == "" {
		imageID = "user_" + uuid.NewString() + ".jpg"
	}

	imagePath := filepath.Join(eh.Cfg.EnrollmentDir, imageID)
	if _, err := os.Stat(imagePath); err == nil {
		// image ids are never reused; re-enrollment gets a fresh one
		ext := filepath.Ext(imageID)
		imageID = strings.TrimSuffix(imageID, ext) + "_" + uuid.NewString() + ext
		imagePath = filepath.Join(eh.Cfg.EnrollmentDir, imageID)
	}

	if err := os.MkdirAll(eh.Cfg.EnrollmentDir, 0755); err != nil {
		log.Printf("enroll: failed to create enrollment directory: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "storage_failed", "Failed to prepare enrollment storage")
		return
	}
	if err := os.WriteFile(imagePath, data, 0644); err != nil {
		log.Printf("enroll: failed to save enrollment image %s: %v", imagePath, err)
		WriteAPIError(w, http.StatusInternalServerError, "storage_failed", "Failed to save enrollment image")
		return
	}

	record := store.EnrollmentRecord{
		Name:       name,
		Age:        store.Age(age),
		CapturedAt: utils.PhotoTakenAt(imagePath),
	}
	if err := eh.Store.Upsert(imageID, record); err != nil {
		log.Printf("enroll: failed to persist metadata for %s: %v", imageID, err)
		// the image without its metadata entry would train as Unknown;
		// remove it so the failed enrollment leaves no trace
		if rmErr := os.Remove(imagePath); rmErr != nil {
			log.Printf("enroll: failed to remove orphaned image %s: %v", imagePath, rmErr)
		}
		WriteAPIError(w, http.StatusInternalServerError, "metadata_failed", "Enrollment did not take: failed to persist metadata")
		return
	}

	if _, err := utils.GenerateThumbnail(imagePath, eh.Cfg.ThumbnailsPath, eh.Cfg.ThumbnailMaxSize); err != nil {
		log.Printf("enroll: thumbnail generation failed for %s: %v", imageID, err)
	}

	if eh.Model != nil {
		eh.Model.Invalidate()
	}
	if eh.Retrain != nil {
		eh.Retrain.QueueRetrain()
	}

	log.Printf("enroll: committed %s (name=%s)", imageID, name)
	writeJSON(w, http.StatusCreated, map[string]string{"image_id": imageID})
}

// ListEnrollments returns the current metadata snapshot.
func (eh *EnrollmentHandler) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, eh.Store.Load())
}

// sanitizeImageID reduces an uploaded filename to a safe enrollment image id.
func sanitizeImageID(filename string) string {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	if strings.HasPrefix(base, ".") || strings.Contains(base, "..") {
		return ""
	}
	if !store.IsEnrollmentImage(base) {
		return ""
	}
	return base
}
