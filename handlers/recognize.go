package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/camwatch/faceattend/recognition"
)

const maxFrameBytes = 16 << 20

// FrameRecognizer classifies every detected face in one encoded frame.
type FrameRecognizer interface {
	Recognize(frame []byte) []recognition.Result
}

type RecognizeHandler struct {
	Recognizer FrameRecognizer
	Retrain    RetrainQueuer
}

// Recognize accepts one encoded frame (raw body or multipart "frame" field)
// and returns the recognition results for every detected face. An
// undecodable frame is not an error; it simply yields no faces.
func (rh *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	frame, err := readFrame(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_frame", err.Error())
		return
	}

	results := rh.Recognizer.Recognize(frame)
	writeJSON(w, http.StatusOK, map[string]interface{}{"faces": results})
}

// ForceRetrain queues an immediate model rebuild.
func (rh *RecognizeHandler) ForceRetrain(w http.ResponseWriter, r *http.Request) {
	queued := rh.Retrain.QueueRetrain()
	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": queued})
}

func readFrame(r *http.Request) ([]byte, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxFrameBytes); err != nil {
			return nil, err
		}
		file, _, err := r.FormFile("frame")
		if err != nil {
			file, _, err = r.FormFile("file")
		}
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return io.ReadAll(file)
	}
	return io.ReadAll(io.LimitReader(r.Body, maxFrameBytes))
}
