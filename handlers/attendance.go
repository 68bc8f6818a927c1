package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/camwatch/faceattend/attendance"
)

const defaultAttendanceLimit = 50

type AttendanceHandler struct {
	Logger *attendance.Logger
}

// ListRecent returns the most recent attendance rows, newest first.
func (ah *AttendanceHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultAttendanceLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		val, err := strconv.Atoi(limitStr)
		if err != nil || val <= 0 {
			WriteAPIError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = val
	}

	records, err := ah.Logger.Recent(limit)
	if err != nil {
		log.Printf("attendance: failed to read log: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "read_failed", "Failed to read attendance log")
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": records})
}
