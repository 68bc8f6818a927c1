package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/camwatch/faceattend/attendance"
	"github.com/camwatch/faceattend/config"
	"github.com/camwatch/faceattend/handlers"
	"github.com/camwatch/faceattend/media"
	"github.com/camwatch/faceattend/recognition"
	"github.com/camwatch/faceattend/store"
	"github.com/camwatch/faceattend/workers"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	storagePaths := []string{cfg.EnrollmentDir, cfg.ThumbnailsPath, filepath.Dir(cfg.AttendancePath)}
	for _, p := range storagePaths {
		log.Printf("Ensuring storage directory exists: %s", p)
		if err := os.MkdirAll(p, 0755); err != nil {
			log.Fatalf("FATAL: Failed to create storage directory %s: %v", p, err)
		}
	}

	metaStore := store.NewMetadataStore(cfg.MetadataPath)
	attendanceLogger := attendance.NewLogger(cfg.AttendancePath, cfg.AttendanceCooldown)

	detector := media.NewCascadeFaceDetector(cfg.CascadePath)
	defer detector.Close()

	trainer := recognition.NewTrainer(detector, media.LBPHTrainer{})
	recognitionCtx := recognition.NewContext(
		metaStore, cfg.EnrollmentDir, detector, trainer, attendanceLogger, cfg.ConfidenceThreshold,
	)
	defer recognitionCtx.Close()

	log.Println("Training face recognizer from enrollment database...")
	if err := recognitionCtx.Rebuild(); err != nil {
		log.Printf("Warning: initial training failed, starting with no model: %v", err)
	}
	log.Printf("Recognition model ready (%d enrolled face(s))", recognitionCtx.ModelSampleCount())

	retrainProcessor := workers.NewRetrainProcessor(recognitionCtx, cfg.RetrainQueueSize, cfg.NumRetrainWorkers)
	defer retrainProcessor.Stop()

	log.Printf("Enrollment images in: %s", cfg.EnrollmentDir)
	log.Printf("Metadata document: %s", cfg.MetadataPath)
	log.Printf("Attendance log: %s", cfg.AttendancePath)
	log.Printf("Confidence threshold: %g (lower is stricter)", cfg.ConfidenceThreshold)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"}, //TODO: configurable
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	enrollmentHandler := &handlers.EnrollmentHandler{
		Cfg:     cfg,
		Store:   metaStore,
		Model:   recognitionCtx,
		Retrain: retrainProcessor,
	}
	recognizeHandler := &handlers.RecognizeHandler{
		Recognizer: recognitionCtx,
		Retrain:    retrainProcessor,
	}
	attendanceHandler := &handlers.AttendanceHandler{Logger: attendanceLogger}

	r.Route("/api", func(r chi.Router) {
		r.Route("/enrollments", func(r chi.Router) {
			r.Post("/", enrollmentHandler.Enroll)
			r.Get("/", enrollmentHandler.ListEnrollments)
		})
		r.Post("/recognize", recognizeHandler.Recognize)
		r.Post("/retrain", recognizeHandler.ForceRetrain)
		r.Get("/attendance", attendanceHandler.ListRecent)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
