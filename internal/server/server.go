package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/franckalain/freshness/internal/catalog"
	"github.com/franckalain/freshness/internal/imaging"
	"github.com/franckalain/freshness/internal/ml"
	"github.com/franckalain/freshness/internal/models"
	"github.com/franckalain/freshness/internal/pipeline"
	"github.com/franckalain/freshness/internal/upload"
)

// Options configures the HTTP surface
type Options struct {
	StaticDir       string
	UploadDir       string
	MaxUploadBytes  int64
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

type Server struct {
	pipeline *pipeline.Pipeline
	opts     Options
	clients  *clientSet
}

func New(p *pipeline.Pipeline, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 16 << 20
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 30 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{
		pipeline: p,
		opts:     opts,
		clients:  &clientSet{},
	}
}

// Handler returns the routed handler with CORS and request logging applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/items", s.handleItems)
	mux.HandleFunc("/api/shelf-life/", s.handleShelfLife)
	mux.HandleFunc("/api/predict", s.handlePredict)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.Handle("/metrics", promhttp.Handler())

	if s.opts.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.opts.StaticDir)))
	}

	return s.logRequests(s.enableCORS(mux))
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("server.start")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("server.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	s.clients.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "Freshness API is running",
	})
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": s.pipeline.Catalog().Items()})
}

func (s *Server) handleShelfLife(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	item := strings.TrimPrefix(r.URL.Path, "/api/shelf-life/")
	sl, err := s.pipeline.Catalog().ShelfLife(item)
	if err != nil {
		status, msg := errorStatus(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"fruit": catalog.Normalize(item),
		"ideal": sl.Ideal,
		"room":  sl.Room,
		"humid": sl.Humid,
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Upload exceeds %d bytes", s.opts.MaxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to parse form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	item := r.FormValue("fruit")
	if item == "" {
		item = r.FormValue("item")
	}
	if item == "" {
		writeError(w, http.StatusBadRequest, "No fruit selected")
		return
	}

	uploadDate, err := parseDate(r.FormValue("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image uploaded")
		return
	}
	defer file.Close()

	var report *models.FreshnessReport
	err = upload.With(s.opts.UploadDir, file, header.Filename, func(staged *upload.Staged) error {
		data, err := staged.ReadAll()
		if err != nil {
			return err
		}
		report, err = s.pipeline.Predict(r.Context(), models.PredictionRequest{
			Image:      data,
			Filename:   header.Filename,
			ItemID:     item,
			UploadDate: uploadDate,
		})
		return err
	})
	if err != nil {
		status, msg := errorStatus(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// parseDate reads an optional YYYY-MM-DD capture date in local time
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return d, nil
}

// errorStatus maps a pipeline error to an HTTP status and client message
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, catalog.ErrUnsupportedItem),
		errors.Is(err, imaging.ErrInvalidFileType),
		errors.Is(err, imaging.ErrImageDecode):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ml.ErrEstimatorFailure):
		return http.StatusBadGateway, "Freshness estimation failed"
	default:
		log.WithError(err).Error("server.internal_error")
		return http.StatusInternalServerError, "Internal server error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("server.write_json.failed")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
