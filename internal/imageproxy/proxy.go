// Package imageproxy serves short-lived signed URLs for stored images.
package imageproxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const DefaultURLExpiry = 15 * time.Minute

var (
	ErrMissingKey    = errors.New("missing key")
	ErrNotConfigured = errors.New("image storage is not configured")
)

type Server struct {
	Bucket string
	Expiry time.Duration
	Signer Presigner
	Logger zerolog.Logger
}

func NewServer(bucket string, signer Presigner, opts ...func(*Server)) *Server {
	s := &Server{
		Bucket: bucket,
		Expiry: DefaultURLExpiry,
		Signer: signer,
		Logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func WithExpiry(d time.Duration) func(*Server) {
	return func(s *Server) {
		if d > 0 {
			s.Expiry = d
		}
	}
}

func WithLogger(logger zerolog.Logger) func(*Server) {
	return func(s *Server) {
		s.Logger = logger.With().Str("component", "imageproxy").Logger()
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/s3-image", s.ServeImage)
	return r
}

// ServeImage answers GET /api/s3-image?key=<key>[&redirect=1] with either
// {"url": ...} or a redirect to the signed URL.
func (s *Server) ServeImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := NormalizeKey(q.Get("key"), s.Bucket)
	if key == "" {
		writeError(w, http.StatusBadRequest, ErrMissingKey.Error())
		return
	}

	signed, err := s.Sign(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch q.Get("redirect") {
	case "1", "true":
		http.Redirect(w, r, signed, http.StatusFound)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"url": signed})
	}
}

// Sign returns a signed GET URL for a bucket relative key.
func (s *Server) Sign(ctx context.Context, key string) (string, error) {
	if s.Signer == nil || s.Bucket == "" {
		return "", ErrNotConfigured
	}

	req, err := s.Signer.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.Expiry))
	if err != nil {
		event := s.Logger.Error().Err(err).Str("key", key)
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			event = event.Str("code", apiErr.ErrorCode())
		}
		event.Msg("failed to sign image url")
		return "", errors.New("failed to sign image url")
	}
	return req.URL, nil
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
