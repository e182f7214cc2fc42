// Package httpapi exposes cart sessions and the product catalog over HTTP/JSON.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/nikolayk812/storefront-cart/internal/cart"
	"github.com/nikolayk812/storefront-cart/internal/port"
	"github.com/nikolayk812/storefront-cart/internal/session"
	"github.com/sirupsen/logrus"
)

type Server struct {
	sessions *session.Manager
	catalog  port.ProductCatalog
	log      logrus.FieldLogger
}

func NewServer(sessions *session.Manager, catalog port.ProductCatalog, log logrus.FieldLogger) *Server {
	return &Server{
		sessions: sessions,
		catalog:  catalog,
		log:      log,
	}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	carts := r.PathPrefix("/carts/{owner}").Subrouter()
	carts.HandleFunc("", s.getCart).Methods(http.MethodGet)
	carts.HandleFunc("", s.clearCart).Methods(http.MethodDelete)
	carts.HandleFunc("/items", s.addItem).Methods(http.MethodPost)
	carts.HandleFunc("/items/{name}/increase", s.increaseItem).Methods(http.MethodPost)
	carts.HandleFunc("/items/{name}/decrease", s.decreaseItem).Methods(http.MethodPost)
	carts.HandleFunc("/items/{name}", s.removeItem).Methods(http.MethodDelete)
	carts.HandleFunc("/items/{name}/pending", s.cancelRemoval).Methods(http.MethodDelete)

	products := r.PathPrefix("/products").Subrouter()
	products.HandleFunc("", s.listProducts).Methods(http.MethodGet)
	products.HandleFunc("", s.createProduct).Methods(http.MethodPost)
	products.HandleFunc("/{id}", s.getProduct).Methods(http.MethodGet)
	products.HandleFunc("/{id}", s.updateProduct).Methods(http.MethodPut)
	products.HandleFunc("/{id}", s.deleteProduct).Methods(http.MethodDelete)

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain errors to status codes. Persistence failures are recoverable for the
// client, so they surface as 503 with the message kept user-presentable.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, cart.ErrPersistence):
		status = http.StatusServiceUnavailable
		message = "cart could not be saved, please try again"
	case errors.Is(err, cart.ErrInvalidProduct):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, port.ErrProductNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
		message = err.Error()
	}

	entry := s.log.WithError(err).WithField("path", r.URL.Path).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Warn("request rejected")
	}

	writeJSON(w, status, errorResponse{Error: message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Debug("request served")
	})
}
