package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/port"
	"github.com/shopspring/decimal"
)

type productView struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Tag       string          `json:"tag"`
	Image     string          `json:"image"`
	CreatedAt time.Time       `json:"createdAt"`
}

type productRequest struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Tag   string          `json:"tag"`
	Image string          `json:"image"`
}

func newProductView(p domain.Product) productView {
	return productView(p)
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.catalog.ListProducts(r.Context())
	if err != nil {
		s.writeError(w, r, fmt.Errorf("catalog.ListProducts: %w", err))
		return
	}

	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, newProductView(p))
	}

	writeJSON(w, http.StatusOK, views)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.productID(w, r)
	if !ok {
		return
	}

	product, err := s.catalog.GetProduct(r.Context(), id)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("catalog.GetProduct: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, newProductView(product))
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	s.saveProduct(w, r, uuid.Nil, http.StatusCreated)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.productID(w, r)
	if !ok {
		return
	}

	s.saveProduct(w, r, id, http.StatusOK)
}

func (s *Server) saveProduct(w http.ResponseWriter, r *http.Request, id uuid.UUID, status int) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: json.Decode: %w", errBadRequest, err))
		return
	}

	product := domain.Product{
		ID:    id,
		Name:  req.Name,
		Price: req.Price,
		Tag:   req.Tag,
		Image: req.Image,
	}

	if product.Name == "" || product.Price.IsNegative() {
		s.writeError(w, r, fmt.Errorf("%w: name is required and price must not be negative", errBadRequest))
		return
	}

	saved, err := s.catalog.SaveProduct(r.Context(), product)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("catalog.SaveProduct: %w", err))
		return
	}

	writeJSON(w, status, newProductView(saved))
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.productID(w, r)
	if !ok {
		return
	}

	deleted, err := s.catalog.DeleteProduct(r.Context(), id)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("catalog.DeleteProduct: %w", err))
		return
	}
	if !deleted {
		s.writeError(w, r, port.ErrProductNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) productID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := mux.Vars(r)["id"]

	id, err := uuid.Parse(raw)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: id[%s] is not a valid uuid", errBadRequest, raw))
		return uuid.Nil, false
	}

	return id, true
}
