package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/nikolayk812/storefront-cart/internal/session"
	"github.com/shopspring/decimal"
)

var errBadRequest = errors.New("bad request")

type lineItemView struct {
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Image          string          `json:"image"`
	Quantity       int             `json:"quantity"`
	PendingRemoval bool            `json:"pendingRemoval"`
}

type cartView struct {
	OwnerID       string         `json:"ownerId"`
	Items         []lineItemView `json:"items"`
	TotalPrice    string         `json:"totalPrice"`
	Currency      string         `json:"currency"`
	TotalQuantity int            `json:"totalQuantity"`
}

type addItemRequest struct {
	ProductID string `json:"productId"`
}

// newCartView derives items and totals from a single snapshot so they always agree.
func newCartView(sess *session.Session) cartView {
	snapshot := sess.Cart.Snapshot()

	items := make([]lineItemView, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		items = append(items, lineItemView{
			Name:           item.Name,
			Price:          item.Price,
			Image:          item.Image,
			Quantity:       item.Quantity,
			PendingRemoval: sess.Removals.IsPending(item.Name),
		})
	}

	return cartView{
		OwnerID:       snapshot.OwnerID,
		Items:         items,
		TotalPrice:    snapshot.TotalPrice().StringFixed(2),
		Currency:      sess.Cart.Currency().String(),
		TotalQuantity: snapshot.TotalQuantity(),
	}
}

// session resolves the owner's session. A failed first load is reported but the
// request is not served, so the client sees the error once.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(r.Context(), mux.Vars(r)["owner"])
	if err != nil {
		if sess == nil {
			err = fmt.Errorf("%w: %w", errBadRequest, err)
		}
		s.writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, newCartView(sess))
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: json.Decode: %w", errBadRequest, err))
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: productId[%s] is not a valid uuid", errBadRequest, req.ProductID))
		return
	}

	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	product, err := s.catalog.GetProduct(r.Context(), productID)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("catalog.GetProduct: %w", err))
		return
	}

	if err := sess.Cart.AddToCart(r.Context(), product); err != nil {
		s.writeError(w, r, fmt.Errorf("cart.AddToCart: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, newCartView(sess))
}

func (s *Server) increaseItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	if err := sess.Cart.IncreaseQuantity(r.Context(), mux.Vars(r)["name"]); err != nil {
		s.writeError(w, r, fmt.Errorf("cart.IncreaseQuantity: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, newCartView(sess))
}

func (s *Server) decreaseItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	if err := sess.Cart.DecreaseQuantity(r.Context(), mux.Vars(r)["name"]); err != nil {
		s.writeError(w, r, fmt.Errorf("cart.DecreaseQuantity: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, newCartView(sess))
}

// removeItem only marks the item; the removal is committed after the scheduler delay.
func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	name := mux.Vars(r)["name"]
	if sess.Cart.Snapshot().IndexOf(name) < 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("%s is not in the cart", name)})
		return
	}
	if !sess.Removals.MarkPendingRemoval(name) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: fmt.Sprintf("%s is already pending removal", name)})
		return
	}

	writeJSON(w, http.StatusAccepted, newCartView(sess))
}

func (s *Server) cancelRemoval(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	name := mux.Vars(r)["name"]
	if !sess.Removals.Cancel(name) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: fmt.Sprintf("%s is not pending removal", name)})
		return
	}

	writeJSON(w, http.StatusOK, newCartView(sess))
}

// clearCart is what the checkout flow calls once payment succeeded.
func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	if err := sess.Cart.ClearCart(r.Context()); err != nil {
		s.writeError(w, r, fmt.Errorf("cart.ClearCart: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, newCartView(sess))
}
