// Package groceryapitest provides an in-memory inventory REST API for tests
// and local development.
package groceryapitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/pantry/internal/model"
)

// Server is an in-memory implementation of the inventory REST API. It applies
// the backend's derivation rules: stock status from quantity and threshold, and
// best price/seller folded from every submitted price.
type Server struct {
	mu       sync.Mutex
	items    map[string]*model.GroceryDetail
	failWith   *failure
	requests   int
	requestIDs []string
	now      func() time.Time
}

type failure struct {
	status int
	body   string
}

// New creates an empty server.
func New() *Server {
	return &Server{
		items: make(map[string]*model.GroceryDetail),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Start serves s on a local httptest server. The caller must Close it.
func (s *Server) Start() *httptest.Server {
	return httptest.NewServer(s.Handler())
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/groceries/{$}", s.list)
	mux.HandleFunc("POST /api/groceries/{$}", s.create)
	mux.HandleFunc("GET /api/groceries/{id}", s.get)
	mux.HandleFunc("PUT /api/groceries/{id}", s.update)
	return s.countRequests(mux)
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		s.requestIDs = append(s.requestIDs, r.Header.Get("X-Request-ID"))
		f := s.failWith
		s.mu.Unlock()

		if f != nil {
			if f.body != "" {
				w.Header().Set("Content-Type", "application/json")
			}
			w.WriteHeader(f.status)
			w.Write([]byte(f.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Fail makes every following request answer with status and the raw body.
// An empty body sends no body at all.
func (s *Server) Fail(status int, body string) {
	s.mu.Lock()
	s.failWith = &failure{status: status, body: body}
	s.mu.Unlock()
}

// Recover undoes Fail.
func (s *Server) Recover() {
	s.mu.Lock()
	s.failWith = nil
	s.mu.Unlock()
}

// Requests returns the number of requests served so far.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// RequestIDs returns the X-Request-ID header of every request so far, in order.
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requestIDs...)
}

// Seed inserts an item directly and returns its detail.
func (s *Server) Seed(req model.GroceryCreateRequest) model.GroceryDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.insert(req)
}

func (s *Server) insert(req model.GroceryCreateRequest) *model.GroceryDetail {
	now := s.now()
	d := &model.GroceryDetail{
		GroceryItem: model.GroceryItem{
			ID:                uuid.NewString(),
			Name:              req.Name,
			Brand:             req.Brand,
			Type:              req.Type,
			CurrentPrice:      req.CurrentPrice,
			CurrentSeller:     req.CurrentSeller,
			LowStockThreshold: req.LowStockThreshold,
			QuantityInStock:   req.QuantityInStock,
			ShouldInclude:     true,
			BestPrice:         req.CurrentPrice,
			BestSeller:        req.CurrentSeller,
			StockStatus:       model.StockStatusFor(req.QuantityInStock, req.LowStockThreshold),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.items[d.ID] = d
	return d
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	details := make([]*model.GroceryDetail, 0, len(s.items))
	for _, d := range s.items {
		details = append(details, d)
	}
	sort.Slice(details, func(i, j int) bool {
		if details[i].CreatedAt.Equal(details[j].CreatedAt) {
			return details[i].ID < details[j].ID
		}
		return details[i].CreatedAt.Before(details[j].CreatedAt)
	})
	items := make([]model.GroceryItem, len(details))
	for i, d := range details {
		items[i] = d.GroceryItem
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, items)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req model.GroceryCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body is not valid JSON", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "Invalid grocery item", err.Error())
		return
	}

	s.mu.Lock()
	d := *s.insert(req)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	d, ok := s.items[r.PathValue("id")]
	var out model.GroceryDetail
	if ok {
		out = *d
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "resource_not_found", "Resource not found", "Resource not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	var req model.GroceryUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body is not valid JSON", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "Invalid grocery item", err.Error())
		return
	}

	s.mu.Lock()
	d, ok := s.items[r.PathValue("id")]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "resource_not_found", "Resource not found", "Resource not found")
		return
	}
	d.Name = req.Name
	d.Brand = req.Brand
	d.Type = req.Type
	d.CurrentPrice = req.CurrentPrice
	d.CurrentSeller = req.CurrentSeller
	d.LowStockThreshold = req.LowStockThreshold
	d.QuantityInStock = req.QuantityInStock
	d.ShouldInclude = req.ShouldInclude
	d.BestPrice, d.BestSeller = model.NextBestOffer(d.BestPrice, d.BestSeller, req.CurrentPrice, req.CurrentSeller)
	d.StockStatus = model.StockStatusFor(d.QuantityInStock, d.LowStockThreshold)
	d.UpdatedAt = s.now()
	out := *d
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError uses the backend's error body, including its singular "detail" key.
func writeError(w http.ResponseWriter, status int, code, message, detail string) {
	writeJSON(w, status, map[string]string{
		"error_code": code,
		"message":    message,
		"detail":     detail,
		"status":     "fail",
	})
}
