package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmonge-cr/barberia/services/backoffice-service/internal/model"
	"github.com/dmonge-cr/barberia/services/backoffice-service/internal/storage"
)

type ProductsHandler struct {
	repo   *storage.ProductsRepository
	logger *slog.Logger
}

func NewProductsHandler(repo *storage.ProductsRepository, logger *slog.Logger) *ProductsHandler {
	return &ProductsHandler{repo: repo, logger: logger}
}

type productRequest struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Stock       int     `json:"stock"`
	UnitPrice   float64 `json:"unit_price"`
}

type productResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Stock       int     `json:"stock"`
	UnitPrice   float64 `json:"unit_price"`
	CreatedAt   string  `json:"created_at"`
}

func toProductResponse(p model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Stock:       p.Stock,
		UnitPrice:   p.UnitPrice,
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (req productRequest) toModel() (model.Product, error) {
	p := model.Product{
		ID:          req.ID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Stock:       req.Stock,
		UnitPrice:   req.UnitPrice,
	}
	if p.Name == "" {
		return model.Product{}, errRequired("name")
	}
	if p.Stock < 0 {
		return model.Product{}, fmt.Errorf("stock must not be negative")
	}
	if p.UnitPrice < 0 {
		return model.Product{}, fmt.Errorf("unit_price must not be negative")
	}
	return p, nil
}

func (h *ProductsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.List(r.Context(), 0)
	if err != nil {
		http.Error(w, "failed to list products", http.StatusInternalServerError)
		return
	}
	items := make([]productResponse, 0, len(products))
	for _, p := range products {
		items = append(items, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	p, err := req.toModel()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	created, err := h.repo.Insert(r.Context(), p)
	if err != nil {
		http.Error(w, "failed to create product", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(created))
}

func (h *ProductsHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.ID <= 0 {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	p, err := req.toModel()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	updated, err := h.repo.Update(r.Context(), p)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "product not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update product", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(updated))
}

// AdjustStock applies a signed delta to one product's stock.
func (h *ProductsHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ID    int64 `json:"id"`
		Delta int   `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.ID <= 0 {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	if req.Delta == 0 {
		http.Error(w, "delta must not be zero", http.StatusBadRequest)
		return
	}
	updated, err := h.repo.AdjustStock(r.Context(), req.ID, req.Delta)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "product not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to adjust stock", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(updated))
}

func (h *ProductsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := queryID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "product not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete product", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}
