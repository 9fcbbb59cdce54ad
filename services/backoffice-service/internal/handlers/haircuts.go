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

type HaircutsHandler struct {
	repo   *storage.HaircutsRepository
	logger *slog.Logger
}

func NewHaircutsHandler(repo *storage.HaircutsRepository, logger *slog.Logger) *HaircutsHandler {
	return &HaircutsHandler{repo: repo, logger: logger}
}

type haircutRequest struct {
	ID     int64   `json:"id"`
	Date   string  `json:"date"`
	Barber string  `json:"barber"`
	Client string  `json:"client"`
	Style  string  `json:"style"`
	Price  float64 `json:"price"`
	Notes  string  `json:"notes"`
}

type haircutResponse struct {
	ID        int64   `json:"id"`
	Date      string  `json:"date"`
	Barber    string  `json:"barber"`
	Client    string  `json:"client"`
	Style     string  `json:"style"`
	Price     float64 `json:"price"`
	Notes     string  `json:"notes"`
	CreatedAt string  `json:"created_at"`
}

func toHaircutResponse(h model.Haircut) haircutResponse {
	return haircutResponse{
		ID:        h.ID,
		Date:      h.Date,
		Barber:    h.Barber,
		Client:    h.Client,
		Style:     h.Style,
		Price:     h.Price,
		Notes:     h.Notes,
		CreatedAt: h.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (req haircutRequest) toModel() (model.Haircut, error) {
	date, err := normalizeDate(req.Date)
	if err != nil {
		return model.Haircut{}, err
	}
	h := model.Haircut{
		ID:     req.ID,
		Date:   date,
		Barber: strings.TrimSpace(req.Barber),
		Client: strings.TrimSpace(req.Client),
		Style:  strings.TrimSpace(req.Style),
		Price:  req.Price,
		Notes:  strings.TrimSpace(req.Notes),
	}
	if h.Barber == "" {
		return model.Haircut{}, errRequired("barber")
	}
	if h.Price < 0 {
		return model.Haircut{}, fmt.Errorf("price must not be negative")
	}
	return h, nil
}

// Handle serves GET (list) and POST (create) on the collection route.
func (h *HaircutsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HaircutsHandler) list(w http.ResponseWriter, r *http.Request) {
	from, err := optionalDate(r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := optionalDate(r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	haircuts, err := h.repo.List(r.Context(), from, to, 0)
	if err != nil {
		http.Error(w, "failed to list haircuts", http.StatusInternalServerError)
		return
	}
	items := make([]haircutResponse, 0, len(haircuts))
	for _, hc := range haircuts {
		items = append(items, toHaircutResponse(hc))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *HaircutsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req haircutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	hc, err := req.toModel()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	created, err := h.repo.Insert(r.Context(), hc)
	if err != nil {
		http.Error(w, "failed to create haircut", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, toHaircutResponse(created))
}

func (h *HaircutsHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req haircutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.ID <= 0 {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	hc, err := req.toModel()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	updated, err := h.repo.Update(r.Context(), hc)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "haircut not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update haircut", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toHaircutResponse(updated))
}

func (h *HaircutsHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
			http.Error(w, "haircut not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete haircut", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}
