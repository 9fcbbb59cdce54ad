package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func normalizeDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return "", fmt.Errorf("invalid date %q (want YYYY-MM-DD)", raw)
	}
	return d.Format("2006-01-02"), nil
}

// optionalDate validates a range bound; empty means unbounded.
func optionalDate(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return normalizeDate(raw)
}

func errRequired(field string) error {
	return fmt.Errorf("%s is required", field)
}

func queryID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id is required")
	}
	return id, nil
}
