package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/vhoang/stock-guard/internal/core/domain"
	"github.com/vhoang/stock-guard/internal/core/service"
	"github.com/vhoang/stock-guard/internal/port"
)

// RecordReader is the unlocked read path used by the inventory endpoint
// when the cache misses.
type RecordReader interface {
	GetRecord(ctx context.Context, recordID string) (*domain.InventoryRecord, error)
}

type HTTPHandler struct {
	adjuster *service.AdjustmentService
	reader   RecordReader
	cache    port.CacheRepository // optional
}

type AdjustHTTPRequest struct {
	RequestID string `json:"request_id"`
	RecordID  string `json:"record_id"`
	Delta     int    `json:"delta"`
}

type AdjustHTTPResponse struct {
	Status          string `json:"status"`
	NewQuantity     int    `json:"new_quantity"`
	Reason          string `json:"reason,omitempty"`
	CurrentQuantity int    `json:"current_quantity"`
	AttemptedDelta  int    `json:"attempted_delta"`
	Message         string `json:"message,omitempty"`
}

type InventoryHTTPResponse struct {
	RecordID string `json:"record_id"`
	Quantity int    `json:"quantity"`
	Source   string `json:"source"`
}

func NewHTTPHandler(adjuster *service.AdjustmentService, reader RecordReader, cache port.CacheRepository) *HTTPHandler {
	return &HTTPHandler{adjuster: adjuster, reader: reader, cache: cache}
}

func (h *HTTPHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AdjustHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, AdjustHTTPResponse{Status: "invalid", Message: "invalid request body"})
		return
	}

	if req.RecordID == "" || req.Delta == 0 {
		writeJSON(w, http.StatusBadRequest, AdjustHTTPResponse{Status: "invalid", Message: "record_id and a non-zero delta are required"})
		return
	}

	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	out := h.adjuster.Apply(r.Context(), "http-"+req.RequestID, domain.AdjustmentRequest{
		ID:       req.RequestID,
		RecordID: req.RecordID,
		Delta:    req.Delta,
	})

	writeJSON(w, statusCode(out), toAdjustResponse(out))
}

func (h *HTTPHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	recordID := r.URL.Query().Get("record_id")
	if recordID == "" {
		http.Error(w, "record_id is required", http.StatusBadRequest)
		return
	}

	if h.cache != nil {
		quantity, ok, err := h.cache.GetQuantity(r.Context(), recordID)
		if err != nil {
			log.Printf("quantity cache read failed for %s: %v", recordID, err)
		} else if ok {
			writeJSON(w, http.StatusOK, InventoryHTTPResponse{RecordID: recordID, Quantity: quantity, Source: "cache"})
			return
		}
	}

	rec, err := h.reader.GetRecord(r.Context(), recordID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, InventoryHTTPResponse{RecordID: recordID, Quantity: rec.Quantity, Source: "store"})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusCode(out domain.AdjustmentOutcome) int {
	switch out.Status {
	case domain.OutcomeApplied:
		return http.StatusOK
	case domain.OutcomeRejected:
		switch out.Reason {
		case domain.ReasonNotFound:
			return http.StatusNotFound
		case domain.ReasonDuplicateRequest:
			return http.StatusConflict
		default:
			return http.StatusUnprocessableEntity
		}
	default:
		return http.StatusInternalServerError
	}
}

func toAdjustResponse(out domain.AdjustmentOutcome) AdjustHTTPResponse {
	resp := AdjustHTTPResponse{Status: string(out.Status)}
	switch out.Status {
	case domain.OutcomeApplied:
		resp.NewQuantity = out.NewQuantity
	case domain.OutcomeRejected:
		resp.Reason = string(out.Reason)
		resp.CurrentQuantity = out.CurrentQuantity
		resp.AttemptedDelta = out.AttemptedDelta
	default:
		resp.Message = "internal error"
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
