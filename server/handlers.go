package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/digitorus/pdfstamp/audit"
	"github.com/digitorus/pdfstamp/geometry"
	"github.com/digitorus/pdfstamp/internal/httpx"
	"github.com/digitorus/pdfstamp/signing"
)

// signatureFieldType is the only field type that can be signed.
const signatureFieldType = "Signature"

type fieldData struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Page   *int    `json:"page"`
	Type   string  `json:"type"`
}

type signRequest struct {
	PdfID           string     `json:"pdfId"`
	SignatureBase64 string     `json:"signatureBase64"`
	FieldData       *fieldData `json:"fieldData"`
	SignerID        string     `json:"signerId"`
}

type signResponse struct {
	URL          string   `json:"url"`
	OriginalHash string   `json:"originalHash"`
	FinalHash    string   `json:"finalHash"`
	Warnings     []string `json:"warnings"`
}

func (f *fieldData) placement() geometry.PlacementRequest {
	page := 1
	if f.Page != nil {
		page = *f.Page
	}
	return geometry.PlacementRequest{
		RelativeX:      f.X,
		RelativeY:      f.Y,
		RelativeWidth:  f.Width,
		RelativeHeight: f.Height,
		PageIndex:      page,
	}
}

func (s *Server) signPDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)

	var req signRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.WriteError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body exceeds limit", map[string]any{"limit": tooLarge.Limit})
			return
		}
		httpx.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	if req.FieldData == nil || req.FieldData.Type != signatureFieldType {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_FIELD_DATA", "Invalid signature field data or missing field data.", nil)
		return
	}

	resp, err := s.svc.Sign(r.Context(), signing.Request{
		DocumentID: strings.TrimSpace(req.PdfID),
		SignerID:   strings.TrimSpace(req.SignerID),
		Signature:  req.SignatureBase64,
		Placement:  req.FieldData.placement(),
	})
	if err != nil {
		s.writeSignError(w, err)
		return
	}

	warnings := resp.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	httpx.WriteJSON(w, http.StatusOK, signResponse{
		URL:          resp.URL,
		OriginalHash: resp.OriginalHash,
		FinalHash:    resp.FinalHash,
		Warnings:     warnings,
	})
}

func (s *Server) writeSignError(w http.ResponseWriter, err error) {
	switch signing.Classify(err) {
	case signing.KindInvalidInput:
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_IMAGE_DATA", err.Error(), nil)
	case signing.KindUnprocessable:
		var empty *geometry.EmptyImageError
		if errors.As(err, &empty) {
			httpx.WriteError(w, http.StatusUnprocessableEntity, "EMPTY_IMAGE", err.Error(), nil)
			return
		}
		httpx.WriteError(w, http.StatusUnprocessableEntity, "DEGENERATE_GEOMETRY", err.Error(), nil)
	case signing.KindIntegrity:
		httpx.WriteError(w, http.StatusInternalServerError, "INTEGRITY_COMPUTATION", err.Error(), nil)
	default:
		s.logger.Error("Signing failed", zap.String("request_id", w.Header().Get(httpx.RequestIDHeader)), zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal server error during PDF signing", nil)
	}
}

func (s *Server) auditTrail(w http.ResponseWriter, r *http.Request) {
	documentID := strings.TrimSpace(chi.URLParam(r, "documentId"))
	offset, err := queryInt(r, "offset")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "offset must be an integer", nil)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "limit must be an integer", nil)
		return
	}

	entries, total, err := s.svc.History(r.Context(), documentID, offset, limit)
	if err != nil {
		s.logger.Error("Failed to list audit records", zap.String("document_id", documentID), zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to list audit records", nil)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"documentId": documentID,
		"total":      total,
		"entries":    entries,
	})
}

func queryInt(r *http.Request, key string) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
