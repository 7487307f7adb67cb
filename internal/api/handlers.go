package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"adsconsole/internal/content"
	"adsconsole/internal/domain"
)

const maxBodyBytes = 8 << 20

type saveResponse struct {
	Ads []domain.AdRecord `json:"ads"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (s *Server) handleListAds(w http.ResponseWriter, r *http.Request) {
	site := domain.Site(r.URL.Query().Get("site"))
	if site == "" {
		respondError(w, http.StatusBadRequest, "site is required")
		return
	}

	blocks, err := s.repo.List(r.Context(), site)
	if err != nil {
		s.log.Error("list ads", zap.String("site", string(site)), zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, recordsOf(blocks))
}

// handleSaveAds replaces one zone. The zone comes from the position query
// parameter, falling back to the first record's position.
func (s *Server) handleSaveAds(w http.ResponseWriter, r *http.Request) {
	site := domain.Site(r.URL.Query().Get("site"))
	if site == "" {
		respondError(w, http.StatusBadRequest, "site is required")
		return
	}

	var records []domain.AdRecord
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&records); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	position := r.URL.Query().Get("position")
	if position == "" && len(records) > 0 {
		position = string(records[0].Position)
	}
	zone, err := domain.ParseZone(position)
	if err != nil {
		respondError(w, http.StatusBadRequest, "position must be top, middle or bottom")
		return
	}

	blocks := make([]domain.Block, 0, len(records))
	for i, rec := range records {
		if rec.Position != "" && rec.Position != zone {
			respondError(w, http.StatusBadRequest, "mixed positions in one batch")
			return
		}
		clean, err := content.Sanitize(rec.Content)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid ad content")
			return
		}
		b := rec.Block()
		b.Content, b.Zone, b.Order, b.Site = clean, zone, i, site
		blocks = append(blocks, b)
	}

	saved, err := s.repo.UpsertBatch(r.Context(), site, zone, blocks)
	if err != nil {
		s.log.Error("save ads", zap.String("site", string(site)), zap.String("zone", string(zone)), zap.Error(err))
		respondError(w, statusOf(err), err.Error())
		return
	}
	s.log.Info("zone saved", zap.String("site", string(site)), zap.String("zone", string(zone)), zap.Int("count", len(saved)))
	respondJSON(w, http.StatusOK, saveResponse{Ads: recordsOf(saved)})
}

func (s *Server) handleDeleteAd(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Ad not found")
			return
		}
		s.log.Error("delete ad", zap.String("id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func statusOf(err error) int {
	if domain.KindOf(err) == domain.KindValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func recordsOf(blocks []domain.Block) []domain.AdRecord {
	out := make([]domain.AdRecord, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, domain.RecordOf(b))
	}
	return out
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_, _ = w.Write(response)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
