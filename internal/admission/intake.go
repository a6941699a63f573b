package admission

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Koolhand111/eva-finance/internal/domain"
)

// intakeEnvelope mirrors ingest.PostEnvelope without importing internal/ingest,
// keeping admission's only dependency direction inward from ingest, not the
// reverse.
type intakeEnvelope struct {
	Source     string            `json:"source"`
	PlatformID string            `json:"platform_id"`
	Timestamp  time.Time         `json:"timestamp"`
	Text       string            `json:"text"`
	URL        string            `json:"url,omitempty"`
	Meta       map[string]string `json:"meta"`
}

type intakeResponse struct {
	Status string `json:"status"`
	ID     int64  `json:"id"`
}

// handleIntake implements spec.md §4.2: POST envelope -> {accepted |
// duplicate, id?}. Malformed envelopes are rejected with a client error;
// on conflict the original row's id is returned and the row is not
// rewritten.
func (s *Server) handleIntake(w http.ResponseWriter, r *http.Request) {
	var env intakeEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed envelope: " + err.Error()})
		return
	}

	if err := validateEnvelope(env); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	post := domain.RawPost{
		Source:     env.Source,
		PlatformID: env.PlatformID,
		OccurredAt: env.Timestamp,
		Text:       env.Text,
		Meta:       env.Meta,
	}
	if env.URL != "" {
		url := env.URL
		post.URL = &url
	}

	result, err := s.store.Insert(r.Context(), post)
	if err != nil {
		s.log.Error().Err(err).Str("source", env.Source).Str("platform_id", env.PlatformID).Msg("admission insert failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "store unavailable"})
		return
	}

	status := "accepted"
	code := http.StatusCreated
	if result.Duplicate {
		status = "duplicate"
		code = http.StatusOK
	}
	writeJSON(w, code, intakeResponse{Status: status, ID: result.ID})
}

func validateEnvelope(e intakeEnvelope) error {
	if strings.TrimSpace(e.Source) == "" {
		return domain.NewInvalidInput("admission", "source is required")
	}
	if strings.TrimSpace(e.PlatformID) == "" {
		return domain.NewInvalidInput("admission", "platform_id is required")
	}
	if strings.TrimSpace(e.Text) == "" {
		return domain.NewInvalidInput("admission", "text is required")
	}
	if e.Timestamp.IsZero() {
		return domain.NewInvalidInput("admission", "timestamp is required")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
