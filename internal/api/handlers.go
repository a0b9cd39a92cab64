package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/saadjs/kcal-snap/internal/model"
	"github.com/saadjs/kcal-snap/internal/service"
)

// maxUploadBytes caps request bodies carrying images. The configured image
// limit is enforced by the tracker.
const maxUploadBytes = 32 << 20

// Handler holds API route handlers.
type Handler struct {
	tracker *service.Tracker
}

func NewHandler(tracker *service.Tracker) *Handler {
	return &Handler{tracker: tracker}
}

// ListFoods handles GET /api/foods.
func (h *Handler) ListFoods(w http.ResponseWriter, r *http.Request) {
	items, err := h.tracker.FoodLog()
	if err != nil {
		writeError(w, "list foods", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateFood handles POST /api/foods.
func (h *Handler) CreateFood(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateFoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	entry, err := h.tracker.AddFood(req.entry())
	if err != nil {
		writeError(w, "create food", err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// DeleteFood handles DELETE /api/foods/{id}. Unknown ids, including ones no
// entry could have, still answer 204.
func (h *Handler) DeleteFood(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid food id"))
		return
	}
	if err := h.tracker.DeleteFood(id); err != nil {
		writeError(w, "delete food", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Totals handles GET /api/totals.
func (h *Handler) Totals(w http.ResponseWriter, r *http.Request) {
	summary, err := h.tracker.Summary()
	if err != nil {
		writeError(w, "daily totals", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ListWeights handles GET /api/weights.
func (h *Handler) ListWeights(w http.ResponseWriter, r *http.Request) {
	items, err := h.tracker.WeightSeries()
	if err != nil {
		writeError(w, "list weights", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateWeight handles POST /api/weights.
func (h *Handler) CreateWeight(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var entry model.WeightEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(fmt.Sprintf("invalid JSON body: %v", err)))
		return
	}
	if err := h.tracker.AddWeightEntry(entry); err != nil {
		writeError(w, "create weight", err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// Analyze handles POST /api/analyze. The image is the raw body or the
// multipart field "image".
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	data, mimeType, err := readImage(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	food, err := h.tracker.AnalyzeImage(r.Context(), data, mimeType)
	if err != nil {
		writeError(w, "analyze image", err)
		return
	}
	writeJSON(w, http.StatusOK, food)
}

// CreateDraft handles POST /api/drafts.
func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	d := h.tracker.NewDraft()
	writeJSON(w, http.StatusCreated, d.Snapshot())
}

func (h *Handler) draft(w http.ResponseWriter, r *http.Request) (*service.Draft, bool) {
	d, err := h.tracker.Draft(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "find draft", err)
		return nil, false
	}
	return d, true
}

// GetDraft handles GET /api/drafts/{id}.
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d.Snapshot())
}

// UpdateDraft handles PATCH /api/drafts/{id}.
func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req UpdateDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := d.Edit(req); err != nil {
		writeError(w, "update draft", err)
		return
	}
	writeJSON(w, http.StatusOK, d.Snapshot())
}

// SelectDraftImage handles PUT /api/drafts/{id}/image.
func (h *Handler) SelectDraftImage(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	data, mimeType, err := readImage(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	img, err := h.tracker.StageImage(data, mimeType)
	if err != nil {
		writeError(w, "stage image", err)
		return
	}
	if err := d.SelectImage(img); err != nil {
		writeError(w, "select image", err)
		return
	}
	writeJSON(w, http.StatusOK, d.Snapshot())
}

// AnalyzeDraft handles POST /api/drafts/{id}/analyze. It answers 202 at once,
// or 200 after the outcome is applied when ?wait=true.
func (h *Handler) AnalyzeDraft(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	done, err := d.RequestAnalysis(r.Context())
	if err != nil {
		writeError(w, "request analysis", err)
		return
	}
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		select {
		case <-done:
			writeJSON(w, http.StatusOK, d.Snapshot())
		case <-r.Context().Done():
			slog.Debug("client left before analysis finished", slog.String("draft", d.ID()))
		}
		return
	}
	writeJSON(w, http.StatusAccepted, d.Snapshot())
}

// CommitDraft handles POST /api/drafts/{id}/commit.
func (h *Handler) CommitDraft(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	entry, err := d.Commit()
	if err != nil {
		writeError(w, "commit draft", err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// CancelDraft handles DELETE /api/drafts/{id}.
func (h *Handler) CancelDraft(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	if err := d.Cancel(); err != nil {
		writeError(w, "cancel draft", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var errNoImage = errors.New("image is required")

// readImage returns the uploaded bytes and their declared content type.
func readImage(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		file, header, err := r.FormFile("image")
		if err != nil {
			return nil, "", errNoImage
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read image: %w", err)
		}
		return data, header.Header.Get("Content-Type"), nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read body: %w", err)
	}
	if len(data) == 0 {
		return nil, "", errNoImage
	}
	return data, mediaType, nil
}
