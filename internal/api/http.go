// Package api exposes the directory over HTTP (chi) and MCP. Both
// surfaces are thin: parsing and status codes here, semantics in the
// controller.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sayhello/sayhello/internal/app"
	"github.com/sayhello/sayhello/internal/directory"
	"github.com/sayhello/sayhello/internal/query"
	"github.com/sayhello/sayhello/internal/store"
)

const maxImportBodySize = 10 << 20 // 10MB

// Deps holds everything the HTTP surface needs.
type Deps struct {
	App          *app.Controller
	Token        string // empty disables bearer auth
	PageSize     int
	ImportPolicy app.ImportPolicy
}

// ProfileRequest is the form-shaped write body: interests arrive as the
// comma-separated string the editor holds.
type ProfileRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Native       string `json:"native"`
	Practice     string `json:"practice"`
	Level        string `json:"level"`
	Availability string `json:"availability"`
	Interests    string `json:"interests"`
	Bio          string `json:"bio"`
}

func (r ProfileRequest) form() directory.Form {
	return directory.Form{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Native:       r.Native,
		Practice:     r.Practice,
		Level:        r.Level,
		Availability: r.Availability,
		Interests:    r.Interests,
		Bio:          r.Bio,
	}
}

// NewHandler builds the REST router.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/v1/languages", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, directory.Languages)
	})
	r.Get("/v1/levels", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, directory.Levels)
	})

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}
		r.Get("/v1/profiles", handleListProfiles(deps))
		r.Post("/v1/profiles", handleSaveProfile(deps))
		r.Delete("/v1/profiles/{id}", handleDeleteProfile(deps))
		r.Post("/v1/profiles/import", handleImport(deps))
		r.Get("/v1/profiles/export", handleExport(deps))
	})

	return r
}

func handleListProfiles(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec := query.Spec{
			Q:        r.URL.Query().Get("q"),
			Native:   r.URL.Query().Get("native"),
			Practice: r.URL.Query().Get("practice"),
			Sort:     r.URL.Query().Get("sort"),
			Page:     parseIntParam(r, "page", 1),
			PageSize: parseIntParam(r, "page_size", deps.PageSize),
		}

		filtered := query.Order(query.Filter(deps.App.Profiles(), spec), spec.Sort)
		page := query.Paginate(filtered, spec.Page, spec.PageSize)

		writeJSON(w, http.StatusOK, map[string]any{
			"profiles": page,
			"total":    len(filtered),
			"pages":    query.Pages(len(filtered), spec.PageSize),
		})
	}
}

func handleSaveProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		// Submit the request body directly: going through the shared
		// editor form would let concurrent requests overwrite each other.
		saved, err := deps.App.SubmitForm(r.Context(), req.form())
		var vErr *directory.ValidationError
		if errors.As(err, &vErr) {
			httpError(w, http.StatusUnprocessableEntity, "validation_error", "%s", vErr.Reason)
			return
		}
		if err != nil {
			httpError(w, http.StatusBadGateway, "transport_error", "%v", err)
			return
		}

		status := http.StatusCreated
		if req.ID != "" {
			status = http.StatusOK
		}
		writeJSON(w, status, saved)
	}
}

func handleDeleteProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		err := deps.App.Delete(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "profile not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusBadGateway, "transport_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleImport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxImportBodySize)
		defer r.Body.Close()

		data, err := io.ReadAll(r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading body: %v", err)
			return
		}

		policy := deps.ImportPolicy
		if p := r.URL.Query().Get("policy"); p != "" {
			policy = app.ParseImportPolicy(p)
		}

		saved, err := deps.App.Import(r.Context(), data, policy)
		if errors.Is(err, app.ErrMalformedImport) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusBadGateway, "transport_error", "%v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"imported": len(saved),
			"profiles": saved,
		})
	}
}

func handleExport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		data, err := deps.App.Export()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "exporting profiles: %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="sayhello-profiles.json"`)
		w.Write(data)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return defaultVal
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
