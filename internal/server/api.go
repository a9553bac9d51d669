// ABOUTME: JSON API handlers for auth, data, OCR, lookup, and health
// ABOUTME: Error taxonomy: 400 bad request, 401 unauthorized, 422 no text, 500 upstream

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/2389/dushu/internal/auth"
	"github.com/2389/dushu/internal/ocr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleLogin authenticates the shared password and issues the session
// cookie. Password mode only.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.password.Authenticate(req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "Wrong password")
		return
	}

	if err := s.codec.SetSessionCookie(w, r, auth.Session{Authenticated: true}); err != nil {
		s.logger.Error("issuing session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleLogout clears the session cookie. Always succeeds; logging out
// twice is not an error.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleMe reports the caller's session state without requiring one.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, err := s.codec.SessionFromRequest(r)
	if err != nil {
		sess = auth.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": sess.Authenticated,
		"user":          sess.User,
		"name":          sess.Name,
	})
}

// handleGetData returns every document for the caller, defaults filled.
func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	sess := auth.MustFromContext(r.Context())

	docs, err := s.store.Get(r.Context(), sess.Identity())
	if err != nil {
		s.logger.Error("reading user data failed", "user", sess.Identity(), "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// handlePutData upserts the posted documents for the caller.
func (s *Server) handlePutData(w http.ResponseWriter, r *http.Request) {
	sess := auth.MustFromContext(r.Context())

	var docs map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&docs); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.store.Put(r.Context(), sess.Identity(), docs); err != nil {
		s.logger.Error("writing user data failed", "user", sess.Identity(), "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleOCR forwards the image to text detection. A missing image is
// rejected before any upstream call.
func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImageBase64 string `json:"image_base64"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ImageBase64 == "" {
		writeError(w, http.StatusBadRequest, "Missing image_base64")
		return
	}

	text, err := s.ocr.DetectText(r.Context(), req.ImageBase64)
	switch {
	case errors.Is(err, ocr.ErrNoText):
		writeError(w, http.StatusUnprocessableEntity, "No text detected in image")
		return
	case err != nil:
		s.logger.Error("ocr failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// handleLookup resolves pinyin and meaning for the posted characters.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Characters []string `json:"characters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"lookup": s.dict.Lookup(req.Characters)})
}

// handleHealth reports liveness and the loaded dictionary size.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"cedict_entries": s.dict.Len(),
	})
}
