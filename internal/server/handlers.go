package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/michaelbrown/toolbelt/internal/mcpconfig"
	"github.com/michaelbrown/toolbelt/internal/storage"
)

const maxDocumentBytes = 1 << 20

// --- JSON helpers ---

// writeJSON encodes before writing the header so an unencodable value
// becomes a 500 rather than a truncated success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("encoding %T response: %v", v, err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"encoding response"}` + "\n"))
		return
	}
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		log.Printf("writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeStoreError(w http.ResponseWriter, err error, what string) {
	if strings.Contains(err.Error(), "not found") {
		writeError(w, http.StatusNotFound, what+" not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// --- Descriptor handlers ---

func (s *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	descs := s.Current().Redacted()
	if descs == nil {
		descs = []mcpconfig.ServerDescriptor{}
	}
	writeJSON(w, http.StatusOK, descs)
}

func (s *Server) handleGetServer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	desc, ok := s.Current().Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "server not found")
		return
	}
	writeJSON(w, http.StatusOK, desc.Redacted())
}

type validateResponse struct {
	OK       bool     `json:"ok"`
	Servers  []string `json:"servers"`
	Problems []string `json:"problems"`
}

// handleValidate loads the request body as a document without touching the
// current set.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, "reading document: "+err.Error())
		return
	}

	set, err := s.loader.Load(body, s.env)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, validateResponse{
			Servers:  []string{},
			Problems: mcpconfig.Problems(err),
		})
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{
		OK:       true,
		Servers:  set.Names(),
		Problems: []string{},
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Reload(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status := http.StatusOK
	if rec.Status != storage.StatusOK {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, rec)
}

// --- Load history handlers ---

func (s *Server) handleListLoads(w http.ResponseWriter, r *http.Request) {
	opts := storage.LoadListOptions{
		Status: storage.LoadStatus(r.URL.Query().Get("status")),
		Source: r.URL.Query().Get("source"),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			opts.Limit = n
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil {
			opts.Offset = n
		}
	}

	recs, err := s.store.ListLoads(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []storage.LoadRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetLoad(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetLoad(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err, "load")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteLoad(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteLoad(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err, "load")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
