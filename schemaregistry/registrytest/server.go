// Package registrytest runs a fake Confluent schema registry for tests.
package registrytest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/hamba/avro/v2"
)

// Confluent error codes.
const (
	CodeSubjectNotFound = 40401
	CodeVersionNotFound = 40402
	CodeSchemaNotFound  = 40403
	CodeInvalidSchema   = 42201
)

// Server is an in-memory registry served over httptest.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	schemas  []string
	parsed   []avro.Schema
	ids      map[[32]byte]int
	subjects map[string][]int

	fetches atomic.Int64
}

// NewServer starts a fake registry. Call Close when done.
func NewServer() *Server {
	s := &Server{
		ids:      make(map[[32]byte]int),
		subjects: make(map[string][]int),
	}
	s.Server = httptest.NewServer(s.Router())
	return s
}

// Router returns the registry routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/subjects", s.handleSubjects)
	r.Route("/subjects/{subject}", func(r chi.Router) {
		r.Post("/", s.handleLookup)
		r.Get("/versions", s.handleVersions)
		r.Post("/versions", s.handleRegister)
		r.Get("/versions/{version}", s.handleVersion)
		r.Get("/fingerprints/{fingerprint}", s.handleFingerprint)
	})
	r.Get("/schemas/ids/{id}", s.handleSchema)
	return r
}

// Fetches returns how many times a schema was fetched by id.
func (s *Server) Fetches() int64 {
	return s.fetches.Load()
}

func (s *Server) handleSubjects(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]string, 0, len(s.subjects))
	for name := range s.subjects {
		out = append(out, name)
	}
	s.mu.Unlock()

	sort.Strings(out)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	text, schema, sum, ok := readSchema(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, known := s.ids[sum]
	if !known {
		s.schemas = append(s.schemas, text)
		s.parsed = append(s.parsed, schema)
		id = len(s.schemas)
		s.ids[sum] = id
	}
	if !contains(s.subjects[subject], id) {
		s.subjects[subject] = append(s.subjects[subject], id)
	}
	writeJSON(w, http.StatusOK, map[string]int{"id": id})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	_, _, sum, ok := readSchema(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	versions, found := s.subjects[subject]
	if !found {
		writeError(w, http.StatusNotFound, CodeSubjectNotFound, "Subject not found")
		return
	}
	id, known := s.ids[sum]
	if !known || !contains(versions, id) {
		writeError(w, http.StatusNotFound, CodeSchemaNotFound, "Schema not found")
		return
	}
	s.writeVersion(w, subject, versions, indexOf(versions, id)+1)
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")

	s.mu.Lock()
	defer s.mu.Unlock()

	ids, found := s.subjects[subject]
	if !found {
		writeError(w, http.StatusNotFound, CodeSubjectNotFound, "Subject not found")
		return
	}
	versions := make([]int, len(ids))
	for i := range ids {
		versions[i] = i + 1
	}
	writeJSON(w, http.StatusOK, versions)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")

	s.mu.Lock()
	defer s.mu.Unlock()

	versions, found := s.subjects[subject]
	if !found {
		writeError(w, http.StatusNotFound, CodeSubjectNotFound, "Subject not found")
		return
	}

	version := len(versions)
	if v := chi.URLParam(r, "version"); v != "latest" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > len(versions) {
			writeError(w, http.StatusNotFound, CodeVersionNotFound, "Version not found")
			return
		}
		version = n
	}
	s.writeVersion(w, subject, versions, version)
}

// handleFingerprint finds a schema of subject by its hex SHA-256 canonical
// fingerprint.
func (s *Server) handleFingerprint(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	raw, err := hex.DecodeString(chi.URLParam(r, "fingerprint"))

	s.mu.Lock()
	defer s.mu.Unlock()

	versions, found := s.subjects[subject]
	if !found {
		writeError(w, http.StatusNotFound, CodeSubjectNotFound, "Subject not found")
		return
	}
	var fp [32]byte
	if err != nil || len(raw) != len(fp) {
		writeError(w, http.StatusNotFound, CodeSchemaNotFound, "Schema not found")
		return
	}
	copy(fp[:], raw)

	for i := len(versions) - 1; i >= 0; i-- {
		if id := versions[i]; s.parsed[id-1].Fingerprint() == fp {
			writeJSON(w, http.StatusOK, map[string]int{"id": id})
			return
		}
	}
	writeError(w, http.StatusNotFound, CodeSchemaNotFound, "Schema not found")
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	s.fetches.Add(1)

	id, err := strconv.Atoi(chi.URLParam(r, "id"))

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil || id < 1 || id > len(s.schemas) {
		writeError(w, http.StatusNotFound, CodeSchemaNotFound, "Schema not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"schema": s.schemas[id-1]})
}

func (s *Server) writeVersion(w http.ResponseWriter, subject string, versions []int, version int) {
	id := versions[version-1]
	writeJSON(w, http.StatusOK, map[string]any{
		"subject": subject,
		"version": version,
		"id":      id,
		"schema":  s.schemas[id-1],
	})
}

// readSchema parses the request schema. Schemas are identified by the hash
// of their full normalized document, so defaults and aliases count.
func readSchema(w http.ResponseWriter, r *http.Request) (string, avro.Schema, [32]byte, bool) {
	var sum [32]byte
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidSchema, "Invalid schema")
		return "", nil, sum, false
	}
	var req struct {
		Schema string `json:"schema"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, CodeInvalidSchema, "Invalid schema")
		return "", nil, sum, false
	}
	schema, err := avro.ParseWithCache(req.Schema, "", &avro.SchemaCache{})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, CodeInvalidSchema, "Invalid schema: "+err.Error())
		return "", nil, sum, false
	}
	normalized, err := json.Marshal(schema)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, CodeInvalidSchema, "Invalid schema: "+err.Error())
		return "", nil, sum, false
	}
	return req.Schema, schema, sha256.Sum256(normalized), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/vnd.schemaregistry.v1+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status, code int, message string) {
	writeJSON(w, status, map[string]any{"error_code": code, "message": message})
}

func contains(ids []int, id int) bool {
	return indexOf(ids, id) >= 0
}

func indexOf(ids []int, id int) int {
	for i, x := range ids {
		if x == id {
			return i
		}
	}
	return -1
}
