package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nilslice/datadictd/internal/catalog"
	"github.com/nilslice/datadictd/internal/ddserr"
)

type registerManagerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegisterManager validates the email against the configured
// domain suffix (invariant 5, §3) before delegating to the store.
func (s *Server) handleRegisterManager(w http.ResponseWriter, r *http.Request) {
	var req registerManagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if s.managerDomain != "" && !strings.HasSuffix(req.Email, "@"+s.managerDomain) {
		s.log.Info("rejected manager registration, domain mismatch", "email", req.Email)
		writeError(w, ddserr.ErrManagerDomainMismatch)
		return
	}

	manager, err := s.store.RegisterManager(r.Context(), req.Email, req.Password)
	if err != nil {
		s.log.Error("failed to register manager", "email", req.Email, "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, manager.Restricted())
}

func trimAPIKey(header string) string {
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// handleRegisterDataset implements the six-step flow from §4.5: pre-check
// for a duplicate name, parse the bearer token, look up the manager,
// upload the descriptor via the blob coordinator, then persist the
// dataset. Steps 5 and 6 are deliberately not transactional with each
// other — see the orphan-tolerance design note (§9).
func (s *Server) handleRegisterDataset(w http.ResponseWriter, r *http.Request) {
	var cfg catalog.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := cfg.Validate(); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := s.store.FindDataset(r.Context(), cfg.Name); err == nil {
		writeErrorStatus(w, http.StatusConflict, fmt.Sprintf("a dataset with name %q already exists", cfg.Name))
		return
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		s.log.Error("failed to register dataset, missing Authorization header")
		writeErrorStatus(w, http.StatusUnauthorized, "invalid or missing API key")
		return
	}
	apiKey, err := uuid.Parse(trimAPIKey(authHeader))
	if err != nil {
		s.log.Error("failed to register dataset, malformed API key", "error", err)
		writeErrorStatus(w, http.StatusUnauthorized, "invalid or missing API key")
		return
	}

	manager, err := s.store.FindManager(r.Context(), apiKey)
	if err != nil {
		s.log.Error("failed to find manager", "api_key", apiKey, "error", err)
		writeErrorStatus(w, http.StatusNotFound, fmt.Sprintf("no manager found with API key %q", apiKey))
		return
	}

	if err := s.coordinator.RegisterDataset(r.Context(), cfg); err != nil {
		s.log.Error("failed to upload dataset descriptor", "dataset", cfg.Name, "error", err)
		writeErrorStatus(w, http.StatusInternalServerError, "failed to upload dataset configuration")
		return
	}

	dataset, err := s.store.RegisterDataset(r.Context(), manager.ID, cfg)
	if err != nil {
		s.log.Error("failed to register dataset", "dataset", cfg.Name, "manager_id", manager.ID, "error", err)
		writeErrorStatus(w, http.StatusInternalServerError, fmt.Sprintf("failed to register dataset %q", cfg.Name))
		return
	}

	writeJSON(w, http.StatusOK, dataset)
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	params, err := parsePagination(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err.Error())
		return
	}

	datasets, err := s.store.ListDatasets(r.Context(), params)
	if err != nil {
		s.log.Error("failed to list datasets", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, datasets)
}

func parsePagination(r *http.Request) (catalog.RangeParams, error) {
	var params catalog.RangeParams
	q := r.URL.Query()

	if raw := q.Get("count"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return catalog.RangeParams{}, fmt.Errorf("invalid count parameter %q", raw)
		}
		count := int32(n)
		params.Count = &count
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return catalog.RangeParams{}, fmt.Errorf("invalid offset parameter %q", raw)
		}
		offset := int32(n)
		params.Offset = &offset
	}
	return params, nil
}

func (s *Server) handleFindDataset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	dataset, err := s.store.FindDataset(r.Context(), name)
	if err != nil {
		s.log.Error("failed to find dataset", "name", name, "error", err)
		writeErrorStatus(w, http.StatusNotFound, fmt.Sprintf("no dataset found with name %q", name))
		return
	}
	writeJSON(w, http.StatusOK, dataset)
}

func (s *Server) handleLatestPartition(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	dataset, err := s.store.FindDataset(r.Context(), name)
	if err != nil {
		s.log.Error("failed to find dataset for latest-partition lookup", "name", name, "error", err)
		writeErrorStatus(w, http.StatusNotFound, fmt.Sprintf("no dataset found with name %q", name))
		return
	}

	partition, err := s.store.FindPartition(r.Context(), dataset.ID, catalog.PartitionLatest)
	if err != nil {
		s.log.Error("failed to find latest partition", "dataset", name, "error", err)
		writeErrorStatus(w, http.StatusNotFound, fmt.Sprintf("no latest partition found for dataset %q", name))
		return
	}
	writeJSON(w, http.StatusOK, partition)
}

// handleFindPartition serves GET /api/dataset/{name}/{partitionName:.*}.
// The "latest" path segment is handled by a more specific route
// registered ahead of this one, so partitionName here is never the
// reserved alias unless a caller spells it past that route by accident —
// FindPartition still resolves it correctly either way.
func (s *Server) handleFindPartition(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	partitionName := chi.URLParam(r, "partitionName")

	dataset, err := s.store.FindDataset(r.Context(), name)
	if err != nil {
		s.log.Error("failed to find dataset", "name", name, "error", err)
		writeErrorStatus(w, http.StatusNotFound, fmt.Sprintf("no dataset found with name %q", name))
		return
	}

	partition, err := s.store.FindPartition(r.Context(), dataset.ID, partitionName)
	if err != nil {
		s.log.Error("failed to find partition", "dataset", name, "partition", partitionName, "error", err)
		writeErrorStatus(w, http.StatusNotFound, fmt.Sprintf("no partition found with name %q", partitionName))
		return
	}
	writeJSON(w, http.StatusOK, partition)
}
