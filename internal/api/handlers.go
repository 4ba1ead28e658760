package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tuannm99/novaplan/internal/catalog"
	"github.com/tuannm99/novaplan/internal/engine"
)

const maxBodyBytes = 1 << 20

// Response wraps every API payload.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

type PlanRequest struct {
	SQL string `json:"sql"`
	// Optimize defaults to true when omitted.
	Optimize *bool `json:"optimize,omitempty"`
}

type ColumnStats struct {
	Name     string                `json:"name"`
	Type     string                `json:"type"`
	Distinct int                   `json:"distinct"`
	Index    catalog.IndexPresence `json:"index"`
}

type TableStats struct {
	Database       string        `json:"database"`
	Table          string        `json:"table"`
	Rows           int           `json:"rows"`
	Blocks         int           `json:"blocks"`
	TupleSize      int           `json:"tuple_size"`
	BlockingFactor int           `json:"blocking_factor"`
	Columns        []ColumnStats `json:"columns"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, kind engine.ErrorKind, msg string) {
	writeJSON(w, status, Response{Success: false, Error: msg, Kind: string(kind)})
}

func statusFor(kind engine.ErrorKind) int {
	switch kind {
	case engine.KindStatsNotFound:
		return http.StatusNotFound
	case engine.KindCanceled:
		return http.StatusServiceUnavailable
	case engine.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]string{"status": "ok"}})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, engine.KindBadRequest, "invalid request body: "+err.Error())
		return
	}

	optimize := req.Optimize == nil || *req.Optimize
	pq, cost, err := s.engine.Plan(r.Context(), req.SQL, optimize)
	if err != nil {
		kind := engine.Classify(err)
		if kind == engine.KindInternal {
			s.log.Error("plan failed", "err", err)
		}
		writeError(w, statusFor(kind), kind, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: engine.NewReport(pq, cost, optimize)})
}

func (s *Server) handleTableStats(w http.ResponseWriter, r *http.Request) {
	database := chi.URLParam(r, "database")
	table := chi.URLParam(r, "table")

	st, err := s.engine.Catalog().Stats(database, table)
	if err != nil {
		if errors.Is(err, catalog.ErrStatsNotFound) {
			writeError(w, http.StatusNotFound, engine.KindStatsNotFound, err.Error())
			return
		}
		s.log.Error("load table stats", "database", database, "table", table, "err", err)
		writeError(w, http.StatusInternalServerError, engine.KindInternal, err.Error())
		return
	}

	out := TableStats{
		Database:       catalog.NormalizeName(database),
		Table:          catalog.NormalizeName(table),
		Rows:           st.NR,
		Blocks:         st.BR,
		TupleSize:      st.LR,
		BlockingFactor: st.FR,
		Columns:        make([]ColumnStats, 0, len(st.Columns)),
	}
	for _, c := range st.Columns {
		out.Columns = append(out.Columns, ColumnStats{
			Name:     c,
			Type:     st.ColType[c].String(),
			Distinct: st.V[c],
			Index:    st.ColIndex[c],
		})
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: out})
}
