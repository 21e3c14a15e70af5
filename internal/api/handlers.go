package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/trading-desk/internal/desk"
	"github.com/rxtech-lab/trading-desk/internal/marketdata"
	"github.com/rxtech-lab/trading-desk/internal/types"
	"github.com/rxtech-lab/trading-desk/pkg/errors"
)

const maxBodyBytes = 1 << 20

type stateRequest struct {
	Theme  *types.Theme `json:"theme"`
	Base   *string      `json:"base"`
	Player *string      `json:"player"`
}

type stateResponse struct {
	desk.StateView
	Refresh *desk.RefreshDigest `json:"refresh,omitempty"`
}

type addRequest struct {
	Key    string `json:"key"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

type instrumentResponse struct {
	desk.InstrumentView
	// Warning carries a refresh failure; the instrument itself was still updated.
	Warning string `json:"warning,omitempty"`
}

type closeRequest struct {
	FeeRate float64 `json:"fee_rate"`
}

type refreshResponse struct {
	Status desk.Status        `json:"status"`
	Digest desk.RefreshDigest `json:"digest"`
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched when
// optional is set.
func decodeBody(r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		if optional && err == io.EOF {
			return nil
		}

		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid request body", err)
	}

	return nil
}

func (s *Server) handleGetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, stateResponse{StateView: s.desk.State()})
}

func (s *Server) handlePutState(w http.ResponseWriter, r *http.Request) {
	var req stateRequest
	if err := decodeBody(r, &req, false); err != nil {
		s.writeError(w, err)
		return
	}

	if req.Theme != nil {
		if err := s.desk.SetTheme(*req.Theme); err != nil {
			s.writeError(w, err)
			return
		}
	}

	if req.Player != nil {
		if err := s.desk.SetPlayer(*req.Player); err != nil {
			s.writeError(w, err)
			return
		}
	}

	var digest *desk.RefreshDigest

	if req.Base != nil {
		report, err := s.desk.SetBase(r.Context(), *req.Base)
		if err != nil {
			s.writeError(w, err)
			return
		}

		d := report.Digest()
		digest = &d
	}

	writeJSON(w, http.StatusOK, stateResponse{StateView: s.desk.State(), Refresh: digest})
}

func (s *Server) handlePortfolio(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.desk.Portfolio())
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	candidates, err := s.desk.Search(r.Context(), query)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if candidates == nil {
		candidates = []marketdata.Candidate{}
	}

	writeJSON(w, http.StatusOK, candidates)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	report := s.desk.RefreshAll(r.Context())

	writeJSON(w, http.StatusOK, refreshResponse{Status: report.Status(), Digest: report.Digest()})
}

func (s *Server) handleListInstruments(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.desk.Instruments())
}

func (s *Server) handleAddInstrument(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := decodeBody(r, &req, false); err != nil {
		s.writeError(w, err)
		return
	}

	add, err := desk.NewAddRequest(req.Key, req.Symbol, req.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}

	view, created, err := s.desk.Add(r.Context(), add)
	if err != nil {
		s.writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}

	writeJSON(w, status, instrumentResponse{InstrumentView: view})
}

func (s *Server) handleGetInstrument(w http.ResponseWriter, r *http.Request) {
	view, err := s.desk.Instrument(mux.Vars(r)["key"])
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, instrumentResponse{InstrumentView: view})
}

func (s *Server) handleRemoveInstrument(w http.ResponseWriter, r *http.Request) {
	if err := s.desk.Remove(mux.Vars(r)["key"]); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	result, err := s.desk.Select(r.Context(), key)
	if err != nil {
		s.writeError(w, err)
		return
	}

	view, err := s.desk.Instrument(key)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := instrumentResponse{InstrumentView: view}
	if result.Err != nil {
		resp.Warning = result.Err.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req types.OrderRequest
	if err := decodeBody(r, &req, false); err != nil {
		s.writeError(w, err)
		return
	}

	order, err := s.desk.PlaceOrder(mux.Vars(r)["key"], req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	if err := decodeBody(r, &req, true); err != nil {
		s.writeError(w, err)
		return
	}

	order, err := s.desk.ClosePosition(mux.Vars(r)["key"], req.FeeRate)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}
