// Package shell is a stand-in presentation layer: a small HTTP adapter
// that forwards user intents as events into the session engine and renders
// the resulting session snapshots as JSON. The core does not depend on it.
package shell

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	bridge "github.com/touristpay/bridge"
	"github.com/touristpay/bridge/logger"
	"github.com/touristpay/bridge/types"
)

// Server adapts a Bridge to HTTP.
type Server struct {
	bridge *bridge.Bridge
	log    logger.Logger
}

// NewServer wraps a bridge. A nil log disables request logging.
func NewServer(b *bridge.Bridge, log logger.Logger) *Server {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Server{bridge: b, log: log}
}

// Router builds the event routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/session", s.getSession)
	r.Route("/session/events", func(r chi.Router) {
		r.Post("/login", s.postLogin)
		r.Post("/guest", s.postGuest)
		r.Post("/code-acquired", s.postCodeAcquired)
		r.Post("/confirm", s.postConfirm)
		r.Post("/submit-card", s.postSubmitCard)
		r.Post("/top-up", s.postTopUp)
		r.Post("/select-funding", s.postSelectFunding)
		r.Post("/navigate", s.postNavigate)
	})
	r.Get("/funding", s.getFunding)
	r.Get("/rates", s.getRates)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

type eventResponse struct {
	State types.SessionState `json:"state"`
	Error *types.BridgeError `json:"error,omitempty"`
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.writeState(w, s.bridge.State(), nil)
}

func (s *Server) postLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Provider string `json:"provider"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	state, err := s.bridge.Login(r.Context(), body.Provider)
	s.writeState(w, state, err)
}

func (s *Server) postGuest(w http.ResponseWriter, r *http.Request) {
	state, err := s.bridge.ContinueAsGuest()
	s.writeState(w, state, err)
}

func (s *Server) postCodeAcquired(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RawCode string `json:"rawCode"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	state, err := s.bridge.CodeAcquired(r.Context(), body.RawCode)
	s.writeState(w, state, err)
}

func (s *Server) postConfirm(w http.ResponseWriter, r *http.Request) {
	state, err := s.bridge.Confirm(r.Context())
	s.writeState(w, state, err)
}

func (s *Server) postSubmitCard(w http.ResponseWriter, r *http.Request) {
	state, err := s.bridge.SubmitCard(r.Context())
	s.writeState(w, state, err)
}

func (s *Server) postTopUp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	state, err := s.bridge.TopUp(r.Context(), body.Amount)
	s.writeState(w, state, err)
}

func (s *Server) postSelectFunding(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	state, err := s.bridge.SelectFunding(body.ID)
	s.writeState(w, state, err)
}

func (s *Server) postNavigate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		View types.View `json:"view"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	state, err := s.bridge.Navigate(body.View)
	s.writeState(w, state, err)
}

func (s *Server) getFunding(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.bridge.FundingSources())
}

func (s *Server) getRates(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.bridge.Rates())
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		s.writeJSON(w, http.StatusBadRequest, &types.BridgeError{
			Code:    types.ErrConfig,
			Message: "malformed request body: " + err.Error(),
		})
		return false
	}
	return true
}

func (s *Server) writeState(w http.ResponseWriter, state types.SessionState, err error) {
	status := http.StatusOK
	resp := eventResponse{State: state}

	if err != nil {
		var bErr *types.BridgeError
		if errors.As(err, &bErr) {
			resp.Error = bErr
			status = statusFor(bErr.Code)
		} else {
			resp.Error = &types.BridgeError{Code: types.ErrInvalidTransition, Message: err.Error()}
			status = http.StatusConflict
		}
	}
	s.writeJSON(w, status, resp)
}

func statusFor(code string) int {
	switch code {
	case types.ErrBusy, types.ErrInvalidTransition:
		return http.StatusConflict
	case types.ErrUnknownFunding, types.ErrUnknownView:
		return http.StatusNotFound
	case types.ErrInvalidAmount:
		return http.StatusBadRequest
	case types.ErrSessionClosed:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("write response", map[string]any{"err": err.Error()})
	}
}
