package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/callebjorkell/ic-card-reader/nfc"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type StatusResponse struct {
	Reader string          `json:"reader"`
	State  nfc.ReaderState `json:"state"`
	CardID string          `json:"cardId,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type pinRequest struct {
	PIN string `json:"pin"`
}

type propertyRequest struct {
	Value string `json:"value"`
}

func (s *Server) status() StatusResponse {
	resp := StatusResponse{
		Reader: s.config.Reader.Name(),
		State:  s.config.Reader.Status(),
	}
	if c, ok := s.config.Reader.CurrentCard(); ok {
		resp.CardID = c.ID
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.config.Reader.AvailableCards())
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if err := s.config.Reader.Connect(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.config.Reader.Disconnect(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	card, err := s.config.Reader.InsertCard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.config.Reader.RemoveCard(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleReadCard(w http.ResponseWriter, r *http.Request) {
	card, err := s.config.Reader.ReadCard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleWriteProperty(w http.ResponseWriter, r *http.Request) {
	var req propertyRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := s.config.Reader.WriteProperty(r.Context(), chi.URLParam(r, "key"), req.Value); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if !readJSON(w, r, &req) {
		return
	}
	ok, err := s.config.Reader.Authenticate(r.Context(), req.PIN)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": ok})
}

func (s *Server) handleReadMyNumber(w http.ResponseWriter, r *http.Request) {
	record, err := s.config.Reader.ReadMyNumber(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleVerifyPIN(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if !readJSON(w, r, &req) {
		return
	}
	ok, err := s.config.Reader.VerifyMyNumberPIN(r.Context(), req.PIN)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verified": ok})
}

func (s *Server) handleCertificate(w http.ResponseWriter, r *http.Request) {
	cert, err := s.config.Reader.Certificate(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pkix-cert")
	w.WriteHeader(http.StatusOK)
	w.Write(cert)
}

func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("invalid request body: %v", err),
			Kind:  "BadRequest",
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Debugf("Could not write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, nfc.ErrInvalidState):
		return http.StatusConflict, "InvalidState"
	case errors.Is(err, nfc.ErrNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.Is(err, nfc.ErrTypeMismatch):
		return http.StatusUnprocessableEntity, "TypeMismatch"
	case errors.Is(err, nfc.ErrCorruptData):
		return http.StatusInternalServerError, "CorruptData"
	case errors.Is(err, nfc.ErrClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Unavailable"
	}
	return http.StatusInternalServerError, "Internal"
}
