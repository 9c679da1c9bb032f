package server

import (
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-tenant-server/clients"
	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
)

type clientsResponse struct {
	Clients []*clients.Client `json:"clients"`
	Offset  int               `json:"offset"`
	Limit   int               `json:"limit"`
}

type updateClientRequest struct {
	clients.Basics
	Version int64 `json:"version"`
}

func (s *Server) ListClientsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, err := queryInt(r, "offset", 0)
		if err != nil {
			writeError(w, r, err)
			return
		}
		limit, err := queryInt(r, "limit", clients.DefaultListLimit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		list, err := s.svc.Clients.List(r.Context(), offset, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, clientsResponse{Clients: list, Offset: offset, Limit: limit})
	}
}

func (s *Server) CreateClientHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req clients.Basics
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		client, err := s.svc.Clients.Create(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, client)
	}
}

func (s *Server) GetClientHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		client, err := s.svc.Clients.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, client)
	}
}

// UpdateClientHandler writes the basics only if the body's version is current;
// otherwise it answers 409 and the caller must re-read.
func (s *Server) UpdateClientHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req updateClientRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if req.Version <= 0 {
			writeError(w, r, fmt.Errorf("version is required: %w", apperrors.ErrInvalidArgument))
			return
		}
		stamp, err := s.svc.Clients.UpdateBasics(r.Context(), id, req.Version, req.Basics)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stamp)
	}
}

// DeleteClientHandler soft-deletes a client at the version given in ?version=.
func (s *Server) DeleteClientHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		version, err := queryInt(r, "version", 0)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if version <= 0 {
			writeError(w, r, fmt.Errorf("version is required: %w", apperrors.ErrInvalidArgument))
			return
		}
		stamp, err := s.svc.Clients.Delete(r.Context(), id, int64(version))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stamp)
	}
}
