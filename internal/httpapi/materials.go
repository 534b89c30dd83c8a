package httpapi

import (
	"net/http"

	"github.com/p-n-ai/pai-kiu/internal/account"
	"github.com/p-n-ai/pai-kiu/internal/assessment"
	"github.com/p-n-ai/pai-kiu/internal/events"
	"github.com/p-n-ai/pai-kiu/internal/material"
	"github.com/p-n-ai/pai-kiu/internal/platform/identity"
)

type saveMaterialRequest struct {
	Text   string            `json:"text"`
	Title  string            `json:"title"`
	Source assessment.Source `json:"source"`
}

func (s *Server) handleSaveMaterial(w http.ResponseWriter, r *http.Request, id identity.Identity) {
	var req saveMaterialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	m, err := s.Materials.Save(r.Context(), material.Material{
		UserID: id.UserID,
		Text:   req.Text,
		Title:  req.Title,
		Source: req.Source,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.logEvent(r.Context(), id.UserID, events.MaterialSaved, map[string]any{
		"material_id": m.ID,
		"source":      m.Source.Type,
		"kiu":         m.KIU.GraduatedScore,
	})
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleListMaterials(w http.ResponseWriter, r *http.Request, id identity.Identity) {
	list, err := s.Materials.List(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"materials": list})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request, id identity.Identity) {
	if s.Profiles == nil {
		writeError(w, r, account.ErrNotFound)
		return
	}
	p, err := s.Profiles.Get(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type updateProfileRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, id identity.Identity) {
	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if s.Profiles == nil {
		writeError(w, r, account.ErrNotFound)
		return
	}

	email := req.Email
	if email == "" {
		email = id.Email
	}
	p, err := s.Profiles.Update(r.Context(), account.Profile{
		ID:        id.UserID,
		Email:     email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
