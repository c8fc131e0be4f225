package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rezonia/invoicer/internal/model"
)

func (s *Server) handleListTemplates(c *gin.Context) {
	if !s.templatesEnabled(c) {
		return
	}
	list, err := s.templates.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, TemplateListResponse{Templates: list})
}

func (s *Server) handleSaveTemplate(c *gin.Context) {
	if !s.templatesEnabled(c) {
		return
	}
	var req TemplateRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	var inv model.Invoice
	switch {
	case req.DraftID != "":
		draft, err := s.drafts.Get(req.DraftID)
		if err != nil {
			_ = c.Error(err)
			return
		}
		inv = draft
	case req.Invoice != nil:
		inv = *req.Invoice
	default:
		_ = c.Error(model.NewPreconditionError("invoice", "is required", "Send a draft id or an invoice to save as a template."))
		return
	}

	t, err := s.templates.Save(c.Request.Context(), req.Name, req.Description, inv)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (s *Server) handleGetTemplate(c *gin.Context) {
	if !s.templatesEnabled(c) {
		return
	}
	t, err := s.templates.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// handleDraftFromTemplate opens a workspace draft seeded from a template
func (s *Server) handleDraftFromTemplate(c *gin.Context) {
	if !s.templatesEnabled(c) {
		return
	}
	draft, err := s.templates.NewDraft(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	id := s.drafts.Put(draft)
	c.JSON(http.StatusCreated, DraftResponse{ID: id, Invoice: draft})
}

func (s *Server) templatesEnabled(c *gin.Context) bool {
	if s.templates == nil {
		_ = c.Error(errTemplatesDisabled)
		return false
	}
	return true
}
