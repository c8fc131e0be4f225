package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rezonia/invoicer/internal/model"
)

func (s *Server) handleListInvoices(c *gin.Context) {
	if !s.invoicesEnabled(c) {
		return
	}
	list, err := s.invoices.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Invoices: list})
}

func (s *Server) handleSaveInvoice(c *gin.Context) {
	if !s.invoicesEnabled(c) {
		return
	}
	var req SaveRequest
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
		_ = c.Error(model.NewPreconditionError("invoice", "is required", "Send a draft id or an invoice to save."))
		return
	}

	id, err := s.invoices.Save(c.Request.Context(), inv)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, SaveResponse{ID: id})
}

func (s *Server) handleGetInvoice(c *gin.Context) {
	if !s.invoicesEnabled(c) {
		return
	}
	inv, err := s.invoices.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) handleDeleteInvoice(c *gin.Context) {
	if !s.invoicesEnabled(c) {
		return
	}
	if err := s.invoices.Delete(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleExportInvoice(c *gin.Context) {
	if !s.invoicesEnabled(c) {
		return
	}
	inv, err := s.invoices.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	s.writeExport(c, inv)
}

func (s *Server) invoicesEnabled(c *gin.Context) bool {
	if s.invoices == nil {
		_ = c.Error(errInvoicesDisabled)
		return false
	}
	return true
}
