package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rezonia/invoicer/internal/currency"
	"github.com/rezonia/invoicer/internal/engine"
	"github.com/rezonia/invoicer/internal/model"
	"github.com/rezonia/invoicer/internal/render"
	"github.com/rezonia/invoicer/internal/validation"
)

// DefaultExportTimeout bounds one HTTP export when Config.ExportTimeout is unset
const DefaultExportTimeout = 2 * time.Minute

func newItemID() string {
	return uuid.NewString()
}

// bindJSON decodes the body keeping numbers as json.Number
func bindJSON(c *gin.Context, v any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return model.NewPreconditionError("body", "is not valid JSON", "The request body could not be read.")
	}
	return nil
}

func (s *Server) handleCurrencies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"currencies": currency.All()})
}

func (s *Server) handleCalculate(c *gin.Context) {
	var req CalculateRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, engine.Recompute(req.Invoice, req.Patch))
}

func (s *Server) handleValidate(c *gin.Context) {
	var inv model.Invoice
	if err := bindJSON(c, &inv); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, validationResponse(inv))
}

func (s *Server) handlePreview(c *gin.Context) {
	var inv model.Invoice
	if err := bindJSON(c, &inv); err != nil {
		_ = c.Error(err)
		return
	}
	s.writePreview(c, inv)
}

func (s *Server) handleExport(c *gin.Context) {
	var inv model.Invoice
	if err := bindJSON(c, &inv); err != nil {
		_ = c.Error(err)
		return
	}
	s.writeExport(c, inv)
}

func (s *Server) handleCreateDraft(c *gin.Context) {
	id, draft := s.drafts.Create()
	c.JSON(http.StatusCreated, DraftResponse{ID: id, Invoice: draft})
}

func (s *Server) handleGetDraft(c *gin.Context) {
	id := c.Param("id")
	draft, err := s.drafts.Get(id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, DraftResponse{ID: id, Invoice: draft})
}

func (s *Server) handlePatchDraft(c *gin.Context) {
	var patch engine.Patch
	if err := bindJSON(c, &patch); err != nil {
		_ = c.Error(err)
		return
	}
	s.applyDraft(c, func(inv model.Invoice) model.Invoice {
		return engine.Recompute(inv, patch)
	})
}

func (s *Server) handleDeleteDraft(c *gin.Context) {
	s.drafts.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAddItem(c *gin.Context) {
	id := s.newItemID()
	s.applyDraftStatus(c, http.StatusCreated, func(inv model.Invoice) model.Invoice {
		return engine.AddItem(inv, id)
	})
}

func (s *Server) handleUpdateItem(c *gin.Context) {
	index, err := itemIndex(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	var patch engine.Patch
	if err := bindJSON(c, &patch); err != nil {
		_ = c.Error(err)
		return
	}
	s.applyDraft(c, func(inv model.Invoice) model.Invoice {
		return engine.UpdateItem(inv, index, patch)
	})
}

func (s *Server) handleRemoveItem(c *gin.Context) {
	index, err := itemIndex(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	s.applyDraft(c, func(inv model.Invoice) model.Invoice {
		return engine.RemoveItem(inv, index)
	})
}

func (s *Server) handleValidateDraft(c *gin.Context) {
	draft, err := s.drafts.Get(c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, validationResponse(draft))
}

func (s *Server) handlePreviewDraft(c *gin.Context) {
	draft, err := s.drafts.Get(c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	s.writePreview(c, draft)
}

func (s *Server) handleExportDraft(c *gin.Context) {
	draft, err := s.drafts.Get(c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	s.writeExport(c, draft)
}

func (s *Server) applyDraft(c *gin.Context, fn func(model.Invoice) model.Invoice) {
	s.applyDraftStatus(c, http.StatusOK, fn)
}

func (s *Server) applyDraftStatus(c *gin.Context, status int, fn func(model.Invoice) model.Invoice) {
	id := c.Param("id")
	draft, err := s.drafts.Apply(id, fn)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(status, DraftResponse{ID: id, Invoice: draft})
}

func (s *Server) writePreview(c *gin.Context, inv model.Invoice) {
	html, err := render.Build(inv).HTML()
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func (s *Server) writeExport(c *gin.Context, inv model.Invoice) {
	timeout := s.config.ExportTimeout
	if timeout <= 0 {
		timeout = DefaultExportTimeout
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	art, err := s.exporter.Export(ctx, inv)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	c.Header("X-Page-Count", strconv.Itoa(art.Pages))
	if art.Location != "" {
		c.Header("X-Artifact-Location", art.Location)
	}
	c.Data(http.StatusOK, art.ContentType, art.Data)
}

func validationResponse(inv model.Invoice) ValidationResponse {
	report := validation.Validate(inv)
	return ValidationResponse{Valid: !report.HasErrors(), Errors: report.Errors}
}

func itemIndex(c *gin.Context) (int, error) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return 0, model.NewPreconditionError("index", "must be an integer", "The item position is not valid.")
	}
	return index, nil
}
