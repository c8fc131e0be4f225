package invoicelib

import (
	"time"

	"github.com/google/uuid"

	"github.com/rezonia/invoicer/internal/engine"
	"github.com/rezonia/invoicer/internal/model"
	"github.com/rezonia/invoicer/internal/validation"
)

// NewDraft returns an empty draft dated today with one blank item
func NewDraft() Invoice {
	return model.NewDraft(time.Now(), uuid.NewString())
}

// Update applies a field patch and recomputes the totals
func Update(inv Invoice, patch Patch) Invoice {
	return engine.Recompute(inv, patch)
}

// UpdateItem patches the item at index. Out of range indexes are ignored.
func UpdateItem(inv Invoice, index int, patch Patch) Invoice {
	return engine.UpdateItem(inv, index, patch)
}

// AddItem appends a blank item
func AddItem(inv Invoice) Invoice {
	return engine.AddItem(inv, uuid.NewString())
}

// RemoveItem drops the item at index
func RemoveItem(inv Invoice, index int) Invoice {
	return engine.RemoveItem(inv, index)
}

// Validate reports every problem that would block saving or exporting
func Validate(inv Invoice) *ValidationReport {
	return validation.Validate(inv)
}
