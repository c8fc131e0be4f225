// Package validation checks a draft at the save and export boundaries.
// Interactive edits are never validated; the engine already coerces them.
package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/rezonia/invoicer/internal/currency"
	money "github.com/rezonia/invoicer/internal/decimal"
	"github.com/rezonia/invoicer/internal/engine"
	"github.com/rezonia/invoicer/internal/media"
	"github.com/rezonia/invoicer/internal/model"
)

// Validator wraps a configured go-playground validator
type Validator struct {
	validate *validator.Validate
}

// New creates a validator that reports JSON field paths
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// registration only fails for an empty tag
	_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		return currency.IsKnown(fl.Field().String())
	})

	return &Validator{validate: v}
}

var defaultValidator = New()

// Validate checks inv with the package validator
func Validate(inv model.Invoice) *model.ValidationReport {
	return defaultValidator.Validate(inv)
}

// Check is Validate returning an error suitable for propagation
func Check(inv model.Invoice) error {
	return Validate(inv).Err()
}

// Validate returns every problem found in inv, in field order. The report is
// empty when inv is valid.
func (v *Validator) Validate(inv model.Invoice) *model.ValidationReport {
	report := &model.ValidationReport{}

	if err := v.validate.Struct(inv); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				report.Add(path(fe.Namespace()), message(fe))
			}
		} else {
			report.Add("invoice", err.Error())
		}
	}

	checkItems(inv, report)
	checkDerived(inv, report)
	checkImages(inv, report)

	return report
}

func checkItems(inv model.Invoice, report *model.ValidationReport) {
	for i, item := range inv.Items {
		if !item.Amount.Equal(money.Amount(item.Quantity, item.Rate)) {
			report.Add(fmt.Sprintf("items[%d].amount", i), "must equal quantity * rate")
		}
	}
}

// checkDerived compares the derived totals with a fresh recompute
func checkDerived(inv model.Invoice, report *model.ValidationReport) {
	fresh := engine.Recompute(inv, nil)

	fields := []struct {
		path      string
		got, want decimal.Decimal
	}{
		{"subtotal", inv.Subtotal, fresh.Subtotal},
		{"discount_amount", inv.DiscountAmount, fresh.DiscountAmount},
		{"tax_amount", inv.TaxAmount, fresh.TaxAmount},
		{"total", inv.Total, fresh.Total},
	}
	for _, f := range fields {
		if !f.got.Equal(f.want) {
			report.Add(f.path, "does not match the computed value")
		}
	}

	if inv.Discount.Type == model.DiscountFixed && inv.Discount.Value.GreaterThan(fresh.Subtotal) {
		report.Add("discount.value", "must not exceed the subtotal")
	}
}

func checkImages(inv model.Invoice, report *model.ValidationReport) {
	if inv.From.Logo != "" {
		checkImage(report, "from.logo", inv.From.Logo, media.MaxLogoBytes)
	}
	if inv.Signature != nil && inv.Signature.Image != "" {
		checkImage(report, "signature.image", inv.Signature.Image, media.MaxSignatureBytes)
	}
}

func checkImage(report *model.ValidationReport, field, raw string, limit int) {
	_, err := media.DecodeDataURL(raw, limit)
	switch {
	case err == nil:
	case errors.Is(err, media.ErrTooLarge):
		report.Add(field, fmt.Sprintf("must be smaller than %dMB", limit>>20))
	case errors.Is(err, media.ErrNotImage):
		report.Add(field, "must be an image")
	default:
		report.Add(field, "must be an image data URL")
	}
}

// path strips the root struct name: "Invoice.items[1].quantity" -> "items[1].quantity"
func path(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "currency":
		return "is not a supported currency code"
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}
