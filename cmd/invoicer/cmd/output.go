package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rezonia/invoicer/internal/model"
)

// readInvoice loads a draft from path, or stdin for "-"
func readInvoice(path string) (model.Invoice, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return model.Invoice{}, fmt.Errorf("failed to open draft: %w", err)
		}
		defer f.Close()
		r = f
	}

	var inv model.Invoice
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&inv); err != nil {
		return model.Invoice{}, fmt.Errorf("failed to parse draft %s: %w", path, err)
	}
	return inv, nil
}

// writeInvoice writes inv as indented JSON to path, or stdout when empty
func writeInvoice(path string, inv model.Invoice) error {
	return withOutput(path, func(w io.Writer) error {
		return outputJSON(w, inv)
	})
}

// withOutput calls fn with the output file, or stdout when path is empty
func withOutput(path string, fn func(w io.Writer) error) error {
	if path == "" {
		return fn(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func outputJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// describeError prints a user facing message for known error classes
func describeError(err error) error {
	if report, ok := model.ReportOf(err); ok {
		for _, e := range report.Errors {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", e.Field, e.Message)
		}
	}
	if hint := model.UserMessage(err, ""); hint != "" {
		if verbose {
			return fmt.Errorf("%s: %w", hint, err)
		}
		return fmt.Errorf("%s", hint)
	}
	return err
}
