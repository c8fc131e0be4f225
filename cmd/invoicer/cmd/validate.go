package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoicer/internal/model"
	"github.com/rezonia/invoicer/internal/validation"
)

// ValidationResult is the validate output for one draft
type ValidationResult struct {
	File   string                   `json:"file"`
	Valid  bool                     `json:"valid"`
	Errors []*model.ValidationError `json:"errors,omitempty"`
	Error  string                   `json:"error,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate <draft.json>...",
	Short: "Validate drafts",
	Long: `Validate one or more drafts the way save and export do.

Checks performed:
  - Currency is in the catalog, dates are YYYY-MM-DD, emails are well formed
  - At least one item; quantities >= 1, rates >= 0
  - Item amounts and totals match a fresh recompute
  - A fixed discount does not exceed the subtotal
  - Logo and signature are image data URLs within their size limits

Examples:
  invoicer validate draft.json
  invoicer validate drafts/*.json -f table`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	results := make([]*ValidationResult, 0, len(args))
	allValid := true

	for _, file := range args {
		result := &ValidationResult{File: file}
		inv, err := readInvoice(file)
		if err != nil {
			result.Error = err.Error()
		} else {
			report := validation.Validate(inv)
			result.Valid = !report.HasErrors()
			result.Errors = report.Errors
		}
		allValid = allValid && result.Valid
		results = append(results, result)
	}

	err := withOutput(outputFile, func(w io.Writer) error {
		if outputFormat == "table" {
			return outputValidationTable(w, results)
		}
		return outputJSON(w, results)
	})
	if err != nil {
		return err
	}
	if !allValid {
		return fmt.Errorf("validation failed")
	}
	return nil
}

func outputValidationTable(w io.Writer, results []*ValidationResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tVALID\tFIELD\tMESSAGE")
	fmt.Fprintln(tw, "----\t-----\t-----\t-------")

	for _, r := range results {
		switch {
		case r.Error != "":
			fmt.Fprintf(tw, "%s\tno\t\tERROR: %s\n", r.File, r.Error)
		case r.Valid:
			fmt.Fprintf(tw, "%s\tyes\t\t\n", r.File)
		default:
			for _, e := range r.Errors {
				fmt.Fprintf(tw, "%s\tno\t%s\t%s\n", r.File, e.Field, e.Message)
			}
		}
	}
	return tw.Flush()
}
