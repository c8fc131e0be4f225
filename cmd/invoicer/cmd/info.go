package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoicer/internal/currency"
	"github.com/rezonia/invoicer/internal/engine"
	"github.com/rezonia/invoicer/internal/model"
	"github.com/rezonia/invoicer/internal/validation"
)

var infoCmd = &cobra.Command{
	Use:   "info [drafts...]",
	Short: "Show a summary of drafts",
	Long: `Display a summary of draft files without modifying them.

Shows:
  - Invoice number, dates and parties
  - Line items with their amounts
  - Subtotal, discount, tax and total in the draft currency
  - Whether the stored totals are stale

Examples:
  invoicer info draft.json
  invoicer info drafts/*.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	for _, file := range args {
		printDraftInfo(file)
		fmt.Println()
	}
	return nil
}

func printDraftInfo(path string) {
	fmt.Printf("File: %s\n", path)

	inv, err := readInvoice(path)
	if err != nil {
		fmt.Printf("  Error: %v\n", err)
		return
	}

	fmt.Printf("  Number:   %s\n", orDash(inv.Number))
	fmt.Printf("  Date:     %s (due %s)\n", orDash(inv.Date), orDash(inv.DueDate))
	fmt.Printf("  From:     %s\n", orDash(inv.From.Name))
	fmt.Printf("  To:       %s\n", orDash(inv.To.Name))
	fmt.Printf("  Currency: %s (%s)\n", inv.Currency, currency.Symbol(inv.Currency))

	fmt.Printf("  Items:    %d\n", len(inv.Items))
	for i, item := range inv.Items {
		fmt.Printf("    %d. %s  %s x %s = %s\n", i+1, orDash(item.Description),
			item.Quantity.String(), currency.Format(item.Rate, inv.Currency), currency.Format(item.Amount, inv.Currency))
	}

	fmt.Printf("  Subtotal: %s\n", currency.Format(inv.Subtotal, inv.Currency))
	if !inv.DiscountAmount.IsZero() {
		label := inv.Discount.Value.String() + "%"
		if inv.Discount.Type == model.DiscountFixed {
			label = "fixed"
		}
		fmt.Printf("  Discount: -%s (%s)\n", currency.Format(inv.DiscountAmount, inv.Currency), label)
	}
	if !inv.TaxAmount.IsZero() {
		fmt.Printf("  Tax:      %s (%s%%)\n", currency.Format(inv.TaxAmount, inv.Currency), inv.TaxRate.String())
	}
	fmt.Printf("  Total:    %s\n", currency.Format(inv.Total, inv.Currency))

	if fresh := engine.Recompute(inv, nil); !fresh.Total.Equal(inv.Total) {
		fmt.Printf("  Warning:  totals are stale, run 'invoicer calc %s --in-place'\n", path)
	}
	if report := validation.Validate(inv); report.HasErrors() {
		fmt.Printf("  Problems: %d (see 'invoicer validate')\n", len(report.Errors))
	}
	printVerbose("  Signature: %t\n", inv.Signature != nil)
	if verbose {
		if st, err := os.Stat(path); err == nil {
			printVerbose("  Modified: %s\n", st.ModTime().Format("2006-01-02 15:04:05"))
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
