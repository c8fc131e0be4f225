package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoicer/internal/app"
	"github.com/rezonia/invoicer/internal/currency"
	"github.com/rezonia/invoicer/internal/store"
)

var invoicesCmd = &cobra.Command{
	Use:     "invoices",
	Aliases: []string{"inv"},
	Short:   "Manage saved invoices",
	Long: `Save drafts to the configured store and work with saved invoices.

All subcommands need a signed in user (see 'invoicer auth').

Examples:
  invoicer invoices save draft.json
  invoicer invoices list -f table
  invoicer invoices get 5b0c... -o draft.json
  invoicer invoices delete 5b0c...`,
}

var invoicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved invoices, newest first",
	Args:  cobra.NoArgs,
	RunE:  runInvoicesList,
}

var invoicesSaveCmd = &cobra.Command{
	Use:   "save <draft.json>",
	Short: "Save a draft",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoicesSave,
}

var invoicesGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Load a saved invoice as a draft",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoicesGet,
}

var invoicesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved invoice",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoicesDelete,
}

func init() {
	rootCmd.AddCommand(invoicesCmd)
	invoicesCmd.AddCommand(invoicesListCmd, invoicesSaveCmd, invoicesGetCmd, invoicesDeleteCmd)
}

// withInvoices opens the app with a signed in context and calls fn
func withInvoices(cmd *cobra.Command, fn func(a *app.App, cmd *cobra.Command) error) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Invoices == nil {
		return fmt.Errorf("no invoice store is configured (store driver: %s)", a.Config.Store.Driver)
	}
	if a.Auth == nil {
		return fmt.Errorf("no auth provider is configured")
	}

	ctx, err := signedInContext(cmd.Context(), a)
	if err != nil {
		return err
	}
	cmd.SetContext(ctx)
	return fn(a, cmd)
}

func runInvoicesList(cmd *cobra.Command, args []string) error {
	return withInvoices(cmd, func(a *app.App, cmd *cobra.Command) error {
		list, err := a.Invoices.List(cmd.Context())
		if err != nil {
			return describeError(err)
		}
		printVerbose("%d invoice(s)\n", len(list))

		return withOutput(outputFile, func(w io.Writer) error {
			switch outputFormat {
			case "table":
				return outputSummaryTable(w, list)
			case "csv":
				return outputSummaryCSV(w, list)
			default:
				return outputJSON(w, list)
			}
		})
	})
}

func runInvoicesSave(cmd *cobra.Command, args []string) error {
	inv, err := readInvoice(args[0])
	if err != nil {
		return err
	}
	return withInvoices(cmd, func(a *app.App, cmd *cobra.Command) error {
		id, err := a.Invoices.Save(cmd.Context(), inv)
		if err != nil {
			return describeError(err)
		}
		fmt.Println(id)
		return nil
	})
}

func runInvoicesGet(cmd *cobra.Command, args []string) error {
	return withInvoices(cmd, func(a *app.App, cmd *cobra.Command) error {
		inv, err := a.Invoices.Get(cmd.Context(), args[0])
		if err != nil {
			return describeError(err)
		}
		return writeInvoice(outputFile, inv)
	})
}

func runInvoicesDelete(cmd *cobra.Command, args []string) error {
	return withInvoices(cmd, func(a *app.App, cmd *cobra.Command) error {
		if err := a.Invoices.Delete(cmd.Context(), args[0]); err != nil {
			return describeError(err)
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	})
}

func outputSummaryTable(w io.Writer, list []store.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNUMBER\tDATE\tTO\tTOTAL\tCREATED")
	fmt.Fprintln(tw, "--\t------\t----\t--\t-----\t-------")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.InvoiceNumber, s.Date, orDash(s.ToName),
			currency.Format(s.Total, s.Currency), s.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func outputSummaryCSV(w io.Writer, list []store.Summary) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "invoice_number", "date", "due_date", "to_name", "currency", "total", "created_at"})
	for _, s := range list {
		_ = cw.Write([]string{
			s.ID, s.InvoiceNumber, s.Date, s.DueDate, s.ToName, s.Currency,
			s.Total.StringFixed(2), s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	cw.Flush()
	return cw.Error()
}
