package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoicer/internal/app"
	"github.com/rezonia/invoicer/internal/currency"
	"github.com/rezonia/invoicer/internal/store"
)

var (
	templateName        string
	templateDescription string
)

var templatesCmd = &cobra.Command{
	Use:     "templates",
	Aliases: []string{"tpl"},
	Short:   "Share and reuse invoice templates",
	Long: `Templates are public invoice layouts kept in the configured store.

Listing and using templates needs no account; saving one needs a signed in
user (see 'invoicer auth').

Examples:
  invoicer templates list -f table
  invoicer templates save draft.json --name "Monthly retainer"
  invoicer templates use 5b0c... -o draft.json`,
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List public templates, newest first",
	Args:  cobra.NoArgs,
	RunE:  runTemplatesList,
}

var templatesSaveCmd = &cobra.Command{
	Use:   "save <draft.json>",
	Short: "Save a draft as a public template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesSave,
}

var templatesUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Start a new draft from a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesUse,
}

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.AddCommand(templatesListCmd, templatesSaveCmd, templatesUseCmd)

	templatesSaveCmd.Flags().StringVar(&templateName, "name", "", "Template name")
	templatesSaveCmd.Flags().StringVar(&templateDescription, "description", "", "Template description")
	_ = templatesSaveCmd.MarkFlagRequired("name")
}

func withTemplates(cmd *cobra.Command, fn func(a *app.App, cmd *cobra.Command) error) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Templates == nil {
		return fmt.Errorf("no template store is configured (store driver: %s)", a.Config.Store.Driver)
	}
	return fn(a, cmd)
}

func runTemplatesList(cmd *cobra.Command, args []string) error {
	return withTemplates(cmd, func(a *app.App, cmd *cobra.Command) error {
		list, err := a.Templates.List(cmd.Context())
		if err != nil {
			return describeError(err)
		}
		printVerbose("%d template(s)\n", len(list))

		return withOutput(outputFile, func(w io.Writer) error {
			if outputFormat == "table" {
				return outputTemplateTable(w, list)
			}
			return outputJSON(w, list)
		})
	})
}

func runTemplatesSave(cmd *cobra.Command, args []string) error {
	inv, err := readInvoice(args[0])
	if err != nil {
		return err
	}
	return withTemplates(cmd, func(a *app.App, cmd *cobra.Command) error {
		if a.Auth == nil {
			return fmt.Errorf("no auth provider is configured")
		}
		ctx, err := signedInContext(cmd.Context(), a)
		if err != nil {
			return err
		}
		t, err := a.Templates.Save(ctx, templateName, templateDescription, inv)
		if err != nil {
			return describeError(err)
		}
		fmt.Println(t.ID)
		return nil
	})
}

func runTemplatesUse(cmd *cobra.Command, args []string) error {
	return withTemplates(cmd, func(a *app.App, cmd *cobra.Command) error {
		draft, err := a.Templates.NewDraft(cmd.Context(), args[0])
		if err != nil {
			return describeError(err)
		}
		return writeInvoice(outputFile, draft)
	})
}

func outputTemplateTable(w io.Writer, list []store.Template) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION\tITEMS\tTOTAL")
	fmt.Fprintln(tw, "--\t----\t-----------\t-----\t-----")
	for _, t := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			t.ID, t.Name, orDash(t.Description), len(t.Data.Items),
			currency.Format(t.Data.Total, t.Data.Currency))
	}
	return tw.Flush()
}
