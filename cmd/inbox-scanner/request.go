package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/inbox-data-requests/internal/aggregate"
	"github.com/mikey/inbox-data-requests/internal/compose"
	"github.com/mikey/inbox-data-requests/internal/core"
)

func newRequestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Prepare, and optionally send, a data request to companies from a saved scan",
		RunE:  runRequest,
	}

	flags := cmd.Flags()
	flags.String("input", "", "Scan result JSON written by scan --output")
	flags.StringSlice("company", nil, "Company to address; repeat for a mass send")
	flags.String("type", "access", "Request type: access, modify or erase")
	flags.String("to", "", "Recipient override; skips privacy contact discovery")
	flags.Bool("send", false, "Send the request instead of only previewing it")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("company")

	return cmd
}

// parseRequestType accepts the short names and the display labels
func parseRequestType(s string) (core.RequestType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "access", "request", strings.ToLower(string(core.RequestAccess)):
		return core.RequestAccess, nil
	case "modify", strings.ToLower(string(core.RequestModify)):
		return core.RequestModify, nil
	case "erase", "delete", strings.ToLower(string(core.RequestErase)):
		return core.RequestErase, nil
	}
	return "", fmt.Errorf("%w: unknown request type %q", core.ErrInvalidSelection, s)
}

// selectCompanies builds the table from a saved scan and marks companies
func selectCompanies(result *core.ScanResult, companies []string, requestType core.RequestType) (*aggregate.CompanyTable, error) {
	table := aggregate.BuildCompanyTable(result.Records())
	for _, company := range companies {
		if err := table.Select(company, requestType); err != nil {
			return nil, err
		}
	}
	if err := table.ValidateSelection(len(companies) == 1); err != nil {
		return nil, err
	}
	return table, nil
}

func runRequest(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	input, _ := flags.GetString("input")
	companies, _ := flags.GetStringSlice("company")
	typeName, _ := flags.GetString("type")
	overrideTo, _ := flags.GetString("to")
	send, _ := flags.GetBool("send")

	requestType, err := parseRequestType(typeName)
	if err != nil {
		return err
	}
	result, err := loadScan(input)
	if err != nil {
		return err
	}
	table, err := selectCompanies(result, companies, requestType)
	if err != nil {
		return err
	}
	rows := table.Selected()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	return withContainer(cfg, func(svc *compose.RequestService, llm core.LLMClient, logger *zap.Logger) error {
		defer logger.Sync() //nolint:errcheck
		defer closeClient(llm, logger)
		startMetrics(ctx, cfg, logger)

		if len(rows) > 1 {
			if !send {
				for _, row := range rows {
					fmt.Fprintf(out, "%s: %s\n", row.CompanyName, row.RequestType)
				}
				fmt.Fprintln(out, "Run again with --send to send these requests")
				return nil
			}
			sent, err := svc.SendAll(ctx, rows)
			for company, id := range sent {
				pterm.Success.WithWriter(out).Printfln("Sent to %s (%s)", company, id)
			}
			return err
		}

		draft, err := svc.Prepare(ctx, rows[0], overrideTo)
		if err != nil {
			return err
		}
		printDraft(out, draft)
		if !send {
			return nil
		}

		id, err := svc.Send(ctx, draft)
		if err != nil {
			return err
		}
		pterm.Success.WithWriter(out).Printfln("Sent to %s (%s)", draft.Company, id)
		return nil
	})
}

func printDraft(w io.Writer, draft *core.Draft) {
	fmt.Fprintf(w, "To: %s\nSubject: %s\n\n%s\n", draft.To, draft.Subject, draft.Body)
}
