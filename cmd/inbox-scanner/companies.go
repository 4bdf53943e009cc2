package main

import (
	"github.com/spf13/cobra"

	"github.com/mikey/inbox-data-requests/internal/aggregate"
)

func newCompaniesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "companies",
		Short: "Print the company table of a saved scan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			input, _ := cmd.Flags().GetString("input")
			result, err := loadScan(input)
			if err != nil {
				return err
			}
			return renderCompanyTable(cmd.OutOrStdout(), aggregate.BuildCompanyTable(result.Records()))
		},
	}

	cmd.Flags().String("input", "", "Scan result JSON written by scan --output")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
