package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/pterm/pterm"

	"github.com/mikey/inbox-data-requests/internal/aggregate"
	"github.com/mikey/inbox-data-requests/internal/core"
)

func saveScan(path string, result *core.ScanResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode scan result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write scan result: %w", err)
	}
	return nil
}

func loadScan(path string) (*core.ScanResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scan result: %w", err)
	}
	result := core.NewScanResult()
	if err := json.Unmarshal(data, result); err != nil {
		return nil, fmt.Errorf("failed to decode scan result: %w", err)
	}
	return result, nil
}

func renderCompanyTable(w io.Writer, table *aggregate.CompanyTable) error {
	data := pterm.TableData{{"Company", "Interaction", "Website", "Request"}}
	for _, row := range table.Rows() {
		data = append(data, []string{row.CompanyName, row.InteractionCategory, row.Website, string(row.RequestType)})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(w).Render()
}
