// File: cmd/cases.go
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/formcheck/internal/suite"
)

// newCasesCmd creates the `cases` command, which prints the catalogue a run would use.
func newCasesCmd() *cobra.Command {
	var format string

	casesCmd := &cobra.Command{
		Use:   "cases",
		Short: "Lists the test cases a run would execute",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			cases, err := loadCases(cfg)
			if err != nil {
				return err
			}
			return writeCases(cmd.OutOrStdout(), format, cases)
		},
	}

	casesCmd.Flags().String("cases", "", "YAML file with the test cases (default is the built-in catalogue)")
	casesCmd.Flags().StringSlice("only", nil, "list only the cases with these ids")
	casesCmd.Flags().StringVarP(&format, "output-format", "f", "table", "output format: table, yaml or json")
	return casesCmd
}

// writeCases renders the catalogue. The yaml output is a valid cases file.
func writeCases(w io.Writer, format string, cases []suite.Case) error {
	switch strings.ToLower(format) {
	case "", "table":
		_, err := fmt.Fprintln(w, casesTable(cases))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(map[string][]suite.Case{"cases": cases}); err != nil {
			return fmt.Errorf("failed to encode cases: %w", err)
		}
		return enc.Close()
	case "json":
		out, err := json.ConfigCompatibleWithStandardLibrary.MarshalIndent(cases, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode cases: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	default:
		return fmt.Errorf("unsupported cases format %q", format)
	}
}

func casesTable(cases []suite.Case) string {
	rows := make([][]string, 0, len(cases))
	for _, c := range cases {
		expect := "success"
		if c.ExpectValidationErrors {
			expect = "validation errors"
		}
		skip := ""
		if c.Skip {
			skip = "yes"
		}
		rows = append(rows, []string{c.ID, c.Name, expect, skip})
	}

	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Headers("ID", "NAME", "EXPECTS", "SKIP").
		Rows(rows...).
		String()
}
