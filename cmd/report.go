package cmd

import (
	"bytes"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	m "mend.dev/pkg/mend/internal/model"
)

// reportCmd represents the report command.
var reportCmd = newReportCmd()

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "List stored repair run reports",
		Long:  "List the repair runs recorded in the output directory, newest first.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := m.Path(viper.GetString(outputFlagName))

			reports, err := reportStore.List(cmd.Context(), dir)
			if err != nil {
				return err
			}

			if len(reports) == 0 {
				cmd.Printf("No reports found in %s\n", dir)
				return nil
			}

			var tableBuffer bytes.Buffer

			table := tablewriter.NewWriter(&tableBuffer)
			table.SetHeader([]string{"Run", "Created", "Root", "Strategy", "Patches", "Oracle Runs", "Elapsed"})
			table.SetBorder(false)
			table.SetCenterSeparator("")

			for _, report := range reports {
				table.Append([]string{
					shortRunID(report.RunID),
					report.CreatedAt.Local().Format(time.DateTime),
					report.Root,
					report.Strategy,
					fmt.Sprintf("%d", len(report.Patches)),
					fmt.Sprintf("%d", report.OracleRuns),
					report.Elapsed.Round(time.Second).String(),
				})
			}

			table.Render()

			cmd.Print(tableBuffer.String())

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}
