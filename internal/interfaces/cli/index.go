package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/application/ingest"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/errors"
)

// NewIndexCmd builds the index command tree.
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the vector index",
	}
	cmd.AddCommand(newIndexRecordsCmd())
	return cmd
}

func newIndexRecordsCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "records",
		Short: "Embed and index source records from a JSON file",
		Long:  "Records reads a JSON array of source records from --file (or stdin when\n--file is \"-\") and submits it for embedding and indexing.  Malformed rows\nare skipped server-side and reported, not fatal.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			reader := cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return errors.Wrap(err, errors.ErrCodeBadRequest, "open records file")
				}
				defer f.Close()
				reader = f
			}

			records, err := ingest.ParseRecords(reader)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return errors.New(errors.ErrCodeBadRequest, "no records in input")
			}

			report, err := cliCtx.Client.IndexRecords(cmd.Context(), records)
			if err != nil {
				return err
			}

			return printResult(cmd, cliCtx, report, func() string {
				return fmt.Sprintf("indexed %d records, skipped %d", report.Indexed, report.Skipped)
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "path to a JSON array of records, or - for stdin")
	return cmd
}
