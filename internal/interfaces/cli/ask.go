package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/types/biopharma"
)

// NewAskCmd builds the ask command.
func NewAskCmd() *cobra.Command {
	var showCitations bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a natural-language question about indexed drug pipelines",
		Long:  "Ask sends one question to the server's answering engine and prints the\nanswer with its source tag (agent, fallback_search, cache, or error).",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			question := strings.TrimSpace(strings.Join(args, " "))
			result, err := cliCtx.Client.Answer(cmd.Context(), question)
			if err != nil {
				return err
			}

			return printResult(cmd, cliCtx, result, func() string {
				return formatAnswer(result, showCitations)
			})
		},
	}

	cmd.Flags().BoolVar(&showCitations, "citations", false, "print the cited records under the answer")
	return cmd
}

func formatAnswer(result *biopharma.AnswerResult, showCitations bool) string {
	var b strings.Builder
	b.WriteString(result.Answer)
	fmt.Fprintf(&b, "\n\n[source: %s]", result.Source)
	if !result.Success {
		b.WriteString(" [failed]")
	}

	if showCitations && len(result.Citations) > 0 {
		b.WriteString("\nCitations:")
		for _, c := range result.Citations {
			fmt.Fprintf(&b, "\n  - %s", c.RecordID)
			if c.Company != "" {
				b.WriteString(" " + c.Company)
			}
			if c.Drug != "" {
				b.WriteString(" / " + c.Drug)
			}
			fmt.Fprintf(&b, " [%s]", c.Tier)
		}
	}
	return b.String()
}
