// Command biopartner is the CLI for the Biopartnering Insights engine.
package main

import (
	"os"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
