package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/docpipe/internal/cli"
	"github.com/cloo-solutions/docpipe/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "docpiped",
		Short: "Docpipe daemon and CLI",
		Long:  "Docpipe daemon for running the ingestion API server, ingesting documents, and searching stored chunks",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IngestCmd())
	rootCmd.AddCommand(admin.SearchCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
