package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "pdfocr",
		Short:         "Transcribe PDF documents to markdown with a vision language model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(extractCmd())
	root.AddCommand(promptCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
