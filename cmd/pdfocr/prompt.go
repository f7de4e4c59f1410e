package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/pdf-ocr/internal/prompt"
)

func promptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompt <task-type>",
		Short: "Print the instruction sent to the model for raw text read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), prompt.Build(prompt.TaskType(args[0]), string(raw)))
			return err
		},
	}
}
