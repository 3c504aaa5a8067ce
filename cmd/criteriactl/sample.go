package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/krew-solutions/ascetic-criteria-go/examples/catalog"
)

func NewSampleCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		count  int
		seed   uint64
		output string
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write a generated product catalog as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := json.MarshalIndent(catalog.Generate(count, seed), "", "  ")
			if err != nil {
				return err
			}
			data = append(data, '\n')
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			rootOpts.logger.Info("sample written", "path", output, "products", count)
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 20, "number of products")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "seed for numeric fields")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
