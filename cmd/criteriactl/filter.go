package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	criteria "github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/domain"
	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/infrastructure/memory"
	"github.com/krew-solutions/ascetic-criteria-go/examples/catalog"
)

type datasetFlags struct {
	data  string
	count int
	seed  uint64
}

func (f *datasetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.data, "data", "", "products JSON file as written by sample (default: generate)")
	cmd.Flags().IntVar(&f.count, "count", 100, "number of generated products")
	cmd.Flags().Uint64Var(&f.seed, "seed", 1, "seed for generated products")
}

func (f *datasetFlags) products(cmd *cobra.Command) ([]catalog.Product, error) {
	if f.data == "" {
		return catalog.Generate(f.count, f.seed), nil
	}
	raw, err := readInput(cmd, f.data)
	if err != nil {
		return nil, err
	}
	var products []catalog.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, errors.Wrapf(err, "decode %s", f.data)
	}
	return products, nil
}

func NewFilterCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &datasetFlags{}

	cmd := &cobra.Command{
		Use:   "filter <query-file|->",
		Short: "Run a query document against the product catalog",
		Long: `Run a query document (condition, sort, pagination) against a product
catalog, either generated or read with --data, and print the page.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(rootOpts, cmd, flags, args[0])
		},
	}
	flags.register(cmd)
	return cmd
}

func runFilter(opts *RootOptions, cmd *cobra.Command, flags *datasetFlags, path string) error {
	data, err := readInput(cmd, path)
	if err != nil {
		return err
	}
	var doc *criteria.QueryDocument
	if isYAML(path) {
		doc, err = criteria.DecodeQueryDocumentYAML(data)
	} else {
		doc, err = criteria.DecodeQueryDocument(data)
	}
	if err != nil {
		return err
	}

	products, err := flags.products(cmd)
	if err != nil {
		return err
	}
	source := memory.NewSlice(products, opts.criteriaOptions()...)
	page, err := source.FindDocument(cmd.Context(), doc)
	if err != nil {
		return err
	}
	opts.logger.Debug("query served", "total", page.Total, "returned", len(page.Items))

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(page)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSKU\tNAME\tPRICE\tSTOCK\tRELEASED")
	for _, item := range page.Items {
		p := item.(catalog.Product)
		stock := "-"
		if p.Stock != nil {
			stock = fmt.Sprint(*p.Stock)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%s\t%s\n", p.ID, p.SKU, p.Name, p.Price, stock, p.Released.Format("2006-01-02"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d of %d\n", len(page.Items), page.Total)
	return nil
}
