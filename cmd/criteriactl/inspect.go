package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	criteria "github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/domain"
)

func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "inspect <condition-file|->",
		Short: "Print a serialized condition tree",
		Long: `Decode a condition in JSON or YAML (chosen by file extension, JSON for
stdin) and print its tree. With --check, the condition is also compiled
against the entity type it names.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, cmd, args[0], check)
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "compile against the named entity type")
	return cmd
}

func runInspect(opts *RootOptions, cmd *cobra.Command, path string, check bool) error {
	data, err := readInput(cmd, path)
	if err != nil {
		return err
	}
	cond, err := decodeCondition(path, data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cond); err != nil {
			return err
		}
	} else {
		printTree(out, cond)
	}

	if !check {
		return nil
	}
	entity, ok := entities[cond.EntityTypeName]
	if !ok {
		return errors.Errorf("no entity type named \"%s\"", cond.EntityTypeName)
	}
	if _, err := criteria.CompileType(entity, cond, opts.criteriaOptions()...); err != nil {
		return errors.Wrapf(err, "condition %s", cond.ID)
	}
	opts.logger.Info("condition compiles", "condition", cond.ID, "entity", cond.EntityTypeName)
	return nil
}

func decodeCondition(path string, data []byte) (*criteria.Condition, error) {
	if isYAML(path) {
		return criteria.DecodeConditionYAML(data)
	}
	return criteria.DecodeCondition(data)
}

// printTree writes one line per node. A subtree reached again is printed
// once and then referenced by id.
func printTree(w io.Writer, cond *criteria.Condition) {
	fmt.Fprintf(w, "condition %s entity=%s\n", cond.ID, cond.EntityTypeName)
	printed := make(map[*criteria.ConditionNode]bool)
	onPath := make(map[*criteria.ConditionNode]bool)

	var walk func(n *criteria.ConditionNode, depth int)
	walk = func(n *criteria.ConditionNode, depth int) {
		indent := strings.Repeat("  ", depth+1)
		switch {
		case onPath[n]:
			fmt.Fprintf(w, "%s%s (cycle)\n", indent, n.ID())
			return
		case printed[n]:
			fmt.Fprintf(w, "%s%s (shared)\n", indent, n.ID())
			return
		}
		printed[n] = true
		fmt.Fprintf(w, "%s%s\n", indent, describe(n))

		onPath[n] = true
		for _, child := range n.Children() {
			walk(child, depth+1)
		}
		delete(onPath, n)
	}
	if cond.Tree != nil {
		walk(cond.Tree, 0)
	}
}

func describe(n *criteria.ConditionNode) string {
	if n.IsBase() {
		return fmt.Sprintf("%s %t %s", n.ID(), n.Operand().BaseValue(), n.Connective())
	}
	op := n.Operand()
	if op.IsNull() {
		return fmt.Sprintf("%s %s %s %s", n.ID(), n.Connective(), n.Selector(), n.Operator())
	}
	return fmt.Sprintf("%s %s %s %s %s", n.ID(), n.Connective(), n.Selector(), n.Operator(), op.Text())
}
