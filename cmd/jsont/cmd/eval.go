package cmd

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-jsont/pkg/jsont"
	"github.com/benjaminschreck/go-jsont/pkg/jsont/expr"
	"github.com/benjaminschreck/go-jsont/pkg/jsont/node"
)

func newEvalCmd(root *rootOptions) *cobra.Command {
	var (
		data  string
		debug bool
	)

	cmd := &cobra.Command{
		Use:   "eval EXPRESSION",
		Short: "Evaluate an expression and print the result as JSON",
		Long: `Evaluate an expression of the .eval language against a data document.
Several expressions may be separated with ';', the value of the last is printed.
Variables assigned with @name are printed with --debug.`,
		Example: `  jsont eval '1 + 2 * 3'
  jsont eval --data order.json 'max(total, 100) * 1.19'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadData(cmd.Context(), data)
			if err != nil {
				return err
			}
			opts := expr.Options{
				MaxTokens:    root.config.ExprMaxTokens,
				MaxStringLen: root.config.ExprMaxStringLen,
			}
			e := expr.Parse(args[0], opts)
			if errs := e.Errors(); len(errs) > 0 {
				return errors.New(strings.Join(errs, "; "))
			}

			out := cmd.OutOrStdout()
			if debug {
				fmt.Fprintf(out, "rpn: %s\n", e.Debug())
			}
			ctx := jsont.NewContext(doc)
			result, err := e.Reduce(ctx)
			if err != nil {
				return err
			}
			if debug {
				vars := ctx.Frame().Vars()
				for _, name := range slices.Sorted(maps.Keys(vars)) {
					fmt.Fprintf(out, "%s = %s\n", name, node.Encode(vars[name]))
				}
			}
			if node.IsMissing(result) {
				return nil
			}
			_, err = fmt.Fprintln(out, node.Encode(result))
			return err
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "data file or URL (JSON or YAML)")
	cmd.Flags().BoolVar(&debug, "debug", false, "print the assembled expression and assigned variables")
	return cmd
}
