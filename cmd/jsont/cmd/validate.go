package cmd

import (
	"fmt"
	"runtime"

	"github.com/gookit/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/benjaminschreck/go-jsont/pkg/jsont"
)

type validation struct {
	path   string
	result *jsont.ValidatedTemplate
}

func newValidateCmd(root *rootOptions) *cobra.Command {
	var showStats bool

	cmd := &cobra.Command{
		Use:   "validate TEMPLATE...",
		Short: "Check templates for syntax errors",
		Long: `Compile each template in collect mode and print every syntax error found.
Unknown formatters and predicates get a suggestion when a registered one is close.
Exits with an error when any template is invalid.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			compiler := root.compiler()
			results := make([]validation, len(args))

			var g errgroup.Group
			g.SetLimit(runtime.NumCPU())
			for i, path := range args {
				g.Go(func() error {
					source, err := readTemplate(cmd, path)
					if err != nil {
						return err
					}
					results[i] = validation{path: path, result: compiler.Validate(source)}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := jsont.NewMultiError()
			for _, v := range results {
				if err := v.result.Err(); err == nil {
					fmt.Fprintf(out, "%s %s (%d instructions)\n", color.Green.Sprint("ok"), v.path, v.result.Stats.TotalInstructions)
				} else {
					failed.Add(fmt.Errorf("%s: %w", v.path, err))
					fmt.Fprintf(out, "%s %s\n", color.Red.Sprint("fail"), v.path)
					for _, info := range v.result.Errors {
						fmt.Fprintf(out, "  %s\n", info.FullMessage())
						if h := hint(info, compiler); h != "" {
							fmt.Fprintf(out, "    %s\n", color.Cyan.Sprint(h))
						}
					}
				}
				if showStats {
					writeStats(out, v.result.Stats)
				}
			}
			if failed.Len() > 0 {
				jsont.GetLogger().WithField("errors", failed.Error()).Debug("Validation failed")
				return fmt.Errorf("%d of %d templates invalid", failed.Len(), len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showStats, "stats", false, "print code statistics for each template")
	return cmd
}
