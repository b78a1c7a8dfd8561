package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-jsont/pkg/jsont"
)

func newReprCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repr TEMPLATE",
		Short: "Print the canonical text of a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := root.compileFile(cmd, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), jsont.Repr(code))
			return err
		},
	}
}
