package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-jsont/pkg/jsont"
)

func newTreeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tree TEMPLATE",
		Short: "Print the compiled instruction tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := root.compileFile(cmd, args[0])
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), jsont.Tree(code))
			return err
		},
	}
}
