package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/benjaminschreck/go-jsont/pkg/jsont"
)

func newASTCmd(root *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "ast TEMPLATE",
		Short: "Print the compiled template as an opcode array",
		Long: `Print the compiled instruction tree in the compact array form, either as
JSON or as MessagePack bytes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := root.compileFile(cmd, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch format {
			case "json":
				_, err = fmt.Fprintln(out, jsont.ASTJSON(code))
			case "msgpack":
				var b []byte
				if b, err = msgpack.Marshal(jsont.AST(code)); err == nil {
					_, err = out.Write(b)
				}
			default:
				err = fmt.Errorf("unknown format %q, expected json or msgpack", format)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or msgpack")
	return cmd
}
