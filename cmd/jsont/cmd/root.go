// Package cmd implements the jsont command line tool.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-jsont/pkg/jsont"
	"github.com/benjaminschreck/go-jsont/pkg/jsont/plugins"
)

type rootOptions struct {
	configFile string
	verbose    bool
	noColor    bool

	config *jsont.Config
}

// Execute runs the root command against os.Args.
func Execute() error {
	root := newRootCmd()
	err := root.Execute()
	if err != nil {
		printError(root.ErrOrStderr(), root.Name(), err)
	}
	return err
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "jsont",
		Short: "JSON template compiler and renderer",
		Long: `jsont compiles JSON templates and renders them against JSON or YAML data.

Templates use {variable|formatter} substitutions, {.section}, {.repeated section},
{.if}, predicate blocks and {.eval} expressions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (.yaml, .toml or .hcl)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newRenderCmd(opts),
		newValidateCmd(opts),
		newASTCmd(opts),
		newReprCmd(opts),
		newTreeCmd(opts),
		newStatsCmd(opts),
		newEvalCmd(opts),
		newVersionCmd(),
	)
	return root
}

// load layers the config file and environment, then applies the global
// flags on top.
func (o *rootOptions) load() error {
	config, err := jsont.LoadConfig(o.configFile)
	if err != nil {
		return err
	}
	if o.verbose {
		config.LogLevel = "debug"
	}
	jsont.SetGlobalConfig(config)
	o.config = config

	if o.noColor {
		color.Enable = false
	}
	return nil
}

func (o *rootOptions) compiler() *jsont.Compiler {
	return jsont.NewCompiler(plugins.Defaults())
}

// readTemplate reads a template file, or stdin for "-".
func readTemplate(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read template: %w", err)
	}
	return string(data), nil
}

func printError(w io.Writer, msg string, err error) {
	fmt.Fprintf(w, "%s %s: %v\n", color.Red.Sprint("error:"), msg, err)
}

// compileFile compiles a template strictly with the core plugins.
func (o *rootOptions) compileFile(cmd *cobra.Command, path string) (*jsont.RootInst, error) {
	source, err := readTemplate(cmd, path)
	if err != nil {
		return nil, err
	}
	tmpl, err := o.compiler().Compile(source, jsont.CompileOptions{Mode: jsont.ModeStrict})
	if err != nil {
		return nil, err
	}
	return tmpl.Code, nil
}
