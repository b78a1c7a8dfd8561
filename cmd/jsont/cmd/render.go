package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fsnotify/fsnotify"
	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-jsont/pkg/jsont"
	"github.com/benjaminschreck/go-jsont/pkg/jsont/plugins"
)

type renderOptions struct {
	*rootOptions
	data     string
	partials string
	inject   []string
	output   string
	safe     bool
	include  bool
	watch    bool
}

func newRenderCmd(root *rootOptions) *cobra.Command {
	opts := &renderOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "render TEMPLATE",
		Short: "Render a template against data",
		Long: `Render a template file ("-" reads stdin) against a JSON or YAML data
document. --data also accepts an http(s) URL.

With --safe, errors are reported on stderr and rendering continues.
With --watch, the template and data files are rendered again whenever they change.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.watch {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
				defer stop()
				return opts.watchAndRender(ctx, cmd, args[0])
			}
			return opts.render(cmd.Context(), cmd, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.data, "data", "d", "", "data file or URL (JSON or YAML)")
	f.StringVarP(&opts.partials, "partials", "p", "", "file with an object of partial templates")
	f.StringArrayVarP(&opts.inject, "inject", "i", nil, "injectable data as name=FILE, repeatable")
	f.StringVarP(&opts.output, "output", "o", "", "write output to a file instead of stdout")
	f.BoolVar(&opts.safe, "safe", false, "record execution errors and keep rendering")
	f.BoolVar(&opts.include, "include", false, "enable {.include} instructions")
	f.BoolVarP(&opts.watch, "watch", "w", false, "render again when the inputs change")
	return cmd
}

func (o *renderOptions) render(ctx context.Context, cmd *cobra.Command, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	source, err := readTemplate(cmd, path)
	if err != nil {
		return err
	}
	data, err := loadData(ctx, o.data)
	if err != nil {
		return err
	}
	partials, err := loadPartials(o.partials)
	if err != nil {
		return err
	}
	injectables, err := loadInjectables(ctx, o.inject)
	if err != nil {
		return err
	}

	config := *o.config
	config.SafeExecution = config.SafeExecution || o.safe
	config.EnableInclude = config.EnableInclude || o.include

	result, err := plugins.NewEngine(&config).Render(ctx, source, data,
		jsont.WithPartials(partials),
		jsont.WithInjectables(injectables),
	)
	if err != nil {
		return err
	}
	if err := o.write(cmd.OutOrStdout(), result.Output); err != nil {
		return err
	}
	for _, info := range result.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.Yellow.Sprint("warning:"), info.FullMessage())
	}
	return nil
}

func (o *renderOptions) write(stdout io.Writer, output string) error {
	if o.output == "" {
		_, err := io.WriteString(stdout, output)
		return err
	}
	if err := os.WriteFile(o.output, []byte(output), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// watchAndRender renders once, then again on every write to the template,
// data or partials file until ctx is done. Render errors are printed and do
// not stop the watch.
func (o *renderOptions) watchAndRender(ctx context.Context, cmd *cobra.Command, path string) error {
	if path == "-" {
		return fmt.Errorf("--watch needs a template file, not stdin")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for _, file := range []string{path, o.data, o.partials} {
		if file == "" || isURL(file) {
			continue
		}
		if err := watcher.Add(file); err != nil {
			return fmt.Errorf("failed to watch %s: %w", file, err)
		}
	}

	logger := jsont.GetLogger()
	renderOnce := func() {
		if err := o.render(ctx, cmd, path); err != nil {
			printError(cmd.ErrOrStderr(), "render", err)
		}
	}
	renderOnce()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			logger.WithField("file", event.Name).Debug("Input changed")
			renderOnce()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithField("error", err.Error()).Warn("Watcher error")
		}
	}
}
