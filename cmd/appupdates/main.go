package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"appupdates/internal/config"
	"appupdates/internal/debug"
	"appupdates/internal/update"
)

const spinnerDelay = 300 * time.Millisecond

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type runtimeFlags struct {
	variant      *string
	url          *string
	userAgent    *string
	noColor      *bool
	debug        *bool
	outputFormat *string
}

type runtimeOptions struct {
	variant      string
	url          string
	userAgent    string
	noColor      bool
	debug        bool
	outputFormat string
}

// env is what every subcommand needs.
type env struct {
	stdout     io.Writer
	stderr     io.Writer
	runtime    runtimeOptions
	checker    *update.Checker
	newSpinner func() stageReporter
}

func run(args []string, stdout, stderr io.Writer) int {
	if err := config.Initialize(); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error initializing config: %v\n", err)
		return 1
	}

	fs := flag.NewFlagSet("appupdates", flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := runtimeFlags{
		variant:      fs.String("variant", config.GetString(config.KeyUpdateVariant), "Manifest variant (open, default)"),
		url:          fs.String("url", config.GetString(config.KeyUpdateURL), "Manifest URL; overrides --variant"),
		userAgent:    fs.String("user-agent", config.GetString(config.KeyUpdateUserAgent), "User-Agent sent with the manifest request"),
		noColor:      fs.Bool("no-color", config.GetBool(config.KeyOutputNoColor), "Disable colored output"),
		debug:        fs.Bool("debug", config.GetBool(config.KeyDebug), "Write a debug log to ~/.appupdates/appupdates.log"),
		outputFormat: fs.String("output-format", config.GetString(config.KeyOutputFormat), "Changelog style (rich, light, plain)"),
	}
	versionFlag := fs.Bool("version", false, "Print version information and exit")
	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if *versionFlag {
		printVersion(stdout)
		return 0
	}

	visited := map[string]struct{}{}
	fs.Visit(func(f *flag.Flag) {
		visited[f.Name] = struct{}{}
	})
	runtime, err := computeRuntimeOptions(fs, flags, visited)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error applying flags: %v\n", err)
		return 1
	}

	if err := debug.Init("appupdates", runtime.debug); err != nil {
		_, _ = fmt.Fprintf(stderr, "Warning: debug log unavailable: %v\n", err)
	}
	defer debug.Close()
	if debug.Enabled() {
		_, _ = fmt.Fprintf(stderr, "Debug log: %s\n", debug.Path())
	}

	if runtime.noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	command := fs.Arg(0)
	rest := []string{}
	if fs.NArg() > 1 {
		rest = fs.Args()[1:]
	}
	if command == "" {
		printUsage(stderr, fs)
		return 2
	}
	if command == "version" {
		printVersion(stdout)
		return 0
	}

	manifestURL, err := update.ResolveManifestURL(runtime.url, runtime.variant)
	if err != nil {
		printError(stderr, err)
		return 1
	}
	debug.Logf("appupdates: command=%s url=%s", command, manifestURL)

	e := &env{
		stdout:  stdout,
		stderr:  stderr,
		runtime: runtime,
		checker: update.NewChecker(manifestURL, update.WithUserAgent(runtime.userAgent)),
		newSpinner: func() stageReporter {
			return newSpinnerFor(stderr)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var cmdErr error
	switch command {
	case "check":
		cmdErr = runCheck(ctx, e, rest)
	case "manifest":
		cmdErr = runManifest(ctx, e, rest)
	case "download":
		cmdErr = runDownload(ctx, e, rest)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		printUsage(stderr, fs)
		return 2
	}
	if cmdErr != nil {
		if cmdErr == flag.ErrHelp {
			return 0
		}
		// The flag package has already reported the problem.
		var ue usageError
		if errors.As(cmdErr, &ue) {
			return 2
		}
		printError(stderr, cmdErr)
		return 1
	}
	return 0
}

// usageError marks a malformed subcommand invocation.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func parseCommandFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return err
		}
		return usageError{err: err}
	}
	return nil
}

// computeRuntimeOptions layers explicitly set flags over the loaded
// configuration and reads the result back.
func computeRuntimeOptions(fs *flag.FlagSet, flags runtimeFlags, visited map[string]struct{}) (runtimeOptions, error) {
	overrides := map[string]any{}
	if flagWasExplicitlySet(fs, "variant", visited) {
		overrides[config.KeyUpdateVariant] = *flags.variant
	}
	if flagWasExplicitlySet(fs, "url", visited) {
		overrides[config.KeyUpdateURL] = *flags.url
	}
	if flagWasExplicitlySet(fs, "user-agent", visited) {
		overrides[config.KeyUpdateUserAgent] = *flags.userAgent
	}
	if flagWasExplicitlySet(fs, "no-color", visited) {
		overrides[config.KeyOutputNoColor] = *flags.noColor
	}
	if flagWasExplicitlySet(fs, "debug", visited) {
		overrides[config.KeyDebug] = *flags.debug
	}
	if flagWasExplicitlySet(fs, "output-format", visited) {
		overrides[config.KeyOutputFormat] = *flags.outputFormat
	}
	if err := config.ApplyOverrides(overrides); err != nil {
		return runtimeOptions{}, err
	}

	variant := strings.TrimSpace(config.GetString(config.KeyUpdateVariant))
	if variant == "" {
		variant = config.DefaultVariant
	}

	noColor := config.GetBool(config.KeyOutputNoColor)
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		noColor = true
	}

	return runtimeOptions{
		variant:      variant,
		url:          strings.TrimSpace(config.GetString(config.KeyUpdateURL)),
		userAgent:    strings.TrimSpace(config.GetString(config.KeyUpdateUserAgent)),
		noColor:      noColor,
		debug:        config.GetBool(config.KeyDebug),
		outputFormat: strings.TrimSpace(config.GetString(config.KeyOutputFormat)),
	}, nil
}

func flagWasExplicitlySet(fs *flag.FlagSet, name string, visited map[string]struct{}) bool {
	if _, ok := visited[name]; ok {
		return true
	}
	f := fs.Lookup(name)
	if f == nil {
		return false
	}
	return f.Value.String() != f.DefValue
}

// newSpinnerFor animates only on an interactive terminal.
func newSpinnerFor(w io.Writer) stageReporter {
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return newStageSpinner(f, spinnerDelay)
	}
	return nopReporter{}
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	_, _ = fmt.Fprintln(w, "Usage: appupdates [flags] <command> [command flags]")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Commands:")
	_, _ = fmt.Fprintln(w, "  check      print the apk value of the update manifest")
	_, _ = fmt.Fprintln(w, "  manifest   print every manifest field")
	_, _ = fmt.Fprintln(w, "  download   download the apk the manifest points at")
	_, _ = fmt.Fprintln(w, "  version    print version information")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Flags:")
	fs.SetOutput(w)
	fs.PrintDefaults()
}
