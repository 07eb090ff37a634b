package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"

	"appupdates/internal/config"
	"appupdates/internal/update"
)

// copyToClipboard is replaced in tests.
var copyToClipboard = clipboard.WriteAll

type checkResult struct {
	apk string
	err error
}

func runCheck(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	jsonOut := fs.Bool("json", false, "Print {\"apk\": ...} as JSON")
	copyOut := fs.Bool("copy", false, "Copy the apk value to the clipboard")
	if err := parseCommandFlags(fs, args); err != nil {
		return err
	}

	sp := e.newSpinner()
	sp.Stage(stageFetchingManifest, e.checker.URL())

	results := make(chan checkResult, 1)
	e.checker.GetCurrentVersion(ctx, func(apk string, err error) {
		results <- checkResult{apk: apk, err: err}
	})

	var res checkResult
	select {
	case res = <-results:
	case <-ctx.Done():
		res.err = ctx.Err()
	}
	sp.Stop()
	if res.err != nil {
		return res.err
	}

	if *jsonOut {
		out, err := json.Marshal(map[string]string{"apk": res.apk})
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(e.stdout, string(out))
	} else {
		_, _ = fmt.Fprintln(e.stdout, res.apk)
	}

	if *copyOut && res.apk != "" {
		if err := copyToClipboard(res.apk); err != nil {
			_, _ = fmt.Fprintf(e.stderr, "Warning: could not copy to clipboard: %v\n", err)
		} else {
			_, _ = fmt.Fprintln(e.stderr, styleDim.Render("Copied to clipboard."))
		}
	}
	return nil
}

func runManifest(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("manifest", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	width := fs.Int("width", 80, "Wrap the changelog at this width")
	if err := parseCommandFlags(fs, args); err != nil {
		return err
	}

	sp := e.newSpinner()
	sp.Stage(stageFetchingManifest, e.checker.URL())
	m, err := e.checker.FetchManifestAsync(ctx).Wait(ctx)
	sp.Stop()
	if err != nil {
		return err
	}

	printManifest(e.stdout, m, buildMarkdownRenderer(e.runtime.outputFormat, *width))
	return nil
}

func runDownload(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	dir := fs.String("dir", config.GetString(config.KeyDownloadDir), "Directory to save the apk in")
	skipProbe := fs.Bool("skip-probe", false, "Download without checking the URL first")
	if err := parseCommandFlags(fs, args); err != nil {
		return err
	}

	sp := e.newSpinner()
	defer sp.Stop()

	sp.Stage(stageFetchingManifest, e.checker.URL())
	apkURL, err := e.checker.CurrentVersionAsync(ctx).Wait(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(apkURL) == "" {
		return fmt.Errorf("manifest at %s has no apk URL", e.checker.URL())
	}

	dl := update.NewDownloader()
	if !*skipProbe {
		sp.Stage(stageProbingAPK, apkURL)
		ok, err := dl.Probe(ctx, apkURL)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s did not answer a range request; use --skip-probe to download anyway", apkURL)
		}
	}

	sp.Stage(stageDownloadingAPK, apkURL)
	path, err := dl.Download(ctx, apkURL, *dir)
	if err != nil {
		return err
	}
	sp.Stop()

	size := ""
	if info, err := os.Stat(path); err == nil {
		size = " (" + humanize.Bytes(uint64(info.Size())) + ")"
	}
	_, _ = fmt.Fprintln(e.stdout, styleSuccess.Render("Saved")+" "+path+styleDim.Render(size))
	return nil
}
