// Package main provides the inkpress CLI: it drives a real browser over the
// DevTools protocol to publish an article draft into a web editor, reusing
// the browser's login session instead of reverse-engineering the editor's
// API.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/inkpress/inkpress/pkg/browser"
	"github.com/inkpress/inkpress/pkg/clipboard"
	"github.com/inkpress/inkpress/pkg/config"
	"github.com/inkpress/inkpress/pkg/logging"
	"github.com/inkpress/inkpress/pkg/publisher"
)

const version = "0.1.0"

// imageFlag collects repeatable -image values of the form
// PLACEHOLDER=PATH[:ORIGINAL], e.g. "PH_1=/tmp/a.png:https://cdn/a.png".
type imageFlag struct {
	images []publisher.ImageInfo
}

func (f *imageFlag) String() string {
	parts := make([]string, len(f.images))
	for i, img := range f.images {
		parts[i] = img.Placeholder + "=" + img.LocalPath
	}
	return strings.Join(parts, ",")
}

func (f *imageFlag) Set(value string) error {
	placeholder, rest, ok := strings.Cut(value, "=")
	if !ok || placeholder == "" || rest == "" {
		return fmt.Errorf("want PLACEHOLDER=PATH[:ORIGINAL], got %q", value)
	}
	path, original, _ := strings.Cut(rest, ":")
	if path == "" {
		return fmt.Errorf("empty image path in %q", value)
	}
	f.images = append(f.images, publisher.ImageInfo{
		Placeholder:  placeholder,
		LocalPath:    path,
		OriginalPath: original,
	})
	return nil
}

// CLIConfig holds the flag-level configuration for one run.
type CLIConfig struct {
	Title   string
	Author  string
	Summary string

	HTMLPath string
	Content  string
	Images   imageFlag

	ProfilePath string
	Clipboard   string

	DebugPort      int
	BrowserPath    string
	BrowserProfile string
	Headless       bool

	LoginTimeout    time.Duration
	NewTabTimeout   time.Duration
	SaveConfirmWait time.Duration

	Submit      bool
	ShowVersion bool
}

func main() {
	env, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "inkpress: %v\n", err)
		os.Exit(1)
	}

	cli := parseFlags(env)
	if cli.ShowVersion {
		fmt.Printf("inkpress v%s\n", version)
		return
	}

	if err := run(cli); err != nil {
		fmt.Fprintf(os.Stderr, "inkpress: %v\n", err)
		fmt.Fprintf(os.Stderr, "inkpress: the browser window stays open for inspection; full log at %s\n", logging.LogPath())
		os.Exit(1)
	}
}

// parseFlags parses the command line, with environment values as defaults.
func parseFlags(env config.Config) *CLIConfig {
	cli := &CLIConfig{}

	flag.StringVar(&cli.Title, "title", "", "Article title (required)")
	flag.StringVar(&cli.Author, "author", "", "Article author")
	flag.StringVar(&cli.Summary, "summary", "", "Article summary")
	flag.StringVar(&cli.HTMLPath, "html", "", "Path of the HTML document to publish")
	flag.StringVar(&cli.Content, "content", "", "Plain text body, typed instead of pasted")
	flag.Var(&cli.Images, "image", "Image mapping PLACEHOLDER=PATH[:ORIGINAL]; repeatable")
	flag.StringVar(&cli.ProfilePath, "profile", env.EditorProfile, "Editor profile YAML; empty uses the built-in default")
	flag.StringVar(&cli.Clipboard, "clipboard", env.Clipboard, "Clipboard strategy: auto, system, or synthetic")
	flag.IntVar(&cli.DebugPort, "port", env.DebugPort, "Pin the CDP debugging port; 0 probes the default and launches on a free port")
	flag.StringVar(&cli.BrowserPath, "browser", env.BrowserPath, "Browser binary; empty discovers one")
	flag.StringVar(&cli.BrowserProfile, "browser-profile", env.BrowserProfileDir, "User-data directory for a launched browser")
	flag.BoolVar(&cli.Headless, "headless", env.Headless, "Launch the browser without a window")
	flag.DurationVar(&cli.LoginTimeout, "login-timeout", env.LoginTimeout, "How long to wait for a human to finish logging in")
	flag.DurationVar(&cli.NewTabTimeout, "tab-timeout", env.NewTabTimeout, "How long to wait for the composer tab")
	flag.DurationVar(&cli.SaveConfirmWait, "confirm-wait", env.SaveConfirmWait, "How long to wait for the save confirmation")
	flag.BoolVar(&cli.Submit, "submit", true, "Activate the save control; false leaves the draft open")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "inkpress - publish an article draft through a real browser\n\n")
		fmt.Fprintf(os.Stderr, "Usage: inkpress [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Publish a rendered HTML document\n")
		fmt.Fprintf(os.Stderr, "  inkpress -title \"Release notes\" -html notes.html\n\n")
		fmt.Fprintf(os.Stderr, "  # Map a local screenshot into its placeholder\n")
		fmt.Fprintf(os.Stderr, "  inkpress -title \"Demo\" -html demo.html -image PH_1=/tmp/shot.png\n\n")
		fmt.Fprintf(os.Stderr, "  # Stage a draft without saving it\n")
		fmt.Fprintf(os.Stderr, "  inkpress -title \"Draft\" -content \"Hello\" -submit=false\n\n")
	}

	flag.Parse()
	return cli
}

func run(cli *CLIConfig) error {
	if cli.Title == "" {
		return fmt.Errorf("a -title is required")
	}

	profile := publisher.DefaultProfile()
	if cli.ProfilePath != "" {
		var err error
		if profile, err = publisher.LoadProfile(cli.ProfilePath); err != nil {
			return err
		}
	}

	bridge, err := clipboard.Detect(cli.Clipboard)
	if err != nil {
		return err
	}

	log := logging.NewEcho("cli")
	log.Infof("run %s started, log at %s", logging.RunID(), logging.LogPath())
	log.Infof("editor profile %q, clipboard bridge %q", profile.Name, bridge.Name())

	pub, err := publisher.New(publisher.Options{
		Profile: profile,
		Bridge:  bridge,
		Attach: browser.AttachOptions{
			PortOverride: cli.DebugPort,
			Launch: browser.LaunchOptions{
				BinaryPath: cli.BrowserPath,
				ProfileDir: cli.BrowserProfile,
				Port:       cli.DebugPort,
				Headless:   cli.Headless,
			},
		},
		LoginTimeout:    cli.LoginTimeout,
		NewTabTimeout:   cli.NewTabTimeout,
		SaveConfirmWait: cli.SaveConfirmWait,
	})
	if err != nil {
		return err
	}

	result, err := pub.Run(publisher.PublishRequest{
		Title:        cli.Title,
		Author:       cli.Author,
		Summary:      cli.Summary,
		HTMLPath:     cli.HTMLPath,
		PlainContent: cli.Content,
		Images:       cli.Images.images,
		Submit:       cli.Submit,
	})
	if err != nil {
		return err
	}

	report(result)
	return nil
}

// report prints the human-facing outcome summary.
func report(res *publisher.Result) {
	if res.Confirmed {
		fmt.Println("published: the editor confirmed the save")
	} else {
		fmt.Println("finished: no confirmation observed, check the open browser window")
	}
	if res.ImagesInserted > 0 {
		fmt.Printf("images inserted: %d\n", res.ImagesInserted)
	}
	for _, ph := range res.SkippedPlaceholders {
		fmt.Printf("warning: placeholder %s was skipped\n", ph)
	}
	if res.LaunchedBrowser {
		fmt.Println("note: a browser was launched for this run and stays open")
	}
}
