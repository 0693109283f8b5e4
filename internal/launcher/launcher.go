// Package launcher hands authorization URLs to the operating system.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os/exec"
	"runtime"
	"slices"
	"sync"

	"github.com/pkg/browser"
)

var (
	// ErrNoHandler is returned when nothing on the system can open a URL
	ErrNoHandler = errors.New("no handler for URL")

	// ErrUnsupportedScheme is returned for URLs that are not http(s)
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
)

// Launcher is the OS-level URL capability check and open action
type Launcher interface {
	// CanOpenURL reports whether a handler exists for rawURL
	CanOpenURL(ctx context.Context, rawURL string) (bool, error)

	// OpenURL hands rawURL to the handler
	OpenURL(ctx context.Context, rawURL string) error
}

var allowedSchemes = []string{"http", "https"}

func checkURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if !slices.Contains(allowedSchemes, u.Scheme) {
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}
	return nil
}

// openerCommands lists the programs pkg/browser shells out to per OS
func openerCommands(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"open"}
	case "windows":
		return []string{"rundll32"}
	default:
		return []string{"xdg-open", "x-www-browser", "www-browser"}
	}
}

// SystemLauncher opens URLs in the user's default browser
type SystemLauncher struct {
	logger   *slog.Logger
	lookPath func(string) (string, error)
	open     func(string) error
	goos     string
}

// NewSystemLauncher creates a launcher backed by the desktop's browser.
// Browser output is sent to out instead of the process stdout.
func NewSystemLauncher(logger *slog.Logger, out io.Writer) *SystemLauncher {
	setBrowserOutput(out)
	return &SystemLauncher{
		logger:   logger,
		lookPath: exec.LookPath,
		open:     browser.OpenURL,
		goos:     runtime.GOOS,
	}
}

var browserOutputOnce sync.Once

func setBrowserOutput(out io.Writer) {
	if out == nil {
		out = io.Discard
	}
	browserOutputOnce.Do(func() {
		browser.Stdout = out
		browser.Stderr = out
	})
}

// CanOpenURL checks the URL and looks for an opener program on PATH
func (l *SystemLauncher) CanOpenURL(ctx context.Context, rawURL string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := checkURL(rawURL); err != nil {
		return false, err
	}
	for _, cmd := range openerCommands(l.goos) {
		if _, err := l.lookPath(cmd); err == nil {
			return true, nil
		}
	}
	l.logger.Debug("No URL opener found", "candidates", openerCommands(l.goos))
	return false, nil
}

// OpenURL launches the browser; it returns once the opener has been started
func (l *SystemLauncher) OpenURL(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkURL(rawURL); err != nil {
		return err
	}
	if err := l.open(rawURL); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

// PrintLauncher writes URLs to a writer for headless hosts where the user
// copies the link into a browser on another machine
type PrintLauncher struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPrintLauncher creates a launcher that prints to out
func NewPrintLauncher(out io.Writer) *PrintLauncher {
	return &PrintLauncher{out: out}
}

// CanOpenURL accepts any well-formed http(s) URL
func (l *PrintLauncher) CanOpenURL(ctx context.Context, rawURL string) (bool, error) {
	if err := checkURL(rawURL); err != nil {
		return false, err
	}
	return true, nil
}

// OpenURL prints the URL
func (l *PrintLauncher) OpenURL(ctx context.Context, rawURL string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := fmt.Fprintf(l.out, "Open this URL in your browser to continue:\n  %s\n", rawURL); err != nil {
		return fmt.Errorf("failed to print URL: %w", err)
	}
	return nil
}

// New returns the launcher named by kind ("system" or "print")
func New(kind string, logger *slog.Logger, out io.Writer) (Launcher, error) {
	switch kind {
	case "", "system":
		return NewSystemLauncher(logger, out), nil
	case "print":
		return NewPrintLauncher(out), nil
	default:
		return nil, fmt.Errorf("unknown launcher %q (must be 'system' or 'print')", kind)
	}
}
