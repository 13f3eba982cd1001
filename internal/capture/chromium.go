// Package capture screenshots a rendered card page with headless Chromium.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	appLog "tripcard/internal/log"
)

// Defaults match the widest card layout (.nt-card max-width plus page padding).
const (
	DefaultWidth   = 1320
	DefaultHeight  = 900
	DefaultTimeout = 30 * time.Second
)

// ReadySelector matches the page root once the card markup is in place.
const ReadySelector = `[data-ready="true"]`

// Options defines one screenshot.
type Options struct {
	// URL of a card page, e.g. "http://127.0.0.1:8080/cards/trip".
	URL string

	// OutputPath receives the PNG.
	OutputPath string

	// Width and Height are the viewport in CSS pixels; zero uses the defaults.
	Width  int
	Height int

	// Timeout bounds the whole capture; zero uses DefaultTimeout.
	Timeout time.Duration
}

func (o *Options) normalize() error {
	if o.URL == "" {
		return errors.New("capture: URL is required")
	}
	if o.OutputPath == "" {
		return errors.New("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// Tasks returns the chromedp actions that navigate to the page, wait for
// ReadySelector and store a full-page screenshot in buf.
func Tasks(opts Options, buf *[]byte) chromedp.Tasks {
	return chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		// Let fonts and the final paint settle.
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.FullScreenshot(buf, 100),
	}
}

// CardPNG launches headless Chromium, captures opts.URL and writes the PNG
// to opts.OutputPath.
func CardPNG(parent context.Context, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	start := time.Now()
	var png []byte
	if err := chromedp.Run(ctx, Tasks(opts, &png)); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if dir := filepath.Dir(opts.OutputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("capture: create output dir: %w", err)
		}
	}
	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}

	appLog.Info("card captured", "output", opts.OutputPath, "bytes", len(png), "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}
