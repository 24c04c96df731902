package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/use-agent/notecrawl/crawler"
	"github.com/use-agent/notecrawl/models"
)

// Confirmer blocks until the user has finished signing in on tab.
type Confirmer interface {
	Confirm(ctx context.Context, tab crawler.Tab) error
}

// EnterConfirmer waits for a line on In.
type EnterConfirmer struct {
	In     io.Reader // default: os.Stdin
	Out    io.Writer
	Prompt string
}

// Confirm implements Confirmer.
func (c EnterConfirmer) Confirm(ctx context.Context, _ crawler.Tab) error {
	if c.Out != nil {
		prompt := c.Prompt
		if prompt == "" {
			prompt = "Sign in in the browser window, then press Enter to continue..."
		}
		fmt.Fprintln(c.Out, prompt)
	}

	in := c.In
	if in == nil {
		in = os.Stdin
	}

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(in).ReadString('\n')
		if errors.Is(err, io.EOF) {
			err = nil
		}
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SelectorConfirmer polls the tab until Selector is present.
type SelectorConfirmer struct {
	Selector string
	Interval time.Duration // default: 1s
}

// Confirm implements Confirmer.
func (c SelectorConfirmer) Confirm(ctx context.Context, tab crawler.Tab) error {
	interval := c.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_, found, err := tab.OuterHTML(ctx, c.Selector)
		if err != nil && ctx.Err() == nil {
			slog.Debug("login marker lookup failed", "selector", c.Selector, "error", err)
		}
		if found {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SignIn opens the home page on tab, waits for confirm and then calls save
// to persist the signed-in state.
func SignIn(ctx context.Context, tab crawler.Tab, confirm Confirmer, save func() error) error {
	if err := tab.Navigate(ctx, HomeURL); err != nil {
		return models.NewScrapeError(models.ErrCodeLogin, "failed to open home page", err)
	}

	slog.Info("waiting for sign-in confirmation")
	if err := confirm.Confirm(ctx, tab); err != nil {
		return models.NewScrapeError(models.ErrCodeLogin, "sign-in was not confirmed", err)
	}

	if err := save(); err != nil {
		return models.NewScrapeError(models.ErrCodeLogin, "failed to save session", err)
	}
	slog.Info("sign-in saved")
	return nil
}
