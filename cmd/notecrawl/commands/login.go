package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/use-agent/notecrawl/scraper"
	"github.com/use-agent/notecrawl/session"
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Opens a browser window to sign in and saves the session cookies.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ext, err := session.Extractor(cfg.Crawl)
		if err != nil {
			return err
		}

		bc := cfg.Browser
		bc.Headless = false
		b, err := scraper.NewBrowser(bc)
		if err != nil {
			return err
		}
		defer b.Close()

		tab, err := b.NewTab()
		if err != nil {
			return err
		}
		defer tab.Close()

		var confirm session.Confirmer = session.EnterConfirmer{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
		if cfg.Session.LoginConfirm == "selector" {
			confirm = session.SelectorConfirmer{Selector: ext.Selectors().LoggedIn}
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Session.LoginTimeout)
		defer cancel()

		store := scraper.NewCookieStore(cfg.Session.CookiePath)
		if err := session.SignIn(ctx, tab, confirm, func() error { return store.Save(b) }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "session saved to %s\n", store.Path())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Deletes the saved session cookies.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := scraper.NewCookieStore(cfg.Session.CookiePath)
		if !store.Exists() {
			fmt.Fprintln(cmd.OutOrStdout(), "no saved session")
			return nil
		}
		if err := store.Delete(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", store.Path())
		return nil
	},
}
