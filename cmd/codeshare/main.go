package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/codeshare-server/internal/identity"
	"github.com/vovakirdan/codeshare-server/internal/keygen"
	"github.com/vovakirdan/codeshare-server/internal/log"
)

type globalFlags struct {
	settingsPath string
	server       string
	logLevel     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "codeshare",
		Short:         "Headless client for shared code rooms",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.settingsPath, "settings", "", "settings file (default $HOME/.codeshare/settings.yaml)")
	pf.StringVar(&g.server, "server", "ws://localhost:8080/ws", "store server WebSocket URL")
	pf.StringVar(&g.logLevel, "log-level", "info", "debug, info, warn or error")

	root.AddCommand(newSettingsCmd(g), newKeyCmd(), newJoinCmd(g), newPushCmd(g))
	return root
}

func (g *globalFlags) path() (string, error) {
	if g.settingsPath != "" {
		return g.settingsPath, nil
	}
	return identity.DefaultPath()
}

// loadIdentity returns the saved identity or a hint to run settings first.
func (g *globalFlags) loadIdentity() (identity.LocalIdentity, error) {
	path, err := g.path()
	if err != nil {
		return identity.LocalIdentity{}, err
	}
	local, err := identity.Load(path)
	if err != nil {
		return local, err
	}
	if !local.Complete() {
		return local, fmt.Errorf("%w (run: codeshare settings --name <name>)", identity.ErrIncomplete)
	}
	return local, nil
}

func newSettingsCmd(g *globalFlags) *cobra.Command {
	var name, theme, color string

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the local identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := g.path()
			if err != nil {
				return err
			}
			local, err := identity.Load(path)
			if err != nil {
				return err
			}

			f := cmd.Flags()
			if f.Changed("name") {
				local.UserName = name
			}
			if f.Changed("theme") {
				local.Theme = theme
			}
			if f.Changed("color") {
				local.Color = color
			}
			if f.NFlag() > 0 {
				if local.UserName == "" {
					return identity.ErrIncomplete
				}
				if local, err = identity.Save(path, local); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "user_code: %s\nuser_name: %s\ntheme: %s\ncolor: %s\n",
				local.UserCode, local.UserName, local.Theme, local.Color)
			if local.Key != "" {
				fmt.Fprintf(out, "last room: %s\n", local.Key)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&theme, "theme", "", "editor theme (vs, vs-dark, hc-black)")
	cmd.Flags().StringVar(&color, "color", "", "presence color")
	return cmd
}

func newKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Print a fresh room key",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), keygen.NewKey())
		},
	}
}

func (g *globalFlags) logger() *zerolog.Logger {
	return log.NewWithWriter(os.Stderr, g.logLevel, "console")
}
