package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PrinceLee1/lovey-dovey/internal/config"
	"github.com/PrinceLee1/lovey-dovey/internal/game"
	"github.com/PrinceLee1/lovey-dovey/internal/ws"
)

func newCmd() *cobra.Command {
	cfg := &config.Config{}

	cmd := &cobra.Command{
		Use:     "lovey",
		Short:   "Headless lovey-dovey client: join a lobby or couple session and play its mini-games.",
		Version: releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Bind(cmd.Root().PersistentFlags()); err != nil {
				return err
			}
			return setupLogging(*cfg, os.Stderr)
		},
	}
	cfg.Flags(cmd.PersistentFlags())

	cmd.AddCommand(
		&cobra.Command{
			Use:   "lobby CODE",
			Short: "Join a lobby: presence, chat and the team games it starts",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := cfg.Validate(true); err != nil {
					return err
				}
				return serve(cmd.Context(), *cfg, ws.ModeLobby, strings.ToUpper(args[0]))
			},
		},
		&cobra.Command{
			Use:   "couple CODE",
			Short: "Join a couple session and follow its turns",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := cfg.Validate(true); err != nil {
					return err
				}
				return serve(cmd.Context(), *cfg, ws.ModeCouple, args[0])
			},
		},
		&cobra.Command{
			Use:       "play KIND",
			Short:     "Play a catalog game on this machine, by id (g1) or kind (truth_dare)",
			Args:      cobra.ExactArgs(1),
			ValidArgs: catalogArgs(),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := cfg.Validate(false); err != nil {
					return err
				}
				return serve(cmd.Context(), *cfg, ws.ModeSolo, args[0])
			},
		},
	)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("lovey v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func catalogArgs() []string {
	var out []string
	for _, e := range game.Catalog() {
		out = append(out, e.ID, string(e.Kind))
	}
	return out
}
