package main

import (
	"fmt"
	"time"

	"github.com/danmuck/caseroom/internal/discovery"
	"github.com/spf13/cobra"
)

func discoverCmd(load loader) *cobra.Command {
	var (
		wait time.Duration
		all  bool
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Listen for advertised games and print them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			l := discovery.NewListener(cfg.Discovery, nil)
			if err := l.Start(cmd.Context()); err != nil {
				return err
			}
			defer l.Stop()

			select {
			case <-time.After(wait):
			case <-cmd.Context().Done():
			}

			games := l.Games()
			if all {
				games = l.Registry().List()
			}
			out := cmd.OutOrStdout()
			if len(games) == 0 {
				fmt.Fprintln(out, "no games found")
				return nil
			}
			for i, g := range games {
				visibility := "public"
				if !g.IsPublic {
					visibility = "private"
				}
				fmt.Fprintf(out, "%d) %s  host=%s  players=%d/%d  %s  %s\n",
					i+1, g.DisplayName, g.HostDisplayName, g.PlayerCount, g.MaxPlayers, visibility, g.Address())
			}
			return nil
		},
	}
	cmd.Flags().DurationVarP(&wait, "wait", "w", 3*time.Second, "how long to listen")
	cmd.Flags().BoolVar(&all, "all", false, "include private games")
	return cmd
}
