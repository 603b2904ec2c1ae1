package main

import (
	"context"
	"fmt"
	"os"

	"github.com/danmuck/caseroom/internal/casefile"
	"github.com/danmuck/caseroom/internal/client"
	"github.com/danmuck/caseroom/internal/command"
	"github.com/danmuck/caseroom/internal/config"
	"github.com/danmuck/caseroom/internal/discovery"
	"github.com/danmuck/caseroom/internal/host"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func playCmd(load loader) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Open the game console and look for games on the LAN",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if name != "" {
				cfg.DisplayName = name
			}
			return runConsole(cmd, cfg, false)
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	return cmd
}

func hostCmd(load loader) *cobra.Command {
	var (
		name     string
		caseFile string
		private  bool
		status   string
	)

	cmd := &cobra.Command{
		Use:   "host",
		Short: "Host a case and play it as the host",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if name != "" {
				cfg.DisplayName = name
				cfg.Host.HostDisplayName = name
			}
			if caseFile != "" {
				cfg.CaseFile = caseFile
			}
			if private {
				cfg.Host.Public = false
			}
			if status != "" {
				cfg.Host.StatusAddr = status
			}
			return runConsole(cmd, cfg, true)
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	cmd.Flags().StringVar(&caseFile, "case", "", "case file (default: built-in demo case)")
	cmd.Flags().BoolVar(&private, "private", false, "do not list the game publicly")
	cmd.Flags().StringVar(&status, "status", "", "status HTTP address, e.g. 127.0.0.1:9180")
	return cmd
}

// runConsole starts discovery, builds the client and reads commands from stdin.
func runConsole(cmd *cobra.Command, cfg config.Config, hostNow bool) error {
	ctx := cmd.Context()
	listener := discovery.NewListener(cfg.Discovery, nil)
	if err := listener.Start(ctx); err != nil {
		// Host and join still work without discovery; only listing is affected.
		log.Error().Err(err).Msg("caseroom discovery unavailable")
	} else {
		defer listener.Stop()
	}

	c, err := client.New(client.Config{
		DisplayName: cfg.DisplayName,
		Session:     cfg.Host.Session,
		Directory:   listener,
		Host:        hostFunc(cfg),
		Out:         cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}
	if hostNow {
		if err := c.Execute(ctx, &command.HostGame{}); err != nil {
			return err
		}
	}
	return client.RunConsole(ctx, c, os.Stdin)
}

func hostFunc(cfg config.Config) client.HostFunc {
	return func(ctx context.Context, displayName string) (client.Hosted, error) {
		kase, err := casefile.LoadOrDemo(cfg.CaseFile)
		if err != nil {
			return nil, err
		}
		hc := cfg.Host
		hc.HostDisplayName = displayName
		srv, err := host.NewServer(hc, kase)
		if err != nil {
			return nil, err
		}
		if err := srv.Start(ctx); err != nil {
			return nil, err
		}
		log.Info().
			Str("case", kase.Title).
			Str("addr", fmt.Sprint(srv.Addr())).
			Msg("caseroom hosting")
		return srv, nil
	}
}
