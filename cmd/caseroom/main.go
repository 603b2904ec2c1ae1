package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/caseroom/internal/config"
	"github.com/danmuck/caseroom/internal/logging"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	logging.ConfigureRuntime()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "caseroom: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "caseroom",
		Short: "Cooperative LAN detective game",
		Long: `caseroom runs a cooperative investigation game over the local network.

One player hosts a case; others discover it on the LAN and join with a
public listing or a private join code.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "config file")

	load := func() (config.Config, error) {
		return config.Load(configPath)
	}
	root.AddCommand(
		playCmd(load),
		hostCmd(load),
		discoverCmd(load),
		configCmd(),
		versionCmd(),
	)
	return root
}

type loader func() (config.Config, error)
