package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	node "github.com/cody-wang-cb/rollup-boost/cmd"
	"github.com/cody-wang-cb/rollup-boost/config"
)

var rootCmd = &cobra.Command{
	Use:   "rollup-boost",
	Short: "Serve the engine API of an execution engine, assembling payloads from block builder flashblocks",
	Long: `rollup-boost sits between the consensus client and the execution engine of a rollup node.
It forwards engine API requests to the execution engine, folds the flashblocks streamed by the
block builder into the payload being built and serves that payload on get payload requests.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	config.InitializeFlags(rootCmd.Flags(), config.DefaultConfig())
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	v, err := config.NewViper(cmd.Flags())
	if err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	log, err := node.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	log.Info().
		Str("engine_url", cfg.EngineURL).
		Str("flashblocks_url", cfg.FlashblocksURL).
		Msg("rollup-boost starting up")

	n, err := node.NewNode(log, cfg)
	if err != nil {
		return fmt.Errorf("could not create node: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return n.Run(ctx)
}
