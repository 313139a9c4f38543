package main

import (
	"context"
	"net"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/standardbeagle/tether/internal/agent"
	"github.com/standardbeagle/tether/internal/logging"
)

var agentCmd = &cobra.Command{
	Use:   "agent [host:port]",
	Short: "Run the reference agent",
	Long: `Connect to a tether server and answer its directives:
  INFO          reply with host facts
  ECHO|<msg>    reply with <msg>
  EXIT          disconnect and exit

Without an address the agent dials 127.0.0.1 on the configured port.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAgent,
}

func init() {
	agentCmd.Flags().Bool("reconnect", false, "Reconnect when the server drops the connection")
	agentCmd.Flags().Int("max-attempts", 0, "Give up after this many failed dials (0 = retry forever)")
	agentCmd.Flags().Duration("retry-max", 10*time.Second, "Maximum delay between dial attempts")
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.Server.Port))
	if len(args) == 1 {
		addr = args[0]
	}

	agentCfg := agent.DefaultConfig(addr)
	agentCfg.Reconnect, _ = cmd.Flags().GetBool("reconnect")
	agentCfg.MaxAttempts, _ = cmd.Flags().GetInt("max-attempts")
	agentCfg.RetryMax, _ = cmd.Flags().GetDuration("retry-max")
	agentCfg.ReadBufferSize = cfg.Server.ReadBufferSize

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer cancel()

	return agent.New(agentCfg, logger.Named("agent")).Run(ctx)
}
