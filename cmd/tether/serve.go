package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/tether/internal/config"
	"github.com/standardbeagle/tether/internal/console"
	"github.com/standardbeagle/tether/internal/events"
	"github.com/standardbeagle/tether/internal/logging"
	"github.com/standardbeagle/tether/internal/server"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept agents and run the operator console",
	Long: `Listen for agent connections and read operator commands from stdin.

The listening port comes from, in increasing precedence: the default (3001),
the config file, the TETHER_PORT environment variable and --port.

The console exits on end of input, which stops the server. Use --no-console
to run without reading stdin until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("host", "H", "", "Interface to bind")
	cmd.Flags().IntP("port", "p", server.DefaultPort, "TCP port agents connect to")
	cmd.Flags().Int("max-clients", 0, "Maximum concurrent agents (0 = unlimited)")
	cmd.Flags().Bool("events", false, "Serve the websocket event feed")
	cmd.Flags().String("events-addr", "", "Event feed listen address")
	cmd.Flags().Bool("no-console", false, "Do not read operator commands from stdin")
}

func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		MaxClients:     cfg.Server.MaxClients,
		WriteTimeout:   cfg.Server.WriteTimeout,
		ReadBufferSize: cfg.Server.ReadBufferSize,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	// Create root context with signal cancellation
	ctx, cancel := signal.NotifyContext(cmd.Context(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer cancel()

	srv := server.New(serverConfig(cfg), logger)
	if err := srv.Start(); err != nil {
		return err
	}

	noConsole, _ := cmd.Flags().GetBool("no-console")
	interactive := !noConsole && console.IsTerminal(os.Stdin)
	con := console.New(cmd.InOrStdin(), cmd.OutOrStdout(), srv.Registry(), srv.Dispatcher(),
		console.WithPrompt(interactive),
		console.WithColor(!color.NoColor),
		console.WithLogger(logger.Named("console")),
	)
	srv.Registry().Subscribe(con.Observer())

	var feed *events.Feed
	if cfg.Events.Enabled {
		feed = events.NewFeed(cfg.Events.Addr, srv.Registry(), logger.Named("events"))
		if err := feed.Start(); err != nil {
			stopServer(srv, logger)
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "[*] listening on %s\n", srv.Addr())
	if feed != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "[*] event feed on http://%s/events\n", feed.Addr())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx)
	})
	if !noConsole {
		g.Go(func() error {
			// End of operator input shuts the server down.
			defer cancel()
			return con.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		var errs []error
		if feed != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			errs = append(errs, feed.Stop(shutdownCtx))
			shutdownCancel()
		}
		errs = append(errs, stopServer(srv, logger))
		return errors.Join(errs...)
	})

	return g.Wait()
}

func stopServer(srv *server.Server, logger *zap.Logger) error {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
		return err
	}
	return nil
}
