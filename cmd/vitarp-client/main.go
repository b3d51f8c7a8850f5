// Command vitarp-client is the headless CLI shell around the core
// streaming client, replacing a desktop GUI bridge with a cobra command
// that wires the same components a graphical frontend would have bound.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"vitarp/internal/client"
	"vitarp/internal/config"
	"vitarp/internal/discovery"
	"vitarp/internal/logging"
	"vitarp/internal/serveraddr"
	"vitarp/internal/transport"
)

var (
	configPath    string
	metricsAddr   string
	discoveryAddr string
	serverAddr    string
)

func main() {
	root := &cobra.Command{
		Use:   "vitarp-client",
		Short: "Headless PlayStation Remote Play streaming client core",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.toml (default: OS user config dir)")

	stream := &cobra.Command{
		Use:   "stream",
		Short: "Connect to a console and run the streaming session",
		RunE:  runStream,
	}
	stream.Flags().StringVar(&serverAddr, "server", "", "console host:port to dial (required)")
	stream.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve /metrics on (empty disables)")
	stream.Flags().StringVar(&discoveryAddr, "discovery-addr", "", "address to run the beacon discovery listener on (empty disables)")
	_ = stream.MarkFlagRequired("server")
	root.AddCommand(stream)

	discover := &cobra.Command{
		Use:   "discover",
		Short: "Run only the console discovery beacon listener",
		RunE:  runDiscover,
	}
	discover.Flags().StringVar(&discoveryAddr, "addr", ":9302", "address to listen on")
	root.AddCommand(discover)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runStream(cmd *cobra.Command, args []string) error {
	target, err := serveraddr.Normalize(serverAddr)
	if err != nil {
		return err
	}

	cfgFile, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, _, logFile := logging.New(
		logging.Profile(cfgFile.Settings.Logging.Profile),
		cfgFile.Settings.Logging.QueueDepth,
		cfgFile.Settings.Logging.Path,
	)
	if logFile != nil {
		defer logFile.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	t := transport.NewWebRTCSessionTransport()
	c := client.New(cfgFile.Settings, t, logger)

	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		c.EnablePrometheus(reg, 2*time.Second)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server failed", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	if discoveryAddr != "" {
		l := discovery.NewListener(logger.With("component", "discovery"))
		go func() {
			if err := l.ListenAndServe(ctx, discoveryAddr); err != nil {
				logger.Warn("discovery listener failed", "error", err)
			}
		}()
	}

	logger.Info("starting stream session", "server", target)
	if err := c.Run(ctx, target); err != nil && err != context.Canceled {
		return fmt.Errorf("stream session: %w", err)
	}
	return nil
}

func runDiscover(cmd *cobra.Command, args []string) error {
	logger, _, _ := logging.New(logging.Standard, 512, "")
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	l := discovery.NewListener(logger.With("component", "discovery"))
	logger.Info("listening for console beacons", "addr", discoveryAddr)
	return l.ListenAndServe(ctx, discoveryAddr)
}
