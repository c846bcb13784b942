package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"urlfilter/internal/facade"
	"urlfilter/internal/proxyserver"
)

func newServeCmd() *cobra.Command {
	var port int
	var bindAddress string
	var metricsPort int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demonstration forward proxy",
		Long: `Runs a goproxy-based forward proxy that asks the filter engine for a
decision on every plain-HTTP request and HTTPS CONNECT tunnel, never
decrypting TLS traffic. Runs until SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, port, bindAddress, metricsPort)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "proxy listen port (default: config or 8080)")
	cmd.Flags().StringVar(&bindAddress, "bind", "", "proxy bind address (default: config or 127.0.0.1)")
	cmd.Flags().IntVar(&metricsPort, "metrics-port", 0, "Prometheus metrics port (default: config; disabled when both are 0)")

	return cmd
}

func runServe(cmd *cobra.Command, port int, bindAddress string, metricsPort int) error {
	cfg, err := loadConfigFromFlag(cmd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := buildEngine(cfg); err != nil {
		return err
	}
	defer facade.Shutdown()

	pCfg := proxyserver.NewConfig(cfg.Logging.Dir, firstNonZero(port, cfg.Proxy.Port, proxyserver.DefaultProxyPort))
	if bindAddress != "" {
		pCfg.BindAddress = bindAddress
	} else {
		pCfg.BindAddress = cfg.Proxy.BindAddress
	}
	pCfg.MetricsPort = firstNonZero(metricsPort, cfg.Proxy.MetricsPort)
	pCfg.LogReceivers = cfg.Logging.Receivers
	pCfg.LogAttributes = cfg.Logging.Attributes

	server, err := proxyserver.NewServer(pCfg)
	if err != nil {
		return fmt.Errorf("creating proxy server: %w", err)
	}
	if err := server.Start(); err != nil {
		return fmt.Errorf("starting proxy server: %w", err)
	}

	fmt.Printf("urlfilter proxy listening on %s:%d (rules: %d)\n", pCfg.GetBindAddress(), server.Port(), facade.RuleCount())
	if pCfg.MetricsPort != 0 {
		fmt.Printf("metrics available on %s:%d/metrics\n", pCfg.GetBindAddress(), pCfg.MetricsPort)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	fmt.Println("shutting down...")
	return server.Stop()
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
