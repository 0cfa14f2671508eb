package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gateflow/gateflow/internal/server"
	"github.com/gateflow/gateflow/internal/service"
	"github.com/gateflow/gateflow/internal/webhook"
)

const banner = `
  ___   _  _____ ___ ___ _    _____      __
 / __| /_\|_   _| __| __| |  / _ \ \    / /
| (_ |/ _ \ | | | _|| _|| |_| (_) \ \/\/ /
 \___/_/ \_\|_| |___|_| |____\___/ \_/\_/
`

func newServeCmd() *cobra.Command {
	var (
		port   int
		host   string
		dev    bool
		daemon bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the GateFlow API server",
		Long:  "Start the HTTP server that exposes the catalog, checkout, refund, key, and webhook APIs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if daemon {
				return runServeDaemon()
			}
			return runServe(host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging, CORS *)")
	cmd.Flags().BoolVarP(&daemon, "daemon", "d", false, "Run in the background (logs to the data directory)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

// runServeDaemon re-executes "gateflow serve" detached from the terminal and
// records its PID for 'gateflow status' and 'gateflow stop'.
func runServeDaemon() error {
	args := []string{"serve"}
	if cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}
	if dataDir != "" {
		args = append(args, "--data-dir", dataDir)
	}

	logFile, err := os.OpenFile(logFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(os.Args[0], args...)
	child.Stdout = logFile
	child.Stderr = logFile
	setSysProcAttr(child)

	if err := child.Start(); err != nil {
		return fmt.Errorf("start background server: %w", err)
	}
	if err := writePID(child.Process.Pid); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}

	fmt.Printf("GateFlow server started in the background (PID %d)\n", child.Process.Pid)
	fmt.Printf("  Logs: %s\n", logFilePath())
	fmt.Println("  Use 'gateflow status' to check it and 'gateflow stop' to stop it.")
	return nil
}

func runServe(host string, port int, dev bool) error {
	fmt.Print(banner)
	fmt.Println()

	// Set up logger
	logLevel := slog.LevelInfo
	if dev {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	// 1. Open the store
	store, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	logger.Info("store opened", "data_dir", resolveDataDir())

	// 2. Payment and rates providers
	provider := newPaymentProvider()
	if viper.GetString("payment.base_url") == "" {
		logger.Warn("no payment provider configured, using the in-process static provider")
	}
	ratesProvider := newRatesProvider()

	// 3. Webhook notifier
	notifier := webhook.New(
		store,
		logger,
		viper.GetBool("webhooks.enabled"),
		viper.GetDuration("webhooks.timeout"),
	)

	// 4. Services
	jwtSecret := viper.GetString("auth.jwt_secret")
	if jwtSecret == "" {
		jwtSecret = "gateflow-dev-secret-change-me"
		logger.Warn("auth.jwt_secret not set, using an insecure development secret")
	}
	authSvc := service.NewAuthService(store, jwtSecret)
	graceHours := viper.GetInt("keys.rotation_grace_hours")
	if graceHours == 0 {
		graceHours = service.DefaultGraceHours
	}
	keySvc := service.NewKeyService(store, graceHours)
	orderSvc := service.NewOrderService(store, provider, notifier, logger)

	// 5. Check for first-run (no admin exists)
	hasAdmin, err := store.HasAnyAdmin(context.Background())
	if err != nil {
		logger.Warn("failed to check for admin", "error", err)
	}
	if !hasAdmin {
		logger.Warn("no admin account found - run: gateflow admin create")
	}

	// 6. Build and start HTTP server
	srvCfg := server.DefaultConfig()
	srvCfg.Host = host
	srvCfg.Port = port
	srvCfg.Version = versionString()
	if dev {
		srvCfg.CORSOrigins = []string{"*"}
	} else if origins := viper.GetStringSlice("server.cors.allowed_origins"); len(origins) > 0 {
		srvCfg.CORSOrigins = origins
	}
	if header := viper.GetString("auth.api_key_header"); header != "" {
		srvCfg.APIKeyHeader = header
	}
	if ttl := viper.GetDuration("auth.session_ttl"); ttl > 0 {
		srvCfg.SessionTTL = ttl
	}
	if limit := viper.GetInt("rate_limit.ip_per_minute"); limit > 0 {
		srvCfg.IPRateLimit = limit
	}
	if baseURL := viper.GetString("server.base_url"); baseURL != "" {
		srvCfg.BaseURL = baseURL
	} else {
		srvCfg.BaseURL = fmt.Sprintf("http://%s:%d", host, port)
	}

	srv := server.New(srvCfg, server.Deps{
		Store:    store,
		AuthSvc:  authSvc,
		KeySvc:   keySvc,
		OrderSvc: orderSvc,
		Provider: provider,
		Rates:    ratesProvider,
		Notifier: notifier,
	}, logger)

	fmt.Printf("→ GateFlow %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", host, port)
	fmt.Printf("→ OpenAPI:  http://%s:%d/api/v1/openapi.json\n", host, port)
	fmt.Printf("→ Health:   http://%s:%d/healthz\n", host, port)
	fmt.Println()

	// Record the PID so status/stop work in foreground mode too.
	if err := writePID(os.Getpid()); err != nil {
		logger.Warn("failed to write pid file", "error", err)
	}
	defer removePID()

	start := time.Now()
	err = srv.ListenAndServe()
	logger.Info("server exited", "uptime", time.Since(start).Round(time.Second))
	return err
}
