package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/gateflow/gateflow/internal/config"
	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/payment"
	"github.com/gateflow/gateflow/internal/rates"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from --data-dir flag,
// GATEFLOW_DATA_DIR env var, or ~/.gateflow as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("GATEFLOW_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.gateflow"
}

// openStore opens the gateway store. An explicit database.driver/database.dsn
// in the config wins; otherwise a SQLite file under the data directory is
// used.
func openStore() (*config.Store, error) {
	driver := viper.GetString("database.driver")
	dsn := viper.GetString("database.dsn")
	if driver != "" {
		return config.NewStore(driver, dsn)
	}
	return config.OpenDefault(resolveDataDir())
}

// newPaymentProvider builds the payment provider from configuration. With no
// provider configured, the in-process static provider is used, which is only
// suitable for development.
func newPaymentProvider() payment.Provider {
	baseURL := viper.GetString("payment.base_url")
	if baseURL == "" {
		return payment.NewStaticProvider()
	}
	return payment.NewHTTPProvider(
		baseURL,
		viper.GetString("payment.api_key"),
		viper.GetDuration("payment.timeout"),
	)
}

// newRatesProvider builds the display-currency rates provider. Without a
// configured source it falls back to the built-in static USD table.
func newRatesProvider() rates.Provider {
	baseURL := viper.GetString("rates.base_url")
	if baseURL == "" {
		return rates.DefaultStaticProvider()
	}
	base := viper.GetString("rates.base_currency")
	if base == "" {
		base = "USD"
	}
	return rates.NewHTTPProvider(baseURL, base, viper.GetDuration("rates.timeout"))
}

// resolveAdmin returns the admin the CLI should act as: the one named by
// --admin, or the sole admin account when only one exists.
func resolveAdmin(ctx context.Context, store *config.Store, email string) (*model.Admin, error) {
	if email != "" {
		admin, err := store.GetAdminByEmail(ctx, strings.ToLower(email))
		if err != nil {
			return nil, fmt.Errorf("admin %q not found", email)
		}
		return admin, nil
	}

	admins, err := store.ListAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	switch len(admins) {
	case 0:
		return nil, fmt.Errorf("no admin accounts exist; run 'gateflow admin create' first")
	case 1:
		return &admins[0], nil
	default:
		return nil, fmt.Errorf("multiple admin accounts exist; pick one with --admin <email>")
	}
}

// --- PID file management ---

func pidFilePath() string {
	return filepath.Join(resolveDataDir(), "gateflow.pid")
}

func writePID(pid int) error {
	dir := resolveDataDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(pidFilePath(), []byte(strconv.Itoa(pid)), 0644)
}

func readPID() (int, error) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePID() {
	os.Remove(pidFilePath())
}

func logFilePath() string {
	return filepath.Join(resolveDataDir(), "gateflow.log")
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}

// formatCents renders a minor-unit amount as "12.34 USD".
func formatCents(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, currency)
}

// formatTime renders an optional timestamp for table output.
func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04")
}
