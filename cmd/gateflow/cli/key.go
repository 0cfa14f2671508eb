package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gateflow/gateflow/internal/config"
	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/pagination"
	"github.com/gateflow/gateflow/internal/service"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long:    "Issue, list, rotate, and revoke the API keys consumers use against the GateFlow REST API.",
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyRotateCmd())
	cmd.AddCommand(newKeyRevokeCmd())

	return cmd
}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var (
		name        string
		admin       string
		scopes      []string
		rateLimit   int
		expiresDays int
		testMode    bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a new API key",
		Long:  "Issue a new scoped API key. The raw key is shown once and cannot be retrieved again.",
		Example: `  gateflow key create --name "CI pipeline" --scope products:read --scope orders:read
  gateflow key create --name "storefront" --scope "*" --rate-limit 600
  gateflow key create --name "staging" --test`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyCreate(name, admin, scopes, rateLimit, expiresDays, testMode)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Human-readable key name (required)")
	cmd.Flags().StringVar(&admin, "admin", "", "Email of the owning admin (defaults to the sole admin)")
	cmd.Flags().StringArrayVar(&scopes, "scope", nil, "Scope to grant; repeatable (default: all scopes via wildcard)")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "Per-minute request budget (0 = service default)")
	cmd.Flags().IntVar(&expiresDays, "expires-days", 0, "Days until the key expires (0 = never)")
	cmd.Flags().BoolVar(&testMode, "test", false, "Issue a test-mode key (gf_test_ prefix)")
	cmd.MarkFlagRequired("name")

	return cmd
}

func runKeyCreate(name, adminEmail string, scopes []string, rateLimit, expiresDays int, testMode bool) error {
	store, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	admin, err := resolveAdmin(ctx, store, adminEmail)
	if err != nil {
		return err
	}

	params := service.IssueParams{
		Name:               name,
		Scopes:             scopes,
		RateLimitPerMinute: rateLimit,
		TestMode:           testMode,
	}
	if expiresDays > 0 {
		expires := time.Now().UTC().AddDate(0, 0, expiresDays)
		params.ExpiresAt = &expires
	}

	keySvc := service.NewKeyService(store, service.DefaultGraceHours)
	key, rawKey, err := keySvc.Issue(ctx, admin.ID, params)
	if err != nil {
		return fmt.Errorf("issue key: %w", err)
	}

	fmt.Println("API Key created:")
	fmt.Println()
	fmt.Printf("  Key:    %s\n", rawKey)
	fmt.Printf("  Name:   %s\n", key.Name)
	fmt.Printf("  Scopes: %s\n", strings.Join(key.Scopes, ", "))
	fmt.Printf("  Owner:  %s\n", admin.Email)
	if key.ExpiresAt != nil {
		fmt.Printf("  Expires: %s\n", formatTime(key.ExpiresAt))
	}
	fmt.Println()
	fmt.Println("  Save this key now - it cannot be retrieved again.")
	return nil
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var (
		admin      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(admin, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&admin, "admin", "", "Email of the owning admin (defaults to the sole admin)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runKeyList(adminEmail string, jsonOutput bool) error {
	store, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	admin, err := resolveAdmin(ctx, store, adminEmail)
	if err != nil {
		return err
	}

	keys, err := listAllKeys(ctx, store, admin.ID)
	if err != nil {
		return fmt.Errorf("list api keys: %w", err)
	}

	type keyRow struct {
		Prefix   string `json:"prefix"`
		Name     string `json:"name"`
		Scopes   string `json:"scopes"`
		Revoked  bool   `json:"revoked"`
		LastUsed string `json:"last_used"`
	}

	rows := make([]keyRow, len(keys))
	for i, k := range keys {
		rows[i] = keyRow{
			Prefix:   k.KeyPrefix,
			Name:     k.Name,
			Scopes:   strings.Join(k.Scopes, ","),
			Revoked:  k.RevokedAt != nil,
			LastUsed: formatTime(k.LastUsedAt),
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No API keys found. Use 'gateflow key create' to issue one.")
		return nil
	}

	fmt.Printf("%-16s %-24s %-28s %-8s %-18s\n", "PREFIX", "NAME", "SCOPES", "REVOKED", "LAST USED")
	fmt.Printf("%-16s %-24s %-28s %-8s %-18s\n", "------", "----", "------", "-------", "---------")
	for _, k := range rows {
		revoked := "no"
		if k.Revoked {
			revoked = "yes"
		}
		scopes := k.Scopes
		if len(scopes) > 26 {
			scopes = scopes[:23] + "..."
		}
		fmt.Printf("%-16s %-24s %-28s %-8s %-18s\n", k.Prefix, k.Name, scopes, revoked, k.LastUsed)
	}

	return nil
}

// listAllKeys walks every page of the admin's keys.
func listAllKeys(ctx context.Context, store *config.Store, adminID int64) ([]model.APIKey, error) {
	var all []model.APIKey
	page := &pagination.Page{Limit: 100, SortField: "created_at", Descending: true}
	for {
		keys, err := store.ListAPIKeysForAdmin(ctx, adminID, page)
		if err != nil {
			return nil, err
		}
		if len(keys) <= page.Limit {
			all = append(all, keys...)
			return all, nil
		}
		all = append(all, keys[:page.Limit]...)
		last := keys[page.Limit-1]
		page.Cursor = &pagination.Cursor{
			SortValue: last.CreatedAt.Format(time.RFC3339Nano),
			RowID:     last.ID,
		}
	}
}

// findKeyByPrefix matches one of the admin's keys by display prefix.
func findKeyByPrefix(ctx context.Context, store *config.Store, adminID int64, prefix string) (*model.APIKey, error) {
	keys, err := listAllKeys(ctx, store, adminID)
	if err != nil {
		return nil, err
	}
	for i := range keys {
		if keys[i].KeyPrefix == prefix || strings.HasPrefix(keys[i].KeyPrefix, prefix) {
			return &keys[i], nil
		}
	}
	return nil, fmt.Errorf("no API key found with prefix %q", prefix)
}

// ---------- key rotate ----------

func newKeyRotateCmd() *cobra.Command {
	var (
		admin      string
		graceHours int
	)

	cmd := &cobra.Command{
		Use:   "rotate <prefix>",
		Short: "Rotate an API key, issuing a fresh secret",
		Long: `Rotate an API key. A new secret is issued immediately and the old one keeps
working until its grace window closes, so deployed consumers can switch over
without downtime.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyRotate(args[0], admin, graceHours)
		},
	}

	cmd.Flags().StringVar(&admin, "admin", "", "Email of the owning admin (defaults to the sole admin)")
	cmd.Flags().IntVar(&graceHours, "grace-hours", service.DefaultGraceHours, "Hours the old secret keeps authenticating")

	return cmd
}

func runKeyRotate(prefix, adminEmail string, graceHours int) error {
	store, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	admin, err := resolveAdmin(ctx, store, adminEmail)
	if err != nil {
		return err
	}

	key, err := findKeyByPrefix(ctx, store, admin.ID, prefix)
	if err != nil {
		return err
	}

	keySvc := service.NewKeyService(store, service.DefaultGraceHours)
	res, err := keySvc.Rotate(ctx, admin.ID, key.ID, &graceHours)
	if err != nil {
		return fmt.Errorf("rotate key: %w", err)
	}

	fmt.Printf("Rotated key %q:\n", key.Name)
	fmt.Println()
	fmt.Printf("  New key: %s\n", res.RawKey)
	if res.GraceUntil != nil {
		fmt.Printf("  Old secret valid until %s\n", res.GraceUntil.Format(time.RFC3339))
	} else {
		fmt.Println("  Old secret revoked immediately")
	}
	fmt.Printf("  Scopes:  %s\n", strings.Join(res.NewKey.Scopes, ", "))
	fmt.Println()
	fmt.Println("  Save this key now - it cannot be retrieved again.")
	return nil
}

// ---------- key revoke ----------

func newKeyRevokeCmd() *cobra.Command {
	var (
		admin  string
		reason string
	)

	cmd := &cobra.Command{
		Use:   "revoke <prefix>",
		Short: "Revoke an API key by its prefix",
		Long:  "Revoke an API key immediately. Grace windows from earlier rotations are cancelled too.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyRevoke(args[0], admin, reason)
		},
	}

	cmd.Flags().StringVar(&admin, "admin", "", "Email of the owning admin (defaults to the sole admin)")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the key is being revoked")

	return cmd
}

func runKeyRevoke(prefix, adminEmail, reason string) error {
	store, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	admin, err := resolveAdmin(ctx, store, adminEmail)
	if err != nil {
		return err
	}

	key, err := findKeyByPrefix(ctx, store, admin.ID, prefix)
	if err != nil {
		return err
	}

	keySvc := service.NewKeyService(store, service.DefaultGraceHours)
	if err := keySvc.Revoke(ctx, admin.ID, key.ID, reason); err != nil {
		return fmt.Errorf("revoke key: %w", err)
	}

	fmt.Printf("Revoked API key %q (%s)\n", key.Name, key.KeyPrefix)
	return nil
}
