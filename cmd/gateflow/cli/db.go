package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gateflow/gateflow/internal/model"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the gateway store",
		Long:  "Inspect and maintain the database backing the gateway.",
	}

	cmd.AddCommand(newDBPingCmd())
	cmd.AddCommand(newDBStatsCmd())
	cmd.AddCommand(newDBSeedCmd())

	return cmd
}

// ---------- db ping ----------

func newDBPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check database connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			start := time.Now()
			if err := store.Ping(ctx); err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}
			fmt.Printf("OK (%s)\n", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

// ---------- db stats ----------

func newDBStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show order and revenue totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			stats, err := store.OrderStats(context.Background())
			if err != nil {
				return fmt.Errorf("order stats: %w", err)
			}

			fmt.Println("Order totals:")
			fmt.Printf("  Total:    %d\n", stats.TotalOrders)
			fmt.Printf("  Pending:  %d\n", stats.PendingOrders)
			fmt.Printf("  Paid:     %d\n", stats.PaidOrders)
			fmt.Printf("  Refunded: %d\n", stats.RefundedOrders)
			fmt.Println()
			fmt.Println("Revenue:")
			fmt.Printf("  Gross:    %s\n", formatCents(stats.GrossCents, "USD"))
			fmt.Printf("  Refunded: %s\n", formatCents(stats.RefundedCents, "USD"))
			return nil
		},
	}
}

// ---------- db seed ----------

func newDBSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo catalog data for local development",
		Long:  "Insert a handful of demo products and a coupon so the API has something to serve.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBSeed()
		},
	}
}

func runDBSeed() error {
	store, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	products := []model.Product{
		{
			Name:        "Starter Plan",
			Slug:        "starter",
			Description: "Entry tier with basic API access.",
			PriceCents:  900,
			Currency:    "USD",
			IsActive:    true,
		},
		{
			Name:        "Pro Plan",
			Slug:        "pro",
			Description: "Full API access with higher rate limits.",
			PriceCents:  4900,
			Currency:    "USD",
			IsActive:    true,
		},
		{
			Name:        "Enterprise Plan",
			Slug:        "enterprise",
			Description: "Dedicated support and custom limits.",
			PriceCents:  19900,
			Currency:    "USD",
			IsActive:    false,
		},
	}

	var created int
	for i := range products {
		// Skip products that already exist so seeding is repeatable.
		if _, err := store.GetProductBySlug(ctx, products[i].Slug); err == nil {
			continue
		}
		if err := store.CreateProduct(ctx, &products[i]); err != nil {
			return fmt.Errorf("seed product %q: %w", products[i].Slug, err)
		}
		created++
	}

	couponCreated := false
	if _, err := store.GetCouponByCode(ctx, "WELCOME10"); err != nil {
		expires := time.Now().UTC().AddDate(0, 3, 0)
		coupon := &model.Coupon{
			Code:           "WELCOME10",
			PercentOff:     10,
			MaxRedemptions: 100,
			IsActive:       true,
			ExpiresAt:      &expires,
		}
		if err := store.CreateCoupon(ctx, coupon); err != nil {
			return fmt.Errorf("seed coupon: %w", err)
		}
		couponCreated = true
	}

	fmt.Printf("Seeded %d product(s)", created)
	if couponCreated {
		fmt.Print(" and coupon WELCOME10")
	}
	fmt.Println(".")
	return nil
}
