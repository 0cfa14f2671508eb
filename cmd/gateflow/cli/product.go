package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gateflow/gateflow/internal/config"
	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/pagination"
)

func newProductCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Manage the product catalog",
		Long:  "Add, list, and remove catalog products from the command line.",
	}

	cmd.AddCommand(newProductAddCmd())
	cmd.AddCommand(newProductListCmd())
	cmd.AddCommand(newProductRemoveCmd())

	return cmd
}

// ---------- product add ----------

func newProductAddCmd() *cobra.Command {
	var (
		name        string
		slug        string
		description string
		priceCents  int64
		currency    string
		inactive    bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product to the catalog",
		Example: `  gateflow product add --name "Pro Plan" --slug pro-plan --price-cents 4900
  gateflow product add --name "Team Plan" --slug team --price-cents 19900 --currency EUR`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProductAdd(name, slug, description, priceCents, currency, inactive)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Product name (required)")
	cmd.Flags().StringVar(&slug, "slug", "", "URL-safe identifier (required)")
	cmd.Flags().StringVar(&description, "description", "", "Product description")
	cmd.Flags().Int64Var(&priceCents, "price-cents", 0, "Price in minor currency units (required)")
	cmd.Flags().StringVar(&currency, "currency", "USD", "ISO 4217 settlement currency")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Create the product hidden from the public catalog")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("slug")
	cmd.MarkFlagRequired("price-cents")

	return cmd
}

func runProductAdd(name, slug, description string, priceCents int64, currency string, inactive bool) error {
	if priceCents <= 0 {
		return fmt.Errorf("price must be a positive number of cents")
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return fmt.Errorf("slug must not be empty")
	}

	store, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	product := &model.Product{
		Name:        name,
		Slug:        slug,
		Description: description,
		PriceCents:  priceCents,
		Currency:    strings.ToUpper(currency),
		IsActive:    !inactive,
	}
	if err := store.CreateProduct(context.Background(), product); err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	fmt.Printf("Created product %q (slug=%s, %s)\n",
		product.Name, product.Slug, formatCents(product.PriceCents, product.Currency))
	return nil
}

// ---------- product list ----------

func newProductListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List catalog products",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProductList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runProductList(jsonOutput bool) error {
	store, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	products, err := listAllProducts(context.Background(), store)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}

	type productRow struct {
		Slug   string `json:"slug"`
		Name   string `json:"name"`
		Price  string `json:"price"`
		Active bool   `json:"active"`
	}

	rows := make([]productRow, len(products))
	for i, p := range products {
		rows[i] = productRow{
			Slug:   p.Slug,
			Name:   p.Name,
			Price:  formatCents(p.PriceCents, p.Currency),
			Active: p.IsActive,
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No products in the catalog. Use 'gateflow product add' to create one.")
		return nil
	}

	fmt.Printf("%-24s %-28s %-16s %-8s\n", "SLUG", "NAME", "PRICE", "ACTIVE")
	fmt.Printf("%-24s %-28s %-16s %-8s\n", "----", "----", "-----", "------")
	for _, p := range rows {
		active := "yes"
		if !p.Active {
			active = "no"
		}
		fmt.Printf("%-24s %-28s %-16s %-8s\n", p.Slug, p.Name, p.Price, active)
	}

	return nil
}

// listAllProducts walks every catalog page.
func listAllProducts(ctx context.Context, store *config.Store) ([]model.Product, error) {
	var all []model.Product
	page := &pagination.Page{Limit: 100, SortField: "name"}
	for {
		products, err := store.ListProducts(ctx, page)
		if err != nil {
			return nil, err
		}
		if len(products) <= page.Limit {
			all = append(all, products...)
			return all, nil
		}
		all = append(all, products[:page.Limit]...)
		last := products[page.Limit-1]
		page.Cursor = &pagination.Cursor{
			SortValue: last.Name,
			RowID:     last.ID,
		}
	}
}

// ---------- product remove ----------

func newProductRemoveCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "remove <slug>",
		Aliases: []string{"rm"},
		Short:   "Remove a product from the catalog",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProductRemove(args[0], force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")

	return cmd
}

func runProductRemove(slug string, force bool) error {
	store, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	product, err := store.GetProductBySlug(ctx, strings.ToLower(slug))
	if err != nil {
		return fmt.Errorf("product %q not found", slug)
	}

	if !force {
		fmt.Printf("Remove product %q (%s)? Existing orders keep their history. [y/N]: ", product.Name, product.Slug)
		var answer string
		fmt.Scanln(&answer)
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := store.DeleteProduct(ctx, product.ID); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	fmt.Printf("Removed product %q\n", product.Slug)
	return nil
}
