// Command catalog-browse pages through the product listing the way the
// storefront's infinite scroll does: it loads the first page, then keeps
// reporting the last item as visible until the feed is exhausted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/clared/storefront/internal/client"
	"github.com/clared/storefront/pkg/feed"
)

func main() {
	var (
		baseURL  string
		category string
		search   string
		limit    int
	)

	flag.StringVar(&baseURL, "base-url", "http://localhost:8080", "storefront API base URL")
	flag.StringVar(&category, "category", "", "filter by category")
	flag.StringVar(&search, "search", "", "search in name or SKU")
	flag.IntVar(&limit, "limit", 20, "page size")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, baseURL, category, search, limit); err != nil {
		slog.Error("browse failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, baseURL, category, search string, limit int) error {
	ctrl := client.New(baseURL).Feed(client.ListParams{
		Search:    search,
		Category:  category,
		Available: true,
		Limit:     limit,
	})

	if err := ctrl.Load(ctx); err != nil {
		return err
	}

	printed := 0
	for {
		items := ctrl.Items()
		for ; printed < len(items); printed++ {
			p := items[printed]
			fmt.Printf("%-14s %-10s %8s  %s\n", p.SKU, p.Category, p.Price.StringFixed(2), p.Name)
		}

		if ctrl.Exhausted() {
			break
		}
		if ctrl.State() == feed.StateError {
			return ctrl.Err()
		}
		// Simulate the last rendered item scrolling into view.
		ctrl.ItemVisible(ctx, len(items)-1)
	}

	slog.Info("catalog browsed", slog.Int("products", printed))
	return nil
}
