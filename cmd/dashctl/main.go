// Command dashctl lists, watches and checks out against the retail backend
// from a terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/melibackend/retail-dashboard/internal/client"
	"github.com/melibackend/retail-dashboard/internal/config"
	"github.com/melibackend/retail-dashboard/internal/models"
	"github.com/melibackend/retail-dashboard/internal/pos"
	"github.com/melibackend/retail-dashboard/internal/utils"
)

const usage = `usage:
  dashctl list <products|orders|customers|employees> [-search s] [-status s] [-page n] [-per-page n]
  dashctl watch <products|orders|customers|employees>   (reads key=value lines from stdin)
  dashctl checkout -store id [-pay method] [-paid amount] [-key idempotency-key] code[:qty]...
`

func main() {
	cfg, _ := config.Load()
	// stdout carries command output; logs go to stderr
	slog.SetDefault(utils.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat))

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clients, err := newClients(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dashctl:", err)
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "list":
		err = runList(ctx, clients, args, os.Stdout)
	case "watch":
		err = runWatch(ctx, clients, args, os.Stdin, os.Stdout)
	case "checkout":
		err = runCheckout(ctx, clients, args, os.Stdout)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "dashctl:", err)
		os.Exit(1)
	}
}

func newClients(cfg *config.Config) (*client.Clients, error) {
	api, err := client.NewAPIClient(client.Config{
		BaseURL:        cfg.APIBaseURL,
		Token:          cfg.APIToken,
		Timeout:        config.ParseDuration(cfg.APITimeout, 30*time.Second),
		MethodOverride: cfg.MethodOverride(),
	})
	if err != nil {
		return nil, err
	}
	return client.NewClients(api), nil
}

// cartEntry is one code[:qty] argument
type cartEntry struct {
	Code     string
	Quantity int
}

func parseCartEntry(arg string) (cartEntry, error) {
	code, qtyStr, hasQty := strings.Cut(arg, ":")
	code = strings.TrimSpace(code)
	if code == "" {
		return cartEntry{}, fmt.Errorf("empty product code in %q", arg)
	}
	if !hasQty {
		return cartEntry{Code: code, Quantity: 1}, nil
	}
	qty, err := strconv.Atoi(qtyStr)
	if err != nil || qty <= 0 {
		return cartEntry{}, fmt.Errorf("invalid quantity in %q", arg)
	}
	return cartEntry{Code: code, Quantity: qty}, nil
}

func runCheckout(ctx context.Context, clients *client.Clients, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	storeID := fs.String("store", "", "store id")
	customerID := fs.String("customer", "", "customer id")
	payment := fs.String("pay", "cash", "payment method")
	paid := fs.Float64("paid", 0, "amount paid; defaults to the cart subtotal")
	discount := fs.Float64("discount", 0, "discount amount")
	notes := fs.String("notes", "", "order notes")
	key := fs.String("key", "", "idempotency key; generated when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("checkout: at least one product code is required")
	}

	register := pos.NewRegister(clients.Products, clients.Sales, pos.RegisterConfig{})
	defer register.Close()

	cart := pos.NewCart()
	for _, arg := range fs.Args() {
		entry, err := parseCartEntry(arg)
		if err != nil {
			return err
		}
		product, err := register.Lookup(ctx, entry.Code)
		if err != nil {
			return fmt.Errorf("lookup %s: %w", entry.Code, err)
		}
		if err := cart.AddProduct(product, entry.Quantity); err != nil {
			return err
		}
		fmt.Fprintf(out, "+ %d x %s (%s) @ %.2f\n", entry.Quantity, product.Name, product.SKU, product.Price)
	}

	amountPaid := *paid
	if amountPaid == 0 {
		amountPaid = cart.Subtotal() - *discount
	}

	receipt, err := register.Checkout(ctx, cart, pos.CheckoutRequest{
		StoreID:        models.ID(*storeID),
		CustomerID:     models.ID(*customerID),
		PaymentMethod:  *payment,
		AmountPaid:     amountPaid,
		DiscountAmount: *discount,
		Notes:          *notes,
		IdempotencyKey: *key,
	})
	if err != nil {
		var validation *client.ValidationError
		if errors.As(err, &validation) {
			for field, msgs := range validation.Fields {
				fmt.Fprintf(out, "  %s: %s\n", field, strings.Join(msgs, "; "))
			}
		}
		return fmt.Errorf("checkout: %w", err)
	}

	sale := receipt.Sale
	fmt.Fprintf(out, "sale %s (%s) total %.2f paid %.2f change %.2f\n",
		sale.ID, sale.OrderNumber, sale.TotalAmount, sale.AmountPaid, sale.ChangeAmount)
	fmt.Fprintf(out, "idempotency key %s\n", receipt.IdempotencyKey)
	return nil
}
