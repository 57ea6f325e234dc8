package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/creasty/defaults"
	"github.com/gorilla/schema"

	"github.com/melibackend/retail-dashboard/internal/client"
	"github.com/melibackend/retail-dashboard/internal/liststate"
	"github.com/melibackend/retail-dashboard/internal/models"
)

var filterDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

// table renders one resource as rows
type table[T any] struct {
	name   string
	header []string
	row    func(T) []string
}

var (
	productTable = table[models.Product]{
		name:   "products",
		header: []string{"ID", "SKU", "NAME", "PRICE", "STOCK", "STATUS"},
		row: func(p models.Product) []string {
			return []string{p.ID.String(), p.SKU, p.Name, money(p.Price), strconv.Itoa(p.StockQuantity), p.Status}
		},
	}
	orderTable = table[models.Order]{
		name:   "orders",
		header: []string{"ID", "NUMBER", "STATUS", "PAYMENT", "TOTAL", "CREATED"},
		row: func(o models.Order) []string {
			created := ""
			if o.CreatedAt != nil {
				created = o.CreatedAt.Format("2006-01-02 15:04")
			}
			return []string{o.ID.String(), o.OrderNumber, o.Status, o.PaymentStatus, money(o.TotalAmount), created}
		},
	}
	customerTable = table[models.Customer]{
		name:   "customers",
		header: []string{"ID", "NAME", "EMAIL", "PHONE", "ORDERS"},
		row: func(c models.Customer) []string {
			return []string{c.ID.String(), c.Name, c.Email, c.Phone, strconv.Itoa(c.TotalOrders)}
		},
	}
	employeeTable = table[models.Employee]{
		name:   "employees",
		header: []string{"ID", "NAME", "EMAIL", "ROLE", "STATUS"},
		row: func(e models.Employee) []string {
			return []string{e.ID.String(), e.Name, e.Email, e.Role, e.Status}
		},
	}
)

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// decodeFilters builds F from its defaults overlaid with values
func decodeFilters[F any](values url.Values) (F, error) {
	var filters F
	if err := defaults.Set(&filters); err != nil {
		return filters, err
	}
	err := applyFilterValues(&filters, values)
	return filters, err
}

func applyFilterValues[F any](filters *F, values url.Values) error {
	if len(values) == 0 {
		return nil
	}
	return filterDecoder.Decode(filters, values)
}

// parseFilterLine reads "search=milk status=active" style input. Any change
// other than page sends the list back to page 1.
func parseFilterLine(line string) (url.Values, error) {
	values := url.Values{}
	for _, field := range strings.Fields(line) {
		key, value, ok := strings.Cut(field, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", field)
		}
		values.Set(key, value)
	}
	if !values.Has("page") {
		values.Set("page", "1")
	}
	return values, nil
}

func renderTable[T any](out io.Writer, tbl table[T], st liststate.State[T]) {
	if len(st.Items) == 0 {
		fmt.Fprintf(out, "no %s found\n", tbl.name)
	} else {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(tbl.header, "\t"))
		for _, item := range st.Items {
			fmt.Fprintln(tw, strings.Join(tbl.row(item), "\t"))
		}
		tw.Flush()
	}

	p := st.Pagination
	fmt.Fprintf(out, "page %d/%d, %d total", p.CurrentPage, p.LastPage, p.Total)
	if p.HasPrevPage() {
		fmt.Fprint(out, ", prev")
	}
	if p.HasNextPage() {
		fmt.Fprint(out, ", next")
	}
	fmt.Fprintln(out)
}

func listValues(args []string) (string, url.Values, time.Duration, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "", nil, 0, errors.New("a resource is required")
	}
	resource := args[0]

	fs := flag.NewFlagSet("list "+resource, flag.ContinueOnError)
	search := fs.String("search", "", "search term")
	status := fs.String("status", "", "status filter, all for none")
	page := fs.Int("page", 0, "page number")
	perPage := fs.Int("per-page", 0, "page size")
	timeout := fs.Duration("timeout", 15*time.Second, "fetch timeout")
	if err := fs.Parse(args[1:]); err != nil {
		return "", nil, 0, err
	}

	values := url.Values{}
	if *search != "" {
		values.Set("search", *search)
	}
	if *status != "" {
		values.Set("status", *status)
	}
	if *page > 0 {
		values.Set("page", strconv.Itoa(*page))
	}
	if *perPage > 0 {
		values.Set("per_page", strconv.Itoa(*perPage))
	}
	return resource, values, *timeout, nil
}

func runList(ctx context.Context, clients *client.Clients, args []string, out io.Writer) error {
	resource, values, timeout, err := listValues(args)
	if err != nil {
		return err
	}

	switch resource {
	case "products":
		return listOnce[models.Product, models.ProductFilters](ctx, clients.Products.List, productTable, values, timeout, out)
	case "orders":
		return listOnce[models.Order, models.OrderFilters](ctx, clients.Orders.List, orderTable, values, timeout, out)
	case "customers":
		return listOnce[models.Customer, models.CustomerFilters](ctx, clients.Customers.List, customerTable, values, timeout, out)
	case "employees":
		return listOnce[models.Employee, models.EmployeeFilters](ctx, clients.Employees.List, employeeTable, values, timeout, out)
	}
	return fmt.Errorf("unknown resource %q", resource)
}

func listOnce[T, F any](ctx context.Context, fetch liststate.FetchFunc[T, F], tbl table[T], values url.Values, timeout time.Duration, out io.Writer) error {
	filters, err := decodeFilters[F](values)
	if err != nil {
		return fmt.Errorf("invalid filters: %w", err)
	}

	list := liststate.New(fetch, filters, liststate.Config{Name: tbl.name, Timeout: timeout})
	defer list.Close()

	list.Mount(ctx)
	list.Wait()

	st := list.State()
	if st.Status == liststate.StatusError {
		return fmt.Errorf("%s: %w", st.Error, st.Err)
	}
	renderTable(out, tbl, st)
	return nil
}

func runWatch(ctx context.Context, clients *client.Clients, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("a resource is required")
	}

	switch args[0] {
	case "products":
		return watch[models.Product, models.ProductFilters](ctx, clients.Products.List, productTable, in, out)
	case "orders":
		return watch[models.Order, models.OrderFilters](ctx, clients.Orders.List, orderTable, in, out)
	case "customers":
		return watch[models.Customer, models.CustomerFilters](ctx, clients.Customers.List, customerTable, in, out)
	case "employees":
		return watch[models.Employee, models.EmployeeFilters](ctx, clients.Employees.List, employeeTable, in, out)
	}
	return fmt.Errorf("unknown resource %q", args[0])
}

// watch prints every state transition while filter lines arrive on in.
// "refresh" refetches and "quit" stops.
func watch[T, F any](ctx context.Context, fetch liststate.FetchFunc[T, F], tbl table[T], in io.Reader, out io.Writer) error {
	filters, err := decodeFilters[F](nil)
	if err != nil {
		return err
	}

	list := liststate.New(fetch, filters, liststate.Config{
		Name:   tbl.name,
		Policy: liststate.LatestRequestWins,
	})
	defer list.Close()

	// transitions arrive from fetch goroutines while input errors are
	// reported from this one
	out = &lockedWriter{w: out}

	unsubscribe := list.Subscribe(func(st liststate.State[T]) {
		var buf bytes.Buffer
		switch st.Status {
		case liststate.StatusLoading:
			fmt.Fprintf(&buf, "[%d] loading %s\n", st.Seq, tbl.name)
		case liststate.StatusError:
			fmt.Fprintf(&buf, "[%d] error: %s\n", st.Seq, st.Error)
		case liststate.StatusSuccess:
			fmt.Fprintf(&buf, "[%d] loaded\n", st.Seq)
			renderTable(&buf, tbl, st)
		}
		out.Write(buf.Bytes())
	})
	defer unsubscribe()

	list.Mount(ctx)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "quit":
			list.Wait()
			return nil
		case "refresh":
			list.Refetch()
			continue
		}

		values, err := parseFilterLine(line)
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			continue
		}
		next := list.Filters()
		if err := applyFilterValues(&next, values); err != nil {
			fmt.Fprintln(out, "error:", err)
			continue
		}
		list.SetFilters(next)
	}

	list.Wait()
	return scanner.Err()
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
