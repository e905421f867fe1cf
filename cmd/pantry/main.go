package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dukerupert/pantry/internal/config"
	"github.com/dukerupert/pantry/internal/database"
	"github.com/dukerupert/pantry/internal/groceryapi"
	"github.com/dukerupert/pantry/internal/groceryapi/groceryapitest"
	"github.com/dukerupert/pantry/internal/inventory"
	"github.com/dukerupert/pantry/internal/logging"
	"github.com/dukerupert/pantry/internal/model"
	"github.com/dukerupert/pantry/internal/server"
	"github.com/dukerupert/pantry/internal/store"
)

const usage = `usage: pantry <command> [flags]

commands:
  serve [--fake] [--origin host]    run the view bridge
  list                              print the inventory list
  show <id>                         print one item
  add --set field=value ...         create an item
  edit <id> --set field=value ...   change an item

fields: name, brand, type, price, seller, threshold, quantity, include`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := run(context.Background(), cfg, logger, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "pantry:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	cmd, args := args[0], args[1:]

	if cmd == "serve" {
		return serve(ctx, cfg, logger, args)
	}

	st := newStore(cfg, logger, groceryapi.Config{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout})
	switch cmd {
	case "list":
		return list(ctx, st, stdout)
	case "show":
		id, _, err := idAndEdits(cmd, args)
		if err != nil {
			return err
		}
		return show(ctx, st, id, stdout)
	case "add":
		fs := flag.NewFlagSet("add", flag.ContinueOnError)
		var sets setFlags
		fs.Var(&sets, "set", "field=value, repeatable")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return add(ctx, st, sets, stdout)
	case "edit":
		id, sets, err := idAndEdits(cmd, args)
		if err != nil {
			return err
		}
		return edit(ctx, st, id, sets, stdout)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func newStore(cfg config.Config, logger *slog.Logger, api groceryapi.Config, opts ...inventory.Option) *inventory.Store {
	api.Logger = logger.With("component", "groceryapi")
	opts = append(opts, inventory.WithLogger(logger.With("component", "inventory")))
	if cfg.DetailGuard {
		opts = append(opts, inventory.WithDetailGuard())
	}
	return inventory.New(groceryapi.NewClient(api), opts...)
}

// setFlags collects repeated --set field=value pairs.
type setFlags []string

func (s *setFlags) String() string { return strings.Join(*s, ",") }

func (s *setFlags) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func (s setFlags) edits() ([]model.Edit, error) {
	edits := make([]model.Edit, 0, len(s))
	for _, kv := range s {
		field, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: expected field=value", kv)
		}
		e, err := model.ParseEdit(field, value)
		if err != nil {
			return nil, fmt.Errorf("--set %q: %w", kv, err)
		}
		edits = append(edits, e)
	}
	return edits, nil
}

// idAndEdits reads "<id> [--set field=value ...]".
func idAndEdits(cmd string, args []string) (string, setFlags, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") || strings.TrimSpace(args[0]) == "" {
		return "", nil, fmt.Errorf("%s: missing item id", cmd)
	}
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	var sets setFlags
	fs.Var(&sets, "set", "field=value, repeatable")
	if err := fs.Parse(args[1:]); err != nil {
		return "", nil, err
	}
	return args[0], sets, nil
}

func list(ctx context.Context, st *inventory.Store, w io.Writer) error {
	if err := st.FetchGroceries(ctx); err != nil {
		return errors.New(st.State().Error)
	}
	items := st.State().Items
	if len(items) == 0 {
		fmt.Fprintln(w, "No groceries yet.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tBRAND\tQTY\tSTATUS\tPRICE\tBEST")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d %s\t%s\t%.2f (%s)\t%.2f (%s)\n",
			it.ID, it.Name, it.Brand, it.QuantityInStock, it.Type, it.StockStatus,
			it.CurrentPrice, it.CurrentSeller, it.BestPrice, it.BestSeller)
	}
	return tw.Flush()
}

func show(ctx context.Context, st *inventory.Store, id string, w io.Writer) error {
	if err := st.GetGroceryDetail(ctx, id); err != nil {
		return errors.New(st.State().Error)
	}
	d := st.State().Detail

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", d.ID)
	fmt.Fprintf(tw, "Name\t%s\n", d.Name)
	fmt.Fprintf(tw, "Brand\t%s\n", d.Brand)
	fmt.Fprintf(tw, "Type\t%s\n", d.Type)
	fmt.Fprintf(tw, "In stock\t%d (threshold %d, %s)\n", d.QuantityInStock, d.LowStockThreshold, d.StockStatus)
	fmt.Fprintf(tw, "Price\t%.2f from %s\n", d.CurrentPrice, d.CurrentSeller)
	fmt.Fprintf(tw, "Best price\t%.2f from %s\n", d.BestPrice, d.BestSeller)
	fmt.Fprintf(tw, "On list\t%t\n", d.ShouldInclude)
	fmt.Fprintf(tw, "Created\t%s\n", d.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "Updated\t%s\n", d.UpdatedAt.Format(time.RFC3339))
	return tw.Flush()
}

func add(ctx context.Context, st *inventory.Store, sets setFlags, w io.Writer) error {
	edits, err := sets.edits()
	if err != nil {
		return err
	}
	req := model.NewCreateRequest()
	req.Apply(edits...)
	if err := req.Validate(); err != nil {
		return err
	}

	if err := st.CreateGrocery(ctx, req); err != nil {
		return errors.New(inventory.UserMessage(err))
	}
	fmt.Fprintf(w, "Added %s.\n", req.Name)
	return nil
}

// edit loads the item first so unset fields keep their current values.
func edit(ctx context.Context, st *inventory.Store, id string, sets setFlags, w io.Writer) error {
	edits, err := sets.edits()
	if err != nil {
		return err
	}
	if len(edits) == 0 {
		return errors.New("edit: nothing to change, use --set field=value")
	}
	if err := st.GetGroceryDetail(ctx, id); err != nil {
		return errors.New(st.State().Error)
	}

	req := model.NewUpdateRequest(*st.State().Detail)
	req.Apply(edits...)
	if err := req.Validate(); err != nil {
		return err
	}
	if err := st.UpdateGrocery(ctx, id, req); err != nil {
		return errors.New(st.State().Error)
	}
	fmt.Fprintf(w, "Updated %s.\n", req.Name)
	return nil
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fake := fs.Bool("fake", false, "serve against an in-memory inventory API seeded with sample items")
	var origins setFlags
	fs.Var(&origins, "origin", "extra origin allowed to open /ws, repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	b, err := newBridge(ctx, cfg, logger, *fake, origins)
	if err != nil {
		return err
	}
	defer b.Close()
	srv := b.srv

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(ctx)
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := srv.RateLimiter().Cleanup(); n > 0 {
					logger.Debug("cleaned up rate limit windows", "count", n)
				}
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("pantry starting", "addr", httpServer.Addr, "api", b.baseURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down")
	cleanupCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// bridge is everything serve runs besides the listener.
type bridge struct {
	srv     *server.Server
	store   *inventory.Store
	baseURL string
	closers []func()
}

// newBridge starts the fake API when asked, opens the snapshot database,
// restores the last saved list and fetches the current one. A failed initial
// fetch is not fatal: the restored list is served until a refresh succeeds.
func newBridge(ctx context.Context, cfg config.Config, logger *slog.Logger, fake bool, origins []string) (*bridge, error) {
	b := &bridge{baseURL: cfg.BaseURL}

	if fake {
		api := groceryapitest.New()
		for _, req := range sampleGroceries() {
			api.Seed(req)
		}
		fakeSrv := api.Start()
		b.closers = append(b.closers, fakeSrv.Close)
		b.baseURL = fakeSrv.URL
		logger.Info("using in-memory inventory api", "url", fakeSrv.URL)
	}

	var opts []inventory.Option
	var db *sql.DB
	if cfg.DBPath != "" {
		var err error
		db, err = database.Open(cfg.DBPath)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("open database: %w", err)
		}
		b.closers = append(b.closers, func() { db.Close() })
		opts = append(opts, inventory.WithSnapshots(store.NewGrocerySnapshotStore(db)))
	}

	b.store = newStore(cfg, logger, groceryapi.Config{BaseURL: b.baseURL, Timeout: cfg.Timeout}, opts...)
	if err := b.store.Hydrate(ctx); err != nil {
		logger.Warn("restore snapshot", "error", err)
	}
	if err := b.store.FetchGroceries(ctx); err != nil {
		logger.Warn("initial fetch failed, serving last known list", "error", err)
	}

	b.srv = server.New(b.store, db, server.Config{OriginPatterns: origins}, logger)
	return b, nil
}

// Close releases resources in reverse order of acquisition.
func (b *bridge) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

func sampleGroceries() []model.GroceryCreateRequest {
	return []model.GroceryCreateRequest{
		{Name: "Miniket Rice", Brand: "Chashi", Type: model.GroceryTypeSack, CurrentPrice: 850, CurrentSeller: model.SellerShwapno, LowStockThreshold: 1, QuantityInStock: 2},
		{Name: "Soybean Oil", Brand: "Rupchanda", Type: model.GroceryTypeBottle, CurrentPrice: 190, CurrentSeller: model.SellerMeena, LowStockThreshold: 1, QuantityInStock: 1},
		{Name: "Red Lentils", Brand: "Teer", Type: model.GroceryTypePacket, CurrentPrice: 135, CurrentSeller: model.SellerLocal, LowStockThreshold: 2, QuantityInStock: 5},
	}
}
