package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/core"
	"fintrack/internal/export"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func runAdd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "add")
	var in services.RecordInput
	fs.StringVar(&in.Amount, "amount", "", "amount, e.g. 12.50 or 12,50 (required)")
	fs.StringVar(&in.Category, "category", "", "category label (required)")
	fs.StringVar(&in.Description, "description", "", "optional note")
	fs.StringVar(&in.Date, "date", "", "date as YYYY-MM-DD (default today)")
	income := fs.Bool("income", false, "record income instead of an expense")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	in.Kind = core.KindOf(*income).String()

	t, err := a.service.Record(ctx, in)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(a.stdout, core.RecordOf(t))
	}
	fmt.Fprintf(a.stdout, "Recorded %s %d: %s %s on %s\n", t.Kind, t.ID, t.Amount, t.Category, t.Date)
	return nil
}

func idFlag(a *app, name string, args []string) (int64, bool, error) {
	fs := newFlagSet(a, name)
	id := fs.Int64("id", 0, "transaction id (required)")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := parseFlags(fs, args); err != nil {
		return 0, false, err
	}
	if *id <= 0 {
		return 0, false, fmt.Errorf("%w: -id is required", errUsage)
	}
	return *id, *asJSON, nil
}

func runDelete(ctx context.Context, a *app, args []string) error {
	id, asJSON, err := idFlag(a, "delete", args)
	if err != nil {
		return err
	}
	if err := a.service.Delete(ctx, id); err != nil {
		return err
	}
	if asJSON {
		return writeJSON(a.stdout, map[string]any{"deleted": id})
	}
	fmt.Fprintf(a.stdout, "Deleted transaction %d\n", id)
	return nil
}

func runShow(ctx context.Context, a *app, args []string) error {
	id, asJSON, err := idFlag(a, "show", args)
	if err != nil {
		return err
	}
	t, err := a.service.Get(ctx, id)
	if err != nil {
		return err
	}
	rec := core.RecordOf(t)
	if asJSON {
		return writeJSON(a.stdout, rec)
	}
	return printRecords(a.stdout, []core.HistoryRecord{rec})
}

func runCategories(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "categories")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cats, err := a.service.Categories(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(a.stdout, cats)
	}
	for _, c := range cats {
		fmt.Fprintln(a.stdout, c)
	}
	return nil
}

// periodFlags registers -year and -month; zero means the current period.
func periodFlags(a *app, name string, args []string) (core.Period, bool, error) {
	fs := newFlagSet(a, name)
	year := fs.Int("year", 0, "year (default current)")
	month := fs.Int("month", 0, "month 1-12 (default current)")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := parseFlags(fs, args); err != nil {
		return core.Period{}, false, err
	}
	p := a.engine.CurrentPeriod()
	if isSet(fs, "year") {
		p.Year = *year
	}
	if isSet(fs, "month") {
		p.Month = *month
	}
	return p, *asJSON, nil
}

func runSummary(ctx context.Context, a *app, args []string) error {
	p, asJSON, err := periodFlags(a, "summary", args)
	if err != nil {
		return err
	}
	mb, err := a.engine.MonthlyBalance(ctx, p)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(a.stdout, mb)
	}
	return printBalance(a.stdout, mb)
}

func runBreakdown(ctx context.Context, a *app, args []string) error {
	p, asJSON, err := periodFlags(a, "breakdown", args)
	if err != nil {
		return err
	}
	b, err := a.engine.ExpenseBreakdown(ctx, p)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(a.stdout, b)
	}
	if len(b) == 0 {
		fmt.Fprintf(a.stdout, "No expenses in %s\n", p)
		return nil
	}
	return printBreakdown(a.stdout, b)
}

func runHistory(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "history")
	n := fs.Int("limit", a.cfg.HistoryLimit, "number of transactions")
	all := fs.Bool("all", false, "print the full history")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	limit := core.LimitOf(*n)
	if *all {
		limit = core.Unbounded
	}
	records, err := a.engine.TransactionHistory(ctx, limit)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(a.stdout, records)
	}
	return printRecords(a.stdout, records)
}

func runTrend(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "trend")
	months := fs.Int("months", a.cfg.TrendMonths, "number of months, oldest first")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	points, err := a.engine.MonthlyTrend(ctx, *months)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(a.stdout, points)
	}
	return printTrend(a.stdout, points)
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "export")
	out := fs.String("out", "transactions.csv", "destination file")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	n, err := export.ExportFile(ctx, a.engine, *out)
	if errors.Is(err, export.ErrNothingToExport) {
		fmt.Fprintln(a.stdout, "No transactions to export")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Exported %d transactions to %s\n", n, *out)
	return nil
}

func runServe(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "serve")
	addr := fs.String("addr", a.cfg.Addr(), "listen address")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	opts := apphttp.Options{
		HistoryLimit: a.cfg.HistoryLimit,
		TrendMonths:  a.cfg.TrendMonths,
		Logger:       a.logger,
	}
	if repo := a.store.Repository; repo != nil {
		opts.Ready = repo.Ping
	}
	srv := apphttp.NewServer(*addr, a.engine, a.service, opts)

	ctx, cancel := cli.SignalContext(ctx, a.logger)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", "addr", *addr, "backend", a.cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen on %s: %w", *addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	cli.Shutdown(a.logger, 30*time.Second, srv.Shutdown)
	metrics := srv.Metrics()
	a.logger.Info("Served requests",
		"total", metrics.TotalRequests,
		"failed", metrics.FailedRequests,
		log.FieldOperation, "serve")
	return nil
}

// isSet reports whether the flag was given on the command line.
func isSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
