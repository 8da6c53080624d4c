package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/warp/monotax/ledger"
	"github.com/warp/monotax/report"
	"github.com/warp/monotax/statement"
)

// =============================================================================
// SHARED FLAGS
// =============================================================================

type criteriaFlags struct {
	year    *string
	quarter *string
	toDate  *bool
}

func addCriteriaFlags(fs *flag.FlagSet) criteriaFlags {
	return criteriaFlags{
		year:    fs.String("year", "any", "year: a number, current or any"),
		quarter: fs.String("quarter", "any", "quarter: Q1..Q4, current or any"),
		toDate:  fs.Bool("to-date", false, "include earlier quarters of the year"),
	}
}

func (c criteriaFlags) criteria() (ledger.Criteria, error) {
	return ledger.ParseCriteria(*c.year, *c.quarter, *c.toDate)
}

// withOutput runs write against the file at path, or stdout when path is empty.
func withOutput(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errors.New("expected one payment id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid payment id %q", args[0])
	}
	return id, nil
}

// =============================================================================
// INCOMES
// =============================================================================

func cmdImport(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	cf := addCriteriaFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("import: no statement files given")
	}
	criteria, err := cf.criteria()
	if err != nil {
		return err
	}

	reader := statement.UniversalBank{}
	for _, path := range fs.Args() {
		parsed, err := readStatement(reader, path, criteria, e.svc.Now())
		if err != nil {
			return err
		}
		res, err := e.svc.ImportIncomes(ctx, parsed.Incomes)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "%s: read %d, imported %d, duplicates %d, skipped %d\n",
			path, res.Read, res.Imported, res.Duplicates, parsed.Skipped)
	}
	return nil
}

func readStatement(reader statement.UniversalBank, path string, criteria ledger.Criteria, now time.Time) (statement.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return statement.Result{}, err
	}
	defer f.Close()

	res, err := reader.Read(f, criteria, now)
	if err != nil {
		return statement.Result{}, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

func cmdIncomes(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("incomes", flag.ContinueOnError)
	cf := addCriteriaFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	criteria, err := cf.criteria()
	if err != nil {
		return err
	}

	incomes, err := e.svc.Incomes(ctx, criteria)
	if err != nil {
		return err
	}
	return report.WriteIncomesText(e.out, incomes)
}

func cmdTaxer(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("taxer", flag.ContinueOnError)
	cf := addCriteriaFlags(fs)
	output := fs.String("o", "", "output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	criteria, err := cf.criteria()
	if err != nil {
		return err
	}

	incomes, err := e.svc.Incomes(ctx, criteria)
	if err != nil {
		return err
	}
	return withOutput(*output, e.out, func(w io.Writer) error {
		return report.WriteTaxerCSV(w, incomes, e.cfg.Taxer)
	})
}

// =============================================================================
// REPORTS
// =============================================================================

func cmdReport(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	cf := addCriteriaFlags(fs)
	format := fs.String("format", "text", "text, csv or pdf")
	output := fs.String("o", "", "output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	criteria, err := cf.criteria()
	if err != nil {
		return err
	}

	rep, err := e.svc.QuarterlyReport(ctx, criteria)
	if err != nil {
		return err
	}

	var write func(io.Writer) error
	switch *format {
	case "text":
		write = func(w io.Writer) error { return report.WriteQuarterlyText(w, rep) }
	case "csv":
		write = func(w io.Writer) error { return report.WriteQuarterlyCSV(w, rep) }
	case "pdf":
		if *output == "" {
			return errors.New("report: -format pdf needs -o")
		}
		title := "Quarterly income report"
		if e.cfg.Taxer.AccountName != "" {
			title += " - " + e.cfg.Taxer.AccountName
		}
		write = func(w io.Writer) error { return report.WriteQuarterlyPDF(w, rep, title, e.svc.Now()) }
	default:
		return fmt.Errorf("report: unknown format %q", *format)
	}
	return withOutput(*output, e.out, write)
}

func cmdBalance(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("balance", flag.ContinueOnError)
	cf := addCriteriaFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	criteria, err := cf.criteria()
	if err != nil {
		return err
	}

	rep, err := e.svc.BalanceReport(ctx, criteria)
	if err != nil {
		return err
	}
	return report.WriteBalanceText(e.out, rep)
}

// =============================================================================
// PAYMENTS
// =============================================================================

func cmdPay(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("pay", flag.ContinueOnError)
	date := fs.String("date", "", "payment day YYYY-MM-DD (default: today)")
	recordOnly := fs.Bool("record", false, "record without applying")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("pay: expected one amount")
	}

	amount, err := ledger.ParseAmount(fs.Arg(0))
	if err != nil {
		return err
	}
	paidAt := ledger.DateOf(e.svc.Now())
	if *date != "" {
		if paidAt, err = ledger.ParseDate(*date); err != nil {
			return fmt.Errorf("pay: %w", err)
		}
	}

	if *recordOnly {
		p, err := e.svc.RecordPayment(ctx, amount, paidAt)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "recorded payment %d\n", p.ID)
		return nil
	}

	p, res, err := e.svc.Pay(ctx, amount, paidAt)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "payment %d applied\n", p.ID)
	return report.WriteReconcileText(e.out, res)
}

func cmdPayments(ctx context.Context, e *env, _ []string) error {
	payments, err := e.svc.Payments(ctx)
	if err != nil {
		return err
	}
	return report.WritePaymentsText(e.out, payments)
}

func cmdApply(ctx context.Context, e *env, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	res, err := e.svc.ApplyPayment(ctx, id)
	if err != nil {
		return err
	}
	return report.WriteReconcileText(e.out, res)
}

func cmdUnpay(ctx context.Context, e *env, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	deleted, err := e.svc.UndoPayment(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "payment %d: removed %d reconciliations\n", id, deleted)
	return nil
}

// =============================================================================
// TAXES
// =============================================================================

func cmdTax(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return errors.New("tax: expected list, create or add-rate")
	}

	switch sub, rest := args[0], args[1:]; sub {
	case "list":
		taxes, err := e.svc.Taxes(ctx)
		if err != nil {
			return err
		}
		return report.WriteTaxesText(e.out, taxes)

	case "create":
		if len(rest) < 1 {
			return errors.New("tax create: expected NAME YYYY-MM-DD=RATE...")
		}
		changes := make([]ledger.RateChange, 0, len(rest)-1)
		for _, arg := range rest[1:] {
			day, rate, ok := strings.Cut(arg, "=")
			if !ok {
				return fmt.Errorf("tax create: %q is not YYYY-MM-DD=RATE", arg)
			}
			ch, err := parseRateChange(day, rate)
			if err != nil {
				return err
			}
			changes = append(changes, ch)
		}
		tax, err := e.svc.CreateTax(ctx, rest[0], changes)
		if err != nil {
			return err
		}
		return report.WriteTaxesText(e.out, []*ledger.IncomeTax{tax})

	case "add-rate":
		if len(rest) != 3 {
			return errors.New("tax add-rate: expected NAME YYYY-MM-DD RATE")
		}
		ch, err := parseRateChange(rest[1], rest[2])
		if err != nil {
			return err
		}
		tax, err := e.svc.AddRateChange(ctx, rest[0], ch)
		if err != nil {
			return err
		}
		return report.WriteTaxesText(e.out, []*ledger.IncomeTax{tax})

	default:
		return fmt.Errorf("tax: unknown subcommand %q", sub)
	}
}

func parseRateChange(day, rate string) (ledger.RateChange, error) {
	start, err := ledger.ParseDate(day)
	if err != nil {
		return ledger.RateChange{}, fmt.Errorf("rate start: %w", err)
	}
	r, err := ledger.ParseTaxRate(rate)
	if err != nil {
		return ledger.RateChange{}, err
	}
	return ledger.RateChange{Start: start, Rate: r}, nil
}
