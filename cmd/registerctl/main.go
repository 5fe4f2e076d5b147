// Command registerctl manages committee register tables: import a CSV
// source, list and edit records, append blank records and export with
// backup rotation.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"registercore/internal/archive"
	"registercore/internal/core"
	"registercore/internal/infra/persistence/memory"
	"registercore/internal/infra/persistence/postgres"
	"registercore/internal/infra/persistence/sqlite"
	"registercore/internal/ingest"
	"registercore/internal/query"
	"registercore/pkg/domain"
)

var exitFunc = os.Exit

// main runs the command-line interface using the program arguments and
// exits the process with the status code returned by cli.
func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

func cli(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	command := args[0]

	fs := flag.NewFlagSet("registerctl "+command, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		driver     = fs.String("driver", "sqlite", "record store driver: memory|sqlite|postgres")
		dsn        = fs.String("store", "registers.db", "sqlite database path or postgres DSN")
		register   = fs.String("register", string(domain.RegisterContract), "register type: contract|agreement|permit")
		editor     = fs.String("editor", defaultEditor(), "editor attribution recorded on writes")
		useArchive = fs.Bool("archive", false, "attach the artifact archive configured by REGISTERCORE_ARCHIVE_* variables")
		verbose    = fs.Bool("verbose", false, "enable debug logging")
	)
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	ctx := context.Background()
	svc, err := buildService(ctx, *driver, *dsn, *useArchive, *verbose)
	if err != nil {
		fmt.Fprintf(stderr, "registerctl: %v\n", err)
		return 1
	}
	defer func() { _ = svc.Close() }()

	rt := domain.RegisterType(*register)
	if err := runCommand(ctx, svc, command, rt, *editor, fs.Args(), stdout); err != nil {
		fmt.Fprintf(stderr, "registerctl %s: %v\n", command, err)
		return 1
	}
	return 0
}

func runCommand(ctx context.Context, svc *core.Service, command string, rt domain.RegisterType, editor string, args []string, stdout io.Writer) error {
	switch command {
	case "import":
		return runImport(ctx, svc, rt, args, stdout)
	case "list":
		return runList(ctx, svc, rt, stdout)
	case "edit":
		return runEdit(ctx, svc, rt, editor, args, stdout)
	case "new":
		rec, err := svc.NewRecord(ctx, rt, editor)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "created record %d\n", rec.ID)
		return nil
	case "export":
		if len(args) != 1 {
			return fmt.Errorf("usage: export <path>")
		}
		backup, err := svc.Export(ctx, rt, args[0])
		if err != nil {
			return err
		}
		if backup != "" {
			fmt.Fprintf(stdout, "previous export kept as %s\n", backup)
		}
		fmt.Fprintf(stdout, "exported %s to %s\n", rt, args[0])
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func runImport(ctx context.Context, svc *core.Service, rt domain.RegisterType, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: import <source.csv>")
	}
	path := args[0]
	table, err := readTable(path)
	if err != nil {
		return err
	}
	report := svc.Import(ctx, rt, table)
	if report.Err != nil {
		return report.Err
	}
	if err := svc.ArchiveSource(ctx, rt, baseName(path), path); err != nil {
		return fmt.Errorf("archive source: %w", err)
	}
	fmt.Fprintf(stdout, "imported %d rows into %s\n", report.Imported, rt)
	for _, rej := range report.Rejected {
		fmt.Fprintf(stdout, "rejected row %d: %s\n", rej.Row+1, rej.Reason)
	}
	return nil
}

func runList(ctx context.Context, svc *core.Service, rt domain.RegisterType, stdout io.Writer) error {
	schema, ok := svc.Registry().Schema(rt)
	if !ok {
		return domain.ErrUnknownRegister{Register: rt}
	}
	records, err := svc.Records(ctx, rt)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(stdout, 2, 4, 2, ' ', 0)
	header := []string{"id"}
	for _, col := range schema.Columns() {
		header = append(header, col.Name)
	}
	header = append(header, "editor", "flags")
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, rec := range records {
		row := []string{strconv.FormatInt(rec.ID, 10)}
		for _, v := range rec.Values {
			row = append(row, v.Render())
		}
		row = append(row, rec.Editor, flagMarks(query.Flags(schema, domain.ConventionPositiveOverdue, rec)))
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

func runEdit(ctx context.Context, svc *core.Service, rt domain.RegisterType, editor string, args []string, stdout io.Writer) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: edit <id> <column> <value>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", args[0])
	}
	schema, ok := svc.Registry().Schema(rt)
	if !ok {
		return domain.ErrUnknownRegister{Register: rt}
	}
	value, err := parseCellValue(schema, args[1], args[2])
	if err != nil {
		return err
	}
	updated, err := svc.EditField(ctx, rt, id, args[1], value, editor)
	if err != nil {
		return err
	}
	v, _ := updated.Value(schema, args[1])
	fmt.Fprintf(stdout, "record %d: %s = %s (editor %s)\n", id, args[1], v.Render(), updated.Editor)
	return nil
}

// parseCellValue coerces CLI input to the column's kind. An empty value
// clears the cell.
func parseCellValue(schema *domain.Schema, column, raw string) (domain.Value, error) {
	col, ok := schema.Column(column)
	if !ok {
		return domain.Value{}, domain.ErrUnknownColumn{Register: schema.Type(), Column: column}
	}
	if strings.TrimSpace(raw) == "" {
		return domain.NullValue(), nil
	}
	switch col.Kind {
	case domain.KindInteger:
		n, ok := domain.ParseInteger(raw)
		if !ok {
			return domain.Value{}, fmt.Errorf("%q is not an integer", raw)
		}
		return domain.IntegerValue(n), nil
	case domain.KindDecimal:
		f, ok := domain.ParseDecimal(raw)
		if !ok {
			return domain.Value{}, fmt.Errorf("%q is not a number", raw)
		}
		return domain.DecimalValue(f), nil
	case domain.KindDate:
		canonical, ok := domain.ParseDate(raw)
		if !ok {
			return domain.Value{}, fmt.Errorf("%q is not a date", raw)
		}
		return domain.DateValue(canonical), nil
	default:
		return domain.TextValue(raw), nil
	}
}

func buildService(ctx context.Context, driver, dsn string, useArchive, verbose bool) (*core.Service, error) {
	registry, err := domain.NewRegistry()
	if err != nil {
		return nil, err
	}
	formulas := domain.NewFormulaSet()

	var store domain.RecordStore
	switch driver {
	case "memory":
		store = memory.NewStore(registry, formulas)
	case "sqlite":
		store, err = sqlite.NewStore(dsn, registry, formulas)
	case "postgres":
		store, err = postgres.NewStore(dsn, registry, formulas)
	default:
		return nil, fmt.Errorf("unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	opts := []core.Option{core.WithLogger(core.NewStdLogger(verbose))}
	if useArchive {
		arch, err := archive.Open(ctx)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		opts = append(opts, core.WithArchive(arch))
	}
	return core.NewService(store, registry, formulas, opts...), nil
}

func readTable(path string) (ingest.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return ingest.Table{}, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return ingest.Table{}, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return ingest.Table{}, fmt.Errorf("%s has no header row", path)
	}
	return ingest.Table{Headers: rows[0], Rows: rows[1:]}, nil
}

func flagMarks(f domain.RowFlags) string {
	marks := ""
	if f.Overdue {
		marks += "!"
	}
	if f.Warning {
		marks += "?"
	}
	return marks
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

func defaultEditor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `usage: registerctl <command> [flags] [args]

commands:
  import <source.csv>       replace the register with the file's rows
  list                      print the register with highlight flags
  edit <id> <column> <value> update one cell
  new                       append a record with default values
  export <path>             write the register as CSV, rotating backups

flags (after the command):
  -driver, -store, -register, -editor, -archive, -verbose`)
}
