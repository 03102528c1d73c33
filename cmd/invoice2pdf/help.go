package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: invoice2pdf [convert] <archive.zip> [flags]")
	fmt.Fprintln(w, "       invoice2pdf <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert    Convert the invoices of a zip archive to PDF (default)")
	fmt.Fprintln(w, "  doctor     Check that a browser and a writable temp directory exist")
	fmt.Fprintln(w, "  config     Print the effective configuration")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'invoice2pdf help <command>' for details on a specific command.")
}

// printConvertUsage prints usage for the convert command.
func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: invoice2pdf convert <archive.zip> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Extract the archive (nested zips included), convert every HTML invoice")
	fmt.Fprintln(w, "to PDF, then merge the PDFs sorted by invoice date or copy them to a")
	fmt.Fprintln(w, "timestamped directory.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <dir>        Output directory (default: next to the archive)")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel workers (0 = auto)")
	fmt.Fprintln(w, "      --max-depth <n>       Nested archive depth (default 5, 0 = top level only)")
	fmt.Fprintln(w, "      --work-dir <dir>      Working directory (default: temporary)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Rendering:")
	fmt.Fprintln(w, "  -p, --page-size <s>       Page size: a3, a4, a5, letter, legal")
	fmt.Fprintln(w, "      --margin <mm>         Margin in millimeters (0-50)")
	fmt.Fprintln(w, "      --encoding <s>        Charset for invoices that declare none (default UTF-8)")
	fmt.Fprintln(w, "      --browser <path>      Chrome/Chromium binary (default: auto-detect)")
	fmt.Fprintln(w, "  -t, --timeout <d>         Per-document render timeout (default 30s)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Assembly:")
	fmt.Fprintln(w, "      --sort <s>            Merge order by date: ascending, descending")
	fmt.Fprintln(w, "      --no-sort             Merge in discovery order")
	fmt.Fprintln(w, "      --no-merge            Copy PDFs to invoices_<timestamp>/ instead")
	fmt.Fprintln(w, "      --open                Open the merged PDF when done")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "      --details             List failed documents (default true)")
	fmt.Fprintln(w, "      --log-level <s>       debug, info, warn, error (default warn)")
	fmt.Fprintln(w, "      --log-format <s>      text, json (default text)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  INVOICE2PDF_CONFIG, INVOICE2PDF_OUTPUT_DIR, INVOICE2PDF_BROWSER,")
	fmt.Fprintln(w, "  INVOICE2PDF_TIMEOUT, INVOICE2PDF_WORKERS, INVOICE2PDF_MAX_DEPTH,")
	fmt.Fprintln(w, "  INVOICE2PDF_SORT_ORDER, INVOICE2PDF_WORK_DIR, INVOICE2PDF_PAGE_SIZE,")
	fmt.Fprintln(w, "  INVOICE2PDF_ENCODING, INVOICE2PDF_LOG_LEVEL, INVOICE2PDF_LOG_FORMAT")
	fmt.Fprintln(w, "  Flags override environment variables, which override the config file.")
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: invoice2pdf doctor [--json] [--browser <path>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check the browser and temp directory a conversion needs.")
}

// printConfigUsage prints usage for the config command.
func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: invoice2pdf config [-c <name>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print the effective configuration as YAML.")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "convert":
		printConvertUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "config":
		printConfigUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: invoice2pdf version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: invoice2pdf help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
