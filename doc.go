// Package invoice2pdf converts archives of electronic invoices to PDF.
//
// # Quick Start
//
// Create a pipeline, run it on a zip archive, and close it when done:
//
//	p := invoice2pdf.New()
//	defer p.Close()
//
//	outcome, err := p.Run(ctx, "invoices.zip", "out")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(outcome.OutputPath)
//
// The outcome tells whether the PDFs were merged into one file or copied
// into a timestamped directory, and lists the documents that failed.
//
// # Pipeline
//
// A run goes through these stages:
//
//  1. Extraction of the archive and of the archives nested in it, up to
//     Settings.MaxDepth
//  2. Discovery of HTML invoices and XML metadata documents
//  3. Matching by file stem; dates come from the XML IssueDate, or from
//     labeled dates in the HTML text when no metadata is available
//  4. Rendering via headless Chrome (go-rod), falling back from full
//     options to minimal options to in-memory content
//  5. Assembly: a date-sorted merge via pdfcpu, or a copy of each PDF
//     named after its 16 character invoice identifier
//
// Failures of single documents never abort a run. Run returns an error only
// when nothing useful can be produced; check it with errors.Is against the
// sentinel errors of this package (ErrNoRenderables, ErrNoPDFsProduced...).
//
// # Configuration
//
// Use functional options to customize the pipeline:
//
//	settings := invoice2pdf.DefaultSettings()
//	settings.SortOrder = invoice2pdf.SortDescending
//	settings.Render.PageSize = invoice2pdf.PageSizeLetter
//
//	p := invoice2pdf.New(
//	    invoice2pdf.WithSettings(settings),
//	    invoice2pdf.WithTimeout(time.Minute),
//	    invoice2pdf.WithWorkers(4),
//	    invoice2pdf.WithLogger(slog.Default()),
//	)
//
// # Progress
//
// A Sink receives every user-facing event with its level and, for stage
// changes, a percentage between 0 and 100:
//
//	events := make(chan invoice2pdf.Event, 64)
//	p := invoice2pdf.New(invoice2pdf.WithSink(invoice2pdf.ChannelSink(events)))
//
// Sinks are called from worker goroutines but never concurrently.
package invoice2pdf
