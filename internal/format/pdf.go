package format

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/josephgoksu/ReportWing/internal/report"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Printer turns a standalone HTML page into PDF bytes.
type Printer interface {
	PrintPDF(ctx context.Context, page []byte) ([]byte, error)
}

// PDFFormatter renders the Markdown report to HTML and prints it.
type PDFFormatter struct {
	Printer Printer
}

func (PDFFormatter) Extension() string { return "pdf" }

func (f PDFFormatter) Render(doc *report.Document, opts Options) ([]byte, error) {
	htmlPage, err := HTMLPage(doc, opts)
	if err != nil {
		return nil, err
	}
	printer := f.Printer
	if printer == nil {
		printer = NewChromePrinter()
	}
	return printer.PrintPDF(context.Background(), htmlPage)
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

const pageStyle = `body{font-family:Helvetica,Arial,sans-serif;font-size:11pt;line-height:1.45;margin:0 auto;max-width:48em;color:#222}
h1{color:#003366;text-align:center;font-size:24pt}
h2{color:#003366;border-bottom:1px solid #ccd;padding-bottom:.2em;page-break-after:avoid}
h3{color:#003366}
table{border-collapse:collapse;margin:1em 0}
th,td{border:1px solid #bbb;padding:.3em .6em}
th{background:#e8eef5}
pre{background:#f5f5f5;padding:.6em;font-size:9pt;white-space:pre-wrap}
img{max-width:100%}
hr{border:0;border-top:1px solid #ddd}`

// HTMLPage renders doc as a standalone HTML page. Relative diagram links
// resolve against opts.AssetDir.
func HTMLPage(doc *report.Document, opts Options) ([]byte, error) {
	md, err := MarkdownFormatter{}.Render(doc, opts)
	if err != nil {
		return nil, err
	}
	var body bytes.Buffer
	if err := markdown.Convert(md, &body); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}

	var out bytes.Buffer
	out.WriteString("<!doctype html>\n<html><head><meta charset=\"utf-8\">\n")
	fmt.Fprintf(&out, "<title>%s</title>\n", html.EscapeString(doc.Title))
	if opts.AssetDir != "" {
		if abs, err := filepath.Abs(opts.AssetDir); err == nil {
			fmt.Fprintf(&out, "<base href=\"file://%s/\">\n", html.EscapeString(filepath.ToSlash(abs)))
		}
	}
	fmt.Fprintf(&out, "<style>%s</style>\n</head><body>\n", pageStyle)
	out.Write(body.Bytes())
	out.WriteString("</body></html>\n")
	return out.Bytes(), nil
}

// ChromePrinter prints pages with a local headless Chrome.
type ChromePrinter struct {
	Timeout time.Duration
}

// NewChromePrinter returns a printer with a one-minute timeout.
func NewChromePrinter() *ChromePrinter {
	return &ChromePrinter{Timeout: time.Minute}
}

func (p *ChromePrinter) PrintPDF(ctx context.Context, htmlPage []byte) ([]byte, error) {
	// Chrome only resolves file:// images from a page that is itself on disk.
	tmp, err := os.CreateTemp("", "reportwing-*.html")
	if err != nil {
		return nil, fmt.Errorf("pdf: stage html: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(htmlPage); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("pdf: stage html: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("pdf: stage html: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("allow-file-access-from-files", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		browserCtx, cancel = context.WithTimeout(browserCtx, p.Timeout)
		defer cancel()
	}

	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("file://"+filepath.ToSlash(tmp.Name())),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithMarginTop(0.6).
				WithMarginBottom(0.6).
				Do(ctx)
			pdf = data
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("pdf: chrome: %w", err)
	}
	return pdf, nil
}
