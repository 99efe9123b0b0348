package diagram

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/spf13/afero"
)

const defaultMermaidScript = "https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.min.js"

// ChromeRenderer renders Mermaid in a headless browser and screenshots the
// resulting SVG.
type ChromeRenderer struct {
	OutDir    string
	ScriptURL string
	Timeout   time.Duration
	Fs        afero.Fs
}

// NewChromeRenderer returns a PNG renderer backed by a local Chrome install.
func NewChromeRenderer(fs afero.Fs, outDir string) *ChromeRenderer {
	return &ChromeRenderer{OutDir: outDir, ScriptURL: defaultMermaidScript, Timeout: 30 * time.Second, Fs: fs}
}

func (r *ChromeRenderer) page(g Graph) string {
	return "data:text/html," + url.PathEscape(fmt.Sprintf(`<!doctype html><html><body style="background:white">
<pre class="mermaid">%s</pre>
<script src="%s"></script>
<script>mermaid.initialize({startOnLoad:true});</script>
</body></html>`, html.EscapeString(g.Mermaid()), r.ScriptURL))
}

func (r *ChromeRenderer) Render(ctx context.Context, name string, g Graph) (Artifact, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		browserCtx, cancel = context.WithTimeout(browserCtx, r.Timeout)
		defer cancel()
	}

	var buf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(r.page(g)),
		chromedp.WaitVisible("pre.mermaid svg", chromedp.ByQuery),
		chromedp.Screenshot("pre.mermaid svg", &buf, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return Artifact{}, ctx.Err()
		}
		return Artifact{}, fmt.Errorf("%w: chrome: %v", ErrUnavailable, err)
	}
	return writeArtifact(r.Fs, r.OutDir, name, "png", buf)
}
