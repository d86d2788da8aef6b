package bridge

import (
	"context"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

var pdfFormMarkers = []string{"10-K", "20-F", "10K", "20F"}

// findPDFURL looks for a PDF alternative of an HTML filing on its EDGAR
// index page. Returns "" when none exists, which is the common case for
// modern XBRL filings.
func (b *Bridge) findPDFURL(ctx context.Context, htmlURL string) string {
	if !strings.Contains(htmlURL, "/Archives/edgar/data/") {
		return ""
	}
	slash := strings.LastIndex(htmlURL, "/")
	if slash < 0 {
		return ""
	}
	baseURL := htmlURL[:slash]
	indexURL := baseURL + "/index.html"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, indexURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", b.userAgent)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("url", indexURL).Msg("index page fetch failed")
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		log.Warn().Err(err).Str("url", indexURL).Msg("index page parse failed")
		return ""
	}

	type pdfLink struct {
		href string
		text string
	}
	var links []pdfLink
	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if !strings.HasSuffix(strings.ToLower(href), ".pdf") || seen[href] {
			return
		}
		seen[href] = true
		links = append(links, pdfLink{href: href, text: strings.TrimSpace(link.Text())})
	})
	if len(links) == 0 {
		return ""
	}

	// Prefer a PDF that names the form type, else take the first.
	chosen := ""
	for _, l := range links {
		upper := strings.ToUpper(l.href + l.text)
		for _, marker := range pdfFormMarkers {
			if strings.Contains(upper, marker) {
				chosen = l.href
				break
			}
		}
		if chosen != "" {
			break
		}
	}
	if chosen == "" {
		chosen = links[0].href
	}

	if strings.HasPrefix(chosen, "http") {
		return chosen
	}
	return baseURL + "/" + strings.TrimPrefix(chosen, "/")
}
