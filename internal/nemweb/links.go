package nemweb

import (
	"context"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/JonMunkholm/nemfeed/internal/logging"
)

// ListArchives returns the archive URLs linked from the listing page, in
// document order. A page without archive links yields nil and no error.
//
// Each URL is the listing URL joined with the base name of the link, so
// hrefs that are absolute paths on the server still resolve under the
// listing directory.
func (c *Client) ListArchives(ctx context.Context, listingURL string) ([]string, error) {
	log := logging.WithFields(ctx, "listing", listingURL)

	resp, err := c.get(ctx, listingURL)
	if err != nil {
		log.Error("fetch listing failed", "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		err = transportError(listingURL, err)
		log.Error("decode listing failed", "error", err)
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		err = transportError(listingURL, err)
		log.Error("parse listing failed", "error", err)
		return nil, err
	}

	links := archiveLinks(doc, listingURL, c.cfg.ArchiveExtension)
	log.Debug("listing parsed", "archives", len(links))
	return links, nil
}

func archiveLinks(doc *goquery.Document, base, ext string) []string {
	base = strings.TrimRight(base, "/")

	var links []string
	doc.Find("a").Each(func(_ int, link *goquery.Selection) {
		href, exists := link.Attr("href")
		if !exists || !strings.HasSuffix(href, ext) {
			return
		}
		links = append(links, base+"/"+path.Base(href))
	})
	return links
}
