package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Listing is one row of the tender table: a numbered tariff case and the
// PDF documents attached to it.
type Listing struct {
	SerialNumber string
	Description  string
	PDFs         []string
}

// ScrapeListing parses the tender table on the given page and returns one
// Listing per row, with every .pdf link resolved against the page URL.
func (c *Client) ScrapeListing(ctx context.Context, pageURL string) ([]Listing, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing url %s: %w", pageURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build listing request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page: %w", err)
	}

	var listings []Listing
	doc.Find("table#table_tender tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		// Header rows use th and have no td cells.
		if cells.Length() < 3 {
			return
		}
		listing := Listing{
			SerialNumber: strings.TrimSpace(cells.Eq(0).Text()),
			Description:  strings.TrimSpace(cells.Eq(1).Text()),
		}
		cells.Eq(2).Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			if !strings.HasSuffix(strings.ToLower(href), ".pdf") {
				return
			}
			ref, err := url.Parse(href)
			if err != nil {
				c.logger.Warn("Skipping unparseable document link", "href", href)
				return
			}
			listing.PDFs = append(listing.PDFs, base.ResolveReference(ref).String())
		})
		if listing.SerialNumber != "" {
			listings = append(listings, listing)
		}
	})
	return listings, nil
}

// ListingName is the local directory name for a listing page: the last
// segment of its URL path.
func ListingName(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "listing"
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	name := segments[len(segments)-1]
	if name == "" {
		return "listing"
	}
	return name
}
