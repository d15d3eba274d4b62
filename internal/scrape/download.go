package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/cenkalti/backoff/v4"
)

// Download fetches one document to destPath. Files already on disk are not
// refetched. Transient failures (network errors, 5xx, 429) retry with
// exponential backoff; other HTTP errors fail immediately. The returned bool
// reports whether a fetch actually happened.
func (c *Client) Download(ctx context.Context, rawURL, destPath string) (bool, error) {
	if _, err := os.Stat(destPath); err == nil {
		c.logger.Debug("File already downloaded", "path", destPath)
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return false, fmt.Errorf("failed to create download dir: %w", err)
	}

	operation := func() error {
		return c.fetchToFile(ctx, rawURL, destPath)
	}
	if err := backoff.Retry(operation, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return false, fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	return true, nil
}

func (c *Client) fetchToFile(ctx context.Context, rawURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	default:
		return backoff.Permanent(fmt.Errorf("server returned status %d", resp.StatusCode))
	}

	f, err := os.Create(destPath)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create %s: %w", destPath, err))
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(destPath)
		return fmt.Errorf("failed to write %s: %w", destPath, err)
	}
	return f.Close()
}

// DownloadOrders mirrors every attachment of the given orders under
// dir/orders. Failures are logged and skipped; the returned paths all exist
// locally, whether downloaded now or on an earlier run.
func (c *Client) DownloadOrders(ctx context.Context, orders []Order, dir string) []string {
	var paths []string
	for _, order := range orders {
		for _, att := range order.Attachments {
			name := att.Name
			if name == "" {
				name = fileName(att.URL)
			}
			destPath := filepath.Join(dir, "orders", name)
			downloaded, err := c.Download(ctx, att.URL, destPath)
			if err != nil {
				c.logger.Warn("Failed to download order attachment",
					"url", att.URL, "error", err)
				continue
			}
			if downloaded {
				c.logger.Info("Downloaded order attachment", "name", name)
			}
			paths = append(paths, destPath)
		}
	}
	return paths
}

// DownloadListings mirrors every PDF of the given listings under
// dir/<listing>/<serial number>/<file>.
func (c *Client) DownloadListings(ctx context.Context, listings []Listing, pageURL, dir string) []string {
	listingDir := ListingName(pageURL)
	var paths []string
	for _, listing := range listings {
		for _, pdfURL := range listing.PDFs {
			destPath := filepath.Join(dir, listingDir, listing.SerialNumber, fileName(pdfURL))
			downloaded, err := c.Download(ctx, pdfURL, destPath)
			if err != nil {
				c.logger.Warn("Failed to download listing document",
					"url", pdfURL, "sno", listing.SerialNumber, "error", err)
				continue
			}
			if downloaded {
				c.logger.Info("Downloaded listing document",
					"sno", listing.SerialNumber, "file", fileName(pdfURL))
			}
			paths = append(paths, destPath)
		}
	}
	return paths
}

// fileName is the base name of a document URL, without query parameters.
func fileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return path.Base(rawURL)
	}
	return path.Base(u.Path)
}
