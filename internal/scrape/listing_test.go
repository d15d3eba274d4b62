package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `<html><body>
<table id="table_tender">
  <tr><th>Sno</th><th>Description</th><th>Documents</th></tr>
  <tr>
    <td> 1 </td>
    <td>MYT Order for MSEDCL FY 2025-26</td>
    <td>
      <a href="/uploads/myt_order.pdf">Order</a>
      <a href="https://files.example.com/annexure.PDF">Annexure</a>
      <a href="/uploads/notes.docx">Notes</a>
    </td>
  </tr>
  <tr>
    <td>2</td>
    <td>Wheeling charges case</td>
    <td>No documents yet</td>
  </tr>
</table>
<table id="other_table">
  <tr><td>9</td><td>Unrelated</td><td><a href="/unrelated.pdf">x</a></td></tr>
</table>
</body></html>`

func TestScrapeListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listingHTML))
	}))
	defer srv.Close()

	pageURL := srv.URL + "/tenders/current-tenders"
	listings, err := testClient(t).ScrapeListing(context.Background(), pageURL)
	require.NoError(t, err)
	require.Len(t, listings, 2)

	assert.Equal(t, "1", listings[0].SerialNumber)
	assert.Equal(t, "MYT Order for MSEDCL FY 2025-26", listings[0].Description)
	require.Len(t, listings[0].PDFs, 2)
	assert.Equal(t, srv.URL+"/uploads/myt_order.pdf", listings[0].PDFs[0])
	assert.Equal(t, "https://files.example.com/annexure.PDF", listings[0].PDFs[1])

	assert.Equal(t, "2", listings[1].SerialNumber)
	assert.Empty(t, listings[1].PDFs)
}

func TestScrapeListing_NoTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>maintenance</p></body></html>"))
	}))
	defer srv.Close()

	listings, err := testClient(t).ScrapeListing(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestScrapeListing_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(t).ScrapeListing(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestListingName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://merc.gov.in/orders-cat/current-tenders/", "current-tenders"},
		{"https://merc.gov.in/tariff-orders", "tariff-orders"},
		{"https://merc.gov.in/", "listing"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ListingName(tt.url), "url %s", tt.url)
	}
}
