package avtoversant

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

// fakePortal stands in for the avtoversant portal over httptest. It
// records every request so tests can assert on ordering and on the
// wire contract.
type fakePortal struct {
	mu sync.Mutex

	loginStatus  int
	stationsBody string
	// transaction listing pages keyed by page number, page 1 also
	// serves the initial request that carries no page field
	pages map[int]string

	requests    []string
	loginBodies []map[string]any
	loginHeader http.Header
}

func newFakePortal() *fakePortal {
	return &fakePortal{
		loginStatus: http.StatusOK,
		pages:       map[int]string{},
	}
}

func (p *fakePortal) recordedRequests() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.requests...)
}

func (p *fakePortal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/account/login":
		p.requests = append(p.requests, "login")
		p.loginHeader = r.Header.Clone()

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			p.loginBodies = append(p.loginBodies, body)
		}
		w.WriteHeader(p.loginStatus)

	case r.Method == http.MethodGet && r.URL.Path == "/abakam/gasstations/stations":
		p.requests = append(p.requests, "stations")
		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, p.stationsBody)

	case r.Method == http.MethodPost && r.URL.Path == "/account/transactions":
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		page := 1
		tag := "page:first"
		if raw, ok := body["page"]; ok {
			page = int(raw.(float64))
			tag = fmt.Sprintf("page:%d", page)
		}
		p.requests = append(p.requests, tag)

		if r.URL.Query().Get("page_size") != "100" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		html, ok := p.pages[page]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("content-type", "text/html")
		fmt.Fprint(w, html)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func startFakePortal(t *testing.T, portal *fakePortal) (*Client, Credential) {
	server := httptest.NewServer(portal)
	t.Cleanup(server.Close)

	client, err := NewClient()
	require.NoError(t, err)

	return client, Credential{
		Url:      server.URL,
		Login:    "test",
		Password: "v78ilRB63Y1b",
	}
}

func transactionRow(code, date, contract, card, station, service, volume, sum string) string {
	return fmt.Sprintf(
		"<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
		code, date, contract, card, station, service, volume, sum,
	)
}

func transactionPage(paginationCount int, rows ...string) string {
	var pagination string
	if paginationCount > 0 {
		var items strings.Builder
		for i := 1; i <= paginationCount; i++ {
			fmt.Fprintf(&items, "<li><a href=\"#\">%d</a></li>", i)
		}
		items.WriteString(`<li><a href="#">&raquo;</a></li>`)
		pagination = fmt.Sprintf(`<ul class="pagination">%s</ul>`, items.String())
	}

	return fmt.Sprintf(
		`<html><body><table>
			<thead><tr><th>ID</th><th>Дата</th><th>Договор</th><th>Карта</th><th>АЗС</th><th>Услуга</th><th>Литры</th><th>Сумма</th></tr></thead>
			<tbody>%s</tbody>
		</table>%s</body></html>`,
		strings.Join(rows, "\n"), pagination,
	)
}

func parseDocument(t *testing.T, html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}
