package avtoversant

import (
	"context"
	"fmt"
	"testing"
	"time"

	"fuelcard-backend/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func rowSelection(t *testing.T, row string) *goquery.Selection {
	doc := parseDocument(t, "<table><tbody>"+row+"</tbody></table>")
	sel := doc.Find("tbody tr").First()
	require.Equal(t, 1, sel.Length())
	return sel
}

func testParserClient(contracts ...string) *Client {
	lat := 10.5
	lng := 20.1
	return &Client{
		credential: Credential{
			Login:     "test",
			Contracts: contracts,
		},
		stations: StationDirectory{
			"42": {
				Code: "42",
				Name: "N",
				Point: Point{
					Latitude:  &lat,
					Longitude: &lng,
				},
			},
		},
	}
}

func TestPageCount(t *testing.T) {
	single := parseDocument(t, transactionPage(0))
	count, err := pageCount(single)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	multi := parseDocument(t, transactionPage(7))
	count, err = pageCount(multi)
	require.NoError(t, err)
	require.Equal(t, 7, count)

	malformed := parseDocument(t, `<ul class="pagination"><li>what</li><li>&raquo;</li></ul>`)
	_, err = pageCount(malformed)
	require.Error(t, err)
}

func TestParseRowDropsTopUps(t *testing.T) {
	client := testParserClient()

	// top-up entries are dropped regardless of what else the row holds
	transaction, err := client.parseRow(
		context.Background(),
		rowSelection(t, "<tr><td>1</td><td>Пополнение</td><td>broken</td></tr>"),
	)
	require.NoError(t, err)
	require.Nil(t, transaction)

	transaction, err = client.parseRow(
		context.Background(),
		rowSelection(t, transactionRow("1", "2024-03-15 08:30:00", "001", "C", "42", "Пополнение счета", "0", "5000")),
	)
	require.NoError(t, err)
	require.Nil(t, transaction)
}

func TestParseRowDropsUnknownStations(t *testing.T) {
	client := testParserClient()

	transaction, err := client.parseRow(
		context.Background(),
		rowSelection(t, transactionRow("1", "2024-03-15 08:30:00", "001", "C", "999", "АИ-95", "45.5", "2500.75")),
	)
	require.NoError(t, err)
	require.Nil(t, transaction)
}

func TestParseRowContractWhitelist(t *testing.T) {
	row := transactionRow("1", "2024-03-15 08:30:00", "002", "C", "42", "АИ-95", "45.5", "2500.75")

	whitelisted := testParserClient("001", "003")
	transaction, err := whitelisted.parseRow(context.Background(), rowSelection(t, row))
	require.NoError(t, err)
	require.Nil(t, transaction)

	// an empty whitelist accepts every contract
	open := testParserClient()
	transaction, err = open.parseRow(context.Background(), rowSelection(t, row))
	require.NoError(t, err)
	require.NotNil(t, transaction)
	require.Equal(t, "C", transaction.Card)
}

func TestParseRowFields(t *testing.T) {
	client := testParserClient()

	transaction, err := client.parseRow(
		context.Background(),
		rowSelection(t, transactionRow("1001", "2024-03-15 08:30:00", "001", "CARD-9", "42", "АИ-95", "45.5", "2500.75")),
	)
	require.NoError(t, err)
	require.NotNil(t, transaction)

	require.Equal(t, "1001", transaction.Code)
	require.Equal(t, time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC), transaction.Date)
	require.Equal(t, "CARD-9", transaction.Card)
	require.Equal(t, "АИ-95", transaction.Service)
	require.Equal(t, 45.5, transaction.Volume)
	require.Equal(t, 2500.75, transaction.Sum)
	require.Equal(t, "42", transaction.Station.Code)
	require.Equal(t, 10.5, *transaction.Station.Point.Latitude)
	require.Equal(t, 20.1, *transaction.Station.Point.Longitude)
	require.Equal(t, "test", transaction.Credential.Login)
}

func TestParseRowFailures(t *testing.T) {
	client := testParserClient()

	// a misaligned row must fail loudly, not parse the wrong columns
	_, err := client.parseRow(
		context.Background(),
		rowSelection(t, "<tr><td>1</td><td>2024-03-15 08:30:00</td><td>001</td></tr>"),
	)
	require.Error(t, err)

	_, err = client.parseRow(
		context.Background(),
		rowSelection(t, transactionRow("1", "15.03.2024 08:30", "001", "C", "42", "АИ-95", "45.5", "2500.75")),
	)
	require.Error(t, err)

	_, err = client.parseRow(
		context.Background(),
		rowSelection(t, transactionRow("1", "2024-03-15 08:30:00", "001", "C", "42", "АИ-95", "45,5", "2500.75")),
	)
	require.Error(t, err)
}

func TestTransactionsSinglePage(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/avtoversant")
	defer cleanup()

	portal := newFakePortal()
	portal.stationsBody = `[{"id": "001", "lat": 1.5, "lng": 2.5, "name": "Station one", "brand": "B", "address": "A"}]`
	portal.pages[1] = transactionPage(
		0,
		transactionRow("2000", "2024-02-01 10:00:00", "001", "C", "001", "Пополнение счета", "0", "5000"),
		transactionRow("2001", "2024-02-02 11:30:00", "001", "CARD-1", "001", "АИ-92", "30.1", "1500.5"),
	)
	client, credential := startFakePortal(t, portal)

	err := client.Login(context.Background(), credential)
	require.NoError(t, err)

	transactions, err := client.Transactions(
		context.Background(),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	require.Len(t, transactions, 1)
	require.Equal(t, "2001", transactions[0].Code)
	require.Equal(t, "001", transactions[0].Station.Code)
	require.Equal(t, "Station one", transactions[0].Station.Name)

	// no pagination markup collapses to a single page fetch
	require.Equal(
		t,
		[]string{"login", "stations", "page:first"},
		portal.recordedRequests(),
	)
}

func TestTransactionsPaginatesAscending(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/avtoversant")
	defer cleanup()

	portal := newFakePortal()
	portal.stationsBody = `[{"id": 42, "lat": 10.5, "lng": 20.1, "name": "N", "brand": "B", "address": "A"}]`
	for page := 1; page <= 7; page++ {
		portal.pages[page] = transactionPage(7, transactionRow(
			fmt.Sprintf("%d", 3000+page),
			"2024-03-15 08:30:00", "001", "CARD-1", "42", "АИ-95", "45.5", "2500.75",
		))
	}
	client, credential := startFakePortal(t, portal)

	err := client.Login(context.Background(), credential)
	require.NoError(t, err)

	transactions, err := client.Transactions(
		context.Background(),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	require.Equal(
		t,
		[]string{
			"login", "stations",
			"page:first", "page:2", "page:3", "page:4", "page:5", "page:6", "page:7",
		},
		portal.recordedRequests(),
	)

	// row order mirrors the listing: page ascending, rows in page order
	require.Len(t, transactions, 7)
	for i, transaction := range transactions {
		require.Equal(t, fmt.Sprintf("%d", 3001+i), transaction.Code)
	}
}

func TestTransactionsFilterBody(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 7, 1, 23, 59, 59, 0, time.UTC)

	filter := newTransactionFilter(from, to)
	require.Equal(t, "2024-01-01", filter.StartDate)
	require.Equal(t, "00:00:00", filter.StartTime)
	require.Equal(t, "2024-07-01", filter.EndDate)
	require.Equal(t, "23:59:59", filter.EndTime)
}
