package avtoversant

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"fuelcard-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// balance top-up ledger entries carry this marker in their row text,
// they are not fuel purchases and never appear in results
const topUpMarker = "Пополнение"

const transactionDateFormat = "2006-01-02 15:04:05"
const transactionPageSize = "100"
const transactionColumnCount = 8

type Transaction struct {
	Credential *Credential
	Station    Station
	Card       string
	// source-assigned, not guaranteed globally unique across portals
	Code    string
	Date    time.Time
	Service string
	Sum     float64
	Volume  float64
}

type transactionFilter struct {
	StartDate string `json:"start_date"`
	StartTime string `json:"start_time"`
	EndDate   string `json:"end_date"`
	EndTime   string `json:"end_time"`
	Page      int    `json:"page,omitempty"`
}

func newTransactionFilter(from, to time.Time) transactionFilter {
	return transactionFilter{
		StartDate: from.Format("2006-01-02"),
		StartTime: from.Format("15:04:05"),
		EndDate:   to.Format("2006-01-02"),
		EndTime:   to.Format("15:04:05"),
	}
}

// Transactions returns every fuel purchase between `from` and `to` in
// the order the portal lists them, page order ascending and row order
// as rendered within a page. The station directory is refreshed first,
// then pages are fetched strictly sequentially. Any transport error or
// malformed response aborts the whole run, there is no partial result.
func (c *Client) Transactions(ctx context.Context, from, to time.Time) ([]Transaction, error) {
	ctx, span := tracer.Start(ctx, "client:Transactions")
	defer span.End()

	if err := c.requireLogin(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	err := c.LoadStations(ctx)
	if err != nil {
		return nil, err
	}

	filter := newTransactionFilter(from, to)
	doc, err := c.fetchTransactionPage(ctx, filter)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch first transaction page")
		return nil, err
	}

	count, err := pageCount(doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to determine page count")
		return nil, err
	}
	span.SetAttributes(attribute.Int("pages", count))

	var transactions []Transaction
	for page := 1; page <= count; page++ {
		if page > 1 {
			filter.Page = page
			doc, err = c.fetchTransactionPage(ctx, filter)
			if err != nil {
				span.SetStatus(codes.Error, fmt.Sprintf("failed to fetch page %d", page))
				return nil, err
			}
		}

		transactions, err = c.appendRows(ctx, transactions, doc)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, fmt.Sprintf("failed to parse rows on page %d", page))
			return nil, err
		}
		slog.DebugContext(ctx, "parsed transaction page", "page", page, "of", count)
	}

	span.SetAttributes(attribute.Int("transactions", len(transactions)))
	return transactions, nil
}

func (c *Client) fetchTransactionPage(ctx context.Context, filter transactionFilter) (*goquery.Document, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParam("page_size", transactionPageSize).
		SetBody(filter).
		Post("/account/transactions")
	if err != nil {
		return nil, err
	}
	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		return nil, fmt.Errorf("transaction listing returned status %d", res.StatusCode())
	}
	return goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
}

// pageCount mirrors the portal's pagination markup exactly: the last
// control in the pagination block is the "next" arrow, the one before
// it holds the highest page number. No pagination block means the
// result set fits on a single page.
func pageCount(doc *goquery.Document) (int, error) {
	controls := doc.Find("ul.pagination li")
	if controls.Length() == 0 {
		return 1, nil
	}
	if controls.Length() < 2 {
		return 0, fmt.Errorf("pagination block has %d controls, expected at least 2", controls.Length())
	}

	text := htmlutil.CleanText(controls.Eq(controls.Length() - 2).Text())
	count, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("failed to parse page count from %q: %w", text, err)
	}
	return count, nil
}

func (c *Client) appendRows(ctx context.Context, out []Transaction, doc *goquery.Document) ([]Transaction, error) {
	var rowErr error
	doc.Find("table tbody tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		transaction, err := c.parseRow(ctx, row)
		if err != nil {
			rowErr = err
			return false
		}
		if transaction != nil {
			out = append(out, *transaction)
		}
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return out, nil
}

// parseRow converts one listing row into a Transaction. A nil, nil
// return means the row was dropped on purpose (top-up entry, contract
// outside the whitelist or a delisted station), which is not an error
// and is never reported as one.
func (c *Client) parseRow(ctx context.Context, row *goquery.Selection) (*Transaction, error) {
	if strings.Contains(row.Text(), topUpMarker) {
		return nil, nil
	}

	cells := htmlutil.CellTexts(row)
	if len(cells) != transactionColumnCount {
		return nil, fmt.Errorf(
			"expected %d cells in a transaction row, got %d",
			transactionColumnCount, len(cells),
		)
	}
	code := cells[0]
	dateText := cells[1]
	contract := cells[2]
	card := cells[3]
	stationCode := cells[4]
	service := cells[5]
	volumeText := cells[6]
	sumText := cells[7]

	date, err := time.Parse(transactionDateFormat, dateText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transaction date %q: %w", dateText, err)
	}

	if !c.credential.allowsContract(contract) {
		slog.DebugContext(ctx, "dropped row outside contract whitelist", "contract", contract, "code", code)
		return nil, nil
	}
	station, ok := c.stations.Lookup(stationCode)
	if !ok {
		slog.DebugContext(ctx, "dropped row referencing unknown station", "station", stationCode, "code", code)
		return nil, nil
	}

	// the portal renders plain period-decimal numbers with no
	// thousands separators, locale-specific formatting is unhandled
	volume, err := strconv.ParseFloat(volumeText, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fuel volume %q: %w", volumeText, err)
	}
	sum, err := strconv.ParseFloat(sumText, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transaction sum %q: %w", sumText, err)
	}

	return &Transaction{
		Credential: &c.credential,
		Station:    station,
		Card:       card,
		Code:       code,
		Date:       date,
		Service:    service,
		Sum:        sum,
		Volume:     volume,
	}, nil
}
