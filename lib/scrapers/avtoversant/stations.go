package avtoversant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Point struct {
	Latitude  *float64
	Longitude *float64
}

type Station struct {
	// the stable identifier transaction rows reference, the string
	// form of the directory's numeric id
	Code    string
	Name    string
	Brand   string
	Address string
	Point   Point
}

// StationDirectory maps station codes to their attributes for one
// extraction run. It is built once by LoadStations and read-only
// afterwards.
type StationDirectory map[string]Station

// Lookup returns the station for `code`. An unknown code is a normal
// condition, stations get delisted while historical transactions still
// reference them.
func (d StationDirectory) Lookup(code string) (Station, bool) {
	station, ok := d[code]
	return station, ok
}

// the portal is inconsistent about whether ids come back as JSON
// numbers or strings, both decode to the string form used as the
// directory key
type stationId string

func (id *stationId) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = stationId(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = stationId(n.String())
	return nil
}

type stationObject struct {
	Id      stationId `json:"id"`
	Lat     *float64  `json:"lat"`
	Lng     *float64  `json:"lng"`
	Name    string    `json:"name"`
	Brand   string    `json:"brand"`
	Address string    `json:"address"`
}

// LoadStations fetches the portal's station directory and replaces the
// client's cached copy. Transactions calls this on every run, calling
// it again by hand merely refreshes the cache.
func (c *Client) LoadStations(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:LoadStations")
	defer span.End()

	if err := c.requireLogin(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		Get("/abakam/gasstations/stations")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch station directory")
		return err
	}
	if res.StatusCode() != http.StatusOK {
		err := fmt.Errorf("station directory returned status %d", res.StatusCode())
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	var objects []stationObject
	err = json.Unmarshal(res.Body(), &objects)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse station directory json")
		return err
	}

	directory := make(StationDirectory, len(objects))
	for _, obj := range objects {
		station := Station{
			Code:    string(obj.Id),
			Name:    obj.Name,
			Brand:   obj.Brand,
			Address: obj.Address,
			Point: Point{
				Latitude:  obj.Lat,
				Longitude: obj.Lng,
			},
		}
		directory[station.Code] = station
	}
	c.stations = directory

	span.SetAttributes(attribute.Int("stations", len(directory)))
	slog.DebugContext(ctx, "loaded station directory", "stations", len(directory))
	return nil
}

// Stations returns the directory cached by the last LoadStations call.
func (c *Client) Stations() StationDirectory {
	return c.stations
}
