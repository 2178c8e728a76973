package avtoversant

import (
	"context"
	"testing"

	"fuelcard-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func TestLoadStations(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/avtoversant")
	defer cleanup()

	portal := newFakePortal()
	portal.stationsBody = `[
		{"id": 42, "lat": 10.5, "lng": 20.1, "name": "N", "brand": "B", "address": "A"},
		{"id": 7, "name": "No coordinates"}
	]`
	client, credential := startFakePortal(t, portal)

	err := client.Login(context.Background(), credential)
	require.NoError(t, err)
	err = client.LoadStations(context.Background())
	require.NoError(t, err)

	station, ok := client.Stations().Lookup("42")
	require.True(t, ok)
	require.Equal(t, "N", station.Name)
	require.Equal(t, "B", station.Brand)
	require.Equal(t, "A", station.Address)
	require.NotNil(t, station.Point.Latitude)
	require.NotNil(t, station.Point.Longitude)
	require.Equal(t, 10.5, *station.Point.Latitude)
	require.Equal(t, 20.1, *station.Point.Longitude)

	station, ok = client.Stations().Lookup("7")
	require.True(t, ok)
	require.Nil(t, station.Point.Latitude)
	require.Nil(t, station.Point.Longitude)

	// delisted stations are an absent lookup, never an error
	_, ok = client.Stations().Lookup("999")
	require.False(t, ok)
}

func TestLoadStationsMalformedJson(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/avtoversant")
	defer cleanup()

	portal := newFakePortal()
	portal.stationsBody = `<html>definitely not json</html>`
	client, credential := startFakePortal(t, portal)

	err := client.Login(context.Background(), credential)
	require.NoError(t, err)
	err = client.LoadStations(context.Background())
	require.Error(t, err)
}

func TestLoadStationsRequiresLogin(t *testing.T) {
	client, err := NewClient()
	require.NoError(t, err)
	err = client.LoadStations(context.Background())
	require.Error(t, err)
}
