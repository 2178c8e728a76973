package commands

import (
	"fmt"
	"os"
	"sort"

	"fuelcard-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(stationsCmd)
}

var stationsCmd = &cobra.Command{
	Use:   "stations",
	Short: "Prints the portal's gas station directory.",
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient(cmd.Context())

		err := client.LoadStations(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to load station directory", err)
		}

		directory := client.Stations()
		codes := make([]string, 0, len(directory))
		for code := range directory {
			codes = append(codes, code)
		}
		sort.Strings(codes)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Code", "Name", "Brand", "Latitude", "Longitude", "Address"})
		for _, code := range codes {
			station := directory[code]

			latitude := ""
			if station.Point.Latitude != nil {
				latitude = fmt.Sprintf("%f", *station.Point.Latitude)
			}
			longitude := ""
			if station.Point.Longitude != nil {
				longitude = fmt.Sprintf("%f", *station.Point.Longitude)
			}

			t.AppendRow(table.Row{
				station.Code,
				station.Name,
				station.Brand,
				latitude,
				longitude,
				station.Address,
			})
		}
		t.Render()
	},
}
