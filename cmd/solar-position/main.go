package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/chrissnell/solarmax/pkg/solar"
)

const timeLayout = "2006-01-02T15:04:05"

func main() {
	var (
		lat, lon float64
		offset   int
		timeStr  string
		hourly   bool
	)
	flag.Float64Var(&lat, "lat", 35.2455556, "Latitude in decimal degrees")
	flag.Float64Var(&lon, "lon", -97.4721389, "Longitude in decimal degrees, negative west")
	flag.IntVar(&offset, "offset", -4, "UTC offset of the local clock in hours")
	flag.StringVar(&timeStr, "time", "", "Local wall-clock time (e.g., 2021-04-13T12:00:00); defaults to now")
	flag.BoolVar(&hourly, "hourly", false, "Print an hourly table for the day instead of a single position")
	flag.Parse()

	point := solar.GeoPoint{Latitude: lat, Longitude: lon}
	if err := point.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid location: %v\n", err)
		os.Exit(1)
	}

	var lt time.Time
	if timeStr == "" {
		lt = time.Now().UTC().Add(time.Duration(offset) * time.Hour)
	} else {
		var err error
		lt, err = time.Parse(timeLayout, timeStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing time: %v\n", err)
			os.Exit(1)
		}
	}

	if hourly {
		if err := printHourly(os.Stdout, point, lt, offset); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printPosition(os.Stdout, point, lt, offset)
}

func printPosition(w io.Writer, point solar.GeoPoint, lt time.Time, offset int) {
	pos := solar.ComputePosition(point, solar.LocalInstant{Time: lt, UTCOffsetHours: offset})

	fmt.Fprintf(w, "Sun position at %.4f, %.4f for %s (UTC%+d)\n", point.Latitude, point.Longitude, lt.Format(timeLayout), offset)
	fmt.Fprintf(w, "  Declination:     %.4f°\n", pos.DeclinationDeg)
	fmt.Fprintf(w, "  Elevation:       %.4f°\n", pos.ElevationDeg)
	fmt.Fprintf(w, "  Azimuth:         %.4f°\n", pos.AzimuthDeg)
	fmt.Fprintf(w, "  Time correction: %.2f min\n", pos.TimeCorrectionMin)
	fmt.Fprintf(w, "  Clear sky max:   %.1f W/m²\n", solar.EstimateClearSkyIrradiance(pos.ElevationDeg))
}

func printHourly(w io.Writer, point solar.GeoPoint, date time.Time, offset int) error {
	p, err := solar.BuildDailyProfile(point, date, offset, time.Hour)
	if err != nil {
		return err
	}
	d := solar.CalculateDaylight(point, date, offset)

	fmt.Fprintf(w, "Solar profile at %.4f, %.4f on %s (UTC%+d)\n", point.Latitude, point.Longitude, p.Date.Format("2006-01-02"), offset)
	switch {
	case d.PolarDay:
		fmt.Fprintln(w, "  The sun does not set")
	case d.PolarNight:
		fmt.Fprintln(w, "  The sun does not rise")
	default:
		fmt.Fprintf(w, "  Sunrise %s, solar noon %s, sunset %s\n",
			solar.FormatClock(d.Sunrise), solar.FormatClock(d.SolarNoon), solar.FormatClock(d.Sunset))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%5s  %9s  %9s  %9s\n", "hour", "elev°", "azimuth°", "W/m²")

	for _, s := range p.Hourly() {
		fmt.Fprintf(w, "%5s  %9.3f  %9.3f  %9.1f\n",
			s.LocalTime.Format("15:04"), s.Position.ElevationDeg, s.Position.AzimuthDeg, s.ClearSkyWm2)
	}

	fmt.Fprintf(w, "\nPeak %.3f° at %s, clear sky total %.0f Wh/m²\n",
		p.PeakElevationDeg, p.PeakLocalTime.Format("15:04"), p.DailyInsolationWh)
	return nil
}
