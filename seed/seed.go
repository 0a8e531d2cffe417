// Package seed loads the default-city templates from a CSV file, falling
// back to a built-in list when the file is absent. Startup must never fail
// solely because the seed source is missing.
package seed

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/user/cityweather-go/cities"
)

// Fallback is the built-in default-city list used when no CSV is available.
func Fallback() []cities.DefaultCity {
	return []cities.DefaultCity{
		{Name: "Moscow", Latitude: 55.7558, Longitude: 37.6173},
		{Name: "London", Latitude: 51.5074, Longitude: -0.1278},
		{Name: "Paris", Latitude: 48.8566, Longitude: 2.3522},
		{Name: "Berlin", Latitude: 52.5200, Longitude: 13.4050},
		{Name: "Tokyo", Latitude: 35.6762, Longitude: 139.6503},
	}
}

// Load reads (name,latitude,longitude) records from path. A header row is
// tolerated and malformed rows are skipped with a warning. If the file is
// missing or yields no usable rows, the fallback list is returned.
func Load(path string, log *zap.Logger) []cities.DefaultCity {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Info("seed file not found, using built-in defaults", zap.String("path", path))
		} else {
			log.Warn("failed to open seed file, using built-in defaults",
				zap.String("path", path), zap.Error(err))
		}
		return Fallback()
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true

	var defaults []cities.DefaultCity
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn("skipping malformed seed row", zap.Int("line", line), zap.Error(err))
			continue
		}

		latitude, latErr := strconv.ParseFloat(record[1], 64)
		longitude, lonErr := strconv.ParseFloat(record[2], 64)
		if latErr != nil || lonErr != nil {
			// The header row lands here too.
			if line > 1 {
				log.Warn("skipping seed row with non-numeric coordinates",
					zap.Int("line", line), zap.String("name", record[0]))
			}
			continue
		}
		if record[0] == "" {
			log.Warn("skipping seed row with empty name", zap.Int("line", line))
			continue
		}

		defaults = append(defaults, cities.DefaultCity{
			Name:      record[0],
			Latitude:  latitude,
			Longitude: longitude,
		})
	}

	if len(defaults) == 0 {
		log.Warn("seed file contained no usable rows, using built-in defaults",
			zap.String("path", path))
		return Fallback()
	}

	log.Info("loaded default cities from seed file",
		zap.String("path", path), zap.Int("count", len(defaults)))
	return defaults
}
