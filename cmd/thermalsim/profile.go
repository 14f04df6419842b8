package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kacperjurak/thermalcore"
)

// readProfile parses timestamp,load,ambient[,top_oil] rows. A first row
// whose timestamp does not parse is taken as a header.
func readProfile(r io.Reader, unit thermalcore.LoadUnit) (thermalcore.Profile, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	p := thermalcore.Profile{Unit: unit}
	withTopOil := false
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return thermalcore.Profile{}, fmt.Errorf("read profile: %w", err)
		}

		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(record[0]))
		if err != nil {
			if row == 1 {
				continue
			}
			return thermalcore.Profile{}, fmt.Errorf("row %d: timestamp: %w", row, err)
		}
		if len(record) < 3 || len(record) > 4 {
			return thermalcore.Profile{}, fmt.Errorf("row %d: want 3 or 4 columns, got %d", row, len(record))
		}
		if len(p.Timestamps) == 0 {
			withTopOil = len(record) == 4
		} else if withTopOil != (len(record) == 4) {
			return thermalcore.Profile{}, fmt.Errorf("row %d: top_oil column must be given on every row or none", row)
		}

		values := make([]float64, len(record)-1)
		for i, field := range record[1:] {
			values[i], err = strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return thermalcore.Profile{}, fmt.Errorf("row %d column %d: %w", row, i+2, err)
			}
		}

		p.Timestamps = append(p.Timestamps, ts)
		p.Load = append(p.Load, values[0])
		p.Ambient = append(p.Ambient, values[1])
		if withTopOil {
			p.TopOil = append(p.TopOil, values[2])
		}
	}

	if len(p.Timestamps) == 0 {
		return thermalcore.Profile{}, errors.New("read profile: no samples")
	}
	return p, nil
}
