package views

import (
	"strings"
	"time"

	"linkcal/internal/adapters/tui/styles"
	"linkcal/internal/domain"
)

const (
	cellFilled = "■"
	cellEmpty  = "·"
)

// HeatLevel maps a day count to a level of the heat ramp, relative to the
// busiest day of the map
func HeatLevel(count, peak int) int {
	levels := len(styles.HeatColors) - 1
	if count <= 0 || peak <= 0 {
		return 0
	}
	l := (count*levels + peak - 1) / peak
	return min(max(l, 1), levels)
}

// YearGrid lays a year out as weekly columns of seven rows, starting each week
// on firstDay. Cells outside the year are nil.
func YearGrid(year int, firstDay time.Weekday) [][7]*time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.Local)
	offset := (int(jan1.Weekday()) - int(firstDay) + 7) % 7
	start := jan1.AddDate(0, 0, -offset)

	var weeks [][7]*time.Time
	for d := start; d.Year() <= year; d = d.AddDate(0, 0, 7) {
		var col [7]*time.Time
		for i := range 7 {
			day := d.AddDate(0, 0, i)
			if day.Year() == year {
				col[i] = &day
			}
		}
		weeks = append(weeks, col)
	}
	return weeks
}

// RenderYear draws the heat grid of a year with month and weekday labels
func RenderYear(days domain.BucketMap, year int, firstDay time.Weekday, today time.Time) string {
	weeks := YearGrid(year, firstDay)

	peak := 0
	for _, s := range days {
		peak = max(peak, s.Occurrences)
	}

	var b strings.Builder
	b.WriteString("    ")
	b.WriteString(styles.AxisLabel.Render(monthHeader(weeks)))
	b.WriteByte('\n')

	todayKey := domain.DayKey(today)
	for row := range 7 {
		label := ""
		if row%2 == 0 {
			label = time.Weekday((int(firstDay) + row) % 7).String()[:3]
		}
		b.WriteString(styles.AxisLabel.Render(padRight(label, 4)))
		for _, col := range weeks {
			day := col[row]
			if day == nil {
				b.WriteString("  ")
				continue
			}
			key := domain.DayKey(*day)
			count := days.Count(key)
			cell := cellEmpty
			if count > 0 {
				cell = cellFilled
			}
			if key == todayKey {
				b.WriteString(styles.Today.Render(cell))
			} else {
				b.WriteString(styles.HeatCell(HeatLevel(count, peak)).Render(cell))
			}
			b.WriteByte(' ')
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// monthHeader places a three-letter month name over the first week of each month
func monthHeader(weeks [][7]*time.Time) string {
	line := []rune(strings.Repeat(" ", len(weeks)*2+2))
	last := time.Month(0)
	for i, col := range weeks {
		for _, day := range col {
			if day == nil || day.Day() > 7 || day.Month() == last {
				continue
			}
			last = day.Month()
			copy(line[i*2:], []rune(day.Month().String()[:3]))
			break
		}
	}
	return strings.TrimRight(string(line), " ")
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}
