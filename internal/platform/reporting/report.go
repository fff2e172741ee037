// Package reporting renders the team health report as PDF or XLSX.
package reporting

import (
	"fmt"
	"time"
)

// DefaultTitle is used when no clinic settings exist.
const DefaultTitle = "Team Health Monitoring Report"

// Report is the input to both renderers.
type Report struct {
	ClinicName  string
	Date        time.Time
	Stats       Stats
	Rows        []Row
	GeneratedBy string
}

// Stats are the banded risk counts shown above the table.
type Stats struct {
	Low    int
	Medium int
	High   int
}

// Row is one observation line. Temperature is nil when not measured.
type Row struct {
	MemberName       string
	Temperature      *float64
	RiskLevelDisplay string
	RiskScore        int
	ObservedAt       time.Time
}

// Title is the clinic name, or DefaultTitle.
func (r Report) Title() string {
	if r.ClinicName != "" {
		return r.ClinicName
	}
	return DefaultTitle
}

var columns = []string{"Member", "Temperature", "Risk level", "Score", "Observed at"}

func (row Row) cells() []string {
	return []string{
		row.MemberName,
		formatTemperature(row.Temperature),
		row.RiskLevelDisplay,
		fmt.Sprintf("%d", row.RiskScore),
		formatTime(row.ObservedAt),
	}
}

func formatTemperature(t *float64) string {
	if t == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *t)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}
