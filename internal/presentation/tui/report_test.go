package tui

import (
	"bytes"
	"errors"
	"testing"

	"github.com/aretw0/sot/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestReport(t *testing.T) {
	md := Report(Summary{
		Scenario: "reach",
		Ticks:    3,
		Final:    []float64{0.5, -0.25},
		Levels: []domain.LevelReport{
			{Level: 0, TaskID: "ee", Variables: 2, Tier: "hotstart", Residual: 1e-9},
		},
	})
	assert.Contains(t, md, "# reach")
	assert.Contains(t, md, "Ran **3** ticks.")
	assert.Contains(t, md, "| 0 | ee | 2 | 0 | hotstart | 0 | 1.000e-09 |")
	assert.Contains(t, md, "`[0.500000, -0.250000]`")
}

func TestReport_Failure(t *testing.T) {
	md := Report(Summary{Scenario: "bad", Ticks: 1, Err: errors.New("level 0 (a): infeasible")})
	assert.Contains(t, md, "**Failed** after 1 ticks")
}

func TestRenderer_NoTTY(t *testing.T) {
	render := NewRenderer(false)
	out, err := render("# title")
	assert.NoError(t, err)
	assert.Equal(t, "# title", out)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "0.1.0")
	assert.Contains(t, buf.String(), "0.1.0")
}
