package config

import (
	"fmt"

	"github.com/aretw0/sot/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

type jointLimitsParams struct {
	QMin         []float64 `mapstructure:"qmin"`
	QMax         []float64 `mapstructure:"qmax"`
	BoundScaling float64   `mapstructure:"bound_scaling"`
}

type velocityLimitsParams struct {
	DQMax []float64 `mapstructure:"dqmax"`
	DT    float64   `mapstructure:"dt"`
}

type convexHullParams struct {
	Support [][2]float64 `mapstructure:"support"`
	Margin  float64      `mapstructure:"margin"`
}

type comVelocityParams struct {
	VMax [2]float64 `mapstructure:"vmax"`
	DT   float64    `mapstructure:"dt"`
}

type linearConstraintParams struct {
	LowerBound []float64   `mapstructure:"lower_bound"`
	UpperBound []float64   `mapstructure:"upper_bound"`
	Aeq        [][]float64 `mapstructure:"aeq"`
	Beq        []float64   `mapstructure:"beq"`
	Aineq      [][]float64 `mapstructure:"aineq"`
	BLower     []float64   `mapstructure:"b_lower"`
	BUpper     []float64   `mapstructure:"b_upper"`
}

type posturalParams struct {
	Reference []float64 `mapstructure:"reference"`
}

type cartesianParams struct {
	Frame     string     `mapstructure:"frame"`
	Reference [2]float64 `mapstructure:"reference"`
}

type linearTaskParams struct {
	A [][]float64 `mapstructure:"a"`
	B []float64   `mapstructure:"b"`
}

// decodeParams decodes a free-form params map into a typed struct.
// Unknown keys are rejected.
func decodeParams(owner string, in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("%w: params of %q: %v", domain.ErrValidation, owner, err)
	}
	return nil
}
