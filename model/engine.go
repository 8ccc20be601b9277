package model

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"

	"github.com/smallnest/dispatchgo/dispatch"
)

const (
	stopVelocityThreshold = 1.0  // km/h, below this the vehicle counts as stopped
	minEngineSpeed        = 10.0 // rpm, below this the engine counts as off
)

// FullLoadCurve maps engine speed [rpm] to the maximum deliverable
// power [kW]. Queries outside the fitted range clamp to the endpoints.
type FullLoadCurve struct {
	pl       interp.PiecewiseLinear
	min, max float64
}

func (c *FullLoadCurve) PowerAt(speed float64) float64 {
	if speed < c.min {
		speed = c.min
	}
	if speed > c.max {
		speed = c.max
	}
	return c.pl.Predict(speed)
}

// Normalized full load tables per fuel type. The speed axis is 0 at
// idle and 1 at the speed of maximum power; powers are fractions of
// the maximum power.
var fullLoadTables = map[string]struct{ speeds, powers []float64 }{
	"petrol": {
		speeds: []float64{0, 0.2, 0.4, 0.6, 0.8, 1.0, 1.2},
		powers: []float64{0.1, 0.316, 0.532, 0.748, 0.93, 1.0, 0.95},
	},
	"diesel": {
		speeds: []float64{0, 0.2, 0.4, 0.6, 0.8, 1.0, 1.2},
		powers: []float64{0.1, 0.38, 0.63, 0.85, 0.97, 1.0, 0.93},
	},
}

func defaultFullLoad(_ context.Context, args []any) ([]any, error) {
	fuel, err := str(args[0])
	if err != nil {
		return nil, err
	}
	table, ok := fullLoadTables[fuel]
	if !ok {
		return nil, fmt.Errorf("no full load table for fuel type %q", fuel)
	}
	return []any{table.speeds, table.powers}, nil
}

func defineFullLoadCurve(_ context.Context, args []any) ([]any, error) {
	speedsNorm, err := f64s(args[0])
	if err != nil {
		return nil, err
	}
	powersNorm, err := f64s(args[1])
	if err != nil {
		return nil, err
	}
	idle, err := f64s(args[2])
	if err != nil {
		return nil, err
	}
	maxSpeed, err := f64(args[3])
	if err != nil {
		return nil, err
	}
	maxPower, err := f64(args[4])
	if err != nil {
		return nil, err
	}
	if len(idle) < 1 {
		return nil, fmt.Errorf("idle engine speed must be [median std], got %d values", len(idle))
	}
	span := maxSpeed - idle[0]
	speeds := make([]float64, len(speedsNorm))
	powers := make([]float64, len(powersNorm))
	for i, s := range speedsNorm {
		speeds[i] = idle[0] + s*span
	}
	for i, p := range powersNorm {
		powers[i] = p * maxPower
	}
	curve := &FullLoadCurve{min: speeds[0], max: speeds[len(speeds)-1]}
	if err := curve.pl.Fit(speeds, powers); err != nil {
		return nil, fmt.Errorf("fitting full load curve: %w", err)
	}
	return []any{curve}, nil
}

// identifyIdleEngineSpeedMedian extracts the idle regime from measured
// engine speeds, sampled while the vehicle is stopped with the engine
// running.
func identifyIdleEngineSpeedMedian(_ context.Context, args []any) ([]any, error) {
	velocities, err := f64s(args[0])
	if err != nil {
		return nil, err
	}
	speeds, err := f64s(args[1])
	if err != nil {
		return nil, err
	}
	if len(velocities) != len(speeds) {
		return nil, fmt.Errorf("velocities and engine speeds must have the same length, got %d and %d",
			len(velocities), len(speeds))
	}
	var samples []float64
	for i, v := range velocities {
		if v < stopVelocityThreshold && speeds[i] > minEngineSpeed {
			samples = append(samples, speeds[i])
		}
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no idle samples in %d points", len(velocities))
	}
	sort.Float64s(samples)
	return []any{stat.Quantile(0.5, stat.Empirical, samples, nil)}, nil
}

func identifyIdleEngineSpeedStd(_ context.Context, args []any) ([]any, error) {
	velocities, err := f64s(args[0])
	if err != nil {
		return nil, err
	}
	speeds, err := f64s(args[1])
	if err != nil {
		return nil, err
	}
	var samples []float64
	for i, v := range velocities {
		if i < len(speeds) && v < stopVelocityThreshold && speeds[i] > minEngineSpeed {
			samples = append(samples, speeds[i])
		}
	}
	if len(samples) < 2 {
		return nil, fmt.Errorf("need at least 2 idle samples, got %d", len(samples))
	}
	std := stat.StdDev(samples, nil)
	if math.IsNaN(std) {
		return nil, fmt.Errorf("idle speed deviation is undefined for %d samples", len(samples))
	}
	return []any{std}, nil
}

func defineIdleEngineSpeed(_ context.Context, args []any) ([]any, error) {
	median, err := f64(args[0])
	if err != nil {
		return nil, err
	}
	std, err := f64(args[1])
	if err != nil {
		return nil, err
	}
	return []any{[]float64{median, std}}, nil
}

func calculateEngineSpeeds(_ context.Context, args []any) ([]any, error) {
	velocities, err := f64s(args[0])
	if err != nil {
		return nil, err
	}
	ratio, err := f64(args[1])
	if err != nil {
		return nil, err
	}
	idle, err := f64s(args[2])
	if err != nil {
		return nil, err
	}
	if len(idle) < 1 {
		return nil, fmt.Errorf("idle engine speed must be [median std], got %d values", len(idle))
	}
	speeds := make([]float64, len(velocities))
	for i, v := range velocities {
		speeds[i] = math.Max(idle[0], v*ratio)
	}
	return []any{speeds}, nil
}

// Engine models the engine speed profile and the full load curve.
//
// The idle median is a deferred default: when measured engine speeds
// are supplied the identification wins, otherwise the fallback value
// is injected once nothing else can produce it.
func Engine() (*dispatch.Dispatcher, error) {
	b := newBuilder("engine", "engine speeds, idle regime and full load curve")

	b.plainData("velocities", "engine_speeds", "idle_engine_speed", "full_load_curve",
		"full_load_speeds_norm", "full_load_powers_norm")
	b.data(dispatch.DataOptions{ID: "speed_velocity_ratio", Default: 32.0,
		Description: "engine speed per unit velocity [rpm/(km/h)]"})
	b.data(dispatch.DataOptions{ID: "idle_engine_speed_median", Default: 750.0, WaitInputs: true})
	b.data(dispatch.DataOptions{ID: "idle_engine_speed_std", Default: 100.0, WaitInputs: true})
	b.data(dispatch.DataOptions{ID: "fuel_type", Default: "petrol"})
	b.data(dispatch.DataOptions{ID: "engine_max_power", Default: 90.0})
	b.data(dispatch.DataOptions{ID: "engine_max_speed_at_max_power", Default: 5500.0})

	b.function(dispatch.FunctionOptions{
		ID:       "identify_idle_engine_speed_median",
		Inputs:   []string{"velocities", "engine_speeds"},
		Outputs:  []string{"idle_engine_speed_median"},
		Weight:   5,
		Callable: identifyIdleEngineSpeedMedian,
	})
	b.function(dispatch.FunctionOptions{
		ID:       "identify_idle_engine_speed_std",
		Inputs:   []string{"velocities", "engine_speeds"},
		Outputs:  []string{"idle_engine_speed_std"},
		Weight:   5,
		Callable: identifyIdleEngineSpeedStd,
	})
	b.function(dispatch.FunctionOptions{
		ID:       "define_idle_engine_speed",
		Inputs:   []string{"idle_engine_speed_median", "idle_engine_speed_std"},
		Outputs:  []string{"idle_engine_speed"},
		Callable: defineIdleEngineSpeed,
	})
	b.function(dispatch.FunctionOptions{
		ID:       "calculate_engine_speeds",
		Inputs:   []string{"velocities", "speed_velocity_ratio", "idle_engine_speed"},
		Outputs:  []string{"engine_speeds"},
		Callable: calculateEngineSpeeds,
	})
	b.function(dispatch.FunctionOptions{
		ID:       "default_full_load",
		Inputs:   []string{"fuel_type"},
		Outputs:  []string{"full_load_speeds_norm", "full_load_powers_norm"},
		Weight:   20,
		Callable: defaultFullLoad,
	})
	b.function(dispatch.FunctionOptions{
		ID: "define_full_load_curve",
		Inputs: []string{"full_load_speeds_norm", "full_load_powers_norm",
			"idle_engine_speed", "engine_max_speed_at_max_power", "engine_max_power"},
		Outputs:  []string{"full_load_curve"},
		Callable: defineFullLoadCurve,
	})

	return b.build()
}
