package model

import (
	"context"
	"fmt"
	"math"

	"github.com/smallnest/dispatchgo/dispatch"
)

// Theoretical velocity profiles are piecewise linear ramps.
type segment struct{ t0, t1, v0, v1 float64 }

func profileVelocity(segs []segment, t float64) float64 {
	for _, s := range segs {
		if t >= s.t0 && t <= s.t1 {
			if s.t1 == s.t0 {
				return s.v1
			}
			return s.v0 + (s.v1-s.v0)*(t-s.t0)/(s.t1-s.t0)
		}
	}
	return 0
}

// The NEDC is four urban elementary cycles (195 s each) followed by
// the extra urban part.
var eceSegments = []segment{
	{0, 11, 0, 0}, {11, 15, 0, 15}, {15, 23, 15, 15}, {23, 28, 15, 0},
	{28, 49, 0, 0}, {49, 61, 0, 32}, {61, 85, 32, 32}, {85, 96, 32, 0},
	{96, 117, 0, 0}, {117, 143, 0, 50}, {143, 155, 50, 50}, {155, 163, 50, 35},
	{163, 176, 35, 35}, {176, 188, 35, 0}, {188, 195, 0, 0},
}

var eudcSegments = []segment{
	{0, 20, 0, 0}, {20, 61, 0, 70}, {61, 111, 70, 70}, {111, 119, 70, 50},
	{119, 188, 50, 50}, {188, 201, 50, 70}, {201, 251, 70, 70}, {251, 286, 70, 100},
	{286, 316, 100, 100}, {316, 336, 100, 120}, {336, 346, 120, 120}, {346, 380, 120, 0},
	{380, 400, 0, 0},
}

var wltpSegments = []segment{
	{0, 15, 0, 0}, {15, 60, 0, 40}, {60, 150, 40, 25}, {150, 230, 25, 50},
	{230, 300, 50, 0}, {300, 340, 0, 0}, {340, 420, 0, 55}, {420, 540, 55, 45},
	{540, 589, 45, 0}, {589, 640, 0, 0}, {640, 720, 0, 60}, {720, 850, 60, 75},
	{850, 980, 75, 50}, {980, 1021, 50, 0}, {1021, 1060, 0, 0}, {1060, 1150, 0, 70},
	{1150, 1320, 70, 95}, {1320, 1420, 95, 110}, {1420, 1530, 110, 130},
	{1530, 1680, 130, 80}, {1680, 1777, 80, 0}, {1777, 1800, 0, 0},
}

const (
	nedcDuration = 1180.0
	wltpDuration = 1800.0
)

func nedcVelocity(t float64) float64 {
	if t < 780 {
		return profileVelocity(eceSegments, math.Mod(t, 195))
	}
	return profileVelocity(eudcSegments, t-780)
}

func wltpVelocity(t float64) float64 {
	return profileVelocity(wltpSegments, t)
}

func cycleTimes(duration float64) dispatch.Callable {
	return func(_ context.Context, args []any) ([]any, error) {
		freq, err := f64(args[0])
		if err != nil {
			return nil, err
		}
		if freq <= 0 {
			return nil, fmt.Errorf("time sample frequency must be positive, got %g Hz", freq)
		}
		n := int(duration*freq) + 1
		times := make([]float64, n)
		for i := range times {
			times[i] = float64(i) / freq
		}
		return []any{times}, nil
	}
}

func profileVelocities(profile func(float64) float64) dispatch.Callable {
	return func(_ context.Context, args []any) ([]any, error) {
		times, err := f64s(args[0])
		if err != nil {
			return nil, err
		}
		velocities := make([]float64, len(times))
		for i, t := range times {
			velocities[i] = profile(t)
		}
		return []any{velocities}, nil
	}
}

func calculateGears(_ context.Context, args []any) ([]any, error) {
	velocities, err := f64s(args[0])
	if err != nil {
		return nil, err
	}
	maxGear, err := f64(args[1])
	if err != nil {
		return nil, err
	}
	gears := make([]int, len(velocities))
	for i, v := range velocities {
		if v < 0.5 {
			continue
		}
		g := 1 + int(v/20.0)
		if g > int(maxGear) {
			g = int(maxGear)
		}
		gears[i] = g
	}
	return []any{gears}, nil
}

func theoreticalCycle(name string, duration float64, profile func(float64) float64, maxGear int) (*dispatch.Dispatcher, error) {
	b := newBuilder(name, "theoretical "+name+" profile")

	b.plainData("times", "velocities", "gears")
	b.data(dispatch.DataOptions{ID: "time_sample_frequency", Default: 1.0})
	b.data(dispatch.DataOptions{ID: "max_gear", Default: maxGear})

	b.function(dispatch.FunctionOptions{
		ID:       "cycle_times",
		Inputs:   []string{"time_sample_frequency"},
		Outputs:  []string{"times"},
		Callable: cycleTimes(duration),
	})
	b.function(dispatch.FunctionOptions{
		ID:       name + "_velocities",
		Inputs:   []string{"times"},
		Outputs:  []string{"velocities"},
		Callable: profileVelocities(profile),
	})
	b.function(dispatch.FunctionOptions{
		ID:       "calculate_gears",
		Inputs:   []string{"velocities", "max_gear"},
		Outputs:  []string{"gears"},
		Callable: calculateGears,
	})

	return b.build()
}

// Cycle selects the theoretical times, velocities and gears of the
// requested type. The discriminant is SINK mapped into both nested
// models, so it gates which one runs without being wired inside.
func Cycle() (*dispatch.Dispatcher, error) {
	b := newBuilder("cycle", "theoretical driving cycles")

	b.plainData("cycle_type", "times", "velocities", "gears")
	b.data(dispatch.DataOptions{ID: "time_sample_frequency", Default: 1.0})

	isCycle := func(want string) dispatch.DomainPredicate {
		return func(inputs map[string]any) bool {
			return inputs["cycle_type"] == want
		}
	}

	nedc, err := theoreticalCycle("nedc", nedcDuration, nedcVelocity, 5)
	if err != nil {
		return nil, err
	}
	wltp, err := theoreticalCycle("wltp", wltpDuration, wltpVelocity, 6)
	if err != nil {
		return nil, err
	}

	b.sub(dispatch.SubDispatcherOptions{
		ID:    "nedc_cycle",
		Child: nedc,
		Inputs: map[string]string{
			"cycle_type":            dispatch.SINK,
			"time_sample_frequency": "time_sample_frequency",
		},
		Outputs:     map[string]string{"times": "times", "velocities": "velocities", "gears": "gears"},
		InputDomain: isCycle("NEDC"),
	})
	b.sub(dispatch.SubDispatcherOptions{
		ID:    "wltp_cycle",
		Child: wltp,
		Inputs: map[string]string{
			"cycle_type":            dispatch.SINK,
			"time_sample_frequency": "time_sample_frequency",
		},
		Outputs:     map[string]string{"times": "times", "velocities": "velocities", "gears": "gears"},
		InputDomain: isCycle("WLTP"),
	})

	return b.build()
}
