package model

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"

	"github.com/smallnest/dispatchgo/dispatch"
)

// Velocities are km/h, times are seconds, powers are kW throughout.

func calculateAccelerations(_ context.Context, args []any) ([]any, error) {
	times, err := f64s(args[0])
	if err != nil {
		return nil, err
	}
	velocities, err := f64s(args[1])
	if err != nil {
		return nil, err
	}
	if len(times) != len(velocities) || len(times) < 2 {
		return nil, fmt.Errorf("times and velocities must have the same length >= 2, got %d and %d",
			len(times), len(velocities))
	}
	accelerations := make([]float64, len(times))
	for i := range times {
		j, k := i-1, i+1
		if j < 0 {
			j = 0
		}
		if k >= len(times) {
			k = len(times) - 1
		}
		accelerations[i] = (velocities[k] - velocities[j]) / 3.6 / (times[k] - times[j])
	}
	return []any{accelerations}, nil
}

// calculateMotivePowers evaluates the road load polynomial plus the
// inertial term. Road loads are the usual coast down coefficients
// [f0 N, f1 N/(km/h), f2 N/(km/h)^2]; the rotating masses are folded
// into a 3% surcharge on the vehicle mass.
func calculateMotivePowers(_ context.Context, args []any) ([]any, error) {
	velocities, err := f64s(args[0])
	if err != nil {
		return nil, err
	}
	accelerations, err := f64s(args[1])
	if err != nil {
		return nil, err
	}
	mass, err := f64(args[2])
	if err != nil {
		return nil, err
	}
	loads, err := f64s(args[3])
	if err != nil {
		return nil, err
	}
	if len(loads) != 3 {
		return nil, fmt.Errorf("road loads must be [f0 f1 f2], got %d coefficients", len(loads))
	}
	if len(velocities) != len(accelerations) {
		return nil, fmt.Errorf("velocities and accelerations must have the same length, got %d and %d",
			len(velocities), len(accelerations))
	}
	powers := make([]float64, len(velocities))
	for i, v := range velocities {
		force := loads[0] + loads[1]*v + loads[2]*v*v + 1.03*mass*accelerations[i]
		powers[i] = force * v / 3.6 / 1000.0
	}
	return []any{powers}, nil
}

func calculateDistance(_ context.Context, args []any) ([]any, error) {
	times, err := f64s(args[0])
	if err != nil {
		return nil, err
	}
	velocities, err := f64s(args[1])
	if err != nil {
		return nil, err
	}
	if len(times) != len(velocities) || len(times) < 2 {
		return nil, fmt.Errorf("times and velocities must have the same length >= 2, got %d and %d",
			len(times), len(velocities))
	}
	speeds := make([]float64, len(velocities))
	copy(speeds, velocities)
	floats.Scale(1.0/3.6, speeds)
	return []any{integrate.Trapezoidal(times, speeds) / 1000.0}, nil
}

// Vehicle models the longitudinal dynamics: accelerations, motive
// powers at the wheels and the travelled distance.
func Vehicle() (*dispatch.Dispatcher, error) {
	b := newBuilder("vehicle", "vehicle longitudinal dynamics")

	b.plainData("times", "velocities", "obd_velocities", "accelerations", "motive_powers", "distance")
	b.data(dispatch.DataOptions{ID: "vehicle_mass", Default: 1300.0})
	b.data(dispatch.DataOptions{ID: "road_loads", Default: []float64{100.0, 0.5, 0.03}})

	// recorded OBD velocities stand in for the theoretical profile when
	// nothing else provides one
	b.function(dispatch.FunctionOptions{
		ID:       "select_obd_velocities",
		Inputs:   []string{"obd_velocities"},
		Outputs:  []string{"velocities"},
		Weight:   1,
		Callable: dispatch.Bypass,
	})
	b.function(dispatch.FunctionOptions{
		ID:       "calculate_accelerations",
		Inputs:   []string{"times", "velocities"},
		Outputs:  []string{"accelerations"},
		Callable: calculateAccelerations,
	})
	b.function(dispatch.FunctionOptions{
		ID:       "calculate_motive_powers",
		Inputs:   []string{"velocities", "accelerations", "vehicle_mass", "road_loads"},
		Outputs:  []string{"motive_powers"},
		Callable: calculateMotivePowers,
	})
	b.function(dispatch.FunctionOptions{
		ID:       "calculate_distance",
		Inputs:   []string{"times", "velocities"},
		Outputs:  []string{"distance"},
		Callable: calculateDistance,
	})

	return b.build()
}
