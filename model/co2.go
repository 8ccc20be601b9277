package model

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate"

	"github.com/smallnest/dispatchgo/dispatch"
)

// fuelParams holds the lower heating value [kJ/kg] and the carbon
// content [g CO2 per g fuel] per fuel type.
var fuelParams = map[string]struct{ lhv, carbon float64 }{
	"petrol": {lhv: 42360.0, carbon: 3.17},
	"diesel": {lhv: 43100.0, carbon: 3.16},
}

func defaultFuelParameters(_ context.Context, args []any) ([]any, error) {
	fuel, err := str(args[0])
	if err != nil {
		return nil, err
	}
	p, ok := fuelParams[fuel]
	if !ok {
		return nil, fmt.Errorf("no fuel parameters for fuel type %q", fuel)
	}
	return []any{p.lhv, p.carbon}, nil
}

func calculateEnginePowersOut(_ context.Context, args []any) ([]any, error) {
	motivePowers, err := f64s(args[0])
	if err != nil {
		return nil, err
	}
	eff, err := f64(args[1])
	if err != nil {
		return nil, err
	}
	if eff <= 0 || eff > 1 {
		return nil, fmt.Errorf("driveline efficiency must be in (0, 1], got %g", eff)
	}
	powers := make([]float64, len(motivePowers))
	for i, p := range motivePowers {
		powers[i] = math.Max(0, p/eff)
	}
	return []any{powers}, nil
}

func calculateFuelConsumptions(_ context.Context, args []any) ([]any, error) {
	powers, err := f64s(args[0])
	if err != nil {
		return nil, err
	}
	lhv, err := f64(args[1])
	if err != nil {
		return nil, err
	}
	eff, err := f64(args[2])
	if err != nil {
		return nil, err
	}
	if lhv <= 0 || eff <= 0 {
		return nil, fmt.Errorf("heating value and engine efficiency must be positive, got %g and %g", lhv, eff)
	}
	consumptions := make([]float64, len(powers))
	for i, p := range powers {
		consumptions[i] = p * 1000.0 / (eff * lhv)
	}
	return []any{consumptions}, nil
}

func calculateCO2Emissions(_ context.Context, args []any) ([]any, error) {
	consumptions, err := f64s(args[0])
	if err != nil {
		return nil, err
	}
	carbon, err := f64(args[1])
	if err != nil {
		return nil, err
	}
	emissions := make([]float64, len(consumptions))
	for i, fc := range consumptions {
		emissions[i] = fc * carbon
	}
	return []any{emissions}, nil
}

func calculateCumulativeCO2(_ context.Context, args []any) ([]any, error) {
	times, err := f64s(args[0])
	if err != nil {
		return nil, err
	}
	emissions, err := f64s(args[1])
	if err != nil {
		return nil, err
	}
	if len(times) != len(emissions) || len(times) < 2 {
		return nil, fmt.Errorf("times and emissions must have the same length >= 2, got %d and %d",
			len(times), len(emissions))
	}
	return []any{integrate.Trapezoidal(times, emissions)}, nil
}

func calculateCO2EmissionValue(_ context.Context, args []any) ([]any, error) {
	cumulative, err := f64(args[0])
	if err != nil {
		return nil, err
	}
	distance, err := f64(args[1])
	if err != nil {
		return nil, err
	}
	if distance <= 0 {
		return nil, fmt.Errorf("distance must be positive, got %g km", distance)
	}
	return []any{cumulative / distance}, nil
}

// Regulated phase windows [s] per cycle type.
var phasesIntegrationTimes = map[string][][]float64{
	"NEDC": {{0, 780}, {780, 1180}},
	"WLTP": {{0, 590}, {590, 1022}, {1022, 1477}, {1477, 1800}},
}

func selectPhasesIntegrationTimes(_ context.Context, args []any) ([]any, error) {
	cycle, err := str(args[0])
	if err != nil {
		return nil, err
	}
	phases, ok := phasesIntegrationTimes[cycle]
	if !ok {
		return nil, fmt.Errorf("no phase windows for cycle type %q", cycle)
	}
	return []any{phases}, nil
}

// phaseBounds returns the index range [i, j) of samples falling inside
// the window [t0, t1]. Boundary samples belong to both adjacent phases.
func phaseBounds(times []float64, t0, t1 float64) (int, int) {
	i := 0
	for i < len(times) && times[i] < t0 {
		i++
	}
	j := i
	for j < len(times) && times[j] <= t1 {
		j++
	}
	return i, j
}

func calculatePhasesDistances(_ context.Context, args []any) ([]any, error) {
	times, err := f64s(args[0])
	if err != nil {
		return nil, err
	}
	velocities, err := f64s(args[1])
	if err != nil {
		return nil, err
	}
	phases, ok := args[2].([][]float64)
	if !ok {
		return nil, fmt.Errorf("want [][]float64 phase windows, got %T", args[2])
	}
	if len(times) != len(velocities) {
		return nil, fmt.Errorf("times and velocities must have the same length, got %d and %d",
			len(times), len(velocities))
	}
	distances := make([]float64, len(phases))
	for p, window := range phases {
		i, j := phaseBounds(times, window[0], window[1])
		if j-i < 2 {
			continue
		}
		speeds := make([]float64, j-i)
		for k, v := range velocities[i:j] {
			speeds[k] = v / 3.6
		}
		distances[p] = integrate.Trapezoidal(times[i:j], speeds) / 1000.0
	}
	return []any{distances}, nil
}

func calculatePhasesCO2Emissions(_ context.Context, args []any) ([]any, error) {
	times, err := f64s(args[0])
	if err != nil {
		return nil, err
	}
	emissions, err := f64s(args[1])
	if err != nil {
		return nil, err
	}
	phases, ok := args[2].([][]float64)
	if !ok {
		return nil, fmt.Errorf("want [][]float64 phase windows, got %T", args[2])
	}
	distances, err := f64s(args[3])
	if err != nil {
		return nil, err
	}
	if len(distances) != len(phases) {
		return nil, fmt.Errorf("want one distance per phase, got %d for %d phases", len(distances), len(phases))
	}
	values := make([]float64, len(phases))
	for p, window := range phases {
		i, j := phaseBounds(times, window[0], window[1])
		if j-i < 2 || distances[p] <= 0 {
			continue
		}
		values[p] = integrate.Trapezoidal(times[i:j], emissions[i:j]) / distances[p]
	}
	return []any{values}, nil
}

// CO2Emission models the fuel consumption and CO2 emission chain, from
// motive powers down to the per phase and cycle emission values [g/km].
func CO2Emission() (*dispatch.Dispatcher, error) {
	b := newBuilder("co2_emission", "fuel consumption and CO2 emissions")

	b.plainData("cycle_type", "times", "velocities", "motive_powers", "distance",
		"engine_powers_out", "engine_fuel_lower_heating_value", "fuel_carbon_content",
		"fuel_consumptions", "co2_emissions", "cumulative_co2", "co2_emission_value",
		"phases_integration_times", "phases_distances", "phases_co2_emissions")
	b.data(dispatch.DataOptions{ID: "driveline_efficiency", Default: 0.9})
	b.data(dispatch.DataOptions{ID: "engine_efficiency", Default: 0.25})
	b.data(dispatch.DataOptions{ID: "fuel_type", Default: "petrol"})

	b.function(dispatch.FunctionOptions{
		ID:       "default_fuel_parameters",
		Inputs:   []string{"fuel_type"},
		Outputs:  []string{"engine_fuel_lower_heating_value", "fuel_carbon_content"},
		Weight:   5,
		Callable: defaultFuelParameters,
	})
	b.function(dispatch.FunctionOptions{
		ID:       "calculate_engine_powers_out",
		Inputs:   []string{"motive_powers", "driveline_efficiency"},
		Outputs:  []string{"engine_powers_out"},
		Callable: calculateEnginePowersOut,
	})
	b.function(dispatch.FunctionOptions{
		ID:       "calculate_fuel_consumptions",
		Inputs:   []string{"engine_powers_out", "engine_fuel_lower_heating_value", "engine_efficiency"},
		Outputs:  []string{"fuel_consumptions"},
		Callable: calculateFuelConsumptions,
	})
	b.function(dispatch.FunctionOptions{
		ID:       "calculate_co2_emissions",
		Inputs:   []string{"fuel_consumptions", "fuel_carbon_content"},
		Outputs:  []string{"co2_emissions"},
		Callable: calculateCO2Emissions,
	})
	b.function(dispatch.FunctionOptions{
		ID:       "calculate_cumulative_co2",
		Inputs:   []string{"times", "co2_emissions"},
		Outputs:  []string{"cumulative_co2"},
		Callable: calculateCumulativeCO2,
	})
	b.function(dispatch.FunctionOptions{
		ID:       "calculate_co2_emission_value",
		Inputs:   []string{"cumulative_co2", "distance"},
		Outputs:  []string{"co2_emission_value"},
		Callable: calculateCO2EmissionValue,
	})
	b.function(dispatch.FunctionOptions{
		ID:       "select_phases_integration_times",
		Inputs:   []string{"cycle_type"},
		Outputs:  []string{"phases_integration_times"},
		Callable: selectPhasesIntegrationTimes,
	})
	b.function(dispatch.FunctionOptions{
		ID:       "calculate_phases_distances",
		Inputs:   []string{"times", "velocities", "phases_integration_times"},
		Outputs:  []string{"phases_distances"},
		Callable: calculatePhasesDistances,
	})
	b.function(dispatch.FunctionOptions{
		ID:       "calculate_phases_co2_emissions",
		Inputs:   []string{"times", "co2_emissions", "phases_integration_times", "phases_distances"},
		Outputs:  []string{"phases_co2_emissions"},
		Callable: calculatePhasesCO2Emissions,
	})

	return b.build()
}
