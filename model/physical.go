package model

import (
	"github.com/smallnest/dispatchgo/dispatch"
)

// Physical composes the cycle, vehicle, engine and CO2 models into the
// full simulation graph. Every shared quantity lives at this level, so
// a value produced by one nested model feeds the others, and any of
// them can be overridden by a measured input.
func Physical() (*dispatch.Dispatcher, error) {
	b := newBuilder("physical", "vehicle physical simulation model")

	b.plainData("cycle_type", "times", "velocities", "gears",
		"accelerations", "motive_powers", "distance",
		"engine_speeds", "idle_engine_speed", "full_load_curve",
		"engine_powers_out", "fuel_consumptions", "co2_emissions",
		"cumulative_co2", "co2_emission_value",
		"phases_integration_times", "phases_distances", "phases_co2_emissions")
	b.data(dispatch.DataOptions{ID: "time_sample_frequency", Default: 1.0})
	b.data(dispatch.DataOptions{ID: "vehicle_mass", Default: 1300.0})
	b.data(dispatch.DataOptions{ID: "road_loads", Default: []float64{100.0, 0.5, 0.03}})
	b.data(dispatch.DataOptions{ID: "speed_velocity_ratio", Default: 32.0})
	b.data(dispatch.DataOptions{ID: "fuel_type", Default: "petrol"})
	b.data(dispatch.DataOptions{ID: "engine_max_power", Default: 90.0})
	b.data(dispatch.DataOptions{ID: "engine_max_speed_at_max_power", Default: 5500.0})
	b.data(dispatch.DataOptions{ID: "driveline_efficiency", Default: 0.9})
	b.data(dispatch.DataOptions{ID: "engine_efficiency", Default: 0.25})

	cycle, err := Cycle()
	if err != nil {
		return nil, err
	}
	vehicle, err := Vehicle()
	if err != nil {
		return nil, err
	}
	engine, err := Engine()
	if err != nil {
		return nil, err
	}
	co2, err := CO2Emission()
	if err != nil {
		return nil, err
	}

	b.sub(dispatch.SubDispatcherOptions{
		ID:    "cycle_model",
		Child: cycle,
		Inputs: map[string]string{
			"cycle_type":            "cycle_type",
			"time_sample_frequency": "time_sample_frequency",
		},
		Outputs: map[string]string{"times": "times", "velocities": "velocities", "gears": "gears"},
	})
	b.sub(dispatch.SubDispatcherOptions{
		ID:    "vehicle_model",
		Child: vehicle,
		Inputs: map[string]string{
			"times":        "times",
			"velocities":   "velocities",
			"vehicle_mass": "vehicle_mass",
			"road_loads":   "road_loads",
		},
		Outputs: map[string]string{
			"accelerations": "accelerations",
			"motive_powers": "motive_powers",
			"distance":      "distance",
		},
	})
	b.sub(dispatch.SubDispatcherOptions{
		ID:    "engine_model",
		Child: engine,
		Inputs: map[string]string{
			"velocities":                    "velocities",
			"speed_velocity_ratio":          "speed_velocity_ratio",
			"fuel_type":                     "fuel_type",
			"engine_max_power":              "engine_max_power",
			"engine_max_speed_at_max_power": "engine_max_speed_at_max_power",
		},
		Outputs: map[string]string{
			"engine_speeds":     "engine_speeds",
			"idle_engine_speed": "idle_engine_speed",
			"full_load_curve":   "full_load_curve",
		},
	})
	b.sub(dispatch.SubDispatcherOptions{
		ID:    "co2_model",
		Child: co2,
		Inputs: map[string]string{
			"cycle_type":           "cycle_type",
			"times":                "times",
			"velocities":           "velocities",
			"motive_powers":        "motive_powers",
			"distance":             "distance",
			"driveline_efficiency": "driveline_efficiency",
			"engine_efficiency":    "engine_efficiency",
			"fuel_type":            "fuel_type",
		},
		Outputs: map[string]string{
			"engine_powers_out":        "engine_powers_out",
			"fuel_consumptions":        "fuel_consumptions",
			"co2_emissions":            "co2_emissions",
			"cumulative_co2":           "cumulative_co2",
			"co2_emission_value":       "co2_emission_value",
			"phases_integration_times": "phases_integration_times",
			"phases_distances":         "phases_distances",
			"phases_co2_emissions":     "phases_co2_emissions",
		},
	})

	return b.build()
}
