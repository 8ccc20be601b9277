package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smallnest/dispatchgo/config"
	"github.com/smallnest/dispatchgo/dispatch"
	"github.com/smallnest/dispatchgo/log"
	"github.com/smallnest/dispatchgo/model"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "dispatchgo",
	Short:         "Dependency-resolving dispatcher for vehicle simulation models",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func loadConfig() (*config.Config, error) {
	if cfgPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func applyLogging(cfg *config.Config) {
	switch cfg.Logging.Level {
	case "debug":
		log.SetLogLevel(log.LogLevelDebug)
	case "warn":
		log.SetLogLevel(log.LogLevelWarn)
	case "error":
		log.SetLogLevel(log.LogLevelError)
	default:
		log.SetLogLevel(log.LogLevelInfo)
	}
}

func buildModel(name string) (*dispatch.Dispatcher, error) {
	switch name {
	case "physical":
		return model.Physical()
	case "cycle":
		return model.Cycle()
	case "vehicle":
		return model.Vehicle()
	case "engine":
		return model.Engine()
	case "co2_emission":
		return model.CO2Emission()
	}
	return nil, fmt.Errorf("unknown model: %s (want physical, cycle, vehicle, engine or co2_emission)", name)
}
