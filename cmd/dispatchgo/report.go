package main

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smallnest/dispatchgo/log"
)

var reportModelName string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "List the stored runs of a model",
	RunE:  reportRuns,
}

func init() {
	reportCmd.Flags().StringVarP(&reportModelName, "model", "m", "", "model to report on (overrides the config)")
	rootCmd.AddCommand(reportCmd)
}

func reportRuns(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyLogging(cfg)

	name := cfg.Model.Name
	if reportModelName != "" {
		name = reportModelName
	}

	rs, closeStore, err := openStore(ctx, &cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error("store close: %v", err)
		}
	}()

	runs, err := rs.List(ctx, name)
	if err != nil {
		return err
	}

	cmd.Println(titleStyle.Render("runs of model " + name))
	if len(runs) == 0 {
		cmd.Println(faintStyle.Render("no stored runs"))
		return nil
	}
	for _, run := range runs {
		line := keyStyle.Render(run.CreatedAt.Format("2006-01-02 15:04:05")) + run.ID
		cmd.Println(line)
		if len(run.Failed) > 0 {
			cmd.Println("  " + failedStyle.Render("failed: "+strings.Join(run.Failed, ", ")))
		}
		for _, id := range sortedKeys(run.Outputs) {
			cmd.Println("  " + keyStyle.Render(id) + formatValue(run.Outputs[id]))
		}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
