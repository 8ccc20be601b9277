package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/smallnest/dispatchgo/dispatch"
	"github.com/smallnest/dispatchgo/log"
	"github.com/smallnest/dispatchgo/store"
)

var (
	runModelName string
	runInputs    []string
	runOutputs   []string
	runSave      bool
	runTrace     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Dispatch a model and print the settled outputs",
	RunE:  runModel,
}

func init() {
	runCmd.Flags().StringVarP(&runModelName, "model", "m", "", "model to run (overrides the config)")
	runCmd.Flags().StringArrayVarP(&runInputs, "input", "i", nil, "input value as id=value, repeatable")
	runCmd.Flags().StringArrayVarP(&runOutputs, "output", "o", nil, "requested output id, repeatable")
	runCmd.Flags().BoolVar(&runSave, "save", false, "persist the run to the configured store")
	runCmd.Flags().StringVar(&runTrace, "trace", "", "write the workflow trace as Mermaid to this file")
	rootCmd.AddCommand(runCmd)
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("36"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Width(30)
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

func runModel(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyLogging(cfg)

	name := cfg.Model.Name
	if runModelName != "" {
		name = runModelName
	}
	d, err := buildModel(name)
	if err != nil {
		return err
	}

	inputs := make(map[string]any, len(cfg.Model.Inputs)+len(runInputs))
	for k, v := range cfg.Model.Inputs {
		inputs[k] = v
	}
	for _, kv := range runInputs {
		k, v, err := parseInput(kv)
		if err != nil {
			return err
		}
		inputs[k] = v
	}

	outputs := cfg.Model.Outputs
	if len(runOutputs) > 0 {
		outputs = runOutputs
	}

	sol, wf, err := d.Dispatch(ctx, inputs, outputs)
	if err != nil {
		return fmt.Errorf("dispatch %s: %w", name, err)
	}

	renderSolution(cmd, name, sol, wf, outputs)

	if runTrace != "" {
		mermaid := dispatch.NewWorkflowExporter(wf).DrawMermaid()
		if err := os.WriteFile(runTrace, []byte(mermaid), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", runTrace, err)
		}
		cmd.Printf("wrote %s\n", runTrace)
	}

	if runSave {
		rs, closeStore, err := openStore(ctx, &cfg.Store)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeStore(); err != nil {
				log.Error("store close: %v", err)
			}
		}()
		rec := store.NewRunRecord(name, jsonSafe(inputs), dispatch.Solution(jsonSafe(sol)), wf)
		if err := rs.Save(ctx, rec); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		cmd.Printf("saved run %s\n", rec.ID)
	}
	return nil
}

func renderSolution(cmd *cobra.Command, name string, sol dispatch.Solution, wf *dispatch.Workflow, outputs []string) {
	cmd.Println(titleStyle.Render(fmt.Sprintf("model %s (%d nodes visited)", name, wf.Len())))

	ids := outputs
	if len(ids) == 0 {
		ids = make([]string, 0, len(sol))
		for id := range sol {
			ids = append(ids, id)
		}
		sort.Strings(ids)
	}
	for _, id := range ids {
		v, ok := sol.Get(id)
		if !ok {
			cmd.Println(keyStyle.Render(id) + failedStyle.Render("unresolved"))
			continue
		}
		cmd.Println(keyStyle.Render(id) + formatValue(v))
	}

	var failed []string
	for _, n := range wf.Nodes() {
		if n.Kind == dispatch.KindFunction && n.Err != nil {
			failed = append(failed, n.ID)
		}
	}
	if len(failed) > 0 {
		cmd.Println(failedStyle.Render("failed: " + strings.Join(failed, ", ")))
	}
	cmd.Println(faintStyle.Render(fmt.Sprintf("%d functions invoked", len(wf.Invocations()))))
}

// parseInput splits id=value, reading the value as a number, a bool or
// a bare string.
func parseInput(kv string) (string, any, error) {
	k, v, ok := strings.Cut(kv, "=")
	if !ok || k == "" {
		return "", nil, fmt.Errorf("input must be id=value, got %q", kv)
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return k, f, nil
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return k, b, nil
	}
	return k, v, nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', 6, 64)
	case []float64:
		return fmt.Sprintf("series of %d values", len(x))
	case []int:
		return fmt.Sprintf("series of %d values", len(x))
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}

// jsonSafe drops values that cannot round-trip through JSON, so run
// records stay loadable by every backend.
func jsonSafe(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if _, err := json.Marshal(v); err != nil {
			continue
		}
		out[k] = v
	}
	return out
}
