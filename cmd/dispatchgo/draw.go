package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/smallnest/dispatchgo/dispatch"
)

var (
	drawModelName string
	drawFormat    string
	drawOut       string
)

var drawCmd = &cobra.Command{
	Use:   "draw",
	Short: "Export a model's capability graph as Mermaid or DOT",
	RunE:  drawModel,
}

func init() {
	drawCmd.Flags().StringVarP(&drawModelName, "model", "m", "", "model to draw (overrides the config)")
	drawCmd.Flags().StringVarP(&drawFormat, "format", "f", "mermaid", "output format: mermaid or dot")
	drawCmd.Flags().StringVar(&drawOut, "out", "", "write to a file instead of stdout")
	rootCmd.AddCommand(drawCmd)
}

func drawModel(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyLogging(cfg)

	name := cfg.Model.Name
	if drawModelName != "" {
		name = drawModelName
	}
	d, err := buildModel(name)
	if err != nil {
		return err
	}

	exporter := dispatch.NewExporter(d)
	var out string
	switch drawFormat {
	case "mermaid":
		out = exporter.DrawMermaid()
	case "dot":
		out = exporter.DrawDOT()
	default:
		return fmt.Errorf("unknown format: %s (want mermaid or dot)", drawFormat)
	}

	if drawOut == "" {
		cmd.Print(out)
		return nil
	}
	if err := os.WriteFile(drawOut, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", drawOut, err)
	}
	cmd.Printf("wrote %s\n", drawOut)
	return nil
}
