package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/collidebench/internal/config"
	"github.com/san-kum/collidebench/internal/engines"
	"github.com/san-kum/collidebench/internal/logging"
	"github.com/san-kum/collidebench/internal/manager"
	"github.com/san-kum/collidebench/internal/report"
	"github.com/san-kum/collidebench/internal/scenario"
	"github.com/san-kum/collidebench/internal/tui"
)

var (
	dataDir      string
	configFile   string
	engineNames  []string
	scenarioName string
	scenarioFile string
	cellSize     float64
	zeroDepthTol float64
	minAgree     float64
	stepsPerTick int
	parallel     bool
	verbose      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "collidebench",
		Short: "cross-engine collision comparison lab",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetVerbose(verbose)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "runs", "data directory")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run a sweep and print the summary",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addSweepFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "run a sweep with a live terminal view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addSweepFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	enginesCmd := &cobra.Command{
		Use:   "engines",
		Short: "list available engines",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range engines.NewRegistry().List() {
				fmt.Println(name)
			}
			return nil
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list scenario presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.PresetNames() {
				fmt.Println(name)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, exportCmd, enginesCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSweepFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringSliceVar(&engineNames, "engines", nil, "engines to compare")
	cmd.Flags().StringVar(&scenarioFile, "scenario-file", "", "scenario yaml file")
	cmd.Flags().Float64Var(&cellSize, "cell", 0.1, "sweep cell size factor")
	cmd.Flags().Float64Var(&zeroDepthTol, "zero-depth-tol", 5e-2, "contact depth treated as a tie")
	cmd.Flags().Float64Var(&minAgree, "min-agree", 0.999, "minimum agreement fraction")
	cmd.Flags().IntVar(&stepsPerTick, "steps", 1, "engine steps per placement")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "one goroutine per engine")
}

// resolveConfig merges defaults, the config file and flags into one
// effective configuration; flags win.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if len(args) > 0 {
		cfg.Scenario = args[0]
	}
	if len(engineNames) > 0 {
		cfg.Engines = engineNames
	}
	if scenarioFile != "" {
		cfg.ScenarioFile = scenarioFile
	}
	if cmd.Flags().Changed("cell") {
		cfg.Sweep.CellSizeFactor = cellSize
	}
	if cmd.Flags().Changed("zero-depth-tol") {
		cfg.Sweep.ZeroDepthTol = zeroDepthTol
	}
	if cmd.Flags().Changed("min-agree") {
		cfg.Sweep.MinAgreement = minAgree
	}
	if cmd.Flags().Changed("steps") {
		cfg.Sweep.StepsPerTick = stepsPerTick
	}
	if cmd.Flags().Changed("parallel") {
		cfg.Parallel = parallel
	}
	if cmd.Flags().Changed("data") {
		cfg.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup builds the lanes and loads the scenario into all of them.
func setup(cfg *config.Config) (*manager.Manager, *scenario.World, manager.SweepConfig, error) {
	sweep := cfg.Sweep
	var sc *scenario.World

	if cfg.ScenarioFile != "" {
		loaded, err := scenario.Load(cfg.ScenarioFile)
		if err != nil {
			return nil, nil, sweep, err
		}
		sc = loaded
	} else {
		preset, err := config.GetPreset(cfg.Scenario)
		if err != nil {
			return nil, nil, sweep, err
		}
		sc = preset.Scenario
		// Flags already merged into cfg.Sweep keep their values; the
		// preset only supplies the model pair.
		sweep.Model1 = preset.Sweep.Model1
		sweep.Model2 = preset.Sweep.Model2
	}

	registry := engines.NewRegistry()
	mgr := manager.New(cfg.Tolerances)
	mgr.SetParallel(cfg.Parallel)
	for _, name := range cfg.Engines {
		w, err := registry.Get(name)
		if err != nil {
			return nil, nil, sweep, err
		}
		if s, ok := w.(interface{ SetStepSize(float64) }); ok {
			s.SetStepSize(cfg.StepSize)
		}
		mgr.AddLane(name, w)
	}

	if err := mgr.LoadScenario(sc); err != nil {
		return nil, nil, sweep, err
	}
	return mgr, sc, sweep, nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	mgr, sc, sweep, err := setup(cfg)
	if err != nil {
		return err
	}

	st := report.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("sweeping %s through %s (%s)...\n", sweep.Model1, sweep.Model2, sc.Name)
	start := time.Now()

	res, err := mgr.RunSweep(context.Background(), sweep, nil)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := st.Save(sc.Name, cfg.Engines, res)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("ticks: %d\n", len(res.Ticks))
	fmt.Printf("agreement: %.4f (min %.4f)\n", res.AgreementRatio(), sweep.MinAgreement)
	if n := res.StateMismatchTicks(); n > 0 {
		fmt.Printf("state mismatches: %d ticks\n", n)
	}

	if len(res.FailedLanes) > 0 {
		fmt.Println("\nfailed lanes:")
		for name, reason := range res.FailedLanes {
			fmt.Printf("  %s: %s\n", name, reason)
		}
	}

	if res.Passed() {
		fmt.Println("\nresult: agreement met")
		return nil
	}

	fmt.Printf("\nresult: DISCREPANCY (%d ticks)\n", len(res.Discrepant))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TICK\tPOSITION\tLANES")
	for i := range res.Discrepant {
		t := &res.Discrepant[i]
		fmt.Fprintf(w, "%d\t(%.2f, %.2f, %.2f)\t", t.Index,
			t.Position[0], t.Position[1], t.Position[2])
		for j, r := range t.Verdict.Reports {
			if j > 0 {
				fmt.Fprint(w, "  ")
			}
			fmt.Fprintf(w, "%s=%s(%.4f)", r.Lane, r.Verdict, r.MaxDepth)
		}
		if len(t.States) > 0 {
			fmt.Fprint(w, "  state-drift")
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	mgr, sc, sweep, err := setup(cfg)
	if err != nil {
		return err
	}

	total, err := mgr.ExpectedTicks(sweep)
	if err != nil {
		return err
	}

	res, err := tui.RunLiveSweep(context.Background(), mgr, sweep, sc.Name, total)
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}

	st := report.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(sc.Name, cfg.Engines, res)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("agreement: %.4f\n", res.AgreementRatio())
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := report.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tTICKS\tAGREEMENT\tPASSED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4f\t%v\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Ticks,
			run.AgreementRatio,
			run.Passed,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := report.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	rows, err := st.LoadTicks(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s  %s vs %s  agreement %.4f\n\n",
		meta.Scenario, meta.Model1, meta.Model2, meta.AgreementRatio)
	fmt.Println(report.PlotAgreement(rows))
	fmt.Println()
	fmt.Println(report.PlotDepths(rows))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := report.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
