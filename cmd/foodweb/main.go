package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ecodyn/foodweb/internal/config"
	"github.com/ecodyn/foodweb/internal/dynamics"
	"github.com/ecodyn/foodweb/internal/foodweb"
	"github.com/ecodyn/foodweb/internal/measure"
	"github.com/ecodyn/foodweb/internal/sim"
	"github.com/ecodyn/foodweb/internal/storage"
	"github.com/ecodyn/foodweb/internal/tui"
)

var (
	dataDir    string
	dbPath     string
	configFile string
	preset     string
	label      string
	seed       int64
	horizon    float64
	integrator string
	species    int
	connect    float64
	replicates int
	jitter     float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "foodweb",
		Short: "bio-energetic food-web simulation lab",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".foodweb", "data directory")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "store runs in a sqlite database instead of plain files")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and archive the result",
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a simulation with a live terminal view",
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "run jittered replicates of one configuration",
		RunE:  runEnsemble,
	}
	addRunFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&replicates, "replicates", 10, "number of replicates")
	ensembleCmd.Flags().Float64Var(&jitter, "jitter", 0.1, "relative spread of initial biomasses")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list archived runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot an archived trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a trajectory as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	generateCmd := &cobra.Command{
		Use:   "generate [niche|cascade]",
		Short: "draw a random food web and print its structure",
		Args:  cobra.ExactArgs(1),
		RunE:  generateWeb,
	}
	generateCmd.Flags().IntVar(&species, "species", 20, "species count")
	generateCmd.Flags().Float64Var(&connect, "connectance", 0.15, "target connectance")
	generateCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")

	presetsCmd := &cobra.Command{
		Use:   "presets [scenario]",
		Short: "list available presets for a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for scenario: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, ensembleCmd, listCmd, plotCmd, exportCmd, exportCSVCmd, generateCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "experiment file (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "preset as scenario/name, e.g. niche/web")
	cmd.Flags().StringVar(&label, "label", "", "label stored with the run")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (overrides config)")
	cmd.Flags().Float64Var(&horizon, "horizon", 0, "time horizon (overrides config)")
	cmd.Flags().StringVar(&integrator, "integrator", "", "euler, rk4, or rk45 (overrides config)")
}

// loadConfig resolves precedence: defaults, then preset, then config file,
// then explicit flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		scenario, name, ok := splitPreset(preset)
		if !ok {
			return nil, fmt.Errorf("preset must be scenario/name, got %q", preset)
		}
		p := config.GetPreset(scenario, name)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %s (available: %v)", preset, config.ListPresets(scenario))
		}
		copied := *p
		cfg = &copied
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("horizon") {
		cfg.Sim.Horizon = horizon
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Integrator = integrator
	}
	return cfg, nil
}

func splitPreset(s string) (scenario, name string, ok bool) {
	for i := range s {
		if s[i] == '/' {
			return s[:i], s[i+1:], i > 0 && i < len(s)-1
		}
	}
	return "", "", false
}

func openStore() storage.Store {
	if dbPath != "" {
		return storage.NewSQLiteStore(dbPath)
	}
	return storage.NewFileStore(dataDir)
}

func runLabel(cfg *config.Config) string {
	if label != "" {
		return label
	}
	if preset != "" {
		return preset
	}
	return cfg.Network.Source
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	model, err := cfg.Build()
	if err != nil {
		return err
	}
	for _, w := range model.Warnings() {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	integ, err := cfg.BuildIntegrator()
	if err != nil {
		return err
	}

	ctx := context.Background()
	st := openStore()
	if err := st.Init(ctx); err != nil {
		return err
	}
	defer st.Close()

	fmt.Printf("running %d-species web...\n", model.S())
	start := time.Now()

	driver := sim.New(model, integ)
	result, err := driver.Run(ctx, initialBiomass(cfg, model), cfg.SimConfig())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	metrics := summarize(model, result)
	meta := storage.RunMetadata{
		Label:      runLabel(cfg),
		Seed:       cfg.Seed,
		Species:    model.S(),
		Integrator: cfg.Integrator,
		Metrics:    metrics,
	}
	runID, err := st.Save(ctx, meta, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("status: %s after %d steps\n", result.Status, result.StepsTaken)
	if result.Err != nil {
		fmt.Printf("failure: %v\n", result.Err)
	}
	fmt.Println("\nmetrics:")
	for name, val := range metrics {
		fmt.Printf("  %s: %.6f\n", name, val)
	}
	if n := len(result.Extinction); n > 0 {
		fmt.Printf("\nextinctions (%d):\n", n)
		for i, t := range result.Extinction {
			fmt.Printf("  %s at t=%.2f\n", model.Network().Name(i), t)
		}
	}
	return nil
}

func initialBiomass(cfg *config.Config, model *dynamics.Model) dynamics.State {
	if cfg.InitialBiomass <= 0 {
		return nil
	}
	b0 := make(dynamics.State, model.S())
	for i := range b0 {
		b0[i] = cfg.InitialBiomass
	}
	return b0
}

func summarize(model *dynamics.Model, result *sim.Result) map[string]float64 {
	s := model.S()
	metrics := map[string]float64{
		"persistence": measure.Persistence(result, s),
	}
	if final := result.Final(); final != nil {
		metrics["total_biomass"] = measure.TotalBiomass(final, s)
		metrics["shannon_diversity"] = measure.ShannonDiversity(final, s)
	}
	metrics["temporal_cv"] = measure.TemporalCV(result, s, 0.25)
	return metrics
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	model, err := cfg.Build()
	if err != nil {
		return err
	}
	integ, err := cfg.BuildIntegrator()
	if err != nil {
		return err
	}

	view := tui.NewLive(runLabel(cfg), model, integ, cfg.SimConfig())
	p := tea.NewProgram(view)
	_, err = p.Run()
	return err
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	model, err := cfg.Build()
	if err != nil {
		return err
	}

	newInteg := func() dynamics.Integrator {
		integ, err := cfg.BuildIntegrator()
		if err != nil {
			panic(err) // validated below before any replicate starts
		}
		return integ
	}
	if _, err := cfg.BuildIntegrator(); err != nil {
		return err
	}

	fmt.Printf("running %d replicates of a %d-species web...\n", replicates, model.S())
	start := time.Now()

	ens := sim.NewEnsemble(model, replicates, cfg.Seed, jitter, newInteg)
	results, err := ens.Run(context.Background(), initialBiomass(cfg, model), cfg.SimConfig())
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REPLICATE\tSTATUS\tSTEPS\tPERSISTENCE\tBIOMASS")
	for i, res := range results {
		fmt.Fprintf(w, "%d\t%s\t%d\t%.3f\t%.4f\n",
			i,
			res.Status,
			res.StepsTaken,
			measure.Persistence(res, model.S()),
			measure.TotalBiomass(res.Final(), model.S()),
		)
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	st := openStore()
	if err := st.Init(ctx); err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tTIME\tSPECIES\tSTATUS\tSTEPS\tEXTINCT")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%d\t%d\n",
			run.ID,
			run.Label,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Species,
			run.Status,
			run.Steps,
			len(run.Extinctions),
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	st := openStore()
	if err := st.Init(ctx); err != nil {
		return err
	}
	defer st.Close()

	meta, err := st.Load(ctx, args[0])
	if err != nil {
		return err
	}
	states, _, err := st.LoadStates(ctx, args[0])
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("label: %s\n", meta.Label)
	fmt.Printf("samples: %d\n\n", len(states))

	names := make([]string, meta.Species)
	for i := range names {
		names[i] = fmt.Sprintf("s%d", i+1)
	}
	fmt.Println(tui.PlotTrajectory(states, meta.Species, names))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	st := openStore()
	if err := st.Init(ctx); err != nil {
		return err
	}
	defer st.Close()

	meta, err := st.Load(ctx, args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	st := openStore()
	if err := st.Init(ctx); err != nil {
		return err
	}
	defer st.Close()

	states, times, err := st.LoadStates(ctx, args[0])
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to export")
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	header := []string{"time"}
	for i := range states[0] {
		header = append(header, fmt.Sprintf("b%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for k := range states {
		row := []string{strconv.FormatFloat(times[k], 'f', 6, 64)}
		for _, v := range states[k] {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func generateWeb(cmd *cobra.Command, args []string) error {
	rng := rand.New(rand.NewSource(seed))

	var (
		net *foodweb.Network
		err error
	)
	switch args[0] {
	case "niche":
		net, err = foodweb.Niche(species, connect, rng)
	case "cascade":
		net, err = foodweb.Cascade(species, connect, rng)
	default:
		return fmt.Errorf("unknown generator %q (want niche or cascade)", args[0])
	}
	if err != nil {
		return err
	}

	fmt.Printf("species: %d\n", net.S())
	fmt.Printf("links: %d\n", net.NumLinks())
	fmt.Printf("connectance: %.4f\n", net.Connectance())
	fmt.Printf("producers: %d\n\n", len(net.Producers()))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SPECIES\tCLASS\tPREY")
	for i := 0; i < net.S(); i++ {
		prey := ""
		for k, j := range net.PreyOf(i) {
			if k > 0 {
				prey += ","
			}
			prey += net.Name(j)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", net.Name(i), net.Class(i), prey)
	}
	return w.Flush()
}
