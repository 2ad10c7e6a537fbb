package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/clothsim/internal/analysis"
	"github.com/san-kum/clothsim/internal/audio"
	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/config"
	"github.com/san-kum/clothsim/internal/dynamo"
	"github.com/san-kum/clothsim/internal/export"
	"github.com/san-kum/clothsim/internal/metrics"
	"github.com/san-kum/clothsim/internal/optim"
	"github.com/san-kum/clothsim/internal/particle"
	"github.com/san-kum/clothsim/internal/render"
	"github.com/san-kum/clothsim/internal/sim"
	"github.com/san-kum/clothsim/internal/storage"
	"github.com/san-kum/clothsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir     string
	configFile  string
	dt          float64
	frames      int
	seed        int64
	integrator  string
	iterations  int
	plot        bool
	residualTo  string
	runs        int
	benchFrames int
	svgWidth    int
	svgHeight   int
	layers      string
	verbose     bool
	save        bool
	analyze     bool
	tuneIters   []int
	tuneStiff   []float64
)

var logger = log.New(os.Stderr, "clothsim: ", log.Ltime)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clothsim",
		Short: "cloth and particle simulation playground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive(nil)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".clothsim", "data directory for saved runs")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "scene file (yaml), used instead of a preset")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a scene headless and report its metrics",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScene,
	}
	addSceneFlags(runCmd)
	runCmd.Flags().BoolVar(&plot, "plot", true, "plot the residual history")
	runCmd.Flags().StringVar(&residualTo, "residual-svg", "", "write the residual history as svg")
	runCmd.Flags().BoolVar(&save, "save", false, "archive the run in the data directory")
	runCmd.Flags().BoolVar(&analyze, "analyze", false, "report how fast the bottom edge of the cloth sways")

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the residual and live particles of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "print a saved run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
		},
	}

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "watch a scene in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addSceneFlags(liveCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenes",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	exportCmd := &cobra.Command{
		Use:   "export-svg [preset] [file]",
		Short: "step a scene and save its last frame as svg",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  exportSVG,
	}
	addSceneFlags(exportCmd)
	exportCmd.Flags().IntVar(&svgWidth, "width", 800, "image width")
	exportCmd.Flags().IntVar(&svgHeight, "height", 600, "image height")
	exportCmd.Flags().StringVar(&layers, "layers", "cloth,particles", "layers to draw: cloth, constraints, particles")

	dumpCmd := &cobra.Command{
		Use:   "dump [preset] [file]",
		Short: "write a preset as a scene file to edit",
		Args:  cobra.ExactArgs(2),
		RunE:  dumpPreset,
	}

	benchCmd := &cobra.Command{
		Use:   "bench [preset...]",
		Short: "time every preset over several seeds",
		RunE:  benchPresets,
	}
	benchCmd.Flags().IntVar(&runs, "runs", 4, "seeds per preset, run in parallel")
	benchCmd.Flags().IntVar(&benchFrames, "frames", 300, "frames per run")

	tuneCmd := &cobra.Command{
		Use:   "tune [preset]",
		Short: "sweep relaxation passes and stiffness for the least stretch",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneCloth,
	}
	addSceneFlags(tuneCmd)
	tuneCmd.Flags().IntSliceVar(&tuneIters, "grid-iterations", []int{10, 20, 30, 40}, "relaxation passes to try")
	tuneCmd.Flags().Float64SliceVar(&tuneStiff, "grid-stiffness", []float64{50, 100, 200}, "stiffness values to try")

	rootCmd.AddCommand(tuneCmd, runCmd, runsCmd, plotCmd, exportJSONCmd, liveCmd, presetsCmd, exportCmd, dumpCmd, benchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSceneFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "host frame time")
	cmd.Flags().IntVar(&frames, "frames", config.DefaultFrames, "frames to simulate")
	cmd.Flags().Int64Var(&seed, "seed", 1, "emitter random seed")
	cmd.Flags().StringVar(&integrator, "integrator", "euler", "euler or verlet")
	cmd.Flags().IntVar(&iterations, "iterations", config.DefaultIterations, "cloth relaxation passes per tick")
}

// loadScene picks the scene file or preset, then applies the flags the
// user actually set.
func loadScene(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	case len(args) > 0:
		cfg = config.GetPreset(args[0])
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
	default:
		cfg = config.GetPreset("drape")
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("frames") {
		cfg.Frames = frames
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("iterations") && cfg.Cloth != nil {
		cfg.Cloth.Iterations = iterations
	}
	return cfg, cfg.Validate()
}

func buildWorld(cfg *config.Config, bank *audio.Bank, player particle.SoundPlayer) (*sim.World, error) {
	opts := []particle.SystemOption{particle.WithRand(rand.New(rand.NewSource(cfg.Seed)))}
	if player != nil {
		opts = append(opts, particle.WithSoundPlayer(player))
	}
	return cfg.BuildWorld(bank, opts...)
}

func sceneMetrics(w *sim.World) []sim.Metric {
	ms := []sim.Metric{metrics.NewResidual(), metrics.NewLiveParticles(), metrics.NewStability(1e-3)}
	if cl := w.Cloth(); cl != nil {
		ms = append(ms, metrics.NewStretchError(cl), metrics.NewEnergy(cl, dynamo.StandardGravity))
	}
	return ms
}

// audioSink drains the mixer at the host rate so queued sounds finish and
// are released even without an output device.
type audioSink struct {
	mixer *audio.Mixer
	buf   [][2]float64
	peak  float64
}

func newAudioSink(m *audio.Mixer, frameTime float64) *audioSink {
	n := audio.SampleRate.N(time.Duration(frameTime * float64(time.Second)))
	return &audioSink{mixer: m, buf: make([][2]float64, max(n, 1))}
}

func (a *audioSink) OnFrame(sim.Frame) {
	n, _ := a.mixer.Stream(a.buf)
	for _, s := range a.buf[:n] {
		a.peak = max(a.peak, s[0], -s[0], s[1], -s[1])
	}
}

func runScene(cmd *cobra.Command, args []string) error {
	cfg, err := loadScene(cmd, args)
	if err != nil {
		return err
	}

	bank := audio.NewBank(audio.SampleRate)
	mixer := audio.NewMixer(bank, 0.8)
	world, err := buildWorld(cfg, bank, mixer)
	if err != nil {
		return err
	}

	s := sim.New(world)
	for _, m := range sceneMetrics(world) {
		s.AddMetric(m)
	}
	sink := newAudioSink(mixer, cfg.Dt)
	s.AddObserver(sink)
	var probe *analysis.Probe
	if cl := world.Cloth(); analyze && cl != nil {
		probe = analysis.NewProbe(cl, cl.Rows()-1, cl.Cols()/2, mgl64.Vec3{0, 1, 0})
		s.AddObserver(probe)
	}
	if verbose {
		every := max(cfg.Frames/10, 1)
		s.AddObserver(sim.ObserverFunc(func(f sim.Frame) {
			if f.Index%every == 0 {
				logger.Printf("frame %d t=%.2fs residual=%.3g alive=%d live=%d", f.Index, f.Time, f.FinalResidual(), f.Alive, f.Live)
			}
		}))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %s...\n", cfg.Name)
	start := time.Now()
	result, err := s.Run(ctx, cfg.SimConfig())
	if err != nil && result == nil {
		return err
	}
	elapsed := time.Since(start)
	if err != nil {
		logger.Printf("interrupted: %v", err)
	}

	fmt.Printf("completed %d frames (%.2fs simulated) in %v\n", result.FramesRun, result.Time, elapsed)
	fmt.Printf("sounds played: %d (peak %.2f)\n", mixer.Played(), sink.peak)
	for _, e := range result.Errors {
		logger.Print(e)
	}

	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nmetrics:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%.6g\n", name, result.Metrics[name])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if plot && world.Cloth() != nil && len(result.Residuals) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(result.Residuals,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("final residual per frame"),
		))
	}

	if probe != nil {
		hz, power := analysis.DominantFrequency(probe.Samples(), cfg.Dt)
		fmt.Printf("\nsway: %.3f Hz (magnitude %.3g)\n", hz, power)
		if ps := analysis.PowerSpectrum(probe.Samples()); len(ps) > 1 {
			fmt.Println(asciigraph.Plot(ps[:min(len(ps), 80)],
				asciigraph.Height(6),
				asciigraph.Caption("sway spectrum"),
			))
		}
	}

	if save {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(storage.RunMetadata{
			Scene:      cfg.Name,
			Seed:       cfg.Seed,
			Dt:         cfg.Dt,
			Frames:     cfg.Frames,
			Integrator: cfg.Integrator,
		}, result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	if residualTo != "" {
		svg := export.SeriesToSVG(result.Residuals, 800, 300, "#00ff88")
		if err := os.WriteFile(residualTo, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("residual plot written to %s\n", residualTo)
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tINTEGRATOR\tFRAMES\tDT\tERRORS\tTIMESTAMP")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4f\t%d\t%s\n",
			r.ID, r.Scene, r.Integrator, r.Frames, r.Dt, r.Errors, r.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(args[0])
	if err != nil {
		return err
	}
	if len(frames) < 2 {
		return fmt.Errorf("run %s has too few frames to plot", args[0])
	}

	residuals := make([]float64, len(frames))
	live := make([]float64, len(frames))
	for i, f := range frames {
		residuals[i] = f.Residual
		live[i] = float64(f.Live)
	}

	fmt.Printf("%s (%s, seed %d)\n\n", meta.ID, meta.Integrator, meta.Seed)
	for _, series := range []struct {
		data    []float64
		caption string
	}{
		{residuals, "final residual per frame"},
		{live, "live emitted particles"},
	} {
		fmt.Println(asciigraph.Plot(series.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(series.caption),
		))
		fmt.Println()
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadScene(cmd, args)
	if err != nil {
		return err
	}
	build := func() (*sim.World, error) { return buildWorld(cfg, nil, nil) }
	return viz.RunLive(cfg.Name, build, cfg.Dt)
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tINTEGRATOR\tFRAMES\tCLOTH\tEMITTERS")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		clothDesc := "-"
		if cc := cfg.Cloth; cc != nil {
			clothDesc = fmt.Sprintf("%dx%d x%d", cc.Rows, cc.Cols, cc.Iterations)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\n", name, cfg.Integrator, cfg.Frames, clothDesc, len(cfg.Emitters))
	}
	return w.Flush()
}

func parseLayers(s string) cloth.RenderOptions {
	var opts cloth.RenderOptions
	for _, name := range strings.Split(s, ",") {
		switch strings.TrimSpace(name) {
		case "":
		case "cloth":
			opts.Cloth = true
		case "constraints":
			opts.Constraints = true
		case "particles":
			opts.Particles = true
		default:
			logger.Printf("ignoring unknown layer %q", name)
		}
	}
	return opts
}

func exportSVG(cmd *cobra.Command, args []string) error {
	cfg, err := loadScene(cmd, args[:1])
	if err != nil {
		return err
	}
	out := cfg.Name + ".svg"
	if len(args) > 1 {
		out = args[1]
	}

	world, err := buildWorld(cfg, nil, nil)
	if err != nil {
		return err
	}
	s := sim.New(world)
	if _, err := s.Run(context.Background(), cfg.SimConfig()); err != nil {
		return err
	}

	var rec render.Recorder
	world.Draw(&rec, parseLayers(layers))
	svg := export.SceneToSVG(&rec, svgWidth, svgHeight)
	if svg == "" {
		return fmt.Errorf("nothing to draw after %d frames", cfg.Frames)
	}
	if err := os.WriteFile(out, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("frame %d written to %s (%d quads, %d lines, %d markers)\n",
		world.FrameIndex(), out, len(rec.Quads), len(rec.Lines), len(rec.Markers))
	return nil
}

func dumpPreset(cmd *cobra.Command, args []string) error {
	cfg := config.GetPreset(args[0])
	if cfg == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
	}
	if err := config.Save(args[1], cfg); err != nil {
		return err
	}
	fmt.Printf("%s written to %s\n", args[0], args[1])
	return nil
}

func tuneCloth(cmd *cobra.Command, args []string) error {
	base, err := loadScene(cmd, args)
	if err != nil {
		return err
	}
	if base.Cloth == nil {
		return fmt.Errorf("%s has no cloth to tune", base.Name)
	}

	iters := make([]float64, len(tuneIters))
	for i, n := range tuneIters {
		iters[i] = float64(n)
	}
	g := optim.NewGridSearch([]string{"iterations", "stiffness"}, [][]float64{iters, tuneStiff})

	build := func(params map[string]float64) (*sim.Simulator, sim.Config, error) {
		cfg := base.Clone()
		cfg.Cloth.Iterations = int(params["iterations"])
		cfg.Cloth.Stiffness = params["stiffness"]
		world, err := buildWorld(cfg, nil, nil)
		if err != nil {
			return nil, sim.Config{}, err
		}
		s := sim.New(world)
		s.AddMetric(metrics.NewStretchError(world.Cloth()))
		return s, cfg.SimConfig(), nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	best, val, err := g.Search(ctx, build, "stretch_error")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ITERATIONS\tSTIFFNESS\tSTRETCH\tNOTE")
	for _, tr := range g.Trials() {
		note := ""
		if tr.Err != nil {
			note = tr.Err.Error()
		}
		fmt.Fprintf(w, "%.0f\t%g\t%.4f\t%s\n", tr.Params["iterations"], tr.Params["stiffness"], tr.Value, note)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	if err != nil {
		return err
	}
	fmt.Printf("\nbest: %.0f iterations, stiffness %g (worst stretch %.2f%%)\n",
		best["iterations"], best["stiffness"], 100*val)
	return nil
}

func benchPresets(cmd *cobra.Command, args []string) error {
	names := args
	if len(names) == 0 {
		names = config.ListPresets()
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tRUNS\tFRAMES\tTIME\tFRAMES/SEC\tPEAK RESIDUAL")

	for _, name := range names {
		base := config.GetPreset(name)
		if base == nil {
			return fmt.Errorf("unknown preset: %s", name)
		}
		base.Frames = benchFrames
		if err := base.Validate(); err != nil {
			return err
		}

		factory := func(seed int64) (sim.Scene, error) {
			cfg := base.Clone()
			cfg.Seed = seed
			return buildWorld(cfg, nil, nil)
		}
		ens := sim.NewEnsemble(factory, runs, base.Seed).WithMetrics(func() []sim.Metric {
			return []sim.Metric{metrics.NewResidual()}
		})

		start := time.Now()
		results, err := ens.Run(context.Background(), base.SimConfig())
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		elapsed := time.Since(start)

		total, peak := 0, 0.0
		for _, r := range results {
			total += r.FramesRun
			peak = max(peak, r.PeakResidual())
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%v\t%.0f\t%.3g\n",
			name, runs, benchFrames, elapsed.Round(time.Millisecond), float64(total)/elapsed.Seconds(), peak)
	}
	return w.Flush()
}
