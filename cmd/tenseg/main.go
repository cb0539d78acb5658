package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/tenseg/internal/config"
	"github.com/san-kum/tenseg/internal/export"
	"github.com/san-kum/tenseg/internal/solver"
	"github.com/san-kum/tenseg/internal/storage"
	"github.com/san-kum/tenseg/internal/structure"
	"github.com/san-kum/tenseg/internal/tui"
	"github.com/san-kum/tenseg/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	deltas     string
	forces     []string
	seed       int64
	maxIter    int
	tolerance  float64
	showTrace  bool
	showForces bool
	saveLabel  string
	width      int
	height     int
	svgOut     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tenseg",
		Short: "tensegrity static equilibrium workbench",
		RunE:  runInteractive,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".tenseg", "snapshot directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "file", "", "structure definition file (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "box", "built-in structure")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0, "retry perturbation seed (0 = time)")

	solveCmd := &cobra.Command{
		Use:   "solve [file]",
		Short: "solve for static equilibrium and render the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSolve,
	}
	solveCmd.Flags().StringVar(&deltas, "delta", "", "comma-separated control rest length changes")
	solveCmd.Flags().StringArrayVar(&forces, "force", nil, "external load NODE=fx,fy[,fz] (repeatable)")
	solveCmd.Flags().IntVar(&maxIter, "max-iter", 300, "iteration cap per attempt")
	solveCmd.Flags().Float64Var(&tolerance, "tol", 1e-8, "residual tolerance")
	solveCmd.Flags().BoolVar(&showTrace, "trace", false, "plot residual convergence")
	solveCmd.Flags().BoolVar(&showForces, "forces", false, "print member force table")
	solveCmd.Flags().StringVar(&saveLabel, "save", "", "save the snapshot under this label")
	solveCmd.Flags().IntVar(&width, "width", 72, "canvas width (cells)")
	solveCmd.Flags().IntVar(&height, "height", 20, "canvas height (cells)")

	interactiveCmd := &cobra.Command{
		Use:   "interactive [file]",
		Short: "interactive terminal session",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInteractive,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [file]",
		Short: "render a structure without solving",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPlot,
	}
	plotCmd.Flags().BoolVar(&showForces, "forces", false, "print member force table")
	plotCmd.Flags().IntVar(&width, "width", 72, "canvas width (cells)")
	plotCmd.Flags().IntVar(&height, "height", 20, "canvas height (cells)")

	controlsCmd := &cobra.Command{
		Use:   "controls [file]",
		Short: "list the actuated connections of a structure",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runControls,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in structures",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.PresetNames() {
				fmt.Println(name)
			}
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved snapshots",
		RunE:  runList,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [file]",
		Short: "solve and print the structure as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExportJSON,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [file]",
		Short: "solve and write the structure as SVG",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExportSVG,
	}
	exportSVGCmd.Flags().StringVar(&svgOut, "out", "structure.svg", "output path")
	exportSVGCmd.Flags().IntVar(&width, "width", 800, "image width")
	exportSVGCmd.Flags().IntVar(&height, "height", 600, "image height")

	rootCmd.AddCommand(solveCmd, interactiveCmd, plotCmd, controlsCmd,
		presetsCmd, listCmd, exportJSONCmd, exportSVGCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadStructure honors a positional file argument first, then --file,
// then falls back to the preset.
func loadStructure(args []string) (*structure.Tensegrity, error) {
	path := configFile
	if len(args) > 0 {
		path = args[0]
	}

	var def *config.Definition
	var err error
	if path != "" {
		def, err = config.Load(path)
	} else {
		def, err = config.Preset(preset)
	}
	if err != nil {
		return nil, err
	}
	return def.Build()
}

func newSolver(ten *structure.Tensegrity) *solver.Solver {
	opts := solver.DefaultOptions()
	opts.Seed = seed
	if maxIter > 0 {
		opts.MaxIterations = maxIter
	}
	if tolerance > 0 {
		opts.Tolerance = tolerance
	}
	return solver.New(ten, opts)
}

func parseDeltas(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	fields := strings.Split(s, ",")
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("bad delta %q", f)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseForces turns repeated NODE=fx,fy[,fz] flags into a load map.
func parseForces(specs []string) (map[string][]float64, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	loads := make(map[string][]float64, len(specs))
	for _, spec := range specs {
		name, rest, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("bad force %q, want NODE=fx,fy[,fz]", spec)
		}
		comps, err := parseDeltas(rest)
		if err != nil {
			return nil, fmt.Errorf("force %q: %w", spec, err)
		}
		loads[name] = comps
	}
	return loads, nil
}

func prepare(ten *structure.Tensegrity, sol *solver.Solver) error {
	ds, err := parseDeltas(deltas)
	if err != nil {
		return err
	}
	if len(ds) > 0 {
		if err := ten.ChangeControlLengths(ds...); err != nil {
			return err
		}
	}
	loads, err := parseForces(forces)
	if err != nil {
		return err
	}
	if loads != nil {
		if err := sol.SetForces(loads); err != nil {
			return err
		}
	}
	return nil
}

func runSolve(cmd *cobra.Command, args []string) error {
	ten, err := loadStructure(args)
	if err != nil {
		return err
	}
	sol := newSolver(ten)
	if err := prepare(ten, sol); err != nil {
		return err
	}

	rep, err := sol.Solve()
	if err != nil {
		return err
	}

	fmt.Print(viz.Render(ten, viz.Options{Width: width, Height: height, ShowForces: showForces}))
	fmt.Printf("\n%s %d attempt(s), %d iterations, residual %.3e, energy %.6f\n",
		viz.StatusOK.Render("converged:"),
		rep.Attempts, rep.Iterations, rep.ResidualNorm, sol.TotalEnergy())

	if showTrace && len(rep.Trace) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(rep.Trace,
			asciigraph.Height(8),
			asciigraph.Caption("residual per iteration")))
	}

	if saveLabel != "" {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		id, err := st.Save(saveLabel, ten, storage.SnapshotMetadata{
			Attempts:   rep.Attempts,
			Iterations: rep.Iterations,
			Residual:   rep.ResidualNorm,
			Energy:     sol.TotalEnergy(),
		})
		if err != nil {
			return err
		}
		fmt.Printf("saved %s\n", id)
	}
	return nil
}

func runInteractive(cmd *cobra.Command, args []string) error {
	ten, err := loadStructure(args)
	if err != nil {
		return err
	}
	sol := newSolver(ten)
	if _, err := sol.Solve(); err != nil {
		fmt.Fprintf(os.Stderr, "initial solve failed: %v\n", err)
	}
	return tui.Run(ten, sol)
}

func runPlot(cmd *cobra.Command, args []string) error {
	ten, err := loadStructure(args)
	if err != nil {
		return err
	}
	fmt.Print(viz.Render(ten, viz.Options{Width: width, Height: height, ShowForces: showForces}))
	return nil
}

func runControls(cmd *cobra.Command, args []string) error {
	ten, err := loadStructure(args)
	if err != nil {
		return err
	}
	if len(ten.Controls) == 0 {
		fmt.Println("no controls defined")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tSTIFFNESS\tREST LENGTH")
	for _, c := range ten.Controls {
		fmt.Fprintf(w, "%s\t%s\t%.3f\t%.4f\n", c.Name, c.Kind, c.Stiffness, c.RestLength)
	}
	return w.Flush()
}

func runList(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	snaps, err := st.List()
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Println("no snapshots")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDIM\tNODES\tMEMBERS\tITER\tRESIDUAL\tENERGY\tWHEN")
	for _, s := range snaps {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.2e\t%.4f\t%s\n",
			s.ID, s.Dim, s.Nodes, s.Members, s.Iterations, s.Residual, s.Energy,
			s.Timestamp.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runExportJSON(cmd *cobra.Command, args []string) error {
	ten, err := loadStructure(args)
	if err != nil {
		return err
	}
	sol := newSolver(ten)
	if _, err := sol.Solve(); err != nil {
		return err
	}
	data, err := export.StructureJSON(ten)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runExportSVG(cmd *cobra.Command, args []string) error {
	ten, err := loadStructure(args)
	if err != nil {
		return err
	}
	sol := newSolver(ten)
	if _, err := sol.Solve(); err != nil {
		return err
	}
	svg := export.StructureToSVG(ten, width, height)
	if err := os.WriteFile(svgOut, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", svgOut)
	return nil
}
