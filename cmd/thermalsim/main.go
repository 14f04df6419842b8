package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kacperjurak/thermalcore"
	"github.com/kacperjurak/thermalcore/pkg/config"
	"github.com/kacperjurak/thermalcore/pkg/plot"
)

func main() {
	cfg := parseFlags(os.Args[1:])

	logger, err := config.NewLogger(cfg.Debug, cfg.Quiet)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout, logger); err != nil {
		logger.Error("thermalsim failed", zap.Error(err))
		os.Exit(1)
	}
}

func parseFlags(args []string) *config.Config {
	cfg := config.DefaultConfig()
	fs := flag.NewFlagSet("thermalsim", flag.ExitOnError)

	fs.StringVar(&cfg.File, "f", "profile.csv", "Profile CSV (timestamp,load,ambient[,top_oil])")
	fs.BoolVar(&cfg.LoadFraction, "pu", false, "Loads are per-unit of nominal instead of amperes")

	fs.StringVar(&cfg.Category, "category", cfg.Category, "Transformer category: power or distribution")
	fs.StringVar(&cfg.Cooler, "cooler", cfg.Cooler, "Cooling: ONAN or ONAF")
	fs.Var(&cfg.LoadLoss, "ll", "Load loss at rated load [W] (required)")
	fs.Var(&cfg.NoLoadLoss, "p0", "No-load loss [W] (required)")
	fs.Float64Var(&cfg.NomLoadSecSide, "in", 0, "Nominal secondary-side current [A] (required)")
	fs.Var(&cfg.AmbTempSurcharge, "surcharge", "Ambient surcharge [K] (required)")
	fs.Var(&cfg.TopOilTempRise, "rise", "Top-oil temperature rise at rated load [K]")
	fs.Var(&cfg.WindingOilGradient, "gr", "Winding-to-oil gradient at rated load [K]")
	fs.Var(&cfg.HotSpotFactor, "hf", "Hot-spot factor")
	fs.Var(&cfg.TimeConstOil, "tau-oil", "Oil time constant [min]")
	fs.Var(&cfg.TimeConstWindings, "tau-w", "Winding time constant [min]")
	fs.Var(&cfg.EndTempReduction, "end-reduction", "End temperature reduction [K]")

	fs.Var(&cfg.InitialTopOil, "top-oil0", "Initial top-oil temperature [°C]")
	fs.Var(&cfg.InitialLoad, "load0", "Initial steady-state load [p.u.]")
	fs.StringVar(&cfg.Paper, "paper", "", "Insulation paper for aging: normal or thermally-upgraded")

	fs.BoolVar(&cfg.Calibrate, "calibrate", false, "Calibrate the hot-spot factor first")
	fs.Float64Var(&cfg.CalibrationAmbient, "cal-ambient", cfg.CalibrationAmbient, "Constant ambient of the calibration scenario [°C]")
	fs.Float64Var(&cfg.Limit, "limit", cfg.Limit, "Calibration hot-spot limit [°C]")
	fs.Float64Var(&cfg.HMin, "hmin", cfg.HMin, "Lowest hot-spot factor")
	fs.Float64Var(&cfg.HMax, "hmax", cfg.HMax, "Highest hot-spot factor")
	fs.StringVar(&cfg.Method, "method", cfg.Method, "Calibration method: bisection, secant, step, nelder-mead, lm")
	fs.Var(&cfg.Sweep, "h", "Hot-spot factor to sweep (repeatable)")
	fs.UintVar(&cfg.Threads, "threads", cfg.Threads, "Concurrent sweep runs")

	fs.BoolVar(&cfg.ImgSave, "imgsave", false, "Save a chart of the run")
	fs.StringVar(&cfg.ImgPath, "imgpath", cfg.ImgPath, "Chart path; the extension picks the format")
	fs.UintVar(&cfg.ImgDPI, "dpi", cfg.ImgDPI, "Image DPI")
	fs.UintVar(&cfg.ImgSize, "imgsize", cfg.ImgSize, "Image width (inches)")

	fs.BoolVar(&cfg.Quiet, "q", false, "Quiet mode: print the summary only")
	fs.BoolVar(&cfg.Debug, "debug", false, "Debug logging")

	_ = fs.Parse(args)
	return cfg
}

func run(ctx context.Context, cfg *config.Config, w io.Writer, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := os.Open(cfg.File)
	if err != nil {
		return err
	}
	unit := thermalcore.Amperes
	if cfg.LoadFraction {
		unit = thermalcore.Fraction
	}
	profile, err := readProfile(f, unit)
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", cfg.File, err)
	}

	specs, err := resolve(cfg)
	if err != nil {
		return err
	}
	opts, err := modelOptions(cfg)
	if err != nil {
		return err
	}
	opts.Logger = logger

	if cfg.Calibrate {
		res, err := calibrate(ctx, cfg, specs, logger)
		if err != nil {
			return err
		}
		printCalibration(w, res)
		specs = res.Specifications
	}

	if len(cfg.Sweep) > 0 {
		return sweep(ctx, cfg, w, specs, opts, profile)
	}

	m, err := thermalcore.NewModel(specs, opts)
	if err != nil {
		return err
	}
	out, err := m.Run(profile)
	if err != nil {
		return err
	}

	if !cfg.Quiet {
		printTable(w, out)
	}
	printSummary(w, fmt.Sprintf("H=%.4f", specs.HotSpotFactor), out)

	if cfg.ImgSave {
		limit := 0.0
		if cfg.Calibrate {
			limit = cfg.Limit
		}
		if err := plot.Save(cfg.ImgPath, out, plot.Options{
			Title: fmt.Sprintf("%s %s, H = %.3f", specs.Category, specs.Cooler, specs.HotSpotFactor),
			Size:  float64(cfg.ImgSize),
			DPI:   int(cfg.ImgDPI),
			Limit: limit,
		}); err != nil {
			return err
		}
		logger.Info("chart saved", zap.String("path", cfg.ImgPath))
	}
	return nil
}

func resolve(cfg *config.Config) (thermalcore.Specifications, error) {
	category, err := thermalcore.ParseCategory(cfg.Category)
	if err != nil {
		return thermalcore.Specifications{}, err
	}
	cooler, err := thermalcore.ParseCoolerType(cfg.Cooler)
	if err != nil {
		return thermalcore.Specifications{}, err
	}
	return thermalcore.Resolve(category, cooler, thermalcore.UserSpecifications{
		LoadLoss:           cfg.LoadLoss.Value,
		NoLoadLoss:         cfg.NoLoadLoss.Value,
		NomLoadSecSide:     cfg.NomLoadSecSide,
		AmbTempSurcharge:   cfg.AmbTempSurcharge.Value,
		TopOilTempRise:     cfg.TopOilTempRise.Value,
		WindingOilGradient: cfg.WindingOilGradient.Value,
		HotSpotFactor:      cfg.HotSpotFactor.Value,
		TimeConstOil:       cfg.TimeConstOil.Value,
		TimeConstWindings:  cfg.TimeConstWindings.Value,
		EndTempReduction:   cfg.EndTempReduction.Value,
	})
}

func modelOptions(cfg *config.Config) (thermalcore.ModelOptions, error) {
	var opts thermalcore.ModelOptions
	switch {
	case cfg.InitialTopOil.Value != nil && cfg.InitialLoad.Value != nil:
		return opts, fmt.Errorf("%w: give either -top-oil0 or -load0", thermalcore.ErrConfiguration)
	case cfg.InitialTopOil.Value != nil:
		opts.Initial = thermalcore.InitialTopOil(*cfg.InitialTopOil.Value)
	case cfg.InitialLoad.Value != nil:
		opts.Initial = thermalcore.InitialLoadFraction(*cfg.InitialLoad.Value)
	}
	if cfg.Paper != "" {
		paper, err := thermalcore.ParseInsulationType(cfg.Paper)
		if err != nil {
			return opts, err
		}
		opts.Insulation = &paper
	}
	return opts, nil
}

func calibrate(ctx context.Context, cfg *config.Config, specs thermalcore.Specifications, logger *zap.Logger) (thermalcore.CalibrationResult, error) {
	method, err := thermalcore.ParseCalibrationMethod(cfg.Method)
	if err != nil {
		return thermalcore.CalibrationResult{}, err
	}
	cal := thermalcore.Calibrator{
		Specs:     specs,
		Method:    method,
		MinFactor: cfg.HMin,
		MaxFactor: cfg.HMax,
		Logger:    logger,
	}
	return cal.Calibrate(ctx, thermalcore.CalibrationTarget{Ambient: cfg.CalibrationAmbient, Limit: cfg.Limit})
}

func sweep(ctx context.Context, cfg *config.Config, w io.Writer, specs thermalcore.Specifications, opts thermalcore.ModelOptions, profile thermalcore.Profile) error {
	jobs := make([]thermalcore.BatchJob, len(cfg.Sweep))
	for i, h := range cfg.Sweep {
		jobs[i] = thermalcore.BatchJob{
			ID:      fmt.Sprintf("H=%.4f", h),
			Specs:   specs.WithHotSpotFactor(h),
			Options: opts,
			Profile: profile,
		}
	}

	results, err := thermalcore.RunBatch(ctx, jobs, int(cfg.Threads))
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", res.ID, res.Err)
			continue
		}
		printSummary(w, res.ID, res.Output)
	}
	return err
}
