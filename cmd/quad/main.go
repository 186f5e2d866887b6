// Command quad integrates a one-variable expression from the command line.
//
//	quad -expr "x^2" -a 0 -b 1 -n 10 -rule simpson
//	quad -expr "exp(-x^2)" -a -3 -b 3 -n 200 -plot gauss.png
//
// The samples of the run are written to -store (default from the
// QUAD_STORE_PATH setting, else graphics_info.csv). -store "" disables it.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/njchilds90/goquad"
	"github.com/njchilds90/goquad/internal/config"
	"github.com/njchilds90/goquad/internal/logging"
	"github.com/njchilds90/goquad/plot"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the exit status: 0 on success, 1 on failure, 2 on bad usage.
func run(args []string, stdout, stderr io.Writer) int {
	conf, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	fset := flag.NewFlagSet("quad", flag.ContinueOnError)
	fset.SetOutput(stderr)
	expr := fset.String("expr", "", "Integrand in x, e.g. \"sin(x)^2\" (required)")
	a := fset.Float64("a", 0, "Lower bound")
	b := fset.Float64("b", 1, "Upper bound")
	n := fset.Int("n", 100, "Number of sub-intervals (Simpson uses 2n)")
	ruleName := fset.String("rule", "simpson", "trapezoid or simpson")
	storePath := fset.String("store", conf.StorePath, "File the samples are written to; empty disables")
	plotPath := fset.String("plot", "", "Write a PNG chart of the samples to this file")
	verbose := fset.Bool("v", false, "Log the run as JSON to stderr")
	if err := fset.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *expr == "" || fset.NArg() > 0 {
		fmt.Fprintln(stderr, "quad: -expr is required and no positional arguments are accepted")
		fset.Usage()
		return 2
	}
	rule, err := goquad.ParseRule(*ruleName)
	if err != nil {
		fmt.Fprintln(stderr, "quad:", err)
		return 2
	}
	if conf.MaxN > 0 && *n > conf.MaxN {
		fmt.Fprintf(stderr, "quad: -n %d exceeds the configured maximum %d\n", *n, conf.MaxN)
		return 2
	}

	logConf := conf.Logging
	if !*verbose {
		logConf.LogLevel = "error"
	}
	_, logFile := logging.InitWriter(stderr, logConf)
	defer logFile.Close()

	var store goquad.SampleStore
	if *storePath != "" {
		store = goquad.NewFileStore(*storePath)
	}
	engine := goquad.NewEngine(store)

	start := time.Now()
	res, err := engine.Integrate(rule, *expr, *a, *b, *n)
	if err != nil {
		slog.Error("integration failed", slog.String("expr", *expr), slog.String("error", err.Error()))
		fmt.Fprintln(stderr, "quad:", err)
		return 1
	}
	slog.Info("integrated",
		slog.String("rule", rule.String()),
		slog.String("expr", *expr),
		slog.Float64("a", *a),
		slog.Float64("b", *b),
		slog.Int("n", *n),
		slog.Int("points", res.Samples.Len()),
		slog.Duration("elapsed", time.Since(start)),
	)

	if *plotPath != "" {
		if err := plot.RenderFile(*plotPath, res.Samples, plot.Options{Title: *expr}); err != nil {
			fmt.Fprintln(stderr, "quad:", err)
			return 1
		}
	}

	fmt.Fprintln(stdout, strconv.FormatFloat(res.Estimate, 'g', -1, 64))
	return 0
}
