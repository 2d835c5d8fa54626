// Command cosmorun is the thin runnable seam around internal/driver: a
// full-featured CLI is an external collaborator outside this repo's scope
// (spec §1), so this binary wires just enough of driver.ParseArgs's
// output to compile and run a `--eval` snippet or a handful of source
// files end to end.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	"github.com/cosmorun/cosmorun/internal/driver"
	"github.com/cosmorun/cosmorun/internal/frontend"
	"github.com/cosmorun/cosmorun/internal/platform"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var evalSrc string
	for i, a := range args {
		if a == "--eval" && i+1 < len(args) {
			evalSrc = args[i+1]
			args = append(append([]string(nil), args[:i]...), args[i+2:]...)
			break
		}
	}

	opts, positional, err := driver.ParseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cosmorun: %v\n", err)
		return 1
	}
	// glog reads its settings from the standard flag set. The command line
	// belongs to ParseArgs, so the flag set is marked parsed with no
	// arguments and glog's verbosity is set from -v/-vv.
	_ = flag.CommandLine.Parse(nil)
	_ = flag.Set("v", fmt.Sprint(opts.Verbosity))
	defer glog.Flush()

	info := platform.Probe()
	driver.LoadEnv(info).ApplyTo(&opts)

	if evalSrc == "" && len(positional) == 0 {
		fmt.Fprintln(os.Stderr, "usage: cosmorun [options] <file.c ...> | --eval '<source>'")
		return 1
	}

	d := driver.Create(info, frontend.NewCCFrontend(info), opts)
	defer d.Destroy()

	if evalSrc != "" {
		d.AddSourceString("<eval>", evalSrc)
	}
	for _, path := range positional {
		d.AddSource(path)
	}

	diags, err := d.Compile()
	for _, w := range diags.Warnings {
		fmt.Fprintf(os.Stderr, "cosmorun: warning: %s:%d: %s\n", w.File, w.Line, w.Message)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "cosmorun: %v\n", err)
		return 1
	}

	if opts.PreprocessOnly {
		return 0
	}

	if err := d.Relocate(); err != nil {
		fmt.Fprintf(os.Stderr, "cosmorun: %v\n", err)
		return 1
	}

	if opts.OutputPath != "" {
		if err := d.WriteOutput(opts.OutputPath); err != nil {
			fmt.Fprintf(os.Stderr, "cosmorun: %v\n", err)
			return 1
		}
		return 0
	}

	addr, err := d.Lookup("main")
	if err != nil {
		if glog.V(1) {
			glog.Infof("no main() to run, compiled %d source(s) without executing", len(positional)+boolToInt(evalSrc != ""))
		}
		return 0
	}

	return callMain(addr)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
