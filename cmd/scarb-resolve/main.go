// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command scarb-resolve picks a version for every package a Scarb workspace
// depends on, reading the available packages from index files.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
)

// cacheEnv names the variable holding the default summary cache directory.
const cacheEnv = "SCARB_CACHE"

type command interface {
	Name() string           // word that selects the command
	Args() string           // positional arguments, as shown in help
	ShortHelp() string      // one line for the command list
	LongHelp() string       // body of "scarb-resolve help <command>"
	Register(*flag.FlagSet) // adds the command's own flags
	Hidden() bool           // left out of the command list
	Run(*Ctx, []string) error
}

// Ctx is what every command runs with.
type Ctx struct {
	WorkingDir string      // Relative paths are taken from here.
	CacheDir   string      // Summary cache directory, from SCARB_CACHE.
	Out, Err   *log.Logger // Results and diagnostics.
	Verbose    bool        // Debug logging.
}

// abs resolves path against the working directory.
func (c *Ctx) abs(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.WorkingDir, path)
}

func main() {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "scarb-resolve: cannot determine the working directory:", err)
		os.Exit(1)
	}
	c := &Config{
		WorkingDir: wd,
		Args:       os.Args,
		Env:        os.Environ(),
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}
	os.Exit(c.Run())
}

// Config is one invocation of scarb-resolve, with everything it may touch
// passed in explicitly.
type Config struct {
	WorkingDir     string
	Args           []string // os.Args style, program name first
	Env            []string // KEY=VALUE pairs
	Stdout, Stderr io.Writer
}

// newCommands returns fresh commands; flags are bound to their fields.
func newCommands() []command {
	return []command{
		&resolveCommand{},
		&versionCommand{},
	}
}

var examples = []struct{ cmdline, what string }{
	{"scarb-resolve resolve -index index.toml foo@1.0.0", "resolve the dependencies of foo 1.0.0"},
	{"scarb-resolve resolve -index index.toml -write-lock foo bar", "resolve foo and bar as one workspace and write Scarb.lock"},
	{"scarb-resolve resolve -index index.toml -dot foo | dot -Tpng -o deps.png", "draw the dependency graph of foo"},
}

// printUsage writes the command overview.
func printUsage(w io.Writer, commands []command) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "scarb-resolve picks package versions for Scarb workspaces.\n\n")
	fmt.Fprint(tw, "Usage: scarb-resolve <command> [flags] [args]\n\n")
	fmt.Fprint(tw, "Commands:\n\n")
	for _, cmd := range commands {
		if cmd.Hidden() {
			continue
		}
		fmt.Fprintf(tw, "\t%s\t%s\n", cmd.Name(), cmd.ShortHelp())
	}
	fmt.Fprint(tw, "\nExamples:\n\n")
	for _, ex := range examples {
		fmt.Fprintf(tw, "\t%s\t%s\n", ex.cmdline, ex.what)
	}
	fmt.Fprint(tw, "\nRun \"scarb-resolve help <command>\" to see the flags of a command.\n")
	tw.Flush()
}

func lookupCommand(commands []command, name string) command {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

// Run executes c and returns the process exit code.
func (c *Config) Run() int {
	outLogger := log.New(c.Stdout, "", 0)
	errLogger := log.New(c.Stderr, "", 0)

	commands := newCommands()
	cmdName, wantHelp, showOverview := parseArgs(c.Args)
	if showOverview {
		printUsage(c.Stderr, commands)
		return 1
	}

	cmd := lookupCommand(commands, cmdName)
	if cmd == nil {
		errLogger.Printf("scarb-resolve: %s: no such command\n\n", cmdName)
		printUsage(c.Stderr, commands)
		return 1
	}

	fs := flag.NewFlagSet(cmdName, flag.ContinueOnError)
	fs.SetOutput(c.Stderr)
	verbose := fs.Bool("v", false, "print debug logs")
	cmd.Register(fs)
	setCommandUsage(errLogger, fs, cmd)

	if wantHelp {
		fs.Usage()
		return 1
	}
	// Parse reports its own errors, and handles -h.
	if err := fs.Parse(c.Args[2:]); err != nil {
		return 1
	}

	ctx := &Ctx{
		WorkingDir: c.WorkingDir,
		CacheDir:   getEnv(c.Env, cacheEnv),
		Out:        outLogger,
		Err:        errLogger,
		Verbose:    *verbose,
	}
	if err := cmd.Run(ctx, fs.Args()); err != nil {
		errLogger.Printf("scarb-resolve %s: %v\n", cmdName, err)
		return 1
	}
	return 0
}

// setCommandUsage makes fs.Usage print the long help of cmd followed by a
// table of its flags.
func setCommandUsage(logger *log.Logger, fs *flag.FlagSet, cmd command) {
	var table bytes.Buffer
	tw := tabwriter.NewWriter(&table, 0, 4, 2, ' ', 0)
	fs.VisitAll(func(f *flag.Flag) {
		def := f.DefValue
		if def == "" {
			def = "none"
		}
		fmt.Fprintf(tw, "\t-%s\t%s [%s]\n", f.Name, f.Usage, def)
	})
	tw.Flush()

	fs.Usage = func() {
		logger.Printf("Usage: scarb-resolve %s [flags] %s\n\n", cmd.Name(), cmd.Args())
		logger.Printf("%s\n\n", strings.TrimSpace(cmd.LongHelp()))
		if table.Len() > 0 {
			logger.Printf("Flags (defaults in brackets):\n\n%s", table.String())
		}
	}
}

// parseArgs reads the command name out of args. wantHelp is set for
// "help <command>"; showOverview when no command is named at all.
func parseArgs(args []string) (cmdName string, wantHelp, showOverview bool) {
	if len(args) < 2 {
		return "", false, true
	}
	first := strings.ToLower(args[1])
	isHelp := first == "-h" || strings.Contains(first, "help")
	switch {
	case isHelp && len(args) == 2:
		return args[1], false, true
	case isHelp:
		return args[2], true, false
	}
	return args[1], false, false
}

// getEnv returns the value of key in env. Later entries win.
func getEnv(env []string, key string) string {
	for i := len(env) - 1; i >= 0; i-- {
		if k, v, _ := strings.Cut(env[i], "="); k == key {
			return v
		}
	}
	return ""
}
