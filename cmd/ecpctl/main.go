// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Command ecpctl finds and drives ECP media players on the local network.
//
// Usage:
//
//	ecpctl [-config path] [-log-level level] [-mac addr] [-wol-addr host:port] <command> [args]
//
// Run ecpctl without arguments for the list of commands.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/soothill/roku-ecp/config"
	"github.com/soothill/roku-ecp/pkg/logger"
	"github.com/soothill/roku-ecp/wol"
)

// defaultWakeAddr is the IPv4 limited broadcast on the discard port
const defaultWakeAddr = "255.255.255.255:9"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses args, executes one command and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ecpctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to configuration file (optional)")
	logLevel := fs.String("log-level", "", "Log level override (trace, debug, info, warn, error)")
	macFlag := fs.String("mac", "", "MAC to wake a device that is not answering (power, launch)")
	wakeAddr := fs.String("wol-addr", defaultWakeAddr, "Destination of Wake-on-LAN packets")
	fs.Usage = func() { usage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 1
	}

	name, cmdArgs := fs.Arg(0), fs.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "ecpctl: unknown command %q\n\n", name)
		fs.Usage()
		return 1
	}
	if len(cmdArgs) < cmd.minArgs {
		fmt.Fprintf(stderr, "usage: ecpctl %s %s\n", name, cmd.args)
		return 1
	}

	var mac wol.MAC
	if *macFlag != "" {
		m, err := wol.ParseMAC(*macFlag)
		if err != nil {
			fmt.Fprintf(stderr, "ecpctl: invalid -mac: %v\n", err)
			return 1
		}
		mac = m
	}
	addr, err := net.ResolveUDPAddr("udp4", *wakeAddr)
	if err != nil {
		fmt.Fprintf(stderr, "ecpctl: invalid -wol-addr: %v\n", err)
		return 1
	}

	var cfg *config.Config
	if name == "validate-config" {
		// validation reports its own load errors
		cfg, err = config.Default()
	} else {
		cfg, err = config.LoadOrDefault(*configPath)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ecpctl: %v\n", err)
		return 1
	}

	level := cfg.Logging.Level
	if *logLevel != "" {
		level = *logLevel
	}
	logger.InitializeWithWriter(level, zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339})

	c := &cli{
		cfg:        cfg,
		configPath: *configPath,
		out:        stdout,
		mac:        mac,
		waker:      wol.NewSenderTo(addr),
	}
	if err := cmd.run(ctx, c, cmdArgs); err != nil {
		fmt.Fprintf(stderr, "ecpctl %s: %v\n", name, err)
		return 1
	}
	return 0
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "usage: ecpctl [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := commands[name]
		fmt.Fprintf(w, "  %-16s %s\n", name+" "+cmd.args, cmd.help)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fs.PrintDefaults()
}
