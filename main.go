// ABOUTME: Entry point for the Soundless keep-awake daemon
// ABOUTME: Parses CLI flags, wires the engine, and owns process lifetime
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Soundless-Audio/soundless-go/internal/control"
	"github.com/Soundless-Audio/soundless-go/internal/device"
	"github.com/Soundless-Audio/soundless-go/internal/keeper"
	"github.com/Soundless-Audio/soundless-go/internal/ui"
	"github.com/Soundless-Audio/soundless-go/internal/version"
	tea "github.com/charmbracelet/bubbletea"
)

var (
	bufferMs     = flag.Int("buffer-ms", 1000, "Silent stream buffer size per endpoint in milliseconds")
	pollInterval = flag.Duration("poll-interval", 2*time.Second, "Device enumeration poll interval")
	controlPort  = flag.Int("control-port", 8937, "Localhost control endpoint port")
	logFile      = flag.String("log-file", "soundless.log", "Log file path")
	noTUI        = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	command      = flag.String("command", "", "Send a command (restart|shutdown|status) to a running instance and exit")
	listFlag     = flag.Bool("list", false, "List active render endpoints and exit")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s (%s)\n", version.Product, version.Version, version.Manufacturer)
		return
	}

	controlAddr := fmt.Sprintf("127.0.0.1:%d", *controlPort)

	if *command != "" {
		if err := sendCommand(controlAddr, *command); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}

	if *listFlag {
		if err := listEndpoints(); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}

	useTUI := !*noTUI

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		log.SetOutput(io.MultiWriter(os.Stdout, f))
		log.Printf("Starting %s %s", version.Product, version.Version)
	}

	if err := run(controlAddr, useTUI); err != nil {
		log.Fatalf("%v", err)
	}

	log.Printf("%s stopped", version.Product)
}

// run wires the engine and blocks until shutdown.
func run(controlAddr string, useTUI bool) error {
	var (
		enum        device.Enumerator
		opener      device.Opener
		backendName string
		cleanup     func()
	)

	ctx, err := device.NewContext()
	if err != nil {
		log.Printf("Miniaudio unavailable (%v), falling back to default-endpoint sink", err)

		sink, sinkErr := device.NewDefaultSink()
		if sinkErr != nil {
			return fmt.Errorf("no usable audio backend: %w", sinkErr)
		}
		enum, opener, backendName, cleanup = sink, sink, sink.Backend(), sink.Close
	} else {
		enum, opener, backendName, cleanup = ctx, ctx, ctx.Backend(), ctx.Close
	}

	k := keeper.New(enum, opener, keeper.Config{BufferMs: *bufferMs}, cleanup)

	// Device notification source holds its own reference for as long
	// as it may deliver events.
	watcher := device.NewWatcher(enum, *pollInterval)
	k.AttachDeviceEvents(watcher.Events())
	k.Acquire()
	go func() {
		defer k.Release()
		watcher.Run()
	}()

	// A busy control port almost always means another instance.
	srv := control.NewServer(k, backendName)
	if err := srv.Start(controlAddr); err != nil {
		k.Release()
		watcher.Stop()
		return fmt.Errorf("is another instance running? %w", err)
	}
	defer srv.Close()

	// TUI setup
	var tuiProg *tea.Program
	var tuiCtrl *ui.Control

	if useTUI {
		tuiCtrl = ui.NewControl()
		tuiProg, err = ui.Run(tuiCtrl)
		if err != nil {
			log.Printf("Failed to start TUI: %v", err)
			tuiProg = nil
		} else {
			go tuiProg.Run()
			go statusUpdateLoop(k, backendName, tuiProg)
			go func() {
				for range tuiCtrl.Restart {
					k.FireRestart()
				}
			}()
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- k.Main()
	}()

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case runErr = <-errCh:
		errCh = nil
	case <-sigChan:
		log.Printf("Shutdown signal received")
	case <-quitChan(tuiCtrl):
		log.Printf("Received quit from TUI")
	}

	k.FireShutdown()
	if errCh != nil {
		runErr = <-errCh
	}

	watcher.Stop()
	if tuiProg != nil {
		tuiProg.Quit()
	}
	k.Release()

	return runErr
}

// quitChan returns the TUI quit channel, or one that never fires.
func quitChan(ctrl *ui.Control) <-chan struct{} {
	if ctrl == nil {
		return make(chan struct{})
	}
	return ctrl.Quit
}

// statusUpdateLoop periodically pushes engine state into the TUI.
func statusUpdateLoop(k *keeper.Keeper, backend string, prog *tea.Program) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		prog.Send(ui.StatusMsg{
			Backend:   backend,
			Endpoints: k.Status(),
			Restarts:  int(k.Restarts()),
		})
	}
}

// sendCommand forwards one command to a running instance.
func sendCommand(addr, cmd string) error {
	switch cmd {
	case control.TypeRestart, control.TypeShutdown, control.TypeStatus:
	default:
		return fmt.Errorf("unknown command %q (want restart, shutdown, or status)", cmd)
	}

	reply, err := control.Send(addr, cmd)
	if err != nil {
		return fmt.Errorf("command failed: %w", err)
	}

	if reply.Type == control.TypeStatusReply {
		out, err := json.MarshalIndent(reply.Payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		fmt.Println("ok")
	}

	return nil
}

// listEndpoints prints the active render endpoints.
func listEndpoints() error {
	ctx, err := device.NewContext()
	if err != nil {
		return fmt.Errorf("no audio backend: %w", err)
	}
	defer ctx.Close()

	endpoints, err := ctx.Endpoints()
	if err != nil {
		return err
	}

	if len(endpoints) == 0 {
		fmt.Println("No active render endpoints")
		return nil
	}

	for _, ep := range endpoints {
		marker := " "
		if ep.Default {
			marker = "*"
		}
		fmt.Printf("%s %s  %s\n", marker, ep.ID[:min(12, len(ep.ID))], ep.Name)
	}

	return nil
}
