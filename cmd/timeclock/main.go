// Command timeclock is the employee time-clock agent. It reads device position fixes as
// newline-delimited JSON and drives the attendance controller against the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/timeclock-go/internal/config"
	"github.com/cmlabs-hris/timeclock-go/internal/domain/timeclock"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/position"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/timetracking"
	timeclockService "github.com/cmlabs-hris/timeclock-go/internal/service/timeclock"
)

const usage = `Usage: timeclock [flags] <command>

Commands:
  status        load attendance state and check the current location
  clock-in      verify the location and clock in
  clock-out     clock out, sending the exit location when available
  break-start   start a break
  break-end     end a break
  history       list attendance sessions
  watch         stay running and clock out automatically after leaving the restaurant

Position fixes are read from TIMECLOCK_POSITION_SOURCE ("-" for stdin), one JSON object
per line: {"latitude":-6.2,"longitude":106.8,"accuracy":12}

Flags:
`

func main() {
	source := flag.String("source", "", "position feed path, overrides TIMECLOCK_POSITION_SOURCE")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadAgent()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}
	if *source != "" {
		cfg.PositionSource = *source
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.SlogLevel(cfg.LogLevel),
	})).With(slog.String("app", "timeclock-agent"))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, flag.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, timeclock.UserMessage(err))
		logger.Debug("Command failed", "command", flag.Arg(0), "error", err)
		os.Exit(1)
	}
}

func openSource(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func run(ctx context.Context, cfg *config.AgentConfig, logger *slog.Logger, command string) error {
	src, err := openSource(cfg.PositionSource)
	if err != nil {
		return fmt.Errorf("open position source: %w: %v", timeclock.ErrPositionUnavailable, err)
	}
	defer src.Close()

	client, err := timetracking.NewClient(cfg.APIBaseURL,
		timetracking.StaticToken(cfg.AccessToken),
		timetracking.WithTimeout(cfg.RequestTimeout),
	)
	if err != nil {
		return err
	}

	controllerCfg := timeclockService.DefaultConfig()
	controllerCfg.HighAccuracyTimeout = cfg.HighAccuracyTimeout
	controllerCfg.LowAccuracyTimeout = cfg.LowAccuracyTimeout
	controllerCfg.LowAccuracyMaxAge = cfg.LowAccuracyMaxAge

	opts := []timeclockService.Option{
		timeclockService.WithConfig(controllerCfg),
		timeclockService.WithLogger(logger),
	}
	if command == "watch" {
		opts = append(opts, timeclockService.WithListener(printEvent))
	}

	controller := timeclockService.NewController(client,
		position.NewStreamPositioner(src, position.WithLogger(logger)),
		opts...,
	)
	defer controller.Close()

	if err := controller.Load(ctx); err != nil {
		return err
	}

	switch command {
	case "status":
		if _, err := controller.CheckLocation(ctx); err != nil {
			return err
		}
		printStatus(controller)
		return nil

	case "clock-in":
		return printResult(controller.ClockIn(ctx))

	case "clock-out":
		return printResult(controller.ClockOut(ctx))

	case "break-start":
		return printResult(controller.StartBreak(ctx))

	case "break-end":
		return printResult(controller.EndBreak(ctx))

	case "history":
		sessions, err := controller.History(ctx)
		if err != nil {
			return err
		}
		for _, s := range sessions {
			out := "open"
			if s.ClockOutTime != nil {
				out = s.ClockOutTime.Local().Format(time.DateTime)
			}
			fmt.Printf("%s  in %s  out %s\n", s.ID, s.ClockInTime.Local().Format(time.DateTime), out)
		}
		return nil

	case "watch":
		printStatus(controller)
		<-ctx.Done()
		return nil

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func printResult(result timeclock.ActionResult, err error) error {
	if err != nil {
		return err
	}
	if result.At != nil {
		fmt.Printf("%s (%s)\n", result.Message, result.At.Local().Format(time.Kitchen))
		return nil
	}
	fmt.Println(result.Message)
	return nil
}

func printStatus(c *timeclockService.Controller) {
	writeStatus(os.Stdout, c.Snapshot(), c.Eligibility())
}

func writeStatus(w io.Writer, snap timeclockService.Snapshot, elig timeclockService.Eligibility) {
	fmt.Fprintf(w, "Restaurant: %s (radius %.0f m)\n", snap.Geofence.Name, snap.Geofence.Radius)
	fmt.Fprintf(w, "State:      %s\n", snap.State)
	if snap.Shift != nil {
		fmt.Fprintf(w, "Shift:      %s - %s\n",
			snap.Shift.StartTime.Local().Format(time.Kitchen),
			snap.Shift.EndTime.Local().Format(time.Kitchen))
	}
	if elig.Message != "" {
		fmt.Fprintf(w, "Location:   %s\n", elig.Message)
	}
	if !snap.State.Monitored() {
		fmt.Fprintf(w, "Can clock in: %t\n", elig.Eligible)
	}
}

func printEvent(e timeclockService.Event) {
	stamp := e.At.Local().Format(time.TimeOnly)
	switch e.Kind {
	case timeclockService.EventStateChanged:
		fmt.Printf("%s  state %s\n", stamp, e.State)
	case timeclockService.EventLocationChecked:
		if e.Result != nil {
			fmt.Printf("%s  %s (violations %d)\n", stamp, e.Result.Message, e.Violations)
		}
	case timeclockService.EventAutoClockOut:
		fmt.Printf("%s  clocked out automatically after leaving the restaurant\n", stamp)
	case timeclockService.EventMonitorError:
		fmt.Printf("%s  %s\n", stamp, timeclock.UserMessage(e.Err))
	}
}
