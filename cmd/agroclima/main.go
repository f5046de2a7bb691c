// Command agroclima looks up current weather for a city from the agroclima service.
//
//	agroclima -city Sorriso
//	echo Londrina | agroclima
//
// Without -city, each stdin line is submitted as a new search; a newer line
// supersedes a search still in flight.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/neexbeast/agroclima/internal/config"
	"github.com/neexbeast/agroclima/internal/logging"
	"github.com/neexbeast/agroclima/internal/lookup"
	"github.com/neexbeast/agroclima/internal/render"
)

func main() {
	city := flag.String("city", "", "city to look up; reads one city per stdin line when omitted")
	flag.Parse()

	citySet := false
	flag.Visit(func(f *flag.Flag) { citySet = citySet || f.Name == "city" })
	if err := checkCity(*city, citySet); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := logging.New(os.Stderr, cfg.LogLevel, false)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	final := run(ctx, cfg, *city, os.Stdin, os.Stdout, log)
	if _, failed := final.(lookup.Failed); failed {
		os.Exit(1)
	}
}

// checkCity rejects a -city flag that was given but is blank.
func checkCity(city string, set bool) error {
	if !set {
		return nil
	}
	if _, ok := lookup.ParseQuery(city); !ok {
		return errors.New("-city must not be blank")
	}
	return nil
}

// run drives a controller to completion and returns its final state.
func run(ctx context.Context, cfg *config.Client, city string, in io.Reader, out io.Writer, log *slog.Logger) lookup.DisplayState {
	ctrl := lookup.NewController(lookup.NewClient(cfg.APIURL, cfg.APIToken), log)
	ctrl.Subscribe(func(s lookup.DisplayState) {
		if err := render.State(out, s); err != nil {
			log.Error("rendering state", "err", err)
		}
	})

	if city != "" {
		ctrl.Submit(ctx, city)
		ctrl.Wait()
		return ctrl.State()
	}

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		ctrl.Submit(ctx, sc.Text())
	}
	if err := sc.Err(); err != nil {
		log.Error("reading stdin", "err", err)
	}
	ctrl.Wait()
	return ctrl.State()
}
