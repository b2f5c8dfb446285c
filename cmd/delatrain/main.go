package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	lib "github.com/DelaTrain/scraper"
	"github.com/DelaTrain/scraper/config"
	"github.com/DelaTrain/scraper/geo"
	"github.com/DelaTrain/scraper/ledger"
	"github.com/DelaTrain/scraper/osm"
	"github.com/DelaTrain/scraper/pkp"
)

func main() {
	sleep := flag.Float64("sleep", 0, "seconds between steps (default 10 for scraper, 1 otherwise)")
	seed := flag.String("seed", "Warszawa Centralna", "starting station for scraper reset")
	day := flag.String("day", "", "schedule day for scraper reset as YYYY-MM-DD (default tomorrow)")
	radius := flag.Int("radius", 0, "override pathfinding radius_km")
	interval := flag.Int("interval", 0, "override pathfinding interval_m")
	flag.Parse()

	_ = godotenv.Load()
	lib.InitLogging()
	if err := config.LoadAppConfig(); err != nil {
		log.Fatalf("config: %v", err)
	}
	if *radius > 0 {
		config.Config.Pathfinding.RadiusKM = *radius
	}
	if *interval > 0 {
		config.Config.Pathfinding.IntervalM = *interval
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
	}
	switch args[0] {
	case "scraper":
		runScraper(args[1:], pacing(*sleep, 10), *seed, *day)
	case "paths":
		runPaths(args[1:], pacing(*sleep, 1))
	case "fixup":
		runFixup()
	case "export":
		runExport()
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: delatrain [flags] scraper reset|continue")
	fmt.Fprintln(os.Stderr, "       delatrain [flags] paths reset|continue")
	fmt.Fprintln(os.Stderr, "       delatrain [flags] fixup")
	fmt.Fprintln(os.Stderr, "       delatrain [flags] export")
	flag.PrintDefaults()
	os.Exit(2)
}

func pacing(sleepSeconds, fallback float64) time.Duration {
	if sleepSeconds <= 0 {
		sleepSeconds = fallback
	}
	return time.Duration(sleepSeconds * float64(time.Second))
}

// watchInterrupts counts termination signals. The first one lets the
// current step finish and the loop save; the fifth gives up on graceful
// shutdown and exits immediately.
func watchInterrupts() *int32 {
	var count int32
	ch := make(chan os.Signal, 8)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		for range ch {
			n := atomic.AddInt32(&count, 1)
			if n == 1 {
				log.Print("interrupt received, finishing the current step")
			}
			if n >= 5 {
				log.Print("repeated interrupts, exiting without saving")
				os.Exit(1)
			}
		}
	}()
	return &count
}

func loadState() *lib.State {
	state, err := lib.LoadCheckpoint(config.Config.Storage.StateFile)
	if err != nil {
		log.Fatalf("load checkpoint: %v", err)
	}
	return state
}

func saveState(state *lib.State) {
	storage := config.Config.Storage
	if err := lib.SaveCheckpoint(state, storage.StateFile, storage.BackupFile); err != nil {
		log.Printf("save checkpoint: %v", err)
		return
	}
	log.Printf("checkpoint saved to %s", storage.StateFile)
}

// runLoop drives one phase step function with pacing until it reports
// done, fails, or an interrupt arrives. The state is checkpointed on every
// exit path, panics included.
func runLoop(state *lib.State, pace time.Duration, step func() (bool, error)) {
	interrupts := watchInterrupts()
	defer saveState(state)

	for {
		done, err := step()
		if err != nil {
			log.Printf("step failed: %v", err)
			return
		}
		if done {
			log.Print("phase complete")
			return
		}
		if atomic.LoadInt32(interrupts) > 0 {
			log.Print("stopping on interrupt")
			return
		}
		time.Sleep(pace)
	}
}

func runScraper(args []string, pace time.Duration, seed, day string) {
	var state *lib.State
	switch mode(args) {
	case "reset":
		state = lib.NewState()
		state.Day = scheduleDay(day)
		state.SeedStations(seed)
		log.Printf("scraping schedules for %s", state.Day.Format("2006-01-02"))
	case "continue":
		state = loadState()
		if state.Day.IsZero() {
			state.Day = scheduleDay(day)
		}
	}

	sources := config.Config.Sources
	schedule := pkp.NewClient(sources.ScheduleURL, sources.UserAgent)
	maps := osm.NewClient(sources.OverpassURL, sources.Area, sources.UserAgent)
	runLoop(state, pace, func() (bool, error) {
		return state.ScrapeStep(schedule, maps)
	})
}

func runPaths(args []string, pace time.Duration) {
	state := loadState()
	if mode(args) == "reset" {
		state.ResetPathfinding()
	}

	sources := config.Config.Sources
	maps := osm.NewClient(sources.OverpassURL, sources.Area, sources.UserAgent)
	runLoop(state, pace, func() (bool, error) {
		return state.PathStep(maps, config.Config.Pathfinding)
	})
}

// scheduleDay picks the day a crawl asks timetables for. Empty means
// tomorrow, the earliest day with a full schedule published.
func scheduleDay(value string) time.Time {
	if value == "" {
		tomorrow := time.Now().AddDate(0, 0, 1)
		return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, time.UTC)
	}
	day, err := time.Parse("2006-01-02", value)
	if err != nil {
		log.Fatalf("bad -day %q: want YYYY-MM-DD", value)
	}
	return day
}

func mode(args []string) string {
	if len(args) != 1 || (args[0] != "reset" && args[0] != "continue") {
		usage()
	}
	return args[0]
}

func runFixup() {
	state := loadState()
	fixups, err := ledger.Open(config.Config.Storage.LedgerFile)
	if err != nil {
		log.Fatalf("fixup ledger: %v", err)
	}
	defer fixups.Close()

	resolver := &consoleResolver{in: bufio.NewReader(os.Stdin)}
	interrupts := watchInterrupts()
	defer saveState(state)

	for {
		done, err := state.FixupStep(fixups, resolver)
		if errors.Is(err, lib.ErrFixupAborted) {
			log.Print("deletion aborted, station stays broken")
			continue
		}
		if err != nil {
			log.Printf("fixup failed: %v", err)
			return
		}
		if done {
			log.Print("no broken stations left")
			return
		}
		if atomic.LoadInt32(interrupts) > 0 {
			log.Print("stopping on interrupt")
			return
		}
	}
}

func runExport() {
	state := loadState()
	if err := lib.WriteExport(state, config.Config.Storage.ExportFile); err != nil {
		log.Fatalf("export: %v", err)
	}
	log.Printf("exported to %s", config.Config.Storage.ExportFile)
}

// consoleResolver prompts the operator on stdin for broken stations.
type consoleResolver struct {
	in *bufio.Reader
}

func (r *consoleResolver) Resolve(station string) (lib.FixupAction, error) {
	fmt.Printf("station %q could not be located automatically\n", station)
	for {
		fmt.Print("paste an OpenStreetMap URL for it, or type \"delete\": ")
		line, err := r.in.ReadString('\n')
		if err != nil {
			return lib.FixupAction{}, err
		}
		line = strings.TrimSpace(line)
		if strings.EqualFold(line, "delete") {
			return lib.FixupAction{Delete: true}, nil
		}
		pos, err := parseOSMLocation(line)
		if err != nil {
			fmt.Printf("%v\n", err)
			continue
		}
		return lib.FixupAction{Location: pos}, nil
	}
}

func (r *consoleResolver) ConfirmDeletion(plan lib.DeletionPlan) (bool, error) {
	fmt.Printf("deleting %d stations and %d trains:\n", len(plan.Stations), len(plan.Trains))
	for _, name := range plan.Stations {
		fmt.Printf("  station %s\n", name)
	}
	for _, key := range plan.Trains {
		fmt.Printf("  train %s\n", key)
	}
	fmt.Print("proceed? [y/N]: ")
	line, err := r.in.ReadString('\n')
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(line), "y"), nil
}

// parseOSMLocation pulls latitude and longitude out of a map URL like
// https://www.openstreetmap.org/#map=18/52.22977/21.01178: the last two
// slash-separated segments.
func parseOSMLocation(raw string) (geo.Position, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return geo.Unknown(), fmt.Errorf("not a URL: %q", raw)
	}
	source := u.Fragment
	if source == "" {
		source = u.Path
	}
	parts := strings.Split(source, "/")
	if len(parts) < 2 {
		return geo.Unknown(), fmt.Errorf("no coordinates found in %q", raw)
	}
	lat, latErr := strconv.ParseFloat(parts[len(parts)-2], 64)
	lon, lonErr := strconv.ParseFloat(parts[len(parts)-1], 64)
	if latErr != nil || lonErr != nil {
		return geo.Unknown(), fmt.Errorf("no coordinates found in %q", raw)
	}
	return geo.Position{Latitude: lat, Longitude: lon}, nil
}
