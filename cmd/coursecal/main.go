package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"coursecal/internal/config"
	"coursecal/internal/holiday"
	"coursecal/internal/ics"
	appLog "coursecal/internal/log"
	"coursecal/internal/model"
	"coursecal/internal/recurrence"
	"coursecal/internal/web"
)

type flagConfig struct {
	configPath string
	courses    string
	semester   string
	out        string
	serve      bool
	dump       bool
}

// coursesFile is the -courses input: the same shape POST /api/schedule accepts.
type coursesFile struct {
	SemesterStart model.Date     `json:"semester_start"`
	Courses       []model.Course `json:"courses"`
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	defer appLog.Sync()

	appLog.Info("effective config",
		"listen", conf.Listen,
		"utc_offset_hours", conf.UTCOffsetHours,
		"holiday_source", holidaySourceLabel(conf),
		"holiday_refresh", conf.Holiday.RefreshCron,
		"redis_cache", conf.Redis.Enabled(),
		"serve", flags.serve,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	loader, closeCache := newHolidayLoader(ctx, conf)
	defer closeCache()
	store := holiday.NewStore(loader)

	if flags.serve {
		if err := serve(ctx, conf, store); err != nil {
			appLog.Error("server stopped", err)
			os.Exit(1)
		}
		return
	}

	if err := store.Refresh(ctx); err != nil {
		appLog.Error("failed to load holiday calendar", err)
		os.Exit(1)
	}
	if err := runOnce(flags, conf, store.Current()); err != nil {
		appLog.Error("export failed", err, "courses", flags.courses)
		os.Exit(1)
	}
}

func serve(ctx context.Context, conf *config.Config, store *holiday.Store) error {
	// Serving starts even when the first load fails; the next scheduled
	// refresh may succeed and requests see an empty calendar until then.
	if err := store.Refresh(ctx); err != nil {
		appLog.Error("initial holiday load failed; serving without holidays", err)
	}

	sched, err := store.Schedule(conf.Holiday.RefreshCron)
	if err != nil {
		return err
	}
	defer func() {
		<-sched.Stop().Done()
	}()

	return web.StartServer(ctx, conf, store)
}

func runOnce(flags flagConfig, conf *config.Config, cal *holiday.Calendar) error {
	if flags.courses == "" {
		return fmt.Errorf("-courses is required unless -serve is set")
	}
	data, err := os.ReadFile(flags.courses)
	if err != nil {
		return err
	}
	var in coursesFile
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode %s: %w", flags.courses, err)
	}

	start := in.SemesterStart
	if flags.semester != "" {
		if start, err = model.ParseDate(flags.semester); err != nil {
			return fmt.Errorf("-semester: %w", err)
		}
	}
	if start.IsZero() {
		return fmt.Errorf("semester start missing: pass -semester or set semester_start")
	}

	sched, err := recurrence.BuildSchedule(cal, model.NewSemester(start, conf.Location()), in.Courses)
	if err != nil {
		return err
	}

	err = writeOutput(flags.out, os.Stdout, func(w io.Writer) error {
		if flags.dump {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(sched)
		}
		_, err := io.WriteString(w, ics.Export(sched, ics.ExportOptions{
			CalendarName:       conf.Export.CalendarName,
			ReminderMinutes:    conf.Export.ReminderMinutes,
			IncludeTeacher:     conf.Export.IncludeTeacher,
			IncludeDescription: conf.Export.IncludeDescription,
		}))
		return err
	})
	if err == nil {
		appLog.Info("calendar written", "courses", len(sched.Courses), "out", flags.out)
	}
	return err
}

// createFile opens -out for writing.
var createFile = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

// writeOutput runs write against path, or against stdout when path is
// empty or "-". The file's close error is returned when the write itself
// succeeded.
func writeOutput(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(stdout)
	}

	f, err := createFile(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// newHolidayLoader picks the feed source: a local file when configured,
// otherwise the URL behind a Redis or disk cache.
func newHolidayLoader(ctx context.Context, conf *config.Config) (holiday.Loader, func()) {
	if conf.Holiday.Path != "" {
		path := conf.Holiday.Path
		return func(context.Context) (*holiday.Calendar, error) {
			return holiday.LoadFile(path)
		}, func() {}
	}

	var cache ics.FeedCache = ics.NewDiskCache(conf.Holiday.CacheDir)
	closeCache := func() {}

	if conf.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			appLog.Error("redis unreachable; using disk cache", err, "addr", conf.Redis.Addr)
			_ = client.Close()
		} else {
			cache = ics.NewRedisCache(client, conf.Redis.Prefix, conf.Holiday.CacheTTL)
			closeCache = func() {
				if err := client.Close(); err != nil {
					appLog.Warn("failed to close redis client", "error", err)
				}
			}
		}
	}

	fetcher := ics.NewFetcher(cache, conf.Holiday.Timeout)
	return ics.HolidayLoader(fetcher, ics.Source{ID: "holidays", URL: conf.Holiday.URL}), closeCache
}

func holidaySourceLabel(conf *config.Config) string {
	if conf.Holiday.Path != "" {
		return conf.Holiday.Path
	}
	return "url"
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./coursecal.yaml", "Path to config file")
	flag.StringVar(&cfg.courses, "courses", "", "JSON file with semester_start and courses")
	flag.StringVar(&cfg.semester, "semester", "", "Semester start date YYYY-MM-DD (overrides the courses file)")
	flag.StringVar(&cfg.out, "out", "", "Output file (default stdout)")
	flag.BoolVar(&cfg.serve, "serve", false, "Run the HTTP API instead of a one-shot export")
	flag.BoolVar(&cfg.dump, "dump", false, "Write the adjusted schedule as JSON instead of iCalendar")

	flag.Parse()

	return cfg
}
