// Package logfile manages log files.
package logfile

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/steamvault/steamvault/cli"
	"github.com/steamvault/steamvault/logging"
)

const logsDirMode = 0o700

var logLevels = []string{"debug", "info", "warning", "error"}

type loggingFlags struct {
	logFile              string
	logDir               string
	logDirMaxFiles       int
	logDirMaxAge         time.Duration
	logLevel             string
	fileLogLevel         string
	forceColor           bool
	disableColor         bool
	consoleLogTimestamps bool

	cliApp *cli.App
}

func (c *loggingFlags) setup(cliApp *cli.App, app *kingpin.Application) {
	app.Flag("log-file", "Override log file.").StringVar(&c.logFile)
	app.Flag("log-dir", "Directory where log files should be written.").Envar("STEAMVAULT_LOG_DIR").Default(cli.DefaultLogsDir()).StringVar(&c.logDir)
	app.Flag("log-dir-max-files", "Maximum number of log files to retain").Envar("STEAMVAULT_LOG_DIR_MAX_FILES").Default("100").Hidden().IntVar(&c.logDirMaxFiles)
	app.Flag("log-dir-max-age", "Maximum age of log files to retain").Envar("STEAMVAULT_LOG_DIR_MAX_AGE").Hidden().Default("720h").DurationVar(&c.logDirMaxAge)
	app.Flag("log-level", "Console log level").Default("error").EnumVar(&c.logLevel, logLevels...)
	app.Flag("file-log-level", "File log level").Default("debug").EnumVar(&c.fileLogLevel, logLevels...)
	app.Flag("force-color", "Force color output").Hidden().Envar("STEAMVAULT_FORCE_COLOR").BoolVar(&c.forceColor)
	app.Flag("disable-color", "Disable color output").Hidden().Envar("STEAMVAULT_DISABLE_COLOR").BoolVar(&c.disableColor)
	app.Flag("console-timestamps", "Log timestamps to stderr.").Hidden().Default("false").Envar("STEAMVAULT_CONSOLE_TIMESTAMPS").BoolVar(&c.consoleLogTimestamps)

	app.PreAction(c.initialize)
	c.cliApp = cliApp
}

// Attach attaches logging flags to the provided application.
func Attach(cliApp *cli.App, app *kingpin.Application) {
	lf := &loggingFlags{}
	lf.setup(cliApp, app)
}

var log = logging.Module("steamvault")

const (
	logFileNamePrefix = "steamvault-"
	logFileNameSuffix = ".log"
)

// initialize is invoked as part of command execution to create log file just before it's needed.
func (c *loggingFlags) initialize(ctx *kingpin.ParseContext) error {
	now := time.Now()

	suffix := "unknown"
	if c := ctx.SelectedCommand; c != nil {
		suffix = strings.ReplaceAll(c.FullCommand(), " ", "-")
	}

	cores := []zapcore.Core{c.setupConsoleCore()}

	if c.logDir != "" || c.logFile != "" {
		cores = append(cores, c.setupLogFileCore(now, suffix))
	}

	rootLogger := zap.New(zapcore.NewTee(cores...))

	c.cliApp.SetLoggerFactory(func(module string) logging.Logger {
		return rootLogger.Named(module).Sugar()
	})

	if c.forceColor {
		color.NoColor = false
	}

	if c.disableColor {
		color.NoColor = true
	}

	return nil
}

func (c *loggingFlags) setupConsoleCore() zapcore.Core {
	ec := zapcore.EncoderConfig{
		LevelKey:         "l",
		MessageKey:       "m",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		ConsoleSeparator: " ",
	}

	if c.consoleLogTimestamps {
		ec.TimeKey = "t"
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	}

	ec.EncodeLevel = func(l zapcore.Level, pae zapcore.PrimitiveArrayEncoder) {
		if l == zap.InfoLevel {
			// info log does not have a prefix.
			return
		}

		if c.disableColor {
			zapcore.CapitalLevelEncoder(l, pae)
		} else {
			zapcore.CapitalColorLevelEncoder(l, pae)
		}
	}

	return zapcore.NewCore(
		zapcore.NewConsoleEncoder(ec),
		zapcore.AddSync(c.cliApp.Stderr()),
		logLevelFromFlag(c.logLevel),
	)
}

// logFileName returns the file receiving file logs of a single invocation.
func (c *loggingFlags) logFileName(now time.Time, suffix string) string {
	if c.logFile != "" {
		if fn, err := filepath.Abs(c.logFile); err == nil {
			return fn
		}

		return c.logFile
	}

	return filepath.Join(c.logDir, fmt.Sprintf("%v%v-%v-%v%v", logFileNamePrefix, now.Format("20060102-150405"), os.Getpid(), suffix, logFileNameSuffix))
}

func (c *loggingFlags) setupLogFileBasedLogger(now time.Time, suffix string) zapcore.WriteSyncer {
	w := &lazyFile{filename: c.logFileName(now, suffix)}

	// a custom log file is never swept.
	if c.logFile == "" && shouldSweepLog(c.logDirMaxFiles, c.logDirMaxAge) {
		go sweepLogDir(context.Background(), filepath.Dir(w.filename), c.logDirMaxFiles, c.logDirMaxAge)
	}

	return w
}

func (c *loggingFlags) setupLogFileCore(now time.Time, suffix string) zapcore.Core {
	return zapcore.NewCore(
		zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			TimeKey:          "t",
			MessageKey:       "m",
			NameKey:          "n",
			LevelKey:         "l",
			EncodeName:       zapcore.FullNameEncoder,
			EncodeLevel:      zapcore.CapitalLevelEncoder,
			EncodeTime:       zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000000Z07:00"),
			EncodeDuration:   zapcore.StringDurationEncoder,
			ConsoleSeparator: " ",
		}),
		c.setupLogFileBasedLogger(now, suffix),
		logLevelFromFlag(c.fileLogLevel),
	)
}

func shouldSweepLog(maxFiles int, maxAge time.Duration) bool {
	return maxFiles > 0 || maxAge > 0
}

// sweepLogDir removes steamvault log files from dirname beyond the newest maxCount
// or older than maxAge. Zero disables the respective limit.
func sweepLogDir(ctx context.Context, dirname string, maxCount int, maxAge time.Duration) {
	if maxCount <= 0 {
		maxCount = math.MaxInt32
	}

	var cutoff time.Time
	if maxAge > 0 {
		cutoff = time.Now().Add(-maxAge)
	}

	entries, err := os.ReadDir(dirname)
	if err != nil {
		log(ctx).Errorf("unable to read log directory: %v", err)
		return
	}

	var logs []os.FileInfo

	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), logFileNamePrefix) || !strings.HasSuffix(e.Name(), logFileNameSuffix) {
			continue
		}

		fi, err := e.Info()
		if err != nil {
			// removed concurrently.
			continue
		}

		logs = append(logs, fi)
	}

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].ModTime().After(logs[j].ModTime())
	})

	for i, fi := range logs {
		if i < maxCount && !fi.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(dirname, fi.Name())); err != nil && !os.IsNotExist(err) {
			log(ctx).Errorf("unable to remove log file %v: %v", fi.Name(), err)
		}
	}
}

func logLevelFromFlag(levelString string) zapcore.LevelEnabler {
	switch levelString {
	case "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.FatalLevel
	}
}

// lazyFile creates the log file and its directory on first write, so that
// invocations that log nothing leave no empty files behind.
type lazyFile struct {
	filename string

	mu  sync.Mutex
	f   *os.File
	err error
}

func (w *lazyFile) open() (*os.File, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f != nil || w.err != nil {
		return w.f, w.err
	}

	if err := os.MkdirAll(filepath.Dir(w.filename), logsDirMode); err != nil {
		w.err = err
		fmt.Fprintln(os.Stderr, "Unable to create logs directory:", err) //nolint:errcheck

		return nil, err
	}

	w.f, w.err = os.Create(w.filename) //nolint:gosec
	if w.err != nil {
		fmt.Fprintln(os.Stderr, "Unable to open log file:", w.err) //nolint:errcheck
	}

	return w.f, w.err
}

func (w *lazyFile) Write(b []byte) (int, error) {
	f, err := w.open()
	if err != nil {
		// logging must never fail the operation.
		return len(b), nil
	}

	//nolint:wrapcheck
	return f.Write(b)
}

func (w *lazyFile) Sync() error {
	w.mu.Lock()
	f := w.f
	w.mu.Unlock()

	if f == nil {
		return nil
	}

	//nolint:wrapcheck
	return f.Sync()
}
