package output

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-loadsynth/internal/presence"
	"github.com/nerrad567/gray-logic-loadsynth/internal/simulation"
)

// TimeLayout is the timestamp format of all output files.
const TimeLayout = "2006-01-02 15:04:05"

// baseDate is a Monday.
var baseDate = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

// ErrExists is returned when a file exists and overwriting is disabled.
var ErrExists = errors.New("output: file exists")

// Logger defines the logging interface used by the Writer.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Epoch returns the wall-clock time of simulated second 0 for a run
// starting on first.
func Epoch(first presence.Weekday) time.Time {
	return baseDate.AddDate(0, 0, int(first))
}

// Timestamp formats absolute simulated second t.
func Timestamp(first presence.Weekday, t int64) string {
	return Epoch(first).Add(time.Duration(t) * time.Second).Format(TimeLayout)
}

// FileName returns the CSV file name of a channel, e.g. "user_Alice_B.csv".
func FileName(key simulation.ChannelKey) string {
	name := string(key.Kind)
	if key.Kind != simulation.KindTotal {
		name += "_" + key.Name
	}
	name = strings.NewReplacer(" ", "_", "/", "_", string(filepath.Separator), "_").Replace(name)
	return name + ".csv"
}

// Report counts the files handled by WriteAll.
type Report struct {
	Written int
	Skipped int
}

// Writer writes results into one directory.
type Writer struct {
	dir       string
	overwrite bool
	logger    Logger
}

// NewWriter creates a writer for dir. Existing files are skipped unless
// overwrite is true.
func NewWriter(dir string, overwrite bool) *Writer {
	return &Writer{dir: dir, overwrite: overwrite, logger: noopLogger{}}
}

// SetLogger sets the logger for the writer.
func (w *Writer) SetLogger(logger Logger) {
	w.logger = logger
}

// WriteAll writes every channel, the event log and the summary.
func (w *Writer) WriteAll(res *simulation.Result, summary []string) (Report, error) {
	var rep Report
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return rep, fmt.Errorf("creating output directory: %w", err)
	}

	count := func(err error) error {
		switch {
		case err == nil:
			rep.Written++
		case errors.Is(err, ErrExists):
			rep.Skipped++
			w.logger.Warn("output file exists, use overwrite to replace it", "error", err)
		default:
			return err
		}
		return nil
	}

	for _, key := range res.Channels.Keys() {
		series := res.Channels.Get(key)
		err := w.create(FileName(key), func(out io.Writer) error {
			return WriteChannel(out, series, res.FirstWeekday)
		})
		if err := count(err); err != nil {
			return rep, fmt.Errorf("writing channel %s: %w", key, err)
		}
	}

	if err := count(w.create("events.csv", func(out io.Writer) error {
		return WriteEvents(out, res.Events, res.FirstWeekday, res.Channels.Len())
	})); err != nil {
		return rep, fmt.Errorf("writing events: %w", err)
	}

	if err := count(w.create("summary.txt", func(out io.Writer) error {
		return WriteSummary(out, summary)
	})); err != nil {
		return rep, fmt.Errorf("writing summary: %w", err)
	}

	w.logger.Info("output written", "dir", w.dir, "written", rep.Written, "skipped", rep.Skipped)
	return rep, nil
}

// create opens name for writing, runs fn and closes the file.
func (w *Writer) create(name string, fn func(io.Writer) error) error {
	path := filepath.Join(w.dir, name)
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !w.overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o640) //nolint:gosec // path is built from the configured output directory
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
		return err
	}

	bw := bufio.NewWriterSize(f, 1<<16)
	if err := fn(bw); err != nil {
		f.Close() //nolint:errcheck // already failing
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close() //nolint:errcheck // already failing
		return err
	}
	w.logger.Debug("file written", "path", path)
	return f.Close()
}

// WriteChannel writes one "timestamp;power" line per sample.
func WriteChannel(out io.Writer, series []float64, first presence.Weekday) error {
	cw := csv.NewWriter(out)
	cw.Comma = ';'

	epoch := Epoch(first)
	record := make([]string, 2)
	var day string
	for i, v := range series {
		t := int64(i)
		if t%presence.SecondsPerDay == 0 {
			day = epoch.AddDate(0, 0, int(t/presence.SecondsPerDay)).Format("2006-01-02")
		}
		sec := t % presence.SecondsPerDay
		record[0] = fmt.Sprintf("%s %02d:%02d:%02d", day, sec/3600, sec/60%60, sec%60)
		record[1] = strconv.FormatFloat(v, 'f', 1, 64)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEvents writes the event log with a "Time;Source;Event" header.
// Events at or after length seconds are omitted.
func WriteEvents(out io.Writer, events []simulation.Event, first presence.Weekday, length int64) error {
	cw := csv.NewWriter(out)
	cw.Comma = ';'
	if err := cw.Write([]string{"Time", "Source", "Event"}); err != nil {
		return err
	}
	for _, e := range events {
		if e.Time >= length {
			continue
		}
		if err := cw.Write([]string{Timestamp(first, e.Time), e.Source, e.Action}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
