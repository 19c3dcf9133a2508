package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DiagnosticLog appends the raw requests of failed gateway calls to one file
// per day, <dir>/<YYYY-MM-DD>.log, with dates taken in the configured zone.
type DiagnosticLog struct {
	logger *zap.Logger
	out    *dailyFile
}

// NewDiagnosticLog creates the log directory and returns a log writing into
// it. An unknown timezone falls back to UTC.
func NewDiagnosticLog(dir, timezone string) (*DiagnosticLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating diagnostic log dir: %w", err)
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}

	out := &dailyFile{dir: dir, loc: loc, now: time.Now}
	encCfg := zapcore.EncoderConfig{
		TimeKey:    "ts",
		MessageKey: "msg",
		LineEnding: "\r\n\r\n",
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("--- " + t.In(loc).Format(time.DateTime))
		},
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), out, zapcore.DebugLevel)
	return &DiagnosticLog{logger: zap.New(core), out: out}, nil
}

// Record implements dpd.DiagnosticRecorder.
func (d *DiagnosticLog) Record(operation string, request []byte) {
	d.logger.Info(operation, zap.ByteString("request", request))
}

// Close flushes and closes the current file.
func (d *DiagnosticLog) Close() error {
	_ = d.logger.Sync()
	return d.out.Close()
}

// dailyFile is a zapcore.WriteSyncer that switches files at midnight.
type dailyFile struct {
	dir string
	loc *time.Location
	now func() time.Time

	mu   sync.Mutex
	day  string
	file *os.File
}

func (f *dailyFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	day := f.now().In(f.loc).Format(time.DateOnly)
	if f.file == nil || day != f.day {
		if f.file != nil {
			_ = f.file.Close()
		}
		file, err := os.OpenFile(filepath.Join(f.dir, day+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			f.file = nil
			return 0, err
		}
		f.file, f.day = file, day
	}
	return f.file.Write(p)
}

func (f *dailyFile) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	return f.file.Sync()
}

func (f *dailyFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
