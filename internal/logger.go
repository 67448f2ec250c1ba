package internal

import (
	"log"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"qpay/services"
)

// Logger implements services.LogHandler on top of zap, optionally copying
// records into the database's payment log for the operator view.
type Logger struct {
	log      *zap.Logger
	database services.Database
}

type logRecord struct {
	Time    time.Time `bson:"time" json:"time"`
	Level   string    `bson:"level" json:"level"`
	Source  string    `bson:"source" json:"source"`
	Message string    `bson:"text" json:"text"`
}

func (r *logRecord) DataType() string {
	return "log"
}

// NewLogger creates a named logger. With a non-nil database, Info and above
// are also persisted.
func NewLogger(name string, debug bool, database services.Database) *Logger {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stdout"}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return &Logger{
		log:      logger.Named(name),
		database: database,
	}
}

func (l *Logger) Debug(message string) {
	l.log.Debug(message)
}

func (l *Logger) Info(message string) {
	l.log.Info(message)
	l.persist("info", message)
}

func (l *Logger) Warn(message string) {
	l.log.Warn(message)
	l.persist("warn", message)
}

func (l *Logger) Error(message string, err error) {
	l.log.Error(message, zap.Error(err))
	if err != nil {
		message = message + ": " + err.Error()
	}
	l.persist("error", message)
}

func (l *Logger) persist(level, message string) {
	if l.database == nil {
		return
	}
	record := &logRecord{
		Time:    time.Now(),
		Level:   level,
		Source:  l.log.Name(),
		Message: message,
	}
	if err := l.database.WriteLogMessage(record); err != nil {
		log.Println("write log record:", err)
	}
}
