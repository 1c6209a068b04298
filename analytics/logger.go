package analytics

import (
	"os"

	"github.com/mohitkumar/pollster/polling"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogFileDataCollector struct {
	fileName string
	logger   *zap.Logger
}

func NewLogFileDataCollector(fileName string) (*LogFileDataCollector, error) {
	enccoderConfig := zap.NewProductionEncoderConfig()
	enccoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	enccoderConfig.StacktraceKey = ""
	fileEncoder := zapcore.NewJSONEncoder(enccoderConfig)
	logFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	writer := zapcore.AddSync(logFile)
	core := zapcore.NewCore(fileEncoder, writer, zapcore.InfoLevel)
	return &LogFileDataCollector{
		fileName: fileName,
		logger:   zap.New(core),
	}, nil
}

func (lc *LogFileDataCollector) ObservePoll(outcome polling.Outcome) {
	fields := []zap.Field{
		zap.String("trigger", outcome.Trigger),
		zap.String("mode", string(outcome.Mode)),
		zap.Bool("firstRun", outcome.FirstRun),
		zap.Int("items", outcome.Items),
		zap.Bool("rebaselined", outcome.Rebaselined),
		zap.Duration("duration", outcome.Duration),
	}
	if outcome.Err != nil {
		lc.logger.Info("poll_failure", append(fields, zap.String("reason", outcome.Err.Error()))...)
		return
	}
	lc.logger.Info("poll_success", fields...)
}

func (lc *LogFileDataCollector) RecordHandshake(trigger string, status int) {
	lc.logger.Info("handshake", zap.String("trigger", trigger), zap.Int("status", status))
}

func (lc *LogFileDataCollector) Sync() error {
	return lc.logger.Sync()
}
