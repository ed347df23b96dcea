// Package logging builds the process logger and the HTTP request log
// middleware.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the process logger. Console output always; when logFile is
// set, JSON lines additionally go to a size-rotated file.
func New(logFile string, prod bool) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	jsonEnc := zapcore.NewJSONEncoder(encCfg)

	var consoleEnc zapcore.Encoder
	consoleLevel := zap.DebugLevel
	if prod {
		consoleEnc = jsonEnc
		consoleLevel = zap.InfoLevel
	} else {
		consoleEnc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stdout), consoleLevel),
	}
	if logFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(jsonEnc, zapcore.AddSync(rotator), zap.InfoLevel))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}
