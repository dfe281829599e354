package logger

import (
	"os"

	"go.uber.org/zap"
)

// Log defaults to a no-op logger so packages can log before Init (and
// under test) without nil checks.
var Log = zap.NewNop().Sugar()

func Init() {
	var (
		logger *zap.Logger
		err    error
	)
	if os.Getenv("GAMESERVER_DEV_LOG") != "" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	Log = logger.Sugar()
}

// Sync flushes buffered log entries. Call before process exit.
func Sync() {
	_ = Log.Sync()
}
