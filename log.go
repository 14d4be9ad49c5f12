package main

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

func getLogFilePath() (string, error) {
	if p := viper.GetString("log.file"); p != "" {
		return homedir.Expand(p) //nolint:wrapcheck
	}
	dir, err := gap.NewScope(gap.User, "murmur").CacheDir()
	if err != nil {
		return "", err //nolint:wrapcheck
	}
	return filepath.Join(dir, "murmur.log"), nil
}

func setupLog() (func() error, error) {
	// Log to file, if set
	logFile, err := getLogFilePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil { //nolint:mnd,gosec
		// log disabled
		return func() error { return nil }, nil //nolint:nilerr
	}
	lj := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	log.SetOutput(lj)
	log.SetLevel(log.InfoLevel)
	log.SetReportTimestamp(true)
	return lj.Close, nil
}

func logLevel() log.Level {
	if viper.GetBool("debug") {
		return log.DebugLevel
	}
	lvl, err := log.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
