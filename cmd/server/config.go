package main

import "time"

type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	JoinTimeout          time.Duration `env:"JOIN_TIMEOUT,default=10s"`
	SendTimeout          time.Duration `env:"SEND_TIMEOUT,default=3s"`
	HistoryLimit         int           `env:"HISTORY_LIMIT,default=50"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`
	ModerationMask       string        `env:"MODERATION_MASK,default=*"`
	EnableModeration     bool          `env:"ENABLE_MODERATION,default=true"`
}
