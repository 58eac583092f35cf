package config

import "time"

const (
	// Checkout
	PlatformFee   = 5.0
	SmallOrderFee = 50.0

	// Realtime
	ReconnectDelay = 3 * time.Second
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxFrameSize   = 64 * 1024

	// REST
	RequestTimeout = 15 * time.Second
)
