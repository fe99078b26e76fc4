package natsjetstream

import "time"

type Config struct {
	URL           string
	MaxReconnect  int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

type ConsumerConfig struct {
	StreamName     string
	Durable        string
	FilterSubjects []string
	AckWait        time.Duration
	MaxDeliver     int
}
