package config

import (
	"github.com/sirupsen/logrus"
)

const (
	// DefaultCommandQueueSize is the number of commands that can wait for the worker.
	DefaultCommandQueueSize = 32

	// DefaultEventCapacity is the number of unread events buffered per subscriber.
	DefaultEventCapacity = 64
)

// Logger describes the logging interface used by the manager and backends.
// Both *logrus.Logger and *logrus.Entry satisfy it.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Configuration describes a general configuration.
type Configuration struct {
	// CommandQueueSize holds the capacity of the command queue.
	CommandQueueSize int

	// EventCapacity holds the number of events buffered for each subscriber
	// before the subscriber starts missing events.
	EventCapacity int

	// CheckNetworkManager enables verifying, through NetworkManager, that the
	// interface is a Wi-Fi device. The check is skipped if NetworkManager is not running.
	CheckNetworkManager bool

	// Logger holds the logger. A logrus logger is used if it is nil.
	Logger Logger
}

// New returns a new configuration with the default queue sizes.
func New() Configuration {
	return Configuration{
		CommandQueueSize: DefaultCommandQueueSize,
		EventCapacity:    DefaultEventCapacity,
		Logger:           logrus.StandardLogger(),
	}
}

// Normalize replaces unset or invalid values with their defaults.
func (c Configuration) Normalize() Configuration {
	if c.CommandQueueSize <= 0 {
		c.CommandQueueSize = DefaultCommandQueueSize
	}

	if c.EventCapacity <= 0 {
		c.EventCapacity = DefaultEventCapacity
	}

	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}

	return c
}
