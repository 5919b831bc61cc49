// Package config holds the process-wide constants a node is built from.
// Loading a config file is explicitly out of scope for this system; Config
// is always constructed by the embedding process, optionally seeded from
// the environment via FromEnv.
package config

import (
	"time"

	"github.com/caarlos0/env/v9"
)

// Config is the full set of tunables a node is built from. Weights are
// deliberately not hard-coded: the order-assignment cost function is
// generalised over them so a deployment can retune car behaviour without
// a rebuild.
type Config struct {
	NumFloors int `env:"LIFTNODE_NUM_FLOORS" envDefault:"4"`

	MulticastGroup string `env:"LIFTNODE_MCAST_GROUP" envDefault:"224.1.1.1"`
	MulticastPort  int    `env:"LIFTNODE_MCAST_PORT" envDefault:"5007"`

	DoorOpen time.Duration `env:"LIFTNODE_DOOR_OPEN" envDefault:"3s"`

	FloorWeight     float64 `env:"LIFTNODE_FLOOR_WEIGHT" envDefault:"1"`
	OrderWeight     float64 `env:"LIFTNODE_ORDER_WEIGHT" envDefault:"2"`
	DirectionWeight float64 `env:"LIFTNODE_DIRECTION_WEIGHT" envDefault:"4"`

	TimeoutLimit         time.Duration `env:"LIFTNODE_TIMEOUT_LIMIT" envDefault:"10s"`
	BroadcastHeartbeats  int           `env:"LIFTNODE_BROADCAST_HEARTBEATS" envDefault:"5"`
	HeartbeatFrequencyHz float64       `env:"LIFTNODE_HEARTBEAT_FREQUENCY_HZ" envDefault:"100"`

	Speed int `env:"LIFTNODE_SPEED" envDefault:"500"`

	ReconnectInterval time.Duration `env:"LIFTNODE_RECONNECT_INTERVAL" envDefault:"5s"`

	PersistPath string `env:"LIFTNODE_PERSIST_PATH" envDefault:"orderqueue.backup"`
}

// Default returns the configuration above with all fields at their default
// values -- no environment variables consulted.
func Default() Config {
	cfg := Config{}
	// Ignore error: with no required fields and all fields supplied
	// literal defaults, env.Parse against an empty Environment cannot fail.
	_ = env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}})
	return cfg
}

// FromEnv starts from Default and overrides fields for which the
// corresponding LIFTNODE_* environment variable is set.
func FromEnv() (Config, error) {
	cfg := Default()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// HeartbeatPeriod is the inter-heartbeat sleep derived from
// HeartbeatFrequencyHz.
func (c Config) HeartbeatPeriod() time.Duration {
	return time.Duration(float64(time.Second) / c.HeartbeatFrequencyHz)
}

// NewOrderAnnouncePeriod is how long a new/started order stays in the
// outgoing heartbeat: BROADCAST_HEARTBEATS heartbeat periods.
func (c Config) NewOrderAnnouncePeriod() time.Duration {
	return time.Duration(c.BroadcastHeartbeats) * c.HeartbeatPeriod()
}
