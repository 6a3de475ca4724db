package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ngaut/log"
	"github.com/pingcap/errors"
)

// CCMode selects the concurrency control protocol of a processor.
type CCMode int

const (
	Serial CCMode = iota
	Locking
	LockingExclusiveOnly
	OCC
	ParallelOCC
	MVCC
)

var modeNames = map[CCMode]string{
	Serial:               "SERIAL",
	Locking:              "LOCKING",
	LockingExclusiveOnly: "LOCKING_EXCLUSIVE_ONLY",
	OCC:                  "OCC",
	ParallelOCC:          "PARALLEL_OCC",
	MVCC:                 "MVCC",
}

// AllModes lists every mode in declaration order.
var AllModes = []CCMode{Serial, Locking, LockingExclusiveOnly, OCC, ParallelOCC, MVCC}

func (m CCMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseCCMode accepts a mode name in any case. P_OCC is accepted as a short name for PARALLEL_OCC.
func ParseCCMode(s string) (CCMode, error) {
	if strings.EqualFold(s, "P_OCC") {
		return ParallelOCC, nil
	}
	for mode, name := range modeNames {
		if strings.EqualFold(name, s) {
			return mode, nil
		}
	}
	return 0, errors.Errorf("unknown concurrency control mode %q", s)
}

// Duration is a time.Duration which toml can decode from strings such as "10ms".
type Duration struct {
	time.Duration
}

func NewDuration(d time.Duration) Duration {
	return Duration{Duration: d}
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return errors.Trace(err)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Config struct {
	Mode        string `toml:"mode"`
	WorkerCount int    `toml:"worker-count"` // Size of the worker pool executing transactions.
	LogLevel    string `toml:"log-level"`

	// Number of independently locked shards of the in-memory storage.
	StorageShards int `toml:"storage-shards"`
	// How long the scheduler sleeps after an iteration which found no work.
	SchedulerIdleBackoff Duration `toml:"scheduler-idle-backoff"`
	// How long GetTxnResult sleeps between polls of the result queue.
	ResultPollInterval Duration `toml:"result-poll-interval"`

	Bench Bench `toml:"bench"`
}

// Bench configures the txn-bench workload.
type Bench struct {
	Keys      int      `toml:"keys"`       // Number of preloaded keys.
	Txns      int      `toml:"txns"`       // Transactions per mode.
	ReadSize  int      `toml:"read-size"`  // Keys read by each transaction.
	WriteSize int      `toml:"write-size"` // Keys written by each transaction.
	HotKeys   int      `toml:"hot-keys"`   // If positive, every transaction also writes one of this many hot keys.
	Work      Duration `toml:"work"`       // Simulated business logic time per transaction.
}

func getLogLevel() (logLevel string) {
	logLevel = "info"
	if l := os.Getenv("LOG_LEVEL"); len(l) != 0 {
		logLevel = l
	}
	return
}

func NewDefaultConfig() *Config {
	return &Config{
		Mode:                 Locking.String(),
		WorkerCount:          8,
		LogLevel:             getLogLevel(),
		StorageShards:        64,
		SchedulerIdleBackoff: NewDuration(50 * time.Microsecond),
		ResultPollInterval:   NewDuration(time.Microsecond),
		Bench: Bench{
			Keys:      1000000,
			Txns:      10000,
			ReadSize:  10,
			WriteSize: 10,
			HotKeys:   0,
			Work:      NewDuration(100 * time.Microsecond),
		},
	}
}

func NewTestConfig() *Config {
	return &Config{
		Mode:                 Serial.String(),
		WorkerCount:          4,
		LogLevel:             getLogLevel(),
		StorageShards:        8,
		SchedulerIdleBackoff: NewDuration(10 * time.Microsecond),
		ResultPollInterval:   NewDuration(time.Microsecond),
		Bench: Bench{
			Keys:      100,
			Txns:      200,
			ReadSize:  2,
			WriteSize: 2,
			HotKeys:   4,
			Work:      NewDuration(0),
		},
	}
}

// LoadFile overlays the toml file at path onto the default configuration.
func LoadFile(path string) (*Config, error) {
	conf := NewDefaultConfig()
	if _, err := toml.DecodeFile(path, conf); err != nil {
		return nil, errors.Annotatef(err, "load config %s", path)
	}
	return conf, nil
}

// CCMode returns the parsed Mode.
func (c *Config) CCMode() (CCMode, error) {
	return ParseCCMode(c.Mode)
}

func (c *Config) Validate() error {
	if _, err := c.CCMode(); err != nil {
		return err
	}
	if c.WorkerCount < 1 {
		return errors.Errorf("worker count must be at least 1, got %d", c.WorkerCount)
	}
	if c.StorageShards < 1 {
		return errors.Errorf("storage shards must be at least 1, got %d", c.StorageShards)
	}
	if c.SchedulerIdleBackoff.Duration < 0 || c.ResultPollInterval.Duration < 0 {
		return errors.New("poll intervals must not be negative")
	}
	if c.SchedulerIdleBackoff.Duration > 10*time.Millisecond {
		log.Warnf("scheduler idle backoff %v is long, transactions will queue up while the scheduler sleeps",
			c.SchedulerIdleBackoff)
	}
	return nil
}

// Validate checks the workload against the number of preloaded keys.
func (b *Bench) Validate() error {
	if b.Keys < 1 || b.Txns < 1 {
		return errors.Errorf("bench needs at least one key and one transaction, got keys=%d txns=%d", b.Keys, b.Txns)
	}
	if b.ReadSize < 0 || b.WriteSize < 0 || b.HotKeys < 0 {
		return errors.New("bench sizes must not be negative")
	}
	if b.ReadSize+b.WriteSize > b.Keys {
		return errors.Errorf("a transaction touches %d keys but only %d exist", b.ReadSize+b.WriteSize, b.Keys)
	}
	return nil
}
