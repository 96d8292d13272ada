package chaos

import "time"

// Scenario is a named config that deactivates itself after Duration when
// played. A zero Duration stays active until Stop.
type Scenario struct {
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Duration    time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
	Config      Config        `json:"config" yaml:"config"`
}

// BuiltinScenarios returns the scenarios every new Engine starts with.
func BuiltinScenarios() []Scenario {
	sec := time.Second
	return []Scenario{
		{
			Name:        "networkPartition",
			Description: "Every call fails",
			Duration:    5 * sec,
			Config:      Config{Fail: 1},
		},
		{
			Name:        "highLatency",
			Description: "Two to five second delays",
			Duration:    10 * sec,
			Config:      Config{Delay: Between(2*sec, 5*sec)},
		},
		{
			Name:        "degraded",
			Description: "Some failures and slow responses",
			Duration:    30 * sec,
			Config:      Config{Fail: 0.1, Delay: Between(ms(500), ms(1500))},
		},
		{
			Name:        "outage",
			Description: "Total failure",
			Duration:    60 * sec,
			Config:      Config{Fail: 1, Timeout: 0.5},
		},
		{
			Name:        "recovery",
			Description: "Service coming back with residual failures",
			Duration:    15 * sec,
			Config:      Config{Fail: 0.3, Delay: Between(ms(100), ms(500))},
		},
		{
			Name:        "blackFriday",
			Description: "Peak traffic with slow, failing calls",
			Duration:    60 * sec,
			Config:      Config{Delay: Between(sec, 3*sec), Fail: 0.15, Jitter: sec},
		},
		{
			Name:        "mobileNetwork",
			Description: "High latency with dropped calls",
			Duration:    30 * sec,
			Config:      Config{Delay: Between(ms(500), 2*sec), Fail: 0.2, Timeout: 0.1},
		},
		{
			Name:        "datacenterFailover",
			Description: "Half of all calls fail during failover",
			Duration:    20 * sec,
			Config:      Config{Fail: 0.5, Delay: Between(ms(200), ms(800))},
		},
		{
			Name:        "ddosAttack",
			Description: "Saturated upstream with long hangs",
			Duration:    30 * sec,
			Config:      Config{Timeout: 0.4, Delay: Between(2*sec, 10*sec)},
		},
		{
			Name:        "coldStart",
			Description: "Slow first responses",
			Duration:    10 * sec,
			Config:      Config{Delay: Between(3*sec, 8*sec)},
		},
		{
			Name:        "gcPause",
			Description: "Latency spikes on top of a steady delay",
			Duration:    15 * sec,
			Config:      Config{Delay: Between(ms(100), ms(500)), Spike: Between(ms(500), 2*sec)},
		},
		{
			Name:        "connectionPool",
			Description: "Pool exhaustion failures and hangs",
			Duration:    20 * sec,
			Config:      Config{Fail: 0.3, Timeout: 0.2},
		},
	}
}
