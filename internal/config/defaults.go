package config

const (
	defaultDataDir               = "~/.local/share/loom"
	defaultLogDir                = "~/.local/share/loom/logs"
	defaultAPIBind               = "127.0.0.1:7519"
	defaultRemoteTimeoutSeconds  = 30
	defaultStoreBackend          = "remote"
	defaultMaxRowsPerRun         = 20
	defaultCapacityPerWorker     = 50
	defaultStaleThresholdMinutes = 15
	defaultFailureThreshold      = 3
	defaultSchedule              = "@every 5m"
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Remote: Remote{
			TimeoutSeconds: defaultRemoteTimeoutSeconds,
		},
		Store: Store{
			Backend: defaultStoreBackend,
		},
		Pipeline: Pipeline{
			WorkerPool:            []string{"worker1", "worker2"},
			MaxRowsPerRun:         defaultMaxRowsPerRun,
			CapacityPerWorker:     defaultCapacityPerWorker,
			StaleThresholdMinutes: defaultStaleThresholdMinutes,
			FailureThreshold:      defaultFailureThreshold,
			Schedule:              defaultSchedule,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Cycles:         true,
			Escalations:    true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
