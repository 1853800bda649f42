package global

import "time"

const (
	// Descriptive Names for available verbosity levels
	VerbosityNone int = iota
	VerbosityStandard
	VerbosityProgress
	VerbosityData
	VerbosityFullData
	VerbosityDebug

	// Descriptive names for available severity levels
	ErrorLog string = "Error"
	WarnLog  string = "Warn"
	InfoLog  string = "Info"
)

const (
	ProgVersion string = "v0.3.0"

	// Context keys
	LoggerKey  CtxKey = "logger"  // Event queue (mostly for variable log verbosity handling)
	LogTagsKey CtxKey = "logtags" // List of tags in order of broad->specific appended/popped at various parts of the program

	DefaultConfigPath string = "/etc/fastlog.json"
	DefaultLogPath    string = "/tmp/fastlog.clog"

	// Per-producer staging ring capacity. Power of two keeps the wrap
	// arithmetic cheap. Usable capacity is one byte less than this
	// (equal positions always mean empty).
	DefaultStagingBufferSize int = 8 * 1024 * 1024

	// Capacity of each of the two drainer scratch buffers
	DefaultOutputBufferSize int = 1024 * 1024

	// Block size all direct-I/O writes are padded to
	DirectIOBlockSize int = 512

	// Largest single record accepted onto a staging ring
	MaxEntrySize int = 1024 * 1024

	// Timeout values
	DrainerIdleWait time.Duration = 1 * time.Microsecond
	ShutdownTimeout time.Duration = 5 * time.Second

	// Metric HTTP server
	HTTPListenPort   int           = 18514
	HTTPListenAddr   string        = "localhost" // Metric queries only exposed to local machine
	HTTPReadTimeout  time.Duration = 30 * time.Second
	HTTPWriteTimeout time.Duration = 10 * time.Second
	HTTPIdleTimeout  time.Duration = 180 * time.Second
	DataPath         string        = "/data"
	DiscoveryPath    string        = "/discover"

	// Metric gathering defaults
	DefaultMetricInterval  time.Duration = 5 * time.Second
	DefaultMetricRetention time.Duration = 15 * time.Minute

	// Namespacing Name Components
	NSMetric    string = "Metrics"
	NSMetricSrv string = "Server"
	NSTest      string = "Test"
	NSCLI       string = "CLI"
	NSRuntime   string = "Runtime"
	NSDrainer   string = "Drainer"
	NSStaging   string = "Staging"
	NSRegistry  string = "Registry"
	NSOut       string = "Output"
	NSWatcher   string = "Watcher"
	NSoFile     string = "File"
	NSDecode    string = "Decode"
	NSBench     string = "Bench"
)
