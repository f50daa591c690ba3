package cfg

type Cfg struct {
	// HTTP service
	Port         string
	APIAccessKey string

	// Parsing limits
	MaxBodyBytes    int64
	MaxEntries      int
	StreamQueueSize int

	// Application metadata
	LogFormat string
	Debug     bool
	Version   string
}
