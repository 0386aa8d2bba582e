package model

// Config is the complete BriStack configuration.
// Field tags serve both viper (mapstructure) and the YAML config file.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Detection  DetectionConfig  `mapstructure:"detection" yaml:"detection"`
	Engagement EngagementConfig `mapstructure:"engagement" yaml:"engagement"`
	Privacy    PrivacyConfig    `mapstructure:"privacy" yaml:"privacy"`
	LLM        LLMConfig        `mapstructure:"llm" yaml:"llm"`
	Fidelity   FidelityConfig   `mapstructure:"fidelity" yaml:"fidelity"`
	Robots     RobotsConfig     `mapstructure:"robots" yaml:"robots"`
	Batch      BatchConfig      `mapstructure:"batch" yaml:"batch"`
	Fetch      FetchConfig      `mapstructure:"fetch" yaml:"fetch"`
}

// ServerConfig configures the tracking HTTP server
type ServerConfig struct {
	Addr            string `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     int    `mapstructure:"read_timeout" yaml:"read_timeout"`         // seconds
	WriteTimeout    int    `mapstructure:"write_timeout" yaml:"write_timeout"`       // seconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"` // seconds
	TrustForwarded  bool   `mapstructure:"trust_forwarded" yaml:"trust_forwarded"`   // Honour X-Forwarded-For
}

// StorageConfig selects the relational store
type StorageConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// DetectionConfig holds the signature data and heuristic thresholds of the
// actor classifier. Thresholds are tunable, not contracts.
type DetectionConfig struct {
	// SignaturesFile optionally replaces the pattern lists below (YAML)
	SignaturesFile string `mapstructure:"signatures_file" yaml:"signatures_file,omitempty"`

	// AIPatterns are case-insensitive regexes for AI-vendor crawlers
	AIPatterns []string `mapstructure:"ai_patterns" yaml:"ai_patterns"`

	// ExtraBotPatterns extend the built-in crawler signature library
	ExtraBotPatterns []string `mapstructure:"extra_bot_patterns" yaml:"extra_bot_patterns,omitempty"`

	// Categories map user-agent regexes to vendor buckets, first match wins
	Categories []CategoryPattern `mapstructure:"categories" yaml:"categories"`

	// CloudPrefixes are CIDR blocks of cloud-provider networks
	CloudPrefixes []string `mapstructure:"cloud_prefixes" yaml:"cloud_prefixes"`

	InstantResponseMs     int     `mapstructure:"instant_response_ms" yaml:"instant_response_ms"`
	InstantResponseWeight float64 `mapstructure:"instant_response_weight" yaml:"instant_response_weight"`
	NoPointerWeight       float64 `mapstructure:"no_pointer_weight" yaml:"no_pointer_weight"`
	CloudIPWeight         float64 `mapstructure:"cloud_ip_weight" yaml:"cloud_ip_weight"`
	SuspicionThreshold    float64 `mapstructure:"suspicion_threshold" yaml:"suspicion_threshold"`

	VerdictCacheTTL int `mapstructure:"verdict_cache_ttl" yaml:"verdict_cache_ttl"` // seconds, 0 disables
}

// CategoryPattern maps a user-agent regex to a vendor category
type CategoryPattern struct {
	Pattern  string `mapstructure:"pattern" yaml:"pattern"`
	Category string `mapstructure:"category" yaml:"category"`
}

// EngagementConfig tunes trust-level progression
type EngagementConfig struct {
	ReadDepth         int `mapstructure:"read_depth" yaml:"read_depth"`                 // Scroll depth counted as a completed read
	VerificationReads int `mapstructure:"verification_reads" yaml:"verification_reads"` // Completed reads required for level 2
}

// PrivacyConfig controls source address anonymisation
type PrivacyConfig struct {
	HashSecret string `mapstructure:"hash_secret" yaml:"hash_secret,omitempty"`
}

// LLMConfig configures the summarization oracle
type LLMConfig struct {
	Provider          string `mapstructure:"provider" yaml:"provider"` // openai, anthropic, ollama, "" (disabled)
	Model             string `mapstructure:"model" yaml:"model"`
	APIKey            string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL           string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Timeout           int    `mapstructure:"timeout" yaml:"timeout"` // seconds
	MaxTokens         int    `mapstructure:"max_tokens" yaml:"max_tokens"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	HTTPProxy         string `mapstructure:"http_proxy" yaml:"http_proxy,omitempty"`
	HTTPSProxy        string `mapstructure:"https_proxy" yaml:"https_proxy,omitempty"`
	NoProxy           string `mapstructure:"no_proxy" yaml:"no_proxy,omitempty"`
}

// FidelityConfig bounds the two oracle calls of a fidelity assessment
type FidelityConfig struct {
	MaxContentChars int `mapstructure:"max_content_chars" yaml:"max_content_chars"`
	SummaryTokens   int `mapstructure:"summary_tokens" yaml:"summary_tokens"`
	VerifyTokens    int `mapstructure:"verify_tokens" yaml:"verify_tokens"`
	SummaryWords    int `mapstructure:"summary_words" yaml:"summary_words"`
}

// RobotsConfig describes the robots.txt served on the public site
type RobotsConfig struct {
	DisallowAI bool     `mapstructure:"disallow_ai" yaml:"disallow_ai"`
	AIAgents   []string `mapstructure:"ai_agents" yaml:"ai_agents"`
	Disallow   []string `mapstructure:"disallow" yaml:"disallow"` // Paths closed to every agent
}

// BatchConfig tunes concurrent batch assessment
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// FetchConfig controls retrieval of published issues by URL
type FetchConfig struct {
	Timeout   int    `mapstructure:"timeout" yaml:"timeout"` // seconds
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
	MaxBytes  int64  `mapstructure:"max_bytes" yaml:"max_bytes"`
	Retries   int    `mapstructure:"retries" yaml:"retries"`     // Attempts for transient failures
	CacheDir  string `mapstructure:"cache_dir" yaml:"cache_dir"` // "" disables the disk cache
	CacheTTL  int    `mapstructure:"cache_ttl" yaml:"cache_ttl"` // seconds, 0 disables caching

	// Proxy settings; when all are empty the llm proxy settings apply
	HTTPProxy  string `mapstructure:"http_proxy" yaml:"http_proxy,omitempty"`
	HTTPSProxy string `mapstructure:"https_proxy" yaml:"https_proxy,omitempty"`
	NoProxy    string `mapstructure:"no_proxy" yaml:"no_proxy,omitempty"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10,
			WriteTimeout:    10,
			ShutdownTimeout: 15,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			DSN:    "bristack.db",
		},
		Detection: DetectionConfig{
			AIPatterns: []string{
				`GPTBot`,
				`ClaudeBot`,
				`Claude-Web`,
				`PerplexityBot`,
				`Applebot`,
				`cohere-ai`,
				`anthropic-ai`,
				`openai`,
				`meta-externalagent`,
				`facebookexternalhit`,
				`Bytespider`,
				`PetalBot`,
			},
			Categories: []CategoryPattern{
				{Pattern: `GPTBot|openai`, Category: "openai"},
				{Pattern: `ClaudeBot|Claude-Web|anthropic`, Category: "anthropic"},
				{Pattern: `PerplexityBot`, Category: "perplexity"},
				{Pattern: `Googlebot|Google-Extended`, Category: "google"},
				{Pattern: `Bingbot`, Category: "bing"},
				{Pattern: `Applebot`, Category: "apple"},
			},
			CloudPrefixes: []string{
				"3.0.0.0/8",   // AWS
				"13.0.0.0/8",  // AWS
				"18.0.0.0/8",  // AWS
				"34.0.0.0/8",  // GCP
				"35.0.0.0/8",  // GCP
				"104.0.0.0/8", // GCP/Cloudflare
				"20.0.0.0/8",  // Azure
				"40.0.0.0/8",  // Azure
				"52.0.0.0/8",  // Azure/AWS
			},
			InstantResponseMs:     50,
			InstantResponseWeight: 0.3,
			NoPointerWeight:       0.2,
			CloudIPWeight:         0.2,
			SuspicionThreshold:    0.5,
			VerdictCacheTTL:       600,
		},
		Engagement: EngagementConfig{
			ReadDepth:         90,
			VerificationReads: 3,
		},
		LLM: LLMConfig{
			Provider:          "", // Disabled by default
			Timeout:           30,
			MaxTokens:         1000,
			RequestsPerMinute: 30,
		},
		Fidelity: FidelityConfig{
			MaxContentChars: 4000,
			SummaryTokens:   200,
			VerifyTokens:    600,
			SummaryWords:    100,
		},
		Robots: RobotsConfig{
			DisallowAI: false,
			AIAgents:   []string{"GPTBot", "ClaudeBot", "anthropic-ai", "PerplexityBot", "Google-Extended", "Bytespider", "CCBot"},
		},
		Batch: BatchConfig{
			Concurrency: 4,
		},
		Fetch: FetchConfig{
			Timeout:   30,
			UserAgent: "BriStack/0.1 (+https://github.com/yaoqinxue-cmd/BriStack)",
			MaxBytes:  2_000_000,
			Retries:   3,
			CacheTTL:  3600,
		},
	}
}
