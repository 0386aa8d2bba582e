package detect

import (
	"fmt"
	"net/netip"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/x-way/crawlerdetect"
	"github.com/yaoqinxue-cmd/BriStack/internal/cache"
	"github.com/yaoqinxue-cmd/BriStack/internal/model"
	"gopkg.in/yaml.v3"
)

// KnownBotMatcher reports whether a user agent belongs to a known crawler
type KnownBotMatcher interface {
	IsKnownBot(userAgent string) bool
}

// CrawlerSignatures matches user agents against the crawlerdetect signature
// library, extended with locally configured patterns
type CrawlerSignatures struct {
	extra []*regexp.Regexp
}

// NewCrawlerSignatures compiles the extra patterns (case-insensitive)
func NewCrawlerSignatures(extraPatterns []string) (*CrawlerSignatures, error) {
	extra, err := compilePatterns(extraPatterns)
	if err != nil {
		return nil, fmt.Errorf("extra bot patterns: %w", err)
	}
	return &CrawlerSignatures{extra: extra}, nil
}

// IsKnownBot implements KnownBotMatcher
func (s *CrawlerSignatures) IsKnownBot(userAgent string) bool {
	if crawlerdetect.IsCrawler(userAgent) {
		return true
	}
	return matchAny(s.extra, userAgent)
}

const (
	// maxCachedUserAgent is the longest user agent whose verdict is cached
	maxCachedUserAgent = 512
	// maxCachedVerdicts caps the verdict cache; new agents past it are
	// matched without being stored
	maxCachedVerdicts = 10000
)

// CachedSignatures memoises the verdicts of another matcher. The crawler
// library evaluates a large regex per call; tracking pixels repeat the
// same handful of user agents.
type CachedSignatures struct {
	next       KnownBotMatcher
	cache      cache.Cache
	ttl        time.Duration
	maxEntries int
}

// NewCachedSignatures wraps next with a verdict cache
func NewCachedSignatures(next KnownBotMatcher, c cache.Cache, ttl time.Duration) *CachedSignatures {
	return &CachedSignatures{next: next, cache: c, ttl: ttl, maxEntries: maxCachedVerdicts}
}

// IsKnownBot implements KnownBotMatcher
func (c *CachedSignatures) IsKnownBot(userAgent string) bool {
	if len(userAgent) > maxCachedUserAgent {
		return c.next.IsKnownBot(userAgent)
	}

	key := cache.Key("ua", userAgent)
	if val, found := c.cache.Get(key); found && len(val) == 1 {
		return val[0] == '1'
	}

	verdict := c.next.IsKnownBot(userAgent)
	if c.full() {
		return verdict
	}

	val := []byte{'0'}
	if verdict {
		val[0] = '1'
	}
	_ = c.cache.Set(key, val, c.ttl)
	return verdict
}

// full reports whether the cache holds maxEntries verdicts. Caches that
// cannot report their size are never considered full.
func (c *CachedSignatures) full() bool {
	sized, ok := c.cache.(interface{ Len() int })
	return ok && sized.Len() >= c.maxEntries
}

type categoryRule struct {
	pattern  *regexp.Regexp
	category string
}

// Signatures is the data the classifier runs against. It is built once from
// configuration and is safe for concurrent use.
type Signatures struct {
	Known         KnownBotMatcher
	AIPatterns    []*regexp.Regexp
	CloudPrefixes []netip.Prefix
	categories    []categoryRule
}

// NewSignatures builds the signature set described by cfg: the signature
// file (if any) is applied, the crawler library is wrapped with a verdict
// cache when a TTL is configured, and all patterns are compiled.
func NewSignatures(cfg model.DetectionConfig) (*Signatures, error) {
	if cfg.SignaturesFile != "" {
		file, err := LoadSignatureFile(cfg.SignaturesFile)
		if err != nil {
			return nil, err
		}
		file.Apply(&cfg)
	}

	crawlers, err := NewCrawlerSignatures(cfg.ExtraBotPatterns)
	if err != nil {
		return nil, err
	}

	var known KnownBotMatcher = crawlers
	if cfg.VerdictCacheTTL > 0 {
		ttl := time.Duration(cfg.VerdictCacheTTL) * time.Second
		known = NewCachedSignatures(crawlers, cache.NewMemoryCache(ttl, 2*ttl), ttl)
	}

	return CompileSignatures(cfg, known)
}

// CompileSignatures compiles the pattern lists of cfg around an existing
// known-bot matcher
func CompileSignatures(cfg model.DetectionConfig, known KnownBotMatcher) (*Signatures, error) {
	ai, err := compilePatterns(cfg.AIPatterns)
	if err != nil {
		return nil, fmt.Errorf("ai patterns: %w", err)
	}

	sigs := &Signatures{
		Known:      known,
		AIPatterns: ai,
	}

	for _, c := range cfg.Categories {
		re, err := regexp.Compile("(?i)" + c.Pattern)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", c.Category, err)
		}
		sigs.categories = append(sigs.categories, categoryRule{pattern: re, category: c.Category})
	}

	for _, raw := range cfg.CloudPrefixes {
		prefix, err := netip.ParsePrefix(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("cloud prefix %q: %w", raw, err)
		}
		sigs.CloudPrefixes = append(sigs.CloudPrefixes, prefix.Masked())
	}

	return sigs, nil
}

// IsKnownBot reports a signature-library match
func (s *Signatures) IsKnownBot(userAgent string) bool {
	return s.Known != nil && s.Known.IsKnownBot(userAgent)
}

// IsAIBot reports a match against the curated AI crawler patterns
func (s *Signatures) IsAIBot(userAgent string) bool {
	return matchAny(s.AIPatterns, userAgent)
}

// IsCloudAddress reports whether addr falls inside a cloud-provider prefix.
// Unparseable addresses are never cloud addresses.
func (s *Signatures) IsCloudAddress(addr string) bool {
	ip, ok := parseAddr(addr)
	if !ok {
		return false
	}
	for _, p := range s.CloudPrefixes {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

// Category buckets a user agent by vendor
func (s *Signatures) Category(userAgent string) string {
	ua := strings.TrimSpace(userAgent)
	if ua == "" {
		return CategoryUnknown
	}
	for _, rule := range s.categories {
		if rule.pattern.MatchString(ua) {
			return rule.category
		}
	}
	if s.IsKnownBot(ua) || s.IsAIBot(ua) {
		return CategoryOtherBot
	}
	return CategoryHuman
}

// SignatureFile is the on-disk form of the swappable signature data
type SignatureFile struct {
	AIPatterns       []string                `yaml:"ai_patterns"`
	ExtraBotPatterns []string                `yaml:"extra_bot_patterns"`
	Categories       []model.CategoryPattern `yaml:"categories"`
	CloudPrefixes    []string                `yaml:"cloud_prefixes"`
}

// LoadSignatureFile reads a YAML signature file
func LoadSignatureFile(path string) (*SignatureFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signature file: %w", err)
	}

	var file SignatureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse signature file %s: %w", path, err)
	}
	return &file, nil
}

// Apply replaces every list of cfg the file defines
func (f *SignatureFile) Apply(cfg *model.DetectionConfig) {
	if len(f.AIPatterns) > 0 {
		cfg.AIPatterns = f.AIPatterns
	}
	if len(f.ExtraBotPatterns) > 0 {
		cfg.ExtraBotPatterns = f.ExtraBotPatterns
	}
	if len(f.Categories) > 0 {
		cfg.Categories = f.Categories
	}
	if len(f.CloudPrefixes) > 0 {
		cfg.CloudPrefixes = f.CloudPrefixes
	}
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// parseAddr accepts a bare IP or an ip:port pair
func parseAddr(raw string) (netip.Addr, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return netip.Addr{}, false
	}
	if ip, err := netip.ParseAddr(raw); err == nil {
		return ip.Unmap(), true
	}
	if ap, err := netip.ParseAddrPort(raw); err == nil {
		return ap.Addr().Unmap(), true
	}
	return netip.Addr{}, false
}
