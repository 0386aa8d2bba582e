// Test program to demonstrate bot classification and robots.txt policy
// against a sample of real-world traffic, without a database.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yaoqinxue-cmd/BriStack/internal/detect"
	"github.com/yaoqinxue-cmd/BriStack/internal/model"
	"github.com/yaoqinxue-cmd/BriStack/internal/util"
)

type sample struct {
	name    string
	ua      string
	addr    string
	latency time.Duration
	pointer *bool
}

func main() {
	fmt.Println("=== Bot Classification Test ===")
	fmt.Println()

	cfg := model.DefaultConfig()
	cfg.Robots.DisallowAI = true

	classifier, err := detect.NewClassifierFromConfig(cfg.Detection)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build classifier: %v\n", err)
		os.Exit(1)
	}
	robots, err := util.NewRobotsPolicy(cfg.Robots)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build robots policy: %v\n", err)
		os.Exit(1)
	}

	moved, still := true, false
	samples := []sample{
		{"Safari reader", "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15", "81.2.69.160", 3 * time.Second, &moved},
		{"OpenAI crawler", "Mozilla/5.0 AppleWebKit/537.36 (KHTML, like Gecko; compatible; GPTBot/1.2; +https://openai.com/gptbot)", "20.15.240.64", 40 * time.Millisecond, nil},
		{"Anthropic crawler", "Mozilla/5.0 (compatible; ClaudeBot/1.0; +claudebot@anthropic.com)", "34.162.1.10", 0, nil},
		{"Googlebot", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", "66.249.66.1", 0, nil},
		{"Headless on cloud", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36", "3.91.10.20", 12 * time.Millisecond, &still},
		{"Corporate proxy", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36", "52.1.2.3", 400 * time.Millisecond, &moved},
		{"No user agent", "", "198.51.100.7", 0, nil},
	}

	for _, s := range samples {
		hints := detect.Hints{SourceAddress: s.addr, PointerMoved: s.pointer}
		if s.latency > 0 {
			latency := s.latency
			hints.Latency = &latency
		}

		result := classifier.Classify(s.ua, hints)

		fmt.Printf("%s\n", s.name)
		fmt.Println(strings.Repeat("-", 60))
		if result.IsBot {
			fmt.Printf("  🤖 %s (confidence %.2f)\n", result.BotType, result.Confidence)
		} else {
			fmt.Printf("  ✓ human (confidence %.2f)\n", result.Confidence)
		}
		fmt.Printf("     - Category: %s\n", result.Category)
		if reason := result.Reason(); reason != "" {
			fmt.Printf("     - Reasons: %s\n", reason)
		}
		if !robots.Allows(s.ua, "/") {
			fmt.Printf("     - Disallowed by robots.txt\n")
		}
		fmt.Println()
	}

	fmt.Println("=== robots.txt ===")
	fmt.Print(robots.Body())
}
