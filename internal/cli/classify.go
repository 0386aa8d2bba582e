package cli

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/yaoqinxue-cmd/BriStack/internal/detect"
	"github.com/yaoqinxue-cmd/BriStack/internal/model"
)

var (
	classifyIP      string
	classifyLatency int
	classifyPointer bool
)

// classifyResult adds the robots verdict to a classification
type classifyResult struct {
	model.ClassificationResult
	RobotsAllowed bool `json:"robotsAllowed"`
}

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify <user-agent>",
	Short: "Classify a request the way the tracking server would",
	Long: `Classify runs the bot classifier on a user agent and optional
behavioral hints, and prints the verdict as JSON.

Behavioral hints are only considered when their flag is given.

Example:
  bristack classify "Mozilla/5.0 (compatible; GPTBot/1.2; +https://openai.com/gptbot)"
  bristack classify "Mozilla/5.0 ..." --ip 34.120.0.1 --latency-ms 12 --pointer=false`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringVar(&classifyIP, "ip", "", "source address")
	classifyCmd.Flags().IntVar(&classifyLatency, "latency-ms", 0, "request latency in milliseconds")
	classifyCmd.Flags().BoolVar(&classifyPointer, "pointer", true, "whether pointer movement was observed")
}

func runClassify(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}

	hints := detect.Hints{SourceAddress: classifyIP}
	if cmd.Flags().Changed("latency-ms") {
		d := time.Duration(classifyLatency) * time.Millisecond
		hints.Latency = &d
	}
	if cmd.Flags().Changed("pointer") {
		moved := classifyPointer
		hints.PointerMoved = &moved
	}

	ua := args[0]
	return writeJSON(classifyResult{
		ClassificationResult: a.classifier.Classify(ua, hints),
		RobotsAllowed:        a.robots.Allows(ua, "/"),
	}, "")
}
