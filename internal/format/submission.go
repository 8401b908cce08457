package format

import (
	"strings"

	"github.com/sivacor/sivacor-cli/pkg/domain"
)

var statusIcons = map[string]string{
	domain.SubmissionSubmitted:  "⏳",
	domain.SubmissionProcessing: "🔄",
	domain.SubmissionCompleted:  "✅",
	domain.SubmissionFailed:     "❌",
}

func StatusIcon(status string) string {
	if icon, ok := statusIcons[strings.ToLower(strings.TrimSpace(status))]; ok {
		return icon
	}
	return "❓"
}

// StageImage is the image reference of one stage, "name:tag".
func StageImage(s domain.Stage) string {
	return OrNA(s.ImageName) + ":" + OrNA(s.ImageTag)
}

// ImageSummary joins every stage image with commas, "N/A" without stages.
func ImageSummary(stages []domain.Stage) string {
	if len(stages) == 0 {
		return "N/A"
	}
	images := make([]string, 0, len(stages))
	for _, s := range stages {
		images = append(images, StageImage(s))
	}
	return strings.Join(images, ",")
}

// OrNA substitutes "N/A" for an empty value.
func OrNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
