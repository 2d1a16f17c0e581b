package tools

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// ISTDateTool reports the current date in Indian Standard Time
type ISTDateTool struct {
	BaseTool
	now func() time.Time
}

func NewISTDateTool() *ISTDateTool {
	return &ISTDateTool{
		BaseTool: BaseTool{
			ToolName:        "ist_date_agent",
			ToolDescription: "Fetches the current date in Indian Standard Time (IST).",
			ToolParameters: jsonschema.Definition{
				Type:       jsonschema.Object,
				Properties: map[string]jsonschema.Definition{},
			},
		},
		now: time.Now,
	}
}

func (t *ISTDateTool) Execute(_ context.Context, _ string) (string, error) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return "", fmt.Errorf("failed to load IST timezone: %w", err)
	}

	now := t.now().In(ist)
	return fmt.Sprintf("timezone: Indian Standard Time (IST)\ncurrent_date: %s\ncurrent_time: %s",
		now.Format("2006-01-02"), now.Format("15:04:05")), nil
}
