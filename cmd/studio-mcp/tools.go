package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fpang/prompt-studio/internal/ledger"
	"github.com/fpang/prompt-studio/internal/stages"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type statsSource interface {
	Statistics() ledger.Stats
}

type tools struct {
	catalog *stages.Catalog
	ledger  statsSource
}

type empty struct{}

type stagesOutput struct {
	Stages []stages.Stage `json:"stages"`
}

type getStageInput struct {
	StageID string `json:"stage_id" jsonschema:"stage id, e.g. concept or mood"`
}

type templatesInput struct {
	Tag string `json:"tag,omitempty" jsonschema:"only return templates carrying this tag"`
}

type templatesOutput struct {
	Templates []stages.Template `json:"templates"`
}

// usageOutput mirrors ledger.Stats with string histogram keys, since tool
// output must be a JSON object.
type usageOutput struct {
	TotalVideos                 int            `json:"total_videos"`
	TotalImages                 int            `json:"total_images"`
	TotalChats                  int            `json:"total_chats"`
	TotalEnhancedPrompts        int            `json:"total_enhanced_prompts"`
	TotalVideoDurationSeconds   int            `json:"total_video_duration_seconds"`
	AverageVideoDurationSeconds float64        `json:"average_video_duration_seconds"`
	FormattedTotalDuration      string         `json:"formatted_total_duration"`
	VideoCountByDuration        map[string]int `json:"video_count_by_duration"`
	FirstUsed                   string         `json:"first_used"`
	LastUpdated                 string         `json:"last_updated"`
}

func (t *tools) listStages(ctx context.Context, req *mcp.CallToolRequest, _ empty) (*mcp.CallToolResult, stagesOutput, error) {
	return nil, stagesOutput{Stages: t.catalog.Stages()}, nil
}

func (t *tools) getStage(ctx context.Context, req *mcp.CallToolRequest, in getStageInput) (*mcp.CallToolResult, stages.Stage, error) {
	st, ok := t.catalog.Lookup(strings.TrimSpace(in.StageID))
	if !ok {
		return nil, stages.Stage{}, fmt.Errorf("unknown stage %q", in.StageID)
	}
	return nil, st, nil
}

func (t *tools) listTemplates(ctx context.Context, req *mcp.CallToolRequest, in templatesInput) (*mcp.CallToolResult, templatesOutput, error) {
	all := t.catalog.Templates()
	tag := strings.ToLower(strings.TrimSpace(in.Tag))
	if tag == "" {
		return nil, templatesOutput{Templates: all}, nil
	}
	out := templatesOutput{Templates: []stages.Template{}}
	for _, tmpl := range all {
		for _, tg := range tmpl.Tags {
			if strings.ToLower(tg) == tag {
				out.Templates = append(out.Templates, tmpl)
				break
			}
		}
	}
	return nil, out, nil
}

func (t *tools) usageStatistics(ctx context.Context, req *mcp.CallToolRequest, _ empty) (*mcp.CallToolResult, usageOutput, error) {
	s := t.ledger.Statistics()
	byDuration := make(map[string]int, len(s.VideoCountByDuration))
	for d, n := range s.VideoCountByDuration {
		byDuration[strconv.Itoa(d)+"s"] = n
	}
	return nil, usageOutput{
		TotalVideos:                 s.TotalVideos,
		TotalImages:                 s.TotalImages,
		TotalChats:                  s.TotalChats,
		TotalEnhancedPrompts:        s.TotalEnhancedPrompts,
		TotalVideoDurationSeconds:   s.TotalVideoDurationSeconds,
		AverageVideoDurationSeconds: s.AverageVideoDurationSeconds,
		FormattedTotalDuration:      s.FormattedTotalDuration,
		VideoCountByDuration:        byDuration,
		FirstUsed:                   s.FirstUsed,
		LastUpdated:                 s.LastUpdated,
	}, nil
}
