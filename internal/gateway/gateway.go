// Package gateway adapts the external generative services: chat completion
// and prompt refinement over the OpenAI chat API (via eino), image synthesis
// over the OpenAI images API, and video synthesis over Veo (via genai).
//
// Every exported operation returns *apperr.Error values of type Auth,
// Upstream or Timeout; provider errors never escape unclassified.
package gateway

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fpang/prompt-studio/internal/apperr"
	acl "github.com/meguminnnnnnnnn/go-openai"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// Chat models offered in the browser.
const (
	ModelGPT35Turbo = "gpt-3.5-turbo"
	ModelGPT4       = "gpt-4"
	ModelGPT4Turbo  = "gpt-4-turbo"
	ModelGPT4o      = "gpt-4o"
)

// ChatModels lists the selectable chat models in display order.
var ChatModels = []string{ModelGPT35Turbo, ModelGPT4, ModelGPT4Turbo, ModelGPT4o}

// Image options accepted by the images endpoint.
var (
	ImageSizes     = []string{openai.CreateImageSize1024x1024, openai.CreateImageSize1792x1024, openai.CreateImageSize1024x1792}
	ImageQualities = []string{openai.CreateImageQualityStandard, openai.CreateImageQualityHD}
)

// Video options. Resolution is informational; Veo picks it from the model.
var (
	VideoDurations   = []int{5, 6, 7, 8}
	VideoResolutions = []int{720, 1080}
)

const (
	// DefaultVideoModel is the Veo model used when none is configured.
	DefaultVideoModel = "veo-2.0-generate-001"
	// DefaultImageModel is the image model used when none is configured.
	DefaultImageModel = openai.CreateImageModelDallE3
	// DefaultRefineModel drives stage suggestions and final synthesis.
	DefaultRefineModel = ModelGPT4

	videoAspectRatio      = "16:9"
	videoPersonGeneration = "dont_allow"
)

// Config tunes the adapters. Zero values fall back to the defaults above.
type Config struct {
	// BaseURL overrides the OpenAI endpoint, e.g. for a compatible proxy.
	BaseURL       string
	Timeout       time.Duration
	ChatMaxTokens int
	RefineModel   string
	ImageModel    string
	VideoModel    string
	OutputDir     string
	PollInterval  time.Duration
	MaxPolls      int
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 120 * time.Second
	}
	if c.ChatMaxTokens <= 0 {
		c.ChatMaxTokens = 1000
	}
	if c.RefineModel == "" {
		c.RefineModel = DefaultRefineModel
	}
	if c.ImageModel == "" {
		c.ImageModel = DefaultImageModel
	}
	if c.VideoModel == "" {
		c.VideoModel = DefaultVideoModel
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 20 * time.Second
	}
	if c.MaxPolls <= 0 {
		c.MaxPolls = 60
	}
	return c
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func requireKey(op, key, service string) error {
	if strings.TrimSpace(key) == "" {
		return apperr.Auth(op, "missing "+service+" API key", nil)
	}
	return nil
}

// classify converts a provider error into the shared taxonomy. Context
// cancellation and deadline errors pass through unchanged so callers can
// tell an abandoned request from a provider failure.
func classify(op, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	// Chat and refine calls fail with the client eino-ext wraps; images and
	// key checks fail with sashabaranov's.
	var aclErr *acl.APIError
	if errors.As(err, &aclErr) {
		return classifyStatus(op, message, aclErr.HTTPStatusCode, err)
	}
	var aclReqErr *acl.RequestError
	if errors.As(err, &aclReqErr) {
		return classifyStatus(op, message, aclReqErr.HTTPStatusCode, err)
	}
	var oaErr *openai.APIError
	if errors.As(err, &oaErr) {
		return classifyStatus(op, message, oaErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(op, message, reqErr.HTTPStatusCode, err)
	}
	var gErr *genai.APIError
	if errors.As(err, &gErr) {
		return classifyStatus(op, message, gErr.Code, err)
	}

	lower := strings.ToLower(err.Error())
	if m := statusCodePattern.FindStringSubmatch(lower); m != nil {
		code, _ := strconv.Atoi(m[1])
		return classifyStatus(op, message, code, err)
	}
	if strings.Contains(lower, "api key not valid") ||
		strings.Contains(lower, "incorrect api key") ||
		strings.Contains(lower, "invalid_api_key") {
		return apperr.Auth(op, "credential rejected", err)
	}
	return apperr.Upstream(op, message, err)
}

var statusCodePattern = regexp.MustCompile(`status code: (\d{3})`)

func classifyStatus(op, message string, code int, err error) error {
	if code == 401 || code == 403 {
		return apperr.Auth(op, "credential rejected", err)
	}
	return apperr.Upstream(op, message, err)
}
