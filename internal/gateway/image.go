package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fpang/prompt-studio/internal/apperr"
	"github.com/fpang/prompt-studio/internal/auth"
	"github.com/fpang/prompt-studio/internal/metrics"
	"github.com/fpang/prompt-studio/internal/textutil"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// maxImageDownloadBytes caps the proxied image download.
const maxImageDownloadBytes = 20 << 20

type imageCreator interface {
	CreateImage(ctx context.Context, req openai.ImageRequest) (openai.ImageResponse, error)
}

// ImageRequest describes one image generation.
type ImageRequest struct {
	Prompt  string
	Size    string
	Quality string
}

// ImageResult is the generated image location.
type ImageResult struct {
	URL           string `json:"url"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// ImageService generates images and proxies their download.
type ImageService struct {
	modelName  string
	newClient  func(apiKey string) imageCreator
	httpClient *http.Client
}

// NewImageService returns an ImageService for cfg.ImageModel.
func NewImageService(cfg Config) *ImageService {
	cfg = cfg.withDefaults()
	return &ImageService{
		modelName: cfg.ImageModel,
		newClient: func(apiKey string) imageCreator {
			return auth.NewOpenAIClient(apiKey, cfg.BaseURL)
		},
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Validate checks the size and quality whitelists.
func (r ImageRequest) Validate() error {
	if !contains(ImageSizes, r.Size) {
		return apperr.Validation("image", "unsupported image size "+r.Size)
	}
	if !contains(ImageQualities, r.Quality) {
		return apperr.Validation("image", "unsupported image quality "+r.Quality)
	}
	return nil
}

// Generate creates one image and returns its URL.
func (s *ImageService) Generate(ctx context.Context, apiKey string, req ImageRequest) (ImageResult, error) {
	if err := requireKey("image", apiKey, "OpenAI"); err != nil {
		return ImageResult{}, err
	}
	prompt, err := textutil.ValidatePrompt("image", req.Prompt)
	if err != nil {
		return ImageResult{}, err
	}
	if err := req.Validate(); err != nil {
		return ImageResult{}, err
	}

	timer := metrics.StartCall("image")
	resp, err := s.newClient(apiKey).CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          s.modelName,
		Size:           req.Size,
		Quality:        req.Quality,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err == nil && (len(resp.Data) == 0 || resp.Data[0].URL == "") {
		err = apperr.Upstream("image", "provider returned no image", nil)
	}
	err = classify("image", "image generation failed", err)
	elapsed := timer.Done(err)
	if err != nil {
		log.Error().
			Err(err).
			Str("size", req.Size).
			Str("quality", req.Quality).
			Int("prompt_length", len(prompt)).
			Msg("Image generation failed")
		return ImageResult{}, err
	}

	log.Info().
		Str("model", s.modelName).
		Str("size", req.Size).
		Str("quality", req.Quality).
		Int("prompt_length", len(prompt)).
		Dur("duration", elapsed).
		Msg("Image generated")
	return ImageResult{URL: resp.Data[0].URL, RevisedPrompt: resp.Data[0].RevisedPrompt}, nil
}

// Download fetches a generated image for the browser's save dialog.
func (s *ImageService) Download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", apperr.Validation("image.download", "invalid image URL")
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", apperr.Upstream("image.download", "image download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", apperr.Upstream("image.download", "image download failed", fmt.Errorf("status %d", resp.StatusCode))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageDownloadBytes))
	if err != nil {
		return nil, "", apperr.Upstream("image.download", "image download failed", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	return data, contentType, nil
}
