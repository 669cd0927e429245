package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fpang/prompt-studio/internal/apperr"
	openai "github.com/sashabaranov/go-openai"
)

type fakeImageCreator struct {
	resp openai.ImageResponse
	err  error
	got  openai.ImageRequest
}

func (f *fakeImageCreator) CreateImage(ctx context.Context, req openai.ImageRequest) (openai.ImageResponse, error) {
	f.got = req
	return f.resp, f.err
}

func newTestImageService(fake *fakeImageCreator) *ImageService {
	s := NewImageService(Config{})
	s.newClient = func(string) imageCreator { return fake }
	return s
}

func TestImageGenerate(t *testing.T) {
	fake := &fakeImageCreator{resp: openai.ImageResponse{
		Data: []openai.ImageResponseDataInner{{URL: "https://images.example/1.png"}},
	}}
	s := newTestImageService(fake)

	res, err := s.Generate(context.Background(), "sk-test", ImageRequest{
		Prompt:  "  a lighthouse at dusk ",
		Size:    "1792x1024",
		Quality: "hd",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.URL != "https://images.example/1.png" {
		t.Errorf("unexpected URL %q", res.URL)
	}
	if fake.got.Model != "dall-e-3" || fake.got.N != 1 || fake.got.Prompt != "a lighthouse at dusk" {
		t.Errorf("unexpected request %+v", fake.got)
	}
}

func TestImageGenerateRejectsBadInput(t *testing.T) {
	s := newTestImageService(&fakeImageCreator{})
	tests := []struct {
		name string
		key  string
		req  ImageRequest
		want apperr.ErrorType
	}{
		{"no key", "", ImageRequest{Prompt: "x", Size: "1024x1024", Quality: "standard"}, apperr.ErrTypeAuth},
		{"empty prompt", "sk", ImageRequest{Prompt: " ", Size: "1024x1024", Quality: "standard"}, apperr.ErrTypeValidation},
		{"bad size", "sk", ImageRequest{Prompt: "x", Size: "512x512", Quality: "standard"}, apperr.ErrTypeValidation},
		{"bad quality", "sk", ImageRequest{Prompt: "x", Size: "1024x1024", Quality: "ultra"}, apperr.ErrTypeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Generate(context.Background(), tt.key, tt.req)
			if !apperr.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestImageGenerateUpstreamFailure(t *testing.T) {
	s := newTestImageService(&fakeImageCreator{err: &openai.APIError{HTTPStatusCode: 400, Message: "content policy"}})
	_, err := s.Generate(context.Background(), "sk", ImageRequest{Prompt: "x", Size: "1024x1024", Quality: "standard"})
	if !apperr.Is(err, apperr.ErrTypeUpstream) {
		t.Errorf("expected upstream error, got %v", err)
	}

	s = newTestImageService(&fakeImageCreator{})
	_, err = s.Generate(context.Background(), "sk", ImageRequest{Prompt: "x", Size: "1024x1024", Quality: "standard"})
	if !apperr.Is(err, apperr.ErrTypeUpstream) {
		t.Errorf("expected upstream error for an empty response, got %v", err)
	}
}

func TestImageDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	s := NewImageService(Config{})
	data, ct, err := s.Download(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "png-bytes" || ct != "image/png" {
		t.Errorf("unexpected download %q %q", data, ct)
	}
}
