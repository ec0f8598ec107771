package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

const ocrPrompt = "Transcribe all text visible in this image. " +
	"Return only the transcribed text with no commentary. " +
	"If the image contains no readable text, return an empty response."

// OCRClient transcribes images through a vision-capable chat model.
type OCRClient struct {
	llm   llms.Model
	model string
}

func NewOCRClient(llm llms.Model, model string) *OCRClient {
	return &OCRClient{llm: llm, model: model}
}

func (o *OCRClient) ExtractText(ctx context.Context, data []byte, mediaType string) (string, error) {
	msg := llms.MessageContent{
		Role: llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			llms.BinaryPart(mediaType, data),
			llms.TextPart(ocrPrompt),
		},
	}

	opts := []llms.CallOption{llms.WithMaxTokens(defaultMaxTokens)}
	if o.model != "" {
		opts = append(opts, llms.WithModel(o.model))
	}

	resp, err := o.llm.GenerateContent(ctx, []llms.MessageContent{msg}, opts...)
	if err != nil {
		return "", fmt.Errorf("vision transcription failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}
