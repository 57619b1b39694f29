package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ErrTagSuggestionUnavailable is returned when no Gemini API key is
// configured. Tag suggestion is strictly optional; nothing else depends on
// it.
var ErrTagSuggestionUnavailable = errors.New("tag suggestion is not configured")

type TagSuggester interface {
	Suggest(ctx context.Context, title, description string) ([]string, error)
}

type GeminiTagService struct {
	model string
}

func NewGeminiTagService(model string) *GeminiTagService {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiTagService{model: model}
}

// Suggest asks Gemini for short search tags describing a listing. The
// client reads its API key from the environment.
func (s *GeminiTagService) Suggest(ctx context.Context, title, description string) ([]string, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	prompt := `You generate search tags for a campus second-hand marketplace listing.
Given the title and description below, answer with 3 to 8 short lowercase tags,
comma separated, nothing else. No explanations, no numbering.`

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromText(fmt.Sprintf("title: %s\ndescription: %s", title, description)),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	temp := float32(0.2)
	config := &genai.GenerateContentConfig{
		Temperature: &temp,
	}

	res, err := client.Models.GenerateContent(ctx, s.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	tags := ParseTags(res.Text())
	if len(tags) == 0 {
		return nil, fmt.Errorf("gemini returned no usable tags")
	}
	return tags, nil
}

// ParseTags splits a model answer into clean tag tokens. It tolerates
// commas, Chinese commas, and newlines as separators and drops duplicates.
func ParseTags(text string) []string {
	replacer := strings.NewReplacer("，", ",", "、", ",", "\n", ",", ";", ",")
	fields := strings.Split(replacer.Replace(text), ",")

	seen := make(map[string]struct{}, len(fields))
	tags := make([]string, 0, len(fields))
	for _, field := range fields {
		tag := strings.ToLower(strings.TrimSpace(field))
		tag = strings.Trim(tag, ".#\"'`")
		if tag == "" || len(tag) > 40 {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
		if len(tags) == 8 {
			break
		}
	}
	return tags
}
