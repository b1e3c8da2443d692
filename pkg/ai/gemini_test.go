package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestJoinCandidateText(t *testing.T) {
	cases := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{name: "nil response", resp: nil, want: ""},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, want: ""},
		{
			name: "nil candidate and content",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{nil, {Content: nil}}},
			want: "",
		},
		{
			name: "nil and blank parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []*genai.Part{nil, {Text: "   "}, {Text: " {\"score\": 1} "}}}},
			}},
			want: `{"score": 1}`,
		},
		{
			name: "multiple parts and candidates",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []*genai.Part{{Text: "first"}, {Text: "second"}}}},
				{Content: &genai.Content{Parts: []*genai.Part{{Text: "third"}}}},
			}},
			want: "first\nsecond\nthird",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, joinCandidateText(tc.resp))
		})
	}
}

func TestNewClientGeminiWithoutKeyReturnsNil(t *testing.T) {
	client, err := NewClient(context.Background(), Config{Provider: "gemini"})
	require.NoError(t, err)
	require.Nil(t, client)

	client, err = NewClient(context.Background(), Config{Provider: " Gemini ", OpenAIAPIKey: "unused"})
	require.NoError(t, err)
	require.Nil(t, client)
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), GeminiConfig{APIKey: "  "})
	require.Error(t, err)
}
