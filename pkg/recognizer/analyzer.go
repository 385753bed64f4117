package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Analyzer reconstructs an English sentence from assembled fingerspelled
// letters. LLM internals stay behind this interface.
type Analyzer interface {
	Analyze(ctx context.Context, sentence string) (string, error)
}

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc func(ctx context.Context, sentence string) (string, error)

// Analyze implements Analyzer.
func (f AnalyzerFunc) Analyze(ctx context.Context, sentence string) (string, error) {
	return f(ctx, sentence)
}

// analysisPrompt instructs the model to reconstruct sentences from
// fingerspelled letters without creative guessing.
const analysisPrompt = "You are an expert at accurately reconstructing English sentences from ASL fingerspelled letters. " +
	"Your job is to return only the most likely sentence(s) the signer intended, based on the detected letter sequence. " +
	"Do NOT be creative or infer unrelated phrases. " +
	"You may only expand common abbreviations and acronyms into full words. " +
	"Here are some common examples:\n" +
	"- ILU -> I love you\n" +
	"- ILY -> I love you\n" +
	"- SW -> Software\n" +
	"- SWE -> Software Engineer\n" +
	"- CS -> Computer Science\n" +
	"- AI -> Artificial Intelligence\n" +
	"- USF -> University of South Florida\n" +
	"- NYC -> New York City\n" +
	"- GPT -> Generative Pre-trained Transformer\n" +
	"- ASL -> American Sign Language\n" +
	"- SM -> So much\n" +
	"- FLA -> Florida\n" +
	"- JB -> Job\n" +
	"- Abbreviations of every state / country / location / app (like FB -> FaceBook, YT -> YouTube, etc.) / technologies (JS -> JavaScript, TF -> TensorFlow, etc.)\n" +
	"Names (e.g., GIANG, JOHN) and acronyms should be preserved or expanded if clear. " +
	"Only output a sentence or short paragraph, without additional explanation or creative guessing. " +
	"Only output the constructed sentence, not the original sentence provided. " +
	"Make sentences grammatically correct from the keywords / spellings provided. Make it reasonable. " +
	"SPECIAL NOTE: Me is the same as I, so when decoding, pick the option that makes more sense for the sentence. " +
	"You are given a space-separated string of letters from a fingerspelling segment in ASL video: %s. " +
	"Reconstruct the most likely English sentence using these letters. Prioritize names, abbreviations, and realistic phrases. " +
	"Return ONLY the reconstructed sentence or sentences."

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiAnalyzer analyzes sentences with Google's Gemini API.
type GeminiAnalyzer struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// GeminiOption is a functional option for configuring the Gemini analyzer.
type GeminiOption func(*GeminiAnalyzer)

// WithGeminiModel overrides the default model.
func WithGeminiModel(model string) GeminiOption {
	return func(g *GeminiAnalyzer) {
		g.model = model
	}
}

// WithGeminiBaseURL overrides the default API endpoint.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(g *GeminiAnalyzer) {
		g.baseURL = url
	}
}

// WithGeminiTimeout sets the HTTP timeout.
func WithGeminiTimeout(d time.Duration) GeminiOption {
	return func(g *GeminiAnalyzer) {
		g.http.Timeout = d
	}
}

// WithGeminiLogger sets the structured logger.
func WithGeminiLogger(logger *slog.Logger) GeminiOption {
	return func(g *GeminiAnalyzer) {
		g.logger = logger.With("component", "recognizer.gemini")
	}
}

// NewGeminiAnalyzer creates a Gemini-backed analyzer.
func NewGeminiAnalyzer(apiKey string, opts ...GeminiOption) (*GeminiAnalyzer, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	g := &GeminiAnalyzer{
		apiKey:  apiKey,
		model:   "gemini-1.5-flash",
		baseURL: defaultGeminiBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default().With("component", "recognizer.gemini"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Analyze implements Analyzer.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, sentence string) (string, error) {
	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": fmt.Sprintf(analysisPrompt, sentence)},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("recognizer: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("recognizer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("recognizer: gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", g.parseError(resp)
	}

	var result geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("recognizer: decode response: %w", err)
	}

	if result.Error.Message != "" {
		return "", fmt.Errorf("recognizer: gemini error: %s", result.Error.Message)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("recognizer: gemini returned no content")
	}

	return strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text), nil
}

func (g *GeminiAnalyzer) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}

	message := string(body)
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	return fmt.Errorf("recognizer: gemini error (HTTP %d): %s", resp.StatusCode, message)
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Ensure GeminiAnalyzer implements Analyzer.
var _ Analyzer = (*GeminiAnalyzer)(nil)
