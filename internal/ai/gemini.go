// Package ai answers free-form seller questions with a text-generation model.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the Gemini REST endpoint
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// SystemInstruction frames answers for store owners reading them in WhatsApp
const SystemInstruction = "You are a helpful assistant responding to questions by online store owners on ecomX via WhatsApp bot. " +
	"Keep your answers concise and informative, but a bit detailed since this is for a mobile interface. " +
	"Format your response appropriately for WhatsApp (no HTML, use * for bold, etc.)."

// MaxOutputTokens limits reply length for chat
const MaxOutputTokens = 500

// Generator produces a text reply for a prompt
type Generator interface {
	GenerateReply(ctx context.Context, prompt string) (string, error)
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// GeminiClient calls the generateContent REST method
type GeminiClient struct {
	client  *http.Client
	apiKey  string
	model   string
	baseURL string
}

// NewGeminiClient returns a client for model. An empty baseURL uses DefaultBaseURL.
func NewGeminiClient(client *http.Client, apiKey, model, baseURL string) *GeminiClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &GeminiClient{client: client, apiKey: apiKey, model: model, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// GenerateReply sends prompt with the chat system instruction. Server errors
// and 429s are retried; other failures are returned.
func (g *GeminiClient) GenerateReply(ctx context.Context, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("gemini API key not configured")
	}
	body, err := json.Marshal(generateRequest{
		Contents:          []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		SystemInstruction: &content{Parts: []part{{Text: SystemInstruction}}},
		GenerationConfig:  generationConfig{MaxOutputTokens: MaxOutputTokens},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)

	start := time.Now()
	text, err := backoff.Retry(ctx, func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", g.apiKey) // kept out of the URL, which transport errors echo
		resp, err := g.client.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", err
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", fmt.Errorf("gemini status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return "", backoff.Permanent(fmt.Errorf("gemini status %d", resp.StatusCode))
		}
		return parseReply(raw)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(3))
	if err != nil {
		logrus.WithFields(logrus.Fields{"model": g.model, "error": err.Error()}).Error("Gemini request failed")
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"model":    g.model,
		"duration": time.Since(start).String(),
		"length":   len(text),
	}).Info("Gemini reply generated")
	return text, nil
}

func parseReply(raw []byte) (string, error) {
	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to parse response: %w", err))
	}
	if len(resp.Candidates) == 0 {
		return "", backoff.Permanent(fmt.Errorf("no candidates in Gemini response"))
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", backoff.Permanent(fmt.Errorf("no text content in Gemini response"))
	}
	return sb.String(), nil
}
