package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/soyeahso/matrix/internal/logging"
	"golang.org/x/oauth2/google"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// VertexConfig configures a Vertex AI chat model client.
type VertexConfig struct {
	Project         string
	Region          string
	Model           string
	Endpoint        string // base URL override, e.g. for tests
	MaxOutputTokens int
	Temperature     float64
	HTTPClient      *http.Client // authorized client; Application Default Credentials when nil
}

// VertexClient calls the Vertex AI predict endpoint of a PaLM chat model.
type VertexClient struct {
	cfg    VertexConfig
	client *http.Client
	url    string
	log    *logging.Logger
}

// NewVertexClient creates a Vertex client. Without an explicit HTTP client
// it authorizes through Application Default Credentials and takes the
// project from them when none is configured.
func NewVertexClient(ctx context.Context, cfg VertexConfig, log *logging.Logger) (*VertexClient, error) {
	if cfg.Region == "" {
		cfg.Region = "us-central1"
	}
	if cfg.Model == "" {
		cfg.Model = "chat-bison"
	}

	client := cfg.HTTPClient
	if client == nil {
		creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("finding default credentials: %w", err)
		}
		if cfg.Project == "" {
			cfg.Project = creds.ProjectID
		}
		client, err = google.DefaultClient(ctx, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("creating authorized client: %w", err)
		}
	}
	if cfg.Project == "" {
		return nil, fmt.Errorf("vertex: no project configured and none found in credentials")
	}

	base := cfg.Endpoint
	if base == "" {
		base = fmt.Sprintf("https://%s-aiplatform.googleapis.com", cfg.Region)
	}
	url := fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:predict",
		strings.TrimRight(base, "/"), cfg.Project, cfg.Region, cfg.Model)

	return &VertexClient{cfg: cfg, client: client, url: url, log: log.Sub("llm.vertex")}, nil
}

// Name returns the provider name.
func (v *VertexClient) Name() string { return "vertex" }

// Complete sends one predict request and concatenates every candidate's
// content in order.
func (v *VertexClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	payload, err := json.Marshal(v.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal predict request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create predict request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("vertex request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read predict response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: "vertex", Code: resp.StatusCode, Message: errorMessage(body)}
	}

	var pr vertexPredictResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, &ProviderError{Provider: "vertex", Message: "malformed predict response: " + err.Error()}
	}

	var content strings.Builder
	for _, p := range pr.Predictions {
		for _, c := range p.Candidates {
			content.WriteString(c.Content)
		}
	}

	out := &CompletionResponse{
		Content:  content.String(),
		Model:    v.cfg.Model,
		Duration: time.Since(start),
		Usage: Usage{
			InputTokens:  pr.Metadata.TokenMetadata.InputTokenCount.TotalTokens,
			OutputTokens: pr.Metadata.TokenMetadata.OutputTokenCount.TotalTokens,
		},
	}
	v.log.Debug().
		Int("inputTokens", out.Usage.InputTokens).
		Int("outputTokens", out.Usage.OutputTokens).
		Dur("duration", out.Duration).
		Msg("predict complete")
	return out, nil
}

func (v *VertexClient) buildRequest(req CompletionRequest) vertexPredictRequest {
	msgs := make([]vertexMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = vertexMessage{Author: m.Role, Content: m.Content}
	}
	params := vertexParameters{
		MaxOutputTokens: v.cfg.MaxOutputTokens,
		Temperature:     v.cfg.Temperature,
	}
	if req.MaxTokens > 0 {
		params.MaxOutputTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		params.Temperature = *req.Temperature
	}

	return vertexPredictRequest{
		Instances: []vertexInstance{{
			Context:  req.System,
			Examples: []any{},
			Messages: msgs,
		}},
		Parameters: params,
	}
}

// errorMessage extracts the message from a Google API error body.
func errorMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return strings.TrimSpace(string(body))
}

type vertexPredictRequest struct {
	Instances  []vertexInstance `json:"instances"`
	Parameters vertexParameters `json:"parameters"`
}

// vertexInstance carries the worked examples inside Context, so the
// separate examples list is always sent empty.
type vertexInstance struct {
	Context  string          `json:"context"`
	Examples []any           `json:"examples"`
	Messages []vertexMessage `json:"messages"`
}

type vertexMessage struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

type vertexParameters struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type vertexPredictResponse struct {
	Predictions []struct {
		Candidates []struct {
			Author  string `json:"author"`
			Content string `json:"content"`
		} `json:"candidates"`
	} `json:"predictions"`
	Metadata struct {
		TokenMetadata struct {
			InputTokenCount struct {
				TotalTokens int `json:"totalTokens"`
			} `json:"inputTokenCount"`
			OutputTokenCount struct {
				TotalTokens int `json:"totalTokens"`
			} `json:"outputTokenCount"`
		} `json:"tokenMetadata"`
	} `json:"metadata"`
}
