package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const classifierModel = "gemini-2.5-flash-lite"

// Gemini pricing (per million tokens)
const (
	inputPricePerMillion  = 0.075
	outputPricePerMillion = 0.30
)

const maxContextSnippets = 3

const intentPrompt = `You are a purchase intent classifier. A user clicked an element on a web page. Decide whether the click is an attempt to complete a purchase (placing an order, starting a payment, confirming a subscription or installment plan).

Page data:
%s

Respond in JSON format with these fields:
- is_purchase: true if the click commits the user to paying money
- confidence: a number between 0 and 1
- reason: one short sentence explaining the decision
- purchase_type: one of "one_time", "subscription", "bnpl", "unknown"
- item: object with "name", "unit_price" (number), "quantity" (integer) for the main item, or null if unclear

Example response:
{"is_purchase": true, "confidence": 0.92, "reason": "Click on the Place Order button in a checkout form.", "purchase_type": "one_time", "item": {"name": "Wireless mouse", "unit_price": 29.99, "quantity": 1}}

Respond ONLY with the JSON object, no markdown or other text.`

// IntentRequest is the redacted page data sent for classification.
// Only the trigger text, page identity and a few nearby context
// snippets leave the machine.
type IntentRequest struct {
	URL              string   `json:"url"`
	Title            string   `json:"title"`
	Text             string   `json:"text"`
	Context          []string `json:"context,omitempty"`
	DetectedSubtotal float64  `json:"detectedSubtotal,omitempty"`
	CurrencySymbol   string   `json:"currencySymbol,omitempty"`
}

// IntentItem describes the main item involved in a purchase.
type IntentItem struct {
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

// IntentResult is the classifier's verdict for a click.
type IntentResult struct {
	IsPurchase   bool        `json:"is_purchase"`
	Confidence   float64     `json:"confidence"`
	Reason       string      `json:"reason"`
	PurchaseType string      `json:"purchase_type"`
	Item         *IntentItem `json:"item"`
}

// GeminiClassifier classifies click events with Google's Gemini API.
type GeminiClassifier struct {
	client *genai.Client
}

// NewGeminiClassifier creates a classifier authenticated via the
// GEMINI_API_KEY environment variable.
func NewGeminiClassifier(ctx context.Context) (*GeminiClassifier, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClassifier{client: client}, nil
}

// ClassifyIntent asks Gemini whether the clicked element commits a purchase.
func (g *GeminiClassifier) ClassifyIntent(ctx context.Context, req IntentRequest) (*IntentResult, error) {
	prompt, err := buildIntentPrompt(req)
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(float32(0)),
		MaxOutputTokens:  512,
	}

	result, err := g.client.Models.GenerateContent(ctx, classifierModel, []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}, config)
	if err != nil {
		return nil, fmt.Errorf("gemini intent call failed: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from gemini")
	}

	parsed, err := parseIntentResult(result.Text())
	if err != nil {
		return nil, err
	}

	if result.UsageMetadata != nil {
		cost := calculateCost(
			int64(result.UsageMetadata.PromptTokenCount),
			int64(result.UsageMetadata.CandidatesTokenCount),
		)
		log.Info().
			Str("model", classifierModel).
			Int("inputTokens", int(result.UsageMetadata.PromptTokenCount)).
			Int("outputTokens", int(result.UsageMetadata.CandidatesTokenCount)).
			Float64("costUSD", cost).
			Bool("isPurchase", parsed.IsPurchase).
			Str("purchaseType", parsed.PurchaseType).
			Msg("intent classification llm call")
	}

	return parsed, nil
}

// buildIntentPrompt serializes the redacted page data into the prompt.
// Context snippets beyond the first few are dropped to bound token use.
func buildIntentPrompt(req IntentRequest) (string, error) {
	if len(req.Context) > maxContextSnippets {
		req.Context = req.Context[:maxContextSnippets]
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal intent payload: %w", err)
	}
	return fmt.Sprintf(intentPrompt, payload), nil
}

func parseIntentResult(text string) (*IntentResult, error) {
	var res IntentResult
	// Response MIME type is JSON so a direct parse usually works. Fall
	// back to extracting the first {...} block when the model wraps the
	// object in prose anyway.
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &res); err == nil {
		return &res, nil
	}

	jsonStr, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(jsonStr), &res); err != nil {
		return nil, fmt.Errorf("failed to parse intent json: %w (response: %s)", err, jsonStr)
	}
	return &res, nil
}

// extractJSONObject extracts a JSON object from text that may contain
// markdown code blocks or other formatting.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response: %s", text)
	}
	return text[start : end+1], nil
}

func calculateCost(inputTokens, outputTokens int64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPricePerMillion
	outputCost := float64(outputTokens) / 1_000_000 * outputPricePerMillion
	return inputCost + outputCost
}
