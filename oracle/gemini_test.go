package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateResponse(text string) string {
	payload := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	}
	out, _ := json.Marshal(payload)
	return string(out)
}

func newTestOracle(t *testing.T, handler http.HandlerFunc) *GeminiOracle {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGeminiOracle("test-key", WithBaseURL(srv.URL))
}

func TestAnalyzeSuccess(t *testing.T) {
	g := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		analysis := `{"name":"Maxwell Food Centre","uen":"T08GB0046D","suggestedAmount":25,"category":"hawker centre","trustScore":92}`
		w.Write([]byte(candidateResponse(analysis)))
	})

	got, err := g.Analyze(context.Background(), "raw-qr-code")
	require.NoError(t, err)
	assert.Equal(t, "Maxwell Food Centre", got.DisplayName)
	assert.Equal(t, "T08GB0046D", got.RegistrationID)
	require.NotNil(t, got.SuggestedAmount)
	assert.Equal(t, "25", got.SuggestedAmount.String())
	assert.Equal(t, "hawker centre", got.Category)
	assert.Equal(t, 92, got.TrustScore)
}

func TestAnalyzeRequestCarriesResponseSchema(t *testing.T) {
	var body struct {
		GenerationConfig struct {
			ResponseMimeType string `json:"responseMimeType"`
			ResponseSchema   *struct {
				Type       string                     `json:"type"`
				Properties map[string]json.RawMessage `json:"properties"`
				Required   []string                   `json:"required"`
			} `json:"responseSchema"`
		} `json:"generationConfig"`
	}
	g := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		analysis := `{"name":"Kopi Stall","uen":"T01AB2345C","category":"coffee shop","trustScore":55}`
		w.Write([]byte(candidateResponse(analysis)))
	})

	_, err := g.Analyze(context.Background(), "raw")
	require.NoError(t, err)

	assert.Equal(t, "application/json", body.GenerationConfig.ResponseMimeType)
	require.NotNil(t, body.GenerationConfig.ResponseSchema)
	assert.Equal(t, "OBJECT", body.GenerationConfig.ResponseSchema.Type)
	for _, key := range []string{"name", "uen", "suggestedAmount", "category", "trustScore"} {
		assert.Contains(t, body.GenerationConfig.ResponseSchema.Properties, key)
	}
	assert.ElementsMatch(t, []string{"name", "uen", "category"}, body.GenerationConfig.ResponseSchema.Required)
}

func TestTipRequestOmitsResponseSchema(t *testing.T) {
	var raw map[string]json.RawMessage
	g := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.Write([]byte(candidateResponse("Small notes help at hawker stalls.")))
	})

	_, err := g.Tip(context.Background(), "hawker centre")
	require.NoError(t, err)
	assert.NotContains(t, raw, "generationConfig")
}

func TestAnalyzeWithoutSuggestedAmount(t *testing.T) {
	g := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		analysis := `{"name":"Kopi Stall","uen":"T01AB2345C","category":"coffee shop","trustScore":55}`
		w.Write([]byte(candidateResponse(analysis)))
	})

	got, err := g.Analyze(context.Background(), "raw")
	require.NoError(t, err)
	assert.Nil(t, got.SuggestedAmount)
}

func TestAnalyzeServerError(t *testing.T) {
	g := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":500,"message":"internal"}}`, http.StatusInternalServerError)
	})

	_, err := g.Analyze(context.Background(), "raw")
	assert.Error(t, err)
}

func TestAnalyzeMalformedPayload(t *testing.T) {
	g := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candidateResponse("not json at all")))
	})

	_, err := g.Analyze(context.Background(), "raw")
	assert.Error(t, err)
}

func TestAnalyzeRejectsOutOfRangeTrustScore(t *testing.T) {
	g := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		analysis := `{"name":"Shady Stall","uen":"T99ZZ9999Z","category":"retail","trustScore":250}`
		w.Write([]byte(candidateResponse(analysis)))
	})

	_, err := g.Analyze(context.Background(), "raw")
	assert.Error(t, err)
}

func TestAnalyzeRejectsMissingRequiredFields(t *testing.T) {
	g := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		analysis := `{"suggestedAmount":12,"trustScore":70}`
		w.Write([]byte(candidateResponse(analysis)))
	})

	_, err := g.Analyze(context.Background(), "raw")
	assert.Error(t, err)
}

func TestAnalyzeNoCandidates(t *testing.T) {
	g := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := g.Analyze(context.Background(), "raw")
	assert.Error(t, err)
}

func TestTipSuccess(t *testing.T) {
	g := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candidateResponse("Carry small notes for hawker stalls.")))
	})

	tip, err := g.Tip(context.Background(), "hawker centre")
	require.NoError(t, err)
	assert.Equal(t, "Carry small notes for hawker stalls.", tip)
}

func TestTipFailureDegradesToDefault(t *testing.T) {
	g := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})

	tip, err := g.Tip(context.Background(), "hawker centre")
	require.NoError(t, err)
	assert.Equal(t, DefaultTip, tip)
}

func TestStaticOracleDefaults(t *testing.T) {
	s := &StaticOracle{}

	_, err := s.Analyze(context.Background(), "raw")
	assert.Error(t, err)

	tip, err := s.Tip(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, DefaultTip, tip)
}
