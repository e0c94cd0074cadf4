package summary

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoppinglens-be/internal/model"
	"shoppinglens-be/internal/pkg/logger"
	"shoppinglens-be/pkg/llm"
)

type stubProvider struct {
	reply string
	err   error
	calls int
}

func (s *stubProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	s.calls++
	return s.reply, s.err
}

func (s *stubProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func price(amount float64) model.Price {
	return model.Price{Amount: amount, Currency: model.DefaultCurrency}
}

func sampleInput() Input {
	return Input{
		SessionID: "s1",
		ThreadID:  "t1",
		TopMatch: model.ExtractedProduct{
			Title:     "Sony WH-1000XM5 Wireless Headphones",
			Price:     price(90),
			Specs:     []model.ProductSpec{{Key: "Noise cancelling", Value: "Yes"}},
			SourceURL: "https://www.sony.com/xm5",
		},
		Alternatives: []model.Alternative{
			{Title: "XM5 at Amazon", Price: price(100), SourceURL: "https://www.amazon.com/dp/1"},
			{Title: "XM5 at Best Buy", Price: price(0), SourceURL: "https://www.bestbuy.com/site/2"},
			{Title: "Some Shop", Price: price(100), SourceURL: "https://shop.example.org/p/3"},
		},
		Seed: &model.SearchSeed{BrandHint: "Sony", CategoryHint: "headphones"},
	}
}

func TestComputeValueScore(t *testing.T) {
	tests := []struct {
		name        string
		detected    float64
		competitors []float64
		want        model.ValueScore
	}{
		{"well below average", 90, []float64{100}, model.ValueScoreBuy},
		{"at threshold", 98, []float64{100}, model.ValueScoreBuy},
		{"slightly above", 103, []float64{100}, model.ValueScoreHold},
		{"upper threshold", 105, []float64{100}, model.ValueScoreHold},
		{"far above", 110, []float64{100}, model.ValueScoreAvoid},
		{"no competitors", 50, nil, model.ValueScoreHold},
		{"non finite detected", math.NaN(), []float64{100}, model.ValueScoreHold},
		{"mean of several", 95, []float64{90, 110}, model.ValueScoreBuy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeValueScore(tt.detected, tt.competitors))
		})
	}
}

func TestExtractSite(t *testing.T) {
	assert.Equal(t, "Amazon", ExtractSite("https://www.amazon.com/dp/x", "t"))
	assert.Equal(t, "B&H Photo", ExtractSite("https://bhphotovideo.com/p", ""))
	assert.Equal(t, "shop.example.org", ExtractSite("https://shop.example.org/p", "t"))
	assert.Equal(t, "Title", ExtractSite("https://vertexaisearch.cloud.google.com/r", "Title"))
	assert.Equal(t, "Online Retailer", ExtractSite("https://www.google.com/shopping", ""))
	assert.Equal(t, "Unknown", ExtractSite("", ""))
	assert.Equal(t, "Fallback", ExtractSite("::not a url", "Fallback"))
}

func TestFormatPriceAndBrand(t *testing.T) {
	assert.Equal(t, "$12.50", FormatPrice(price(12.5)))
	assert.Equal(t, "$0.00", FormatPrice(price(0)))
	assert.Equal(t, UnknownPrice, FormatPrice(price(math.Inf(1))))

	assert.Equal(t, "Sony", ExtractBrand("Whatever", &model.SearchSeed{BrandHint: "Sony"}))
	assert.Equal(t, "Bose", ExtractBrand("Bose QC45", nil))
	assert.Equal(t, "Unknown", ExtractBrand("", &model.SearchSeed{}))
}

func TestBuildShoppingSummary(t *testing.T) {
	s := BuildShoppingSummary(sampleInput())

	assert.Equal(t, model.PayloadShoppingSummary, s.Type)
	assert.Equal(t, "s1", s.SessionID)
	assert.Equal(t, "t1", s.ThreadID)
	assert.Equal(t, "Sony", s.Brand)
	assert.Equal(t, "$90.00", s.DetectedPrice)
	assert.Equal(t, []model.CompetitorPrice{
		{Site: "Amazon", Price: "$100.00"},
		{Site: "shop.example.org", Price: "$100.00"},
	}, s.Competitors)
	assert.False(t, s.IsCompatible)
	assert.Equal(t, CompatibilityNote, s.CompatibilityNote)
	assert.Equal(t, model.ValueScoreBuy, s.ValueScore)
	assert.Equal(t, "Compared 2 competitor prices; current price is $90.00. Value score: buy.", s.AIInsight)
}

func TestBuildShoppingSummary_NoCompetitors(t *testing.T) {
	in := sampleInput()
	in.Alternatives = nil

	s := BuildShoppingSummary(in)
	assert.Empty(t, s.Competitors)
	assert.NotNil(t, s.Competitors)
	assert.Equal(t, model.ValueScoreHold, s.ValueScore)
	assert.Equal(t, "Limited competitor pricing data available. Value score: hold.", s.AIInsight)
}

func TestMergeShoppingSummary(t *testing.T) {
	fallback := BuildShoppingSummary(sampleInput())

	t.Run("well typed fields replace fallback", func(t *testing.T) {
		raw := "```json\n{\"brand\":\"SONY\",\"valueScore\":\"avoid\",\"isCompatible\":true,\"competitors\":[{\"site\":\"Target\",\"price\":\"$99\"},{}]}\n```"
		got := MergeShoppingSummary(raw, fallback)
		assert.Equal(t, "SONY", got.Brand)
		assert.Equal(t, model.ValueScoreAvoid, got.ValueScore)
		assert.True(t, got.IsCompatible)
		assert.Equal(t, []model.CompetitorPrice{{Site: "Target", Price: "$99"}, {Site: "Unknown", Price: "Unknown"}}, got.Competitors)
		assert.Equal(t, fallback.ProductName, got.ProductName)
		assert.Equal(t, "t1", got.ThreadID)
	})

	t.Run("invalid enum and wrong types keep fallback", func(t *testing.T) {
		got := MergeShoppingSummary(`{"valueScore":"maybe","isCompatible":"yes","competitors":"none"}`, fallback)
		assert.Equal(t, fallback.ValueScore, got.ValueScore)
		assert.Equal(t, fallback.IsCompatible, got.IsCompatible)
		assert.Equal(t, fallback.Competitors, got.Competitors)
	})

	t.Run("numeric and bool values in string fields keep fallback", func(t *testing.T) {
		got := MergeShoppingSummary(`{"detectedPrice":999,"brand":true,"productName":7,"aiInsight":null}`, fallback)
		assert.Equal(t, fallback.DetectedPrice, got.DetectedPrice)
		assert.Equal(t, fallback.Brand, got.Brand)
		assert.Equal(t, fallback.ProductName, got.ProductName)
		assert.Equal(t, fallback.AIInsight, got.AIInsight)
	})

	t.Run("unparseable keeps fallback", func(t *testing.T) {
		assert.Same(t, fallback, MergeShoppingSummary("", fallback))
		assert.Same(t, fallback, MergeShoppingSummary("[1,2,3]", fallback))
	})

	t.Run("trailing comma is repaired", func(t *testing.T) {
		got := MergeShoppingSummary(`{"aiInsight":"Good deal",}`, fallback)
		assert.Equal(t, "Good deal", got.AIInsight)
	})
}

func TestValueStrategy_Build(t *testing.T) {
	log := logger.NewNopLogger()

	t.Run("no provider is deterministic", func(t *testing.T) {
		p := NewValueStrategy(nil, log).Build(context.Background(), sampleInput())
		assert.Equal(t, BuildShoppingSummary(sampleInput()), p)
	})

	t.Run("provider error falls back", func(t *testing.T) {
		provider := &stubProvider{err: errors.New("quota")}
		p := NewValueStrategy(provider, log).Build(context.Background(), sampleInput())
		assert.Equal(t, BuildShoppingSummary(sampleInput()), p)
		assert.Equal(t, 1, provider.calls)
	})

	t.Run("provider reply is merged", func(t *testing.T) {
		provider := &stubProvider{reply: `{"aiInsight":"Solid price for flagship ANC."}`}
		p := NewValueStrategy(provider, log).Build(context.Background(), sampleInput())
		s, ok := p.(*model.ShoppingSummaryPayload)
		require.True(t, ok)
		assert.Equal(t, "Solid price for flagship ANC.", s.AIInsight)
		assert.Equal(t, model.ValueScoreBuy, s.ValueScore)
	})
}

func TestProsConsStrategy(t *testing.T) {
	log := logger.NewNopLogger()

	p := NewProsConsStrategy(nil, log).Build(context.Background(), sampleInput())
	s, ok := p.(*model.AISummaryPayload)
	require.True(t, ok)
	assert.Equal(t, model.PayloadAISummary, s.Type)
	assert.Equal(t, "t1", s.ThreadID)
	assert.Contains(t, s.Pros, "Priced below the average of 2 competing listings.")
	assert.Contains(t, s.Pros, "Noise cancelling: Yes")
	assert.Empty(t, s.Cons)
	assert.Equal(t, "Anyone shopping for headphones", s.BestFor[0])

	provider := &stubProvider{reply: `{"summary":"Great ANC headphones.","pros":["Comfort", 3],"cons":null}`}
	p = NewProsConsStrategy(provider, log).Build(context.Background(), sampleInput())
	s = p.(*model.AISummaryPayload)
	assert.Equal(t, "Great ANC headphones.", s.Summary)
	assert.Equal(t, []string{"Comfort"}, s.Pros)
	assert.Empty(t, s.Cons)
}

func TestNewStrategy(t *testing.T) {
	log := logger.NewNopLogger()

	s, err := NewStrategy("", nil, log)
	require.NoError(t, err)
	assert.IsType(t, &ValueStrategy{}, s)

	s, err = NewStrategy(StrategyProsCons, nil, log)
	require.NoError(t, err)
	assert.IsType(t, &ProsConsStrategy{}, s)

	_, err = NewStrategy("haiku", nil, log)
	assert.Error(t, err)
}
