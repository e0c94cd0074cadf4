package tools

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoppinglens-be/internal/model"
	"shoppinglens-be/internal/pkg/logger"
	"shoppinglens-be/pkg/llm"
)

type stubLLM struct {
	reply string
	err   error
	calls int
}

func (s *stubLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	s.calls++
	return s.reply, s.err
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.Chat(ctx, nil, opts...)
}

func TestHTTPFetcher(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.Equal(t, DefaultFetchUA, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(FetchConfig{}, logger.NewNopLogger())
	ctx := context.Background()

	html, err := f.FetchPage(ctx, srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", html)

	html, err = f.FetchPage(ctx, srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", html)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "second fetch is served from cache")

	html, err = f.FetchPage(ctx, srv.URL+"/missing")
	require.NoError(t, err)
	assert.Empty(t, html)

	html, err = f.FetchPage(ctx, "http://127.0.0.1:1/unreachable")
	require.NoError(t, err)
	assert.Empty(t, html)
}

const jsonLDPage = `<html><head>
<title>Ignored title</title>
<script type="application/ld+json">{"@context":"https://schema.org","@graph":[
  {"@type":"BreadcrumbList"},
  {"@type":["Product"],"name":"Sony WH-1000XM5","image":["https://img.example.com/xm5.jpg"],
   "brand":{"@type":"Brand","name":"Sony"},"sku":"WH1000XM5/B",
   "offers":[{"@type":"Offer","price":"348.00","priceCurrency":"usd"}]}
]}</script>
</head><body>Buy now</body></html>`

const openGraphPage = `<html><head>
<meta property="og:title" content="Bose QuietComfort 45">
<meta property="og:image" content="https://img.example.com/qc45.jpg">
<meta property="product:price:amount" content="$1,299.50">
<meta property="product:price:currency" content="USD">
</head><body></body></html>`

func TestProductExtractor_Metadata(t *testing.T) {
	e := NewProductExtractor(nil, logger.NewNopLogger())
	ctx := context.Background()

	p, err := e.ExtractProductFields(ctx, jsonLDPage, "https://shop.example.com/xm5")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Sony WH-1000XM5", p.Title)
	assert.Equal(t, "https://img.example.com/xm5.jpg", p.ImageURL)
	assert.Equal(t, model.Price{Amount: 348, Currency: "USD"}, p.Price)
	assert.Equal(t, []model.ProductSpec{{Key: "Brand", Value: "Sony"}, {Key: "Sku", Value: "WH1000XM5/B"}}, p.Specs)
	assert.Equal(t, "https://shop.example.com/xm5", p.SourceURL)

	p, err = e.ExtractProductFields(ctx, openGraphPage, "https://shop.example.com/qc45")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Bose QuietComfort 45", p.Title)
	assert.Equal(t, 1299.5, p.Price.Amount)

	p, err = e.ExtractProductFields(ctx, "", "https://x")
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = e.ExtractProductFields(ctx, "<html><body><p>no product here</p></body></html>", "https://x")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestProductExtractor_LLMFallback(t *testing.T) {
	provider := &stubLLM{reply: `{"title":"Anker Soundcore Q30","image_url":"","price":{"amount":59.99,"currency":"usd"},"specs":[{"key":"Battery","value":"40h"}]}`}
	e := NewProductExtractor(provider, logger.NewNopLogger())

	page := `<html><head><title>Anker Q30</title></head><body><script>x()</script><p>Anker Soundcore Q30 only $59.99</p></body></html>`
	p, err := e.ExtractProductFields(context.Background(), page, "https://anker.example.com/q30")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Anker Soundcore Q30", p.Title)
	assert.Equal(t, model.Price{Amount: 59.99, Currency: "USD"}, p.Price)
	assert.Equal(t, []model.ProductSpec{{Key: "Battery", Value: "40h"}}, p.Specs)
	assert.Equal(t, 1, provider.calls)

	// Priced metadata skips the model entirely.
	_, err = e.ExtractProductFields(context.Background(), jsonLDPage, "https://x")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)
}

func TestProductExtractor_LLMErrorKeepsMetadata(t *testing.T) {
	e := NewProductExtractor(&stubLLM{err: errors.New("quota")}, logger.NewNopLogger())
	page := `<html><head><title>Anker Q30</title></head><body>text</body></html>`

	p, err := e.ExtractProductFields(context.Background(), page, "https://x")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Anker Q30", p.Title)
	assert.Equal(t, model.ZeroPrice(), p.Price)
}

func TestProductComparer(t *testing.T) {
	cheap := model.ExtractedProduct{Title: "A", Price: model.Price{Amount: 10, Currency: "USD"}}
	pricey := model.ExtractedProduct{Title: "B", Price: model.Price{Amount: 20, Currency: "USD"}}
	ctx := context.Background()

	c := NewProductComparer(nil, logger.NewNopLogger())
	reason, err := c.CompareProducts(ctx, cheap, pricey)
	require.NoError(t, err)
	assert.Equal(t, CheaperAlternativeReason, reason)

	reason, _ = c.CompareProducts(ctx, pricey, cheap)
	assert.Equal(t, PricierAlternativeReason, reason)

	c = NewProductComparer(&stubLLM{err: errors.New("down")}, logger.NewNopLogger())
	reason, _ = c.CompareProducts(ctx, cheap, pricey)
	assert.Equal(t, CheaperAlternativeReason, reason)

	c = NewProductComparer(&stubLLM{reply: "  B costs more for the same drivers.\n"}, logger.NewNopLogger())
	reason, _ = c.CompareProducts(ctx, cheap, pricey)
	assert.Equal(t, "B costs more for the same drivers.", reason)
}

type fakeSnap struct {
	req  *snap.Request
	resp *snap.Response
	err  *midtrans.Error
}

func (f *fakeSnap) CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error) {
	f.req = req
	return f.resp, f.err
}

func TestStubBuyer(t *testing.T) {
	res, err := StubBuyer{}.BuyItem(context.Background(), model.PurchaseRequest{ProductID: "sku-1"})
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseResult{Status: model.PurchaseStatusOK, Message: "Purchase flow started for sku-1"}, res)
}

func TestMidtransBuyer(t *testing.T) {
	product := &model.ExtractedProduct{Title: "Sony WH-1000XM5", Price: model.Price{Amount: 348.4, Currency: "USD"}}
	client := &fakeSnap{resp: &snap.Response{Token: "tok", RedirectURL: "https://pay.example.com/tok"}}
	b := &MidtransBuyer{client: client, finishURL: "https://app.example.com/done", logger: logger.NewNopLogger()}

	res, err := b.BuyItem(context.Background(), model.PurchaseRequest{ProductID: "xm5", Product: product})
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseStatusOK, res.Status)
	assert.Contains(t, res.Message, "https://pay.example.com/tok")
	assert.Equal(t, int64(348), client.req.TransactionDetails.GrossAmt)
	assert.Equal(t, "https://app.example.com/done", client.req.Callbacks.Finish)

	res, err = b.BuyItem(context.Background(), model.PurchaseRequest{ProductID: "xm5"})
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseStatusFailed, res.Status)

	client.err = &midtrans.Error{Message: "unauthorized", StatusCode: 401}
	_, err = b.BuyItem(context.Background(), model.PurchaseRequest{ProductID: "xm5", Product: product})
	assert.Error(t, err)
}
