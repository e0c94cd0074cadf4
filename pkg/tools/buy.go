package tools

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"

	"shoppinglens-be/internal/model"
	"shoppinglens-be/internal/pkg/logger"
)

// StubBuyer acknowledges the purchase without contacting a payment provider.
type StubBuyer struct{}

func (StubBuyer) BuyItem(_ context.Context, req model.PurchaseRequest) (model.PurchaseResult, error) {
	return model.PurchaseResult{
		Status:  model.PurchaseStatusOK,
		Message: fmt.Sprintf("Purchase flow started for %s", req.ProductID),
	}, nil
}

type snapTransactor interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

type MidtransConfig struct {
	ServerKey    string
	IsProduction bool
	FinishURL    string
}

// MidtransBuyer opens a Snap checkout for the product.
type MidtransBuyer struct {
	client    snapTransactor
	finishURL string
	logger    logger.ILogger
}

func NewMidtransBuyer(cfg MidtransConfig, log logger.ILogger) *MidtransBuyer {
	var sClient snap.Client
	env := midtrans.Sandbox
	if cfg.IsProduction {
		env = midtrans.Production
	}
	sClient.New(cfg.ServerKey, env)

	return &MidtransBuyer{client: &sClient, finishURL: cfg.FinishURL, logger: log}
}

func (b *MidtransBuyer) BuyItem(_ context.Context, req model.PurchaseRequest) (model.PurchaseResult, error) {
	if req.Product == nil || !(req.Product.Price.Amount > 0) || math.IsInf(req.Product.Price.Amount, 0) {
		return model.PurchaseResult{
			Status:  model.PurchaseStatusFailed,
			Message: fmt.Sprintf("Price unavailable for %s; cannot start checkout.", req.ProductID),
		}, nil
	}

	amount := int64(math.Round(req.Product.Price.Amount))
	orderID := uuid.New().String()
	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: amount,
		},
		CreditCard: &snap.CreditCardDetails{
			Secure: true,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    truncate(req.ProductID, 50),
				Price: amount,
				Qty:   1,
				Name:  truncate(req.Product.Title, 50),
			},
		},
		EnabledPayments: snap.AllSnapPaymentType,
	}
	if b.finishURL != "" {
		snapReq.Callbacks = &snap.Callbacks{Finish: b.finishURL}
	}

	snapResp, midErr := b.client.CreateTransaction(snapReq)
	if midErr != nil {
		return model.PurchaseResult{}, fmt.Errorf("midtrans error: %v", midErr.GetMessage())
	}

	b.logger.Info("Purchase", "Checkout created", map[string]interface{}{
		"order_id":   orderID,
		"product_id": req.ProductID,
		"amount":     amount,
	})
	return model.PurchaseResult{
		Status:  model.PurchaseStatusOK,
		Message: fmt.Sprintf("Checkout ready for %s: %s", req.Product.Title, snapResp.RedirectURL),
	}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
