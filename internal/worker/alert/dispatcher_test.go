package alert

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"web3-sentry/internal/worker/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type stubSink struct {
	name      string
	err       error
	panics    bool
	delivered []model.SellAlert
}

func (s *stubSink) Name() string { return s.name }

func (s *stubSink) Deliver(ctx context.Context, alert model.SellAlert) error {
	if s.panics {
		panic("sink exploded")
	}
	if s.err != nil {
		return s.err
	}
	s.delivered = append(s.delivered, alert)
	return nil
}

func testAlert() model.SellAlert {
	return model.SellAlert{
		ID:               "alert_123_abcdef",
		WalletAddress:    "0xaaa",
		WalletType:       model.WalletTypeBundle,
		TokenAddress:     "0xtoken",
		TokenSymbol:      "TKN",
		Network:          "BSC",
		AmountSold:       decimal.NewFromInt(50),
		USDValue:         decimal.NewFromInt(100),
		PreviousBalance:  decimal.NewFromInt(1000),
		NewBalance:       decimal.NewFromInt(950),
		ChangePercentage: "5.00",
		Timestamp:        time.Now(),
		ExplorerLink:     "https://bscscan.com/address/0xaaa",
	}
}

// 单个投递端失败或panic都不影响其余投递端
func TestDispatchIsolatesFailures(t *testing.T) {
	failing := &stubSink{name: "lark", err: errors.New("webhook 500")}
	panicking := &stubSink{name: "kafka", panics: true}
	healthy := &stubSink{name: "postgres"}
	d := NewDispatcher(zap.NewNop(), failing, panicking, healthy)

	d.Dispatch(context.Background(), testAlert())

	if len(healthy.delivered) != 1 {
		t.Fatalf("healthy sink must receive the alert, got %d", len(healthy.delivered))
	}
}

func TestDispatchAllSinks(t *testing.T) {
	a := &stubSink{name: "a"}
	b := &stubSink{name: "b"}
	d := NewDispatcher(zap.NewNop(), a, b)

	d.Dispatch(context.Background(), testAlert())

	if len(a.delivered) != 1 || len(b.delivered) != 1 {
		t.Fatalf("all sinks must be hit: a=%d b=%d", len(a.delivered), len(b.delivered))
	}
}

func TestFormatAlertText(t *testing.T) {
	text := FormatAlertText(testAlert())

	for _, want := range []string{"TKN", "0xaaa", "bundle", "5.00", "1000 -> 950", "$100.00", "bscscan.com"} {
		if !strings.Contains(text, want) {
			t.Fatalf("alert text missing %q:\n%s", want, text)
		}
	}
}

func TestFormatAlertTextOmitsZeroUSD(t *testing.T) {
	a := testAlert()
	a.USDValue = decimal.Zero
	text := FormatAlertText(a)

	if strings.Contains(text, "usd value") {
		t.Fatalf("zero usd value must be omitted:\n%s", text)
	}
}
