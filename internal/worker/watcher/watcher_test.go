package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"web3-sentry/internal/worker/config"
	"web3-sentry/internal/worker/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// fakeBalances 每个钱包一条预设余额序列，依次弹出；序列耗尽后重复最后一个值
type fakeBalances struct {
	mu        sync.Mutex
	sequences map[string][]decimal.Decimal
	failFor   map[string]bool
}

func (f *fakeBalances) FetchBalance(ctx context.Context, network, tokenAddr, wallet string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failFor[wallet] {
		return decimal.Zero, errors.New("rpc timeout")
	}
	seq := f.sequences[wallet]
	if len(seq) == 0 {
		return decimal.Zero, errors.New("no balance configured")
	}
	next := seq[0]
	if len(seq) > 1 {
		f.sequences[wallet] = seq[1:]
	}
	return next, nil
}

type fakePrices struct {
	price decimal.Decimal
}

func (f *fakePrices) GetPrice(ctx context.Context, network, tokenAddr string) decimal.Decimal {
	return f.price
}

type recordingDispatcher struct {
	mu     sync.Mutex
	alerts []model.SellAlert
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, alert model.SellAlert) {
	d.mu.Lock()
	d.alerts = append(d.alerts, alert)
	d.mu.Unlock()
}

func testWatcherConfig() config.WatcherConfig {
	return config.WatcherConfig{
		PollIntervalSec:  25,
		BatchSize:        3,
		BatchDelaySec:    0,
		SellThresholdPct: 1,
	}
}

func classified(addrs ...string) []model.ClassifiedWallet {
	out := make([]model.ClassifiedWallet, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, model.ClassifiedWallet{
			Holder: model.Holder{Address: a},
			Classification: model.WalletClassification{
				Type:      model.WalletTypeTeam,
				RiskLevel: model.RiskMedium,
			},
		})
	}
	return out
}

func newTestWatcher(balances *fakeBalances) *Watcher {
	return New(testWatcherConfig(), balances, &fakePrices{price: decimal.NewFromInt(2)}, nil, zap.NewNop())
}

type alertRecorder struct {
	mu     sync.Mutex
	alerts []model.SellAlert
}

func (r *alertRecorder) record(a model.SellAlert) {
	r.mu.Lock()
	r.alerts = append(r.alerts, a)
	r.mu.Unlock()
}

func (r *alertRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alerts)
}

func TestStartBeforeInitialize(t *testing.T) {
	w := newTestWatcher(&fakeBalances{})
	if err := w.Start(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestInitializeNilWallets(t *testing.T) {
	w := newTestWatcher(&fakeBalances{})
	if err := w.Initialize("0xtoken", "TKN", "BSC", nil); !errors.Is(err, ErrInvalidWallets) {
		t.Fatalf("expected ErrInvalidWallets, got %v", err)
	}
}

func TestInitializeEmptyWallets(t *testing.T) {
	w := newTestWatcher(&fakeBalances{})
	if err := w.Initialize("0xtoken", "TKN", "BSC", []model.ClassifiedWallet{}); err != nil {
		t.Fatalf("empty list must be accepted: %v", err)
	}
	if st := w.Status(); st.WalletCount != 0 {
		t.Fatalf("expected 0 wallets, got %d", st.WalletCount)
	}
}

func TestLifecycle(t *testing.T) {
	balances := &fakeBalances{sequences: map[string][]decimal.Decimal{
		"0xaaa": {decimal.NewFromInt(1000)},
	}}
	w := newTestWatcher(balances)
	if err := w.Initialize("0xtoken", "TKN", "BSC", classified("0xaaa")); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	// 重复Start是无害空操作
	if err := w.Start(); err != nil {
		t.Fatalf("second Start must be a no-op, got %v", err)
	}
	if st := w.Status(); !st.IsMonitoring {
		t.Fatal("expected monitoring status")
	}

	w.Stop()
	if st := w.Status(); st.IsMonitoring || st.WalletCount != 0 {
		t.Fatalf("expected idle empty status after Stop, got %+v", st)
	}
	// Stop后回到未初始化状态
	if err := w.Start(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Start after Stop must require re-initialization, got %v", err)
	}
	// 空闲时再次Stop也是空操作
	w.Stop()
}

func TestFirstObservationIsBaseline(t *testing.T) {
	balances := &fakeBalances{sequences: map[string][]decimal.Decimal{
		"0xaaa": {decimal.NewFromInt(1000)},
	}}
	w := newTestWatcher(balances)
	if err := w.Initialize("0xtoken", "TKN", "BSC", classified("0xaaa")); err != nil {
		t.Fatal(err)
	}

	rec := &alertRecorder{}
	w.OnAlert(rec.record)

	w.runCycle(context.Background())
	if rec.count() != 0 {
		t.Fatalf("baseline cycle must not alert, got %d alerts", rec.count())
	}
}

func TestSellDetection(t *testing.T) {
	balances := &fakeBalances{sequences: map[string][]decimal.Decimal{
		"0xaaa": {decimal.NewFromInt(1000), decimal.NewFromInt(950)},
	}}
	w := newTestWatcher(balances)
	if err := w.Initialize("0xtoken", "TKN", "BSC", classified("0xaaa")); err != nil {
		t.Fatal(err)
	}

	rec := &alertRecorder{}
	w.OnAlert(rec.record)

	w.runCycle(context.Background())
	w.runCycle(context.Background())

	if rec.count() != 1 {
		t.Fatalf("expected exactly one alert, got %d", rec.count())
	}
	a := rec.alerts[0]
	if !a.AmountSold.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected amount sold: %s", a.AmountSold)
	}
	if a.ChangePercentage != "5.00" {
		t.Fatalf("unexpected change percentage: %s", a.ChangePercentage)
	}
	if !a.PreviousBalance.Equal(decimal.NewFromInt(1000)) || !a.NewBalance.Equal(decimal.NewFromInt(950)) {
		t.Fatalf("balance snapshot wrong: %s -> %s", a.PreviousBalance, a.NewBalance)
	}
	// 价格2.0，50枚应为100美元
	if !a.USDValue.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected usd value: %s", a.USDValue)
	}
	if a.WalletType != model.WalletTypeTeam {
		t.Fatalf("unexpected wallet type: %s", a.WalletType)
	}
	if a.ID == "" || a.TokenSymbol != "TKN" {
		t.Fatalf("alert identity fields missing: %+v", a)
	}
}

// 降幅恰好等于阈值不触发，严格大于才算卖出
func TestSellThresholdBoundary(t *testing.T) {
	balances := &fakeBalances{sequences: map[string][]decimal.Decimal{
		"0xaaa": {decimal.NewFromInt(1000), decimal.NewFromInt(990), decimal.NewFromInt(979)},
	}}
	w := newTestWatcher(balances)
	if err := w.Initialize("0xtoken", "TKN", "BSC", classified("0xaaa")); err != nil {
		t.Fatal(err)
	}

	rec := &alertRecorder{}
	w.OnAlert(rec.record)

	w.runCycle(context.Background()) // 基线 1000
	w.runCycle(context.Background()) // 990，恰好1%
	if rec.count() != 0 {
		t.Fatalf("drop of exactly 1%% must not alert, got %d", rec.count())
	}

	w.runCycle(context.Background()) // 979，降幅约1.11%
	if rec.count() != 1 {
		t.Fatalf("drop above threshold must alert, got %d", rec.count())
	}
}

func TestBalanceIncreaseNoAlert(t *testing.T) {
	balances := &fakeBalances{sequences: map[string][]decimal.Decimal{
		"0xaaa": {decimal.NewFromInt(1000), decimal.NewFromInt(1200)},
	}}
	w := newTestWatcher(balances)
	if err := w.Initialize("0xtoken", "TKN", "BSC", classified("0xaaa")); err != nil {
		t.Fatal(err)
	}

	rec := &alertRecorder{}
	w.OnAlert(rec.record)

	w.runCycle(context.Background())
	w.runCycle(context.Background())
	if rec.count() != 0 {
		t.Fatalf("balance increase must not alert, got %d", rec.count())
	}
}

// 单个钱包拉取失败只跳过本轮，不影响其他钱包，恢复后从新基线继续
func TestFetchFailureIsolation(t *testing.T) {
	balances := &fakeBalances{
		sequences: map[string][]decimal.Decimal{
			"0xaaa": {decimal.NewFromInt(1000), decimal.NewFromInt(900)},
			"0xbbb": {decimal.NewFromInt(500)},
		},
		failFor: map[string]bool{"0xbbb": true},
	}
	w := newTestWatcher(balances)
	if err := w.Initialize("0xtoken", "TKN", "BSC", classified("0xaaa", "0xbbb")); err != nil {
		t.Fatal(err)
	}

	rec := &alertRecorder{}
	w.OnAlert(rec.record)

	w.runCycle(context.Background())
	w.runCycle(context.Background())

	if rec.count() != 1 {
		t.Fatalf("healthy wallet must still alert, got %d", rec.count())
	}
	if rec.alerts[0].WalletAddress != "0xaaa" {
		t.Fatalf("alert from wrong wallet: %s", rec.alerts[0].WalletAddress)
	}
	if st := w.Status(); !st.Connected {
		t.Fatal("partial success still counts as connected")
	}

	// 失败钱包恢复后首次观测只建基线
	balances.mu.Lock()
	balances.failFor["0xbbb"] = false
	balances.mu.Unlock()
	w.runCycle(context.Background())
	if rec.count() != 1 {
		t.Fatalf("recovered wallet must baseline silently, got %d alerts", rec.count())
	}
}

// 有成功检查时在线，整轮全部失败后掉线
func TestConnectedFlipsOnAllFailCycle(t *testing.T) {
	balances := &fakeBalances{
		sequences: map[string][]decimal.Decimal{
			"0xaaa": {decimal.NewFromInt(1000)},
			"0xbbb": {decimal.NewFromInt(500)},
		},
		failFor: map[string]bool{},
	}
	w := newTestWatcher(balances)
	if err := w.Initialize("0xtoken", "TKN", "BSC", classified("0xaaa", "0xbbb")); err != nil {
		t.Fatal(err)
	}

	w.runCycle(context.Background())
	if st := w.Status(); !st.Connected {
		t.Fatal("successful cycle must mark connected")
	}

	balances.mu.Lock()
	balances.failFor["0xaaa"] = true
	balances.failFor["0xbbb"] = true
	balances.mu.Unlock()

	w.runCycle(context.Background())
	st := w.Status()
	if st.Connected {
		t.Fatal("cycle with zero successes must mark disconnected")
	}
	if st.LastChecked == nil {
		t.Fatal("failed cycle still updates last checked time")
	}
}

// blockingBalances 进入拉取后阻塞，用来卡住一轮周期
type blockingBalances struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (b *blockingBalances) FetchBalance(ctx context.Context, network, tokenAddr, wallet string) (decimal.Decimal, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	b.entered <- struct{}{}
	<-b.release
	return decimal.NewFromInt(1000), nil
}

func (b *blockingBalances) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// 上一轮还在跑时，后到的tick整轮跳过，一个钱包都不查
func TestCycleOverlapGuard(t *testing.T) {
	balances := &blockingBalances{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	w := New(testWatcherConfig(), balances, &fakePrices{price: decimal.NewFromInt(2)}, nil, zap.NewNop())
	if err := w.Initialize("0xtoken", "TKN", "BSC", classified("0xaaa")); err != nil {
		t.Fatal(err)
	}

	firstDone := make(chan struct{})
	go func() {
		w.runCycle(context.Background())
		close(firstDone)
	}()

	<-balances.entered // 第一轮已卡在拉取里

	w.runCycle(context.Background()) // 应立即返回
	if got := balances.callCount(); got != 1 {
		t.Fatalf("overlapping cycle must not touch wallets, got %d fetches", got)
	}

	close(balances.release)
	<-firstDone

	if got := balances.callCount(); got != 1 {
		t.Fatalf("only the first cycle may fetch, got %d", got)
	}
}

func TestWalletUpdateSubscription(t *testing.T) {
	balances := &fakeBalances{sequences: map[string][]decimal.Decimal{
		"0xaaa": {decimal.NewFromInt(1000)},
	}}
	w := newTestWatcher(balances)
	if err := w.Initialize("0xtoken", "TKN", "BSC", classified("0xaaa")); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var updates []model.WalletUpdate
	w.OnWalletUpdate(func(u model.WalletUpdate) {
		mu.Lock()
		updates = append(updates, u)
		mu.Unlock()
	})

	w.runCycle(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(updates) != 1 {
		t.Fatalf("expected one update, got %d", len(updates))
	}
	u := updates[0]
	if u.Address != "0xaaa" || !u.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("unexpected update: %+v", u)
	}
	// 价格2.0，持仓1000枚应为2000美元
	if !u.USDValue.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("unexpected usd value: %s", u.USDValue)
	}
	if !u.SellPressure.IsZero() {
		t.Fatalf("no sells yet, sell pressure must be zero: %s", u.SellPressure)
	}
}

func TestUnsubscribe(t *testing.T) {
	balances := &fakeBalances{sequences: map[string][]decimal.Decimal{
		"0xaaa": {decimal.NewFromInt(1000), decimal.NewFromInt(500)},
	}}
	w := newTestWatcher(balances)
	if err := w.Initialize("0xtoken", "TKN", "BSC", classified("0xaaa")); err != nil {
		t.Fatal(err)
	}

	rec := &alertRecorder{}
	unsubscribe := w.OnAlert(rec.record)
	unsubscribe()

	w.runCycle(context.Background())
	w.runCycle(context.Background())
	if rec.count() != 0 {
		t.Fatalf("unsubscribed callback must not fire, got %d", rec.count())
	}
}

// 同一函数引用重复注册只生效一次
func TestDuplicateSubscription(t *testing.T) {
	balances := &fakeBalances{sequences: map[string][]decimal.Decimal{
		"0xaaa": {decimal.NewFromInt(1000), decimal.NewFromInt(500)},
	}}
	w := newTestWatcher(balances)
	if err := w.Initialize("0xtoken", "TKN", "BSC", classified("0xaaa")); err != nil {
		t.Fatal(err)
	}

	rec := &alertRecorder{}
	w.OnAlert(rec.record)
	w.OnAlert(rec.record)

	w.runCycle(context.Background())
	w.runCycle(context.Background())
	if rec.count() != 1 {
		t.Fatalf("duplicate registration must fire once, got %d", rec.count())
	}
}

// 重复注册返回的取消函数指向已有订阅，调用后该订阅整个移除
func TestDuplicateSubscriptionUnsubscribe(t *testing.T) {
	balances := &fakeBalances{sequences: map[string][]decimal.Decimal{
		"0xaaa": {decimal.NewFromInt(1000), decimal.NewFromInt(500)},
	}}
	w := newTestWatcher(balances)
	if err := w.Initialize("0xtoken", "TKN", "BSC", classified("0xaaa")); err != nil {
		t.Fatal(err)
	}

	rec := &alertRecorder{}
	w.OnAlert(rec.record)
	unsubscribe := w.OnAlert(rec.record)
	unsubscribe()

	w.runCycle(context.Background())
	w.runCycle(context.Background())
	if rec.count() != 0 {
		t.Fatalf("duplicate's unsubscribe must remove the shared subscription, got %d", rec.count())
	}
}

// 不同回调各自独立订阅，互不影响地收到告警，取消互不串扰
func TestIndependentSubscriptions(t *testing.T) {
	balances := &fakeBalances{sequences: map[string][]decimal.Decimal{
		"0xaaa": {decimal.NewFromInt(1000), decimal.NewFromInt(500), decimal.NewFromInt(250)},
	}}
	w := newTestWatcher(balances)
	if err := w.Initialize("0xtoken", "TKN", "BSC", classified("0xaaa")); err != nil {
		t.Fatal(err)
	}

	first := &alertRecorder{}
	second := &alertRecorder{}
	unsubscribeFirst := w.OnAlert(func(a model.SellAlert) { first.record(a) })
	w.OnAlert(func(a model.SellAlert) { second.record(a) })

	w.runCycle(context.Background())
	w.runCycle(context.Background())
	if first.count() != 1 || second.count() != 1 {
		t.Fatalf("both subscribers must fire, got %d / %d", first.count(), second.count())
	}

	unsubscribeFirst()
	w.runCycle(context.Background())
	if first.count() != 1 {
		t.Fatalf("cancelled subscriber must stop firing, got %d", first.count())
	}
	if second.count() != 2 {
		t.Fatalf("remaining subscriber must keep firing, got %d", second.count())
	}
}

// 订阅者panic被隔离，其余订阅者照常收到告警
func TestSubscriberPanicIsolation(t *testing.T) {
	balances := &fakeBalances{sequences: map[string][]decimal.Decimal{
		"0xaaa": {decimal.NewFromInt(1000), decimal.NewFromInt(500)},
	}}
	w := newTestWatcher(balances)
	if err := w.Initialize("0xtoken", "TKN", "BSC", classified("0xaaa")); err != nil {
		t.Fatal(err)
	}

	rec := &alertRecorder{}
	w.OnAlert(func(model.SellAlert) { panic("bad subscriber") })
	w.OnAlert(rec.record)

	w.runCycle(context.Background())
	w.runCycle(context.Background())
	if rec.count() != 1 {
		t.Fatalf("healthy subscriber must still fire, got %d", rec.count())
	}
}

func TestStatusDefaults(t *testing.T) {
	w := newTestWatcher(&fakeBalances{})
	st := w.Status()
	if st.IsMonitoring || st.Connected || st.WalletCount != 0 || st.LastChecked != nil {
		t.Fatalf("unexpected default status: %+v", st)
	}
}

func TestReinitializeWhileRunning(t *testing.T) {
	balances := &fakeBalances{sequences: map[string][]decimal.Decimal{
		"0xaaa": {decimal.NewFromInt(1000)},
	}}
	w := newTestWatcher(balances)
	if err := w.Initialize("0xtoken", "TKN", "BSC", classified("0xaaa")); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := w.Initialize("0xtoken", "TKN", "BSC", classified("0xbbb")); err == nil {
		t.Fatal("re-initialize while running must be rejected")
	}
}
