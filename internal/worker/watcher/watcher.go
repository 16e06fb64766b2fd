package watcher

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"

	"web3-sentry/internal/worker/config"
	"web3-sentry/internal/worker/model"
	"web3-sentry/internal/worker/monitor"
	"web3-sentry/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

var (
	// ErrNotInitialized Start在Initialize之前被调用
	ErrNotInitialized = errors.New("watcher not initialized")
	// ErrInvalidWallets Initialize收到非法的钱包列表
	ErrInvalidWallets = errors.New("invalid wallet list")
)

// BalanceProvider 钱包余额数据源
type BalanceProvider interface {
	FetchBalance(ctx context.Context, network, tokenAddr, wallet string) (decimal.Decimal, error)
}

// PriceSource USD价格源，查不到返回0
type PriceSource interface {
	GetPrice(ctx context.Context, network, tokenAddr string) decimal.Decimal
}

// AlertDispatcher 告警外发。尽力而为，不阻塞也不影响检测路径
type AlertDispatcher interface {
	Dispatch(ctx context.Context, alert model.SellAlert)
}

type AlertCallback func(model.SellAlert)
type UpdateCallback func(model.WalletUpdate)

// Watcher 实时监控器。生命周期：未初始化 → 已初始化 → 监控中 → 停止。
// 监控钱包集合由本实例独占持有，所有修改都在w.mu保护下进行；
// 轮询周期不重叠（cycleActive守卫），因此单个钱包的状态更新天然串行
type Watcher struct {
	cfg        config.WatcherConfig
	balances   BalanceProvider
	prices     PriceSource
	dispatcher AlertDispatcher
	tl         *zap.Logger

	mu          sync.Mutex
	initialized bool
	running     bool
	cycleActive bool
	connected   bool
	lastChecked *time.Time
	tokenAddr   string
	tokenSymbol string
	network     string
	wallets     map[string]*model.MonitoredWallet
	cancel      context.CancelFunc
	done        chan struct{}

	subMu      sync.Mutex
	subSeq     uint64
	alertSubs  map[uint64]alertSub
	updateSubs map[uint64]updateSub
}

// 订阅表按单调递增句柄索引，取消订阅不依赖函数指针的唯一性。
// 函数代码指针只用来挡掉同一引用的重复注册
type alertSub struct {
	key uintptr
	cb  AlertCallback
}

type updateSub struct {
	key uintptr
	cb  UpdateCallback
}

func New(cfg config.WatcherConfig, balances BalanceProvider, prices PriceSource, dispatcher AlertDispatcher, tl *zap.Logger) *Watcher {
	return &Watcher{
		cfg:        cfg,
		balances:   balances,
		prices:     prices,
		dispatcher: dispatcher,
		tl:         tl,
		alertSubs:  make(map[uint64]alertSub),
		updateSubs: make(map[uint64]updateSub),
	}
}

// Initialize 装载待监控钱包，地址统一小写作key。重复初始化会清空之前的集合。
// wallets为nil视为非法输入；空列表合法，只是无事可做
func (w *Watcher) Initialize(tokenAddr, tokenSymbol, network string, wallets []model.ClassifiedWallet) error {
	if wallets == nil {
		return ErrInvalidWallets
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return errors.New("cannot re-initialize while monitoring, stop first")
	}

	w.tokenAddr = utils.NormalizeAddress(tokenAddr)
	w.tokenSymbol = tokenSymbol
	w.network = network
	w.wallets = make(map[string]*model.MonitoredWallet, len(wallets))
	for _, cw := range wallets {
		addr := utils.NormalizeAddress(cw.Address)
		if addr == "" {
			continue
		}
		w.wallets[addr] = &model.MonitoredWallet{
			Address:         addr,
			Type:            cw.Classification.Type,
			TokenAddress:    w.tokenAddr,
			Network:         network,
			TotalVolumeSold: decimal.Zero,
			IsActive:        true,
		}
	}
	w.initialized = true

	w.tl.Info("watcher initialized",
		zap.String("token", w.tokenAddr),
		zap.String("network", network),
		zap.Int("wallets", len(w.wallets)))
	return nil
}

// Start 启动轮询。未初始化时报错；重复调用是无害的空操作。
// 非阻塞：首个周期排上日程后立即返回
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.initialized {
		return ErrNotInitialized
	}
	if w.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.loop(ctx, w.done)

	w.tl.Info("watcher started",
		zap.Int("interval_sec", w.cfg.PollIntervalSec),
		zap.Int("batch_size", w.cfg.BatchSize))
	return nil
}

// Stop 停止轮询并清空监控集合。未在监控时调用是空操作。
// 在途批次会跑完，但不再调度新的批次
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.mu.Lock()
	w.running = false
	w.initialized = false
	w.connected = false
	w.wallets = nil
	w.mu.Unlock()

	w.tl.Info("watcher stopped")
}

// Status 状态快照。任何时刻可调用，无副作用
func (w *Watcher) Status() model.MonitorStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	return model.MonitorStatus{
		IsMonitoring: w.running,
		WalletCount:  len(w.wallets),
		Connected:    w.connected,
		LastChecked:  w.lastChecked,
	}
}

// OnAlert 注册告警回调，返回取消函数。同一函数引用重复注册只生效一次，
// 重复注册拿到的取消函数指向已有的那份订阅
func (w *Watcher) OnAlert(cb AlertCallback) func() {
	key := reflect.ValueOf(cb).Pointer()
	w.subMu.Lock()
	defer w.subMu.Unlock()

	for id, sub := range w.alertSubs {
		if sub.key == key {
			return w.dropAlertSub(id)
		}
	}

	w.subSeq++
	id := w.subSeq
	w.alertSubs[id] = alertSub{key: key, cb: cb}
	return w.dropAlertSub(id)
}

func (w *Watcher) dropAlertSub(id uint64) func() {
	return func() {
		w.subMu.Lock()
		delete(w.alertSubs, id)
		w.subMu.Unlock()
	}
}

// OnWalletUpdate 注册每轮钱包状态回调，返回取消函数
func (w *Watcher) OnWalletUpdate(cb UpdateCallback) func() {
	key := reflect.ValueOf(cb).Pointer()
	w.subMu.Lock()
	defer w.subMu.Unlock()

	for id, sub := range w.updateSubs {
		if sub.key == key {
			return w.dropUpdateSub(id)
		}
	}

	w.subSeq++
	id := w.subSeq
	w.updateSubs[id] = updateSub{key: key, cb: cb}
	return w.dropUpdateSub(id)
}

func (w *Watcher) dropUpdateSub(id uint64) func() {
	return func() {
		w.subMu.Lock()
		delete(w.updateSubs, id)
		w.subMu.Unlock()
	}
}

func (w *Watcher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Duration(w.cfg.PollIntervalSec) * time.Second)
	defer ticker.Stop()

	// 立即跑第一轮
	w.runCycle(ctx)

	for {
		select {
		case <-ticker.C:
			w.runCycle(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// runCycle 一次完整的错峰轮询：固定大小分批，批内并发、批间串行加延迟。
// 上一轮还没跑完时跳过本次tick
func (w *Watcher) runCycle(ctx context.Context) {
	w.mu.Lock()
	if w.cycleActive {
		w.mu.Unlock()
		monitor.PollCyclesSkipped.Inc()
		w.tl.Warn("previous poll cycle still running, skipping tick")
		return
	}
	w.cycleActive = true
	addrs := make([]string, 0, len(w.wallets))
	for addr := range w.wallets {
		addrs = append(addrs, addr)
	}
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.cycleActive = false
		w.mu.Unlock()
	}()

	start := time.Now()
	batchSize := w.cfg.BatchSize
	batchDelay := time.Duration(w.cfg.BatchDelaySec) * time.Second
	successes := 0
	var successMu sync.Mutex

	for batchStart := 0; batchStart < len(addrs); batchStart += batchSize {
		if ctx.Err() != nil {
			return
		}

		end := batchStart + batchSize
		if end > len(addrs) {
			end = len(addrs)
		}

		worker := pool.New().WithMaxGoroutines(end - batchStart)
		for _, addr := range addrs[batchStart:end] {
			walletAddr := addr
			worker.Go(func() {
				if w.checkWallet(ctx, walletAddr) {
					successMu.Lock()
					successes++
					successMu.Unlock()
				}
			})
		}
		worker.Wait()

		if end < len(addrs) {
			select {
			case <-time.After(batchDelay):
			case <-ctx.Done():
				return
			}
		}
	}

	now := time.Now()
	w.mu.Lock()
	w.lastChecked = &now
	w.connected = successes > 0 || len(addrs) == 0
	w.mu.Unlock()

	monitor.PollCyclesTotal.Inc()
	monitor.PollCycleDuration.Observe(time.Since(start).Seconds())
	w.tl.Debug("poll cycle done",
		zap.Int("wallets", len(addrs)),
		zap.Int("successes", successes),
		zap.Duration("elapsed", time.Since(start)))
}

// checkWallet 单个钱包的一次检查。任何失败只跳过本轮，不动既有状态。
// 返回是否成功完成检查
func (w *Watcher) checkWallet(ctx context.Context, addr string) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			w.tl.Error("wallet check panicked", zap.String("wallet", addr), zap.Any("panic", rec))
			monitor.WalletChecksTotal.WithLabelValues("failed").Inc()
			ok = false
		}
	}()

	balance, err := w.balances.FetchBalance(ctx, w.network, w.tokenAddr, addr)
	if err != nil {
		w.tl.Debug("balance fetch failed, skipping wallet this cycle",
			zap.String("wallet", addr),
			zap.Error(err))
		monitor.WalletChecksTotal.WithLabelValues("failed").Inc()
		return false
	}

	now := time.Now()

	w.mu.Lock()
	mw, exists := w.wallets[addr]
	if !exists || !mw.IsActive {
		w.mu.Unlock()
		monitor.WalletChecksTotal.WithLabelValues("skipped").Inc()
		return false
	}

	// 首次观测只建立基线，绝不触发告警
	if mw.LastBalance == nil {
		b := balance
		mw.LastBalance = &b
		mw.LastChecked = &now
		walletType := mw.Type
		w.mu.Unlock()

		monitor.WalletChecksTotal.WithLabelValues("ok").Inc()
		w.emitUpdate(ctx, addr, walletType, balance, decimal.Zero)
		return true
	}

	prev := *mw.LastBalance
	walletType := mw.Type
	w.mu.Unlock()

	var alert *model.SellAlert
	if prev.IsPositive() {
		delta := prev.Sub(balance)
		if delta.IsPositive() {
			changePct := delta.Div(prev).Mul(decimal.NewFromInt(100))
			// 严格大于阈值才算卖出，恰好等于不触发
			if changePct.GreaterThan(decimal.NewFromFloat(w.cfg.SellThresholdPct)) {
				alert = w.buildSellAlert(ctx, addr, walletType, prev, balance, delta, changePct)
			}
		}
	}

	// 告警已经基于旧余额构造完毕，这里才允许覆盖
	w.mu.Lock()
	b := balance
	mw.LastBalance = &b
	mw.LastChecked = &now
	totalSold := mw.TotalVolumeSold
	w.mu.Unlock()

	monitor.WalletChecksTotal.WithLabelValues("ok").Inc()

	if alert != nil {
		w.fanOutAlert(ctx, *alert)
	}
	w.emitUpdate(ctx, addr, walletType, balance, totalSold)
	return true
}

// buildSellAlert 构造卖出告警并推进该钱包的累计计数
func (w *Watcher) buildSellAlert(ctx context.Context, addr string, walletType model.WalletType, prev, current, delta, changePct decimal.Decimal) *model.SellAlert {
	price := w.prices.GetPrice(ctx, w.network, w.tokenAddr)
	usdValue := decimal.Zero
	if price.IsPositive() {
		usdValue = delta.Mul(price)
	}

	w.mu.Lock()
	if mw, exists := w.wallets[addr]; exists {
		mw.AlertCount++
		mw.TotalVolumeSold = mw.TotalVolumeSold.Add(usdValue)
	}
	w.mu.Unlock()

	alert := &model.SellAlert{
		ID:               utils.AlertID(),
		WalletAddress:    addr,
		WalletType:       walletType,
		TokenAddress:     w.tokenAddr,
		TokenSymbol:      w.tokenSymbol,
		Network:          w.network,
		AmountSold:       delta,
		USDValue:         usdValue,
		PreviousBalance:  prev,
		NewBalance:       current,
		ChangePercentage: changePct.StringFixed(2),
		Timestamp:        time.Now(),
		ExplorerLink:     utils.ExplorerAddressLink(w.network, utils.ChecksumAddress(addr, w.network)),
	}

	monitor.SellAlertsEmitted.WithLabelValues(string(walletType)).Inc()
	w.tl.Info("sell detected",
		zap.String("wallet", addr),
		zap.String("type", string(walletType)),
		zap.String("amount", delta.String()),
		zap.String("change_pct", alert.ChangePercentage),
		zap.String("usd", usdValue.StringFixed(2)))

	return alert
}

// fanOutAlert 同步通知所有订阅者（逐个隔离panic），再把告警交给外发通道
func (w *Watcher) fanOutAlert(ctx context.Context, alert model.SellAlert) {
	w.subMu.Lock()
	subs := make([]AlertCallback, 0, len(w.alertSubs))
	for _, sub := range w.alertSubs {
		subs = append(subs, sub.cb)
	}
	w.subMu.Unlock()

	for _, cb := range subs {
		w.invokeAlertCallback(cb, alert)
	}

	if w.dispatcher != nil {
		// 外发失败不影响检测路径；停止监控也不丢在途告警
		go func() {
			dispatchCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			w.dispatcher.Dispatch(dispatchCtx, alert)
		}()
	}
}

func (w *Watcher) invokeAlertCallback(cb AlertCallback, alert model.SellAlert) {
	defer func() {
		if rec := recover(); rec != nil {
			w.tl.Error("alert subscriber panicked", zap.Any("panic", rec))
		}
	}()
	cb(alert)
}

// emitUpdate 向订阅者推送本轮钱包状态
func (w *Watcher) emitUpdate(ctx context.Context, addr string, walletType model.WalletType, balance, totalSold decimal.Decimal) {
	w.subMu.Lock()
	if len(w.updateSubs) == 0 {
		w.subMu.Unlock()
		return
	}
	subs := make([]UpdateCallback, 0, len(w.updateSubs))
	for _, sub := range w.updateSubs {
		subs = append(subs, sub.cb)
	}
	w.subMu.Unlock()

	price := w.prices.GetPrice(ctx, w.network, w.tokenAddr)
	usdValue := balance.Mul(price)

	sellPressure := decimal.Zero
	if total := usdValue.Add(totalSold); total.IsPositive() {
		sellPressure = totalSold.Div(total)
	}

	update := model.WalletUpdate{
		Address:      addr,
		Type:         walletType,
		Balance:      balance,
		USDValue:     usdValue,
		SellPressure: sellPressure,
		IsActive:     true,
		CheckedAt:    time.Now(),
	}

	for _, cb := range subs {
		w.invokeUpdateCallback(cb, update)
	}
}

func (w *Watcher) invokeUpdateCallback(cb UpdateCallback, update model.WalletUpdate) {
	defer func() {
		if rec := recover(); rec != nil {
			w.tl.Error("wallet update subscriber panicked", zap.Any("panic", rec))
		}
	}()
	cb(update)
}
