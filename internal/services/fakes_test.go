package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"invest/internal/models"
	"invest/internal/store"
	"invest/internal/websocket"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// memLedger is an in-memory stand-in for the Postgres tables. Transactions
// run one at a time and are rolled back when fn fails.
type memLedger struct {
	txMu sync.Mutex
	mu   sync.Mutex

	accounts     map[string]models.Account
	investments  map[string]models.Investment
	transactions []models.AccountTransaction
	audit        []string
	runs         []models.AccrualRun
}

func newMemLedger() *memLedger {
	return &memLedger{
		accounts:    make(map[string]models.Account),
		investments: make(map[string]models.Investment),
	}
}

type ledgerSnapshot struct {
	accounts     map[string]models.Account
	investments  map[string]models.Investment
	transactions int
	audit        int
}

func (l *memLedger) snapshot() ledgerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	snap := ledgerSnapshot{
		accounts:     make(map[string]models.Account, len(l.accounts)),
		investments:  make(map[string]models.Investment, len(l.investments)),
		transactions: len(l.transactions),
		audit:        len(l.audit),
	}
	for k, v := range l.accounts {
		snap.accounts[k] = v
	}
	for k, v := range l.investments {
		snap.investments[k] = v
	}
	return snap
}

func (l *memLedger) restore(snap ledgerSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts = snap.accounts
	l.investments = snap.investments
	l.transactions = l.transactions[:snap.transactions]
	l.audit = l.audit[:snap.audit]
}

func (l *memLedger) addAccount(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[id] = models.Account{ID: id, Role: "user", Balance: decimal.Zero, TotalInvested: decimal.Zero, TotalEarnings: decimal.Zero}
}

func (l *memLedger) putInvestment(inv models.Investment) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.investments[inv.ID] = inv
}

func (l *memLedger) account(id string) models.Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accounts[id]
}

func (l *memLedger) investment(id string) models.Investment {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.investments[id]
}

func (l *memLedger) transactionsFor(userID string) []models.AccountTransaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.AccountTransaction
	for _, entry := range l.transactions {
		if entry.UserID == userID {
			out = append(out, entry)
		}
	}
	return out
}

type memTxRunner struct {
	ledger *memLedger
}

func (r memTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	r.ledger.txMu.Lock()
	defer r.ledger.txMu.Unlock()
	snap := r.ledger.snapshot()
	if err := fn(nil); err != nil {
		r.ledger.restore(snap)
		return err
	}
	return nil
}

type memAccounts struct {
	ledger *memLedger
}

func (m memAccounts) GetByID(ctx context.Context, userID string) (models.Account, error) {
	m.ledger.mu.Lock()
	defer m.ledger.mu.Unlock()
	account, ok := m.ledger.accounts[userID]
	if !ok {
		return models.Account{}, sql.ErrNoRows
	}
	return account, nil
}

func (m memAccounts) Count(ctx context.Context) (int, error) {
	m.ledger.mu.Lock()
	defer m.ledger.mu.Unlock()
	return len(m.ledger.accounts), nil
}

func (m memAccounts) CreditEarnings(ctx context.Context, tx store.Execer, userID string, amount decimal.Decimal) (int64, error) {
	m.ledger.mu.Lock()
	defer m.ledger.mu.Unlock()
	account, ok := m.ledger.accounts[userID]
	if !ok {
		return 0, nil
	}
	account.Balance = account.Balance.Add(amount)
	account.TotalEarnings = account.TotalEarnings.Add(amount)
	m.ledger.accounts[userID] = account
	return 1, nil
}

func (m memAccounts) AddInvested(ctx context.Context, tx store.Execer, userID string, amount decimal.Decimal) (int64, error) {
	m.ledger.mu.Lock()
	defer m.ledger.mu.Unlock()
	account, ok := m.ledger.accounts[userID]
	if !ok {
		return 0, nil
	}
	account.TotalInvested = account.TotalInvested.Add(amount)
	m.ledger.accounts[userID] = account
	return 1, nil
}

func (m memAccounts) AppendTransaction(ctx context.Context, tx store.Execer, entry models.AccountTransaction) error {
	m.ledger.mu.Lock()
	defer m.ledger.mu.Unlock()
	m.ledger.transactions = append(m.ledger.transactions, entry)
	return nil
}

type memInvestments struct {
	ledger *memLedger
}

func (m memInvestments) Create(ctx context.Context, tx store.Execer, inv models.Investment) error {
	m.ledger.putInvestment(inv)
	return nil
}

func (m memInvestments) GetForUpdate(ctx context.Context, tx store.Getter, investmentID string) (models.Investment, error) {
	m.ledger.mu.Lock()
	defer m.ledger.mu.Unlock()
	inv, ok := m.ledger.investments[investmentID]
	if !ok {
		return models.Investment{}, sql.ErrNoRows
	}
	return inv, nil
}

func (m memInvestments) ListByUser(ctx context.Context, userID string) ([]models.Investment, error) {
	m.ledger.mu.Lock()
	defer m.ledger.mu.Unlock()
	var rows []models.Investment
	for _, inv := range m.ledger.investments {
		if inv.UserID == userID {
			rows = append(rows, inv)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return rows, nil
}

func (m memInvestments) ListActive(ctx context.Context) ([]models.Investment, error) {
	m.ledger.mu.Lock()
	defer m.ledger.mu.Unlock()
	var rows []models.Investment
	for _, inv := range m.ledger.investments {
		if inv.Status == models.StatusActive {
			rows = append(rows, inv)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (m memInvestments) Activate(ctx context.Context, tx store.Execer, input store.ActivationInput) (int64, error) {
	m.ledger.mu.Lock()
	defer m.ledger.mu.Unlock()
	inv, ok := m.ledger.investments[input.ID]
	if !ok || inv.Status != models.StatusPending {
		return 0, nil
	}
	at := input.At
	verifier := input.VerifiedBy
	inv.Status = models.StatusActive
	inv.StartDate = &at
	inv.LastEarningDate = &at
	inv.VerificationDate = &at
	inv.VerifiedBy = &verifier
	if input.ChatSessionID != nil {
		inv.ChatSessionID = input.ChatSessionID
	}
	m.ledger.investments[input.ID] = inv
	return 1, nil
}

func (m memInvestments) AdvanceAccrual(ctx context.Context, tx store.Execer, advance store.AccrualAdvance) (int64, error) {
	m.ledger.mu.Lock()
	defer m.ledger.mu.Unlock()
	inv, ok := m.ledger.investments[advance.ID]
	if !ok || inv.Status != models.StatusActive || inv.LastEarningDate == nil || !inv.LastEarningDate.Equal(advance.Previous) {
		return 0, nil
	}
	checkpoint := advance.Checkpoint
	inv.TotalReturn = inv.TotalReturn.Add(advance.Earnings)
	inv.DaysAccrued += advance.Days
	inv.LastEarningDate = &checkpoint
	if advance.Complete {
		inv.Status = models.StatusCompleted
	}
	m.ledger.investments[advance.ID] = inv
	return 1, nil
}

func (m memInvestments) Stats(ctx context.Context) ([]store.StatusStat, error) {
	m.ledger.mu.Lock()
	defer m.ledger.mu.Unlock()
	byStatus := make(map[models.Status]*store.StatusStat)
	for _, inv := range m.ledger.investments {
		stat, ok := byStatus[inv.Status]
		if !ok {
			stat = &store.StatusStat{Status: inv.Status, TotalAmount: decimal.Zero, TotalReturn: decimal.Zero}
			byStatus[inv.Status] = stat
		}
		stat.Count++
		stat.TotalAmount = stat.TotalAmount.Add(inv.Amount)
		stat.TotalReturn = stat.TotalReturn.Add(inv.TotalReturn)
	}
	var rows []store.StatusStat
	for _, stat := range byStatus {
		rows = append(rows, *stat)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Status < rows[j].Status })
	return rows, nil
}

func (m memInvestments) CountInvestors(ctx context.Context) (int, error) {
	m.ledger.mu.Lock()
	defer m.ledger.mu.Unlock()
	users := make(map[string]struct{})
	for _, inv := range m.ledger.investments {
		users[inv.UserID] = struct{}{}
	}
	return len(users), nil
}

type memAudit struct {
	ledger *memLedger
}

func (m memAudit) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	m.ledger.mu.Lock()
	defer m.ledger.mu.Unlock()
	m.ledger.audit = append(m.ledger.audit, action+":"+entityID)
	return nil
}

type memRuns struct {
	ledger *memLedger
}

func (m memRuns) Create(ctx context.Context, run models.AccrualRun) error {
	m.ledger.mu.Lock()
	defer m.ledger.mu.Unlock()
	m.ledger.runs = append(m.ledger.runs, run)
	return nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *recordingPublisher) count(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, k := range p.keys {
		if k == key {
			n++
		}
	}
	return n
}

type recordingHub struct {
	mu        sync.Mutex
	connected map[string]bool
	updates   []websocket.BalanceUpdate
}

func (h *recordingHub) Connected(userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected[userID]
}

func (h *recordingHub) BroadcastBalance(update websocket.BalanceUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, update)
}

type recordingMetrics struct {
	mu       sync.Mutex
	runs     int
	counts   map[string]int
	verified int
}

func (m *recordingMetrics) RunFinished(trigger string, startedAt time.Time, duration time.Duration, counts map[string]int, credited decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
	m.counts = counts
}

func (m *recordingMetrics) InvestmentVerified() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verified++
}

type accrualFixture struct {
	ledger    *memLedger
	publisher *recordingPublisher
	hub       *recordingHub
	metrics   *recordingMetrics
	job       *AccrualJob
	now       time.Time
}

func newAccrualFixture(now time.Time) *accrualFixture {
	ledger := newMemLedger()
	f := &accrualFixture{
		ledger:    ledger,
		publisher: &recordingPublisher{},
		hub:       &recordingHub{connected: map[string]bool{}},
		metrics:   &recordingMetrics{},
		now:       now,
	}
	f.job = f.newJob(memInvestments{ledger: ledger})
	return f
}

func (f *accrualFixture) newJob(investments InvestmentStore) *AccrualJob {
	job := NewAccrualJob(memTxRunner{ledger: f.ledger}, investments, memAccounts{ledger: f.ledger}, memRuns{ledger: f.ledger}, f.publisher, f.hub, f.metrics, zerolog.Nop())
	job.now = func() time.Time { return f.now }
	return job
}

func activeInvestment(id, userID string, plan models.PlanType, amount int64, last time.Time) models.Investment {
	principal := decimal.NewFromInt(amount)
	return models.Investment{
		ID:              id,
		UserID:          userID,
		PlanType:        plan,
		Amount:          principal,
		DailyReturn:     models.DailyReturnFor(plan, principal),
		TotalReturn:     decimal.Zero,
		Status:          models.StatusActive,
		StartDate:       &last,
		LastEarningDate: &last,
	}
}
