package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"cleansight-dashboard/internal/config"
	"cleansight-dashboard/internal/logging"
	"cleansight-dashboard/internal/models"
	"cleansight-dashboard/internal/store"
	"cleansight-dashboard/internal/utils"
)

// Notifier pushes a Telegram message to the operator channel for every
// newly seen pending alert. A per-location cooldown suppresses the bursts
// the detector produces while the same garbage stays in frame.
type Notifier struct {
	logger   *logging.Logger
	bot      *bot.Bot
	chatID   int64
	cooldown time.Duration

	queue   chan models.Alert
	limiter *rate.Limiter
	ctx     context.Context
	cancel  context.CancelFunc

	mu           sync.Mutex
	seen         map[models.AlertID]bool
	lastAlertFor map[string]time.Time
}

func New(cfg config.Config, logger *logging.Logger) (*Notifier, error) {
	b, err := bot.New(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Notifier{
		logger:       logger,
		bot:          b,
		chatID:       cfg.Telegram.ChatID,
		cooldown:     cfg.Telegram.Cooldown,
		queue:        make(chan models.Alert, cfg.Notify.QueueSize),
		limiter:      rate.NewLimiter(rate.Limit(1), 5),
		ctx:          ctx,
		cancel:       cancel,
		seen:         make(map[models.AlertID]bool),
		lastAlertFor: make(map[string]time.Time),
	}, nil
}

// Attach subscribes the notifier to store changes.
func (n *Notifier) Attach(st *store.Store) {
	st.OnChange(func(ch store.Change) {
		if ch.Op != store.OpUpsert || ch.Alert == nil {
			return
		}
		if alert := *ch.Alert; n.shouldNotify(alert) {
			select {
			case n.queue <- alert:
			default:
				n.logger.Errorf("Notify queue full, dropping alert %s", alert.ID)
			}
		}
	})
}

// shouldNotify applies the seen-id and per-location cooldown filters.
func (n *Notifier) shouldNotify(alert models.Alert) bool {
	if alert.Status != models.StatusPending || alert.Unconfirmed {
		return false
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.seen[alert.ID] {
		return false
	}
	n.seen[alert.ID] = true

	now := time.Now()
	if last, ok := n.lastAlertFor[alert.Location]; ok && now.Sub(last) < n.cooldown {
		return false
	}
	n.lastAlertFor[alert.Location] = now
	return true
}

// Start launches the sender workers.
func (n *Notifier) Start(wg *sync.WaitGroup, workers int) {
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go n.worker(wg, i)
	}
}

// Stop cancels the workers.
func (n *Notifier) Stop() {
	n.cancel()
}

func (n *Notifier) worker(wg *sync.WaitGroup, id int) {
	defer wg.Done()
	for {
		select {
		case <-n.ctx.Done():
			n.logger.Infof("Notify worker %d stopped", id)
			return
		case alert := <-n.queue:
			if err := n.send(alert); err != nil {
				n.logger.Errorf("Telegram dispatch for alert %s failed: %v", alert.ID, err)
			} else {
				n.logger.Infof("Telegram alert sent for %s at %s", alert.ID, alert.Location)
			}
		}
	}
}

func (n *Notifier) send(alert models.Alert) error {
	if err := n.limiter.Wait(n.ctx); err != nil {
		return fmt.Errorf("telegram rate limit wait: %w", err)
	}

	text := fmt.Sprintf(
		"*New %s alert*\n%s\n\n*Location:* %s\n*Time:* %s",
		alert.Kind(),
		alert.Message,
		alert.Location,
		alert.Timestamp.Format("2006-01-02 15:04:05"),
	)

	return utils.Retry(n.logger, 3, time.Second, func() error {
		params := &bot.SendMessageParams{
			ChatID:    n.chatID,
			Text:      text,
			ParseMode: "Markdown",
		}
		if _, err := n.bot.SendMessage(n.ctx, params); err != nil {
			return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", n.chatID, err)
		}
		return nil
	})
}
