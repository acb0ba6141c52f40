package auditlog

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iurnickita/shopsync/internal/auditlog/config"
	"github.com/iurnickita/shopsync/internal/metrics"
	"github.com/iurnickita/shopsync/internal/model"
)

// Статусы записей журнала
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
	StatusRetry   = "retry"
)

// Entry - запись журнала действий. Payload сериализуется в JSON.
type Entry struct {
	StoreID    int64
	Type       string
	ResourceID string
	Status     string
	Message    string
	Payload    any
}

// Logger пишет журнал действий без ожидания и без возврата ошибок.
type Logger interface {
	Log(e Entry)
	Close()
}

// Writer - постоянное хранилище журнала (store.Store).
type Writer interface {
	ActionLogInsert(ctx context.Context, rec model.ActionLog) error
}

// Publisher - дополнительный поток событий (kafka).
type Publisher interface {
	Publish(ctx context.Context, rec model.ActionLog) error
	Close() error
}

const writeTimeout = 5 * time.Second

type logger struct {
	writer    Writer
	publisher Publisher
	zaplog    *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan model.ActionLog
	done   chan struct{}
}

// NewLogger запускает фоновую запись. publisher может быть nil.
func NewLogger(cfg config.Config, writer Writer, publisher Publisher, zaplog *zap.Logger) Logger {
	size := cfg.QueueSize
	if size <= 0 {
		size = 1024
	}
	l := &logger{
		writer:    writer,
		publisher: publisher,
		zaplog:    zaplog,
		queue:     make(chan model.ActionLog, size),
		done:      make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *logger) Log(e Entry) {
	rec := model.ActionLog{
		StoreID:    e.StoreID,
		Type:       e.Type,
		ResourceID: e.ResourceID,
		Status:     e.Status,
		Message:    e.Message,
		CreatedAt:  time.Now().UTC(),
	}
	if e.Payload != nil {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			l.zaplog.Warn("action log payload", zap.String("type", e.Type), zap.Error(err))
		} else {
			rec.Payload = payload
		}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- rec:
	default:
		// очередь заполнена, запись теряется
		metrics.AuditDroppedTotal.Inc()
		l.zaplog.Warn("action log dropped", zap.String("type", rec.Type), zap.Int64("store_id", rec.StoreID))
	}
}

func (l *logger) run() {
	defer close(l.done)
	for rec := range l.queue {
		l.write(rec)
	}
}

func (l *logger) write(rec model.ActionLog) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if l.writer != nil {
		if err := l.writer.ActionLogInsert(ctx, rec); err != nil {
			l.zaplog.Error("action log insert", zap.String("type", rec.Type), zap.Error(err))
		}
	}
	if l.publisher != nil {
		if err := l.publisher.Publish(ctx, rec); err != nil {
			l.zaplog.Error("action log publish", zap.String("type", rec.Type), zap.Error(err))
		}
	}
}

// Close дописывает очередь и останавливает запись.
func (l *logger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	<-l.done
	if l.publisher != nil {
		if err := l.publisher.Close(); err != nil {
			l.zaplog.Warn("action log publisher close", zap.Error(err))
		}
	}
}

type nop struct{}

// Nop - журнал, который ничего не пишет.
func Nop() Logger { return nop{} }

func (nop) Log(Entry) {}
func (nop) Close()    {}
