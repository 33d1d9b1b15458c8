package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/qabbs/models"
)

// Cascade kinds run through the saga runner.
const (
	SagaDeleteAnswer   = "delete_answer"
	SagaDeleteQuestion = "delete_question"
	SagaDeleteUser     = "delete_user"
)

var errUnknownSaga = errors.New("no handler registered for saga kind")

type sagaIDKey struct{}

func withSagaID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sagaIDKey{}, id)
}

func sagaIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(sagaIDKey{}).(string)
	return id
}

// Plan is the ordered list of steps of one cascade. Steps run inside a single
// transaction; a failing step rolls back every earlier step with it.
type Plan struct {
	steps []planStep
}

type planStep struct {
	name string
	run  func(ctx context.Context, tx *gorm.DB) error
}

// AddStep appends a named step.
func (p *Plan) AddStep(name string, run func(ctx context.Context, tx *gorm.DB) error) {
	p.steps = append(p.steps, planStep{name: name, run: run})
}

// Names lists the step names in execution order.
func (p *Plan) Names() []string {
	out := make([]string, 0, len(p.steps))
	for _, s := range p.steps {
		out = append(out, s.name)
	}
	return out
}

func (p *Plan) execute(ctx context.Context, tx *gorm.DB) error {
	for _, s := range p.steps {
		if err := s.run(ctx, tx); err != nil {
			return fmt.Errorf("step %s: %w", s.name, err)
		}
	}
	return nil
}

// SagaHandler inspects current state inside tx, checks preconditions and returns
// the steps to run. Planning from current state makes a replay safe.
type SagaHandler func(ctx context.Context, tx *gorm.DB, payload []byte) (*Plan, error)

// SagaRunner persists the intent of a cascade before running it so that an
// interrupted cascade is replayed by Resume.
type SagaRunner struct {
	db          *gorm.DB
	logger      *zap.Logger
	maxAttempts int

	mu       sync.RWMutex
	handlers map[string]SagaHandler
}

// NewSagaRunner creates a SagaRunner. maxAttempts bounds Resume replays.
func NewSagaRunner(db *gorm.DB, logger *zap.Logger, maxAttempts int) *SagaRunner {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &SagaRunner{
		db:          db,
		logger:      logger.Named("saga"),
		maxAttempts: maxAttempts,
		handlers:    make(map[string]SagaHandler),
	}
}

// Register binds a handler to a cascade kind.
func (r *SagaRunner) Register(kind string, h SagaHandler) {
	r.mu.Lock()
	r.handlers[kind] = h
	r.mu.Unlock()
}

func (r *SagaRunner) handler(kind string) (SagaHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[kind]
	return h, ok
}

// Start records a pending saga log for payload and runs it.
func (r *SagaRunner) Start(ctx context.Context, kind string, payload any) (string, error) {
	if _, ok := r.handler(kind); !ok {
		return "", fmt.Errorf("%w: %s", errUnknownSaga, kind)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode saga payload: %w", err)
	}

	entry := models.SagaLog{
		ID:      uuid.NewString(),
		Kind:    kind,
		Payload: string(body),
		Status:  models.SagaPending,
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return "", fmt.Errorf("record saga intent: %w", err)
	}

	return entry.ID, r.run(ctx, &entry)
}

func (r *SagaRunner) run(ctx context.Context, entry *models.SagaLog) error {
	h, ok := r.handler(entry.Kind)
	if !ok {
		return fmt.Errorf("%w: %s", errUnknownSaga, entry.Kind)
	}
	ctx = withSagaID(ctx, entry.ID)

	var steps []string
	err := transact(ctx, r.db, func(tx *gorm.DB) error {
		plan, err := h(ctx, tx, []byte(entry.Payload))
		if err != nil {
			return err
		}
		if err := plan.execute(ctx, tx); err != nil {
			return err
		}
		steps = plan.Names()
		return tx.Model(&models.SagaLog{}).Where("id = ?", entry.ID).Updates(map[string]interface{}{
			"status":   models.SagaCompleted,
			"steps":    strings.Join(steps, ","),
			"attempts": gorm.Expr("attempts + 1"),
			"error":    "",
		}).Error
	})
	if err == nil {
		entry.Status = models.SagaCompleted
		entry.Steps = strings.Join(steps, ",")
		r.logger.Info("saga completed",
			zap.String("saga_id", entry.ID),
			zap.String("kind", entry.Kind),
			zap.Strings("steps", steps))
		return nil
	}

	status := models.SagaFailed
	if KindOf(err) != KindInternal {
		status = models.SagaAborted
	}
	entry.Status = status
	entry.Error = err.Error()

	// The cascade context may already be cancelled; the outcome still has to be recorded.
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	// A concurrent run may have completed the saga already; that outcome stands.
	if uerr := r.db.WithContext(markCtx).Model(&models.SagaLog{}).
		Where("id = ? AND status <> ?", entry.ID, models.SagaCompleted).Updates(map[string]interface{}{
		"status":   status,
		"error":    err.Error(),
		"attempts": gorm.Expr("attempts + 1"),
	}).Error; uerr != nil {
		r.logger.Error("failed to record saga outcome", zap.String("saga_id", entry.ID), zap.Error(uerr))
	}

	if status == models.SagaFailed {
		r.logger.Warn("saga failed", zap.String("saga_id", entry.ID), zap.String("kind", entry.Kind), zap.Error(err))
	}
	return err
}

// Resume replays pending or failed sagas last touched before staleAfter ago.
// It returns the number of sagas that completed.
func (r *SagaRunner) Resume(ctx context.Context, staleAfter time.Duration) (int, error) {
	var entries []models.SagaLog
	err := r.db.WithContext(ctx).
		Where("status IN ? AND attempts < ? AND updated_at <= ?",
			[]string{models.SagaPending, models.SagaFailed}, r.maxAttempts, time.Now().Add(-staleAfter)).
		Order("created_at ASC").
		Limit(100).
		Find(&entries).Error
	if err != nil {
		return 0, fmt.Errorf("load stale sagas: %w", err)
	}

	completed := 0
	for i := range entries {
		if err := ctx.Err(); err != nil {
			return completed, err
		}
		if err := r.run(ctx, &entries[i]); err != nil {
			continue
		}
		completed++
	}
	return completed, nil
}

// StartRecovery periodically resumes stale sagas until ctx is done.
func (r *SagaRunner) StartRecovery(ctx context.Context, interval, staleAfter time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := r.Resume(ctx, staleAfter)
				if err != nil {
					r.logger.Warn("saga recovery failed", zap.Error(err))
					continue
				}
				if n > 0 {
					r.logger.Info("saga recovery resumed cascades", zap.Int("completed", n))
				}
			}
		}
	}()
}
