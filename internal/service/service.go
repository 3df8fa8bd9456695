// Package service implements the mutation-issuing code paths: online
// mutations go straight to the remote store, offline ones are queued with
// an optimistic local-cache update and a temporary id.
package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/mka6199/wagebook/internal/cache"
	apperrors "github.com/mka6199/wagebook/internal/errors"
	"github.com/mka6199/wagebook/internal/logging"
	"github.com/mka6199/wagebook/internal/models"
	"github.com/mka6199/wagebook/internal/netmon"
	"github.com/mka6199/wagebook/internal/opid"
	"github.com/mka6199/wagebook/internal/payroll"
	"github.com/mka6199/wagebook/internal/queue"
	"github.com/mka6199/wagebook/internal/remote"
)

// Service coordinates worker and payment mutations across the remote
// store, the durable queue and the local cache. Constructed once at app
// start and passed by reference to consumers; the single shared instance
// preserves the single-writer invariant on queue and cache.
type Service struct {
	remote   remote.Store
	queue    *queue.Queue
	cache    *cache.Cache
	monitor  *netmon.Monitor
	validate *validator.Validate
}

// New creates a Service.
func New(r remote.Store, q *queue.Queue, c *cache.Cache, m *netmon.Monitor) *Service {
	return &Service{
		remote:   r,
		queue:    q,
		cache:    c,
		monitor:  m,
		validate: validator.New(),
	}
}

// AddWorkerInput carries the fields of a new worker.
type AddWorkerInput struct {
	Name             string  `validate:"required,min=1,max=120"`
	Role             string  `validate:"max=120"`
	MonthlySalaryAED float64 `validate:"gte=0"`
	NextDueAt        int64   `validate:"gte=0"`
}

// AddWorker creates a worker. Online, the worker is written remotely and a
// Confirmed result with the remote id is returned. Offline (or when the
// remote write fails), the mutation is queued under a temporary id and a
// Queued result is returned; the temporary id is only valid until sync.
func (s *Service) AddWorker(ctx context.Context, in AddWorkerInput) (models.WriteResult, error) {
	if err := s.validate.Struct(in); err != nil {
		return models.WriteResult{}, apperrors.Wrap(apperrors.ErrValidation, "invalid worker", err)
	}

	w := models.Worker{
		Name:             in.Name,
		Role:             in.Role,
		MonthlySalaryAED: in.MonthlySalaryAED,
		Status:           models.WorkerStatusActive,
		NextDueAt:        in.NextDueAt,
		CreatedAt:        time.Now().UnixMilli(),
	}

	if s.monitor.IsOnline(ctx) {
		id, err := s.remote.CreateWorker(ctx, w)
		if err == nil {
			w.ID = id
			s.cacheUpsertWorker(ctx, w)
			return models.Confirmed(id), nil
		}
		logging.Warn("Remote worker create failed, queuing", logrus.Fields{"error": err.Error()})
	}

	w.ID = opid.NewTemp()
	if _, err := s.queue.Enqueue(ctx, models.OpAddWorker, w); err != nil {
		return models.WriteResult{}, err
	}
	s.cacheUpsertWorker(ctx, w)
	return models.Queued(w.ID), nil
}

// UpdateWorker applies a partial update. Recognized update keys are the
// JSON field names of Worker.
func (s *Service) UpdateWorker(ctx context.Context, id string, updates map[string]any) (models.WriteResult, error) {
	if id == "" || len(updates) == 0 {
		return models.WriteResult{}, apperrors.New(apperrors.ErrInvalid, "missing id or updates")
	}

	if s.monitor.IsOnline(ctx) && !opid.IsTemp(id) {
		err := s.remote.UpdateWorker(ctx, id, updates)
		if err == nil {
			s.cacheApplyWorkerUpdates(ctx, id, updates)
			return models.Confirmed(id), nil
		}
		logging.Warn("Remote worker update failed, queuing", logrus.Fields{"worker_id": id, "error": err.Error()})
	}

	if _, err := s.queue.Enqueue(ctx, models.OpUpdateWorker, models.UpdateData{ID: id, Updates: updates}); err != nil {
		return models.WriteResult{}, err
	}
	s.cacheApplyWorkerUpdates(ctx, id, updates)
	return models.Queued(id), nil
}

// DeleteWorker removes a worker. Delete is a hard remove once synced.
func (s *Service) DeleteWorker(ctx context.Context, id string) (models.WriteResult, error) {
	if id == "" {
		return models.WriteResult{}, apperrors.New(apperrors.ErrInvalid, "missing id")
	}

	if s.monitor.IsOnline(ctx) && !opid.IsTemp(id) {
		err := s.remote.DeleteWorker(ctx, id)
		if err == nil {
			s.cacheRemoveWorker(ctx, id)
			return models.Confirmed(id), nil
		}
		logging.Warn("Remote worker delete failed, queuing", logrus.Fields{"worker_id": id, "error": err.Error()})
	}

	if _, err := s.queue.Enqueue(ctx, models.OpDeleteWorker, models.DeleteData{ID: id}); err != nil {
		return models.WriteResult{}, err
	}
	s.cacheRemoveWorker(ctx, id)
	return models.Queued(id), nil
}

// RecordPaymentInput carries the fields of a new payment.
type RecordPaymentInput struct {
	WorkerID string  `validate:"required"`
	Amount   float64 `validate:"gt=0"`
	Bonus    float64 `validate:"gte=0"`
	Method   string  `validate:"max=40"`
	Month    string  `validate:"omitempty,len=7"` // "2006-01"
}

// RecordPayment records a salary payment for a worker, denormalizing the
// worker's name onto the payment and advancing the worker's next due date
// by one monthly cycle.
func (s *Service) RecordPayment(ctx context.Context, in RecordPaymentInput) (models.WriteResult, error) {
	if err := s.validate.Struct(in); err != nil {
		return models.WriteResult{}, apperrors.Wrap(apperrors.ErrValidation, "invalid payment", err)
	}

	now := time.Now()
	month := in.Month
	if month == "" {
		month = now.Format("2006-01")
	}

	p := models.Payment{
		WorkerID:  in.WorkerID,
		Amount:    in.Amount,
		Bonus:     in.Bonus,
		Method:    in.Method,
		Month:     month,
		PaidAt:    now.UnixMilli(),
		CreatedAt: now.UnixMilli(),
	}

	worker, found := s.cachedWorker(ctx, in.WorkerID)
	if found {
		p.WorkerName = worker.Name
	}

	result, err := s.writePayment(ctx, p)
	if err != nil {
		return models.WriteResult{}, err
	}

	// Advance the paid worker's due date to the next monthly cycle. Early
	// payments advance past the current due date, not just past now.
	if found && worker.NextDueAt != 0 {
		after := now
		if due := worker.NextDueTime(); due.After(after) {
			after = due
		}
		next := payroll.NextDueDate(worker.NextDueTime(), after)
		if _, err := s.UpdateWorker(ctx, worker.ID, map[string]any{"next_due_at": next.UnixMilli()}); err != nil {
			logging.Error("Failed to advance worker due date", err, logrus.Fields{"worker_id": worker.ID})
		}
	}

	return result, nil
}

// UpdatePayment applies an explicit admin edit to a synced payment.
func (s *Service) UpdatePayment(ctx context.Context, id string, updates map[string]any) (models.WriteResult, error) {
	if id == "" || len(updates) == 0 {
		return models.WriteResult{}, apperrors.New(apperrors.ErrInvalid, "missing id or updates")
	}

	if s.monitor.IsOnline(ctx) && !opid.IsTemp(id) {
		err := s.remote.UpdatePayment(ctx, id, updates)
		if err == nil {
			s.cacheApplyPaymentUpdates(ctx, id, updates)
			return models.Confirmed(id), nil
		}
		logging.Warn("Remote payment update failed, queuing", logrus.Fields{"payment_id": id, "error": err.Error()})
	}

	if _, err := s.queue.Enqueue(ctx, models.OpUpdatePayment, models.UpdateData{ID: id, Updates: updates}); err != nil {
		return models.WriteResult{}, err
	}
	s.cacheApplyPaymentUpdates(ctx, id, updates)
	return models.Queued(id), nil
}

// DeletePayment removes a payment.
func (s *Service) DeletePayment(ctx context.Context, id string) (models.WriteResult, error) {
	if id == "" {
		return models.WriteResult{}, apperrors.New(apperrors.ErrInvalid, "missing id")
	}

	if s.monitor.IsOnline(ctx) && !opid.IsTemp(id) {
		err := s.remote.DeletePayment(ctx, id)
		if err == nil {
			s.cacheRemovePayment(ctx, id)
			return models.Confirmed(id), nil
		}
		logging.Warn("Remote payment delete failed, queuing", logrus.Fields{"payment_id": id, "error": err.Error()})
	}

	if _, err := s.queue.Enqueue(ctx, models.OpDeletePayment, models.DeleteData{ID: id}); err != nil {
		return models.WriteResult{}, err
	}
	s.cacheRemovePayment(ctx, id)
	return models.Queued(id), nil
}

// Workers returns the cached worker snapshot. An empty result may mean "not
// loaded yet" rather than "confirmed empty".
func (s *Service) Workers(ctx context.Context) []models.Worker {
	return s.cache.LoadWorkers(ctx)
}

// Payments returns the cached payment snapshot.
func (s *Service) Payments(ctx context.Context) []models.Payment {
	return s.cache.LoadPayments(ctx)
}

func (s *Service) writePayment(ctx context.Context, p models.Payment) (models.WriteResult, error) {
	if s.monitor.IsOnline(ctx) {
		id, err := s.remote.CreatePayment(ctx, p)
		if err == nil {
			p.ID = id
			s.cacheUpsertPayment(ctx, p)
			return models.Confirmed(id), nil
		}
		logging.Warn("Remote payment create failed, queuing", logrus.Fields{"error": err.Error()})
	}

	p.ID = opid.NewTemp()
	if _, err := s.queue.Enqueue(ctx, models.OpAddPayment, p); err != nil {
		return models.WriteResult{}, err
	}
	s.cacheUpsertPayment(ctx, p)
	return models.Queued(p.ID), nil
}

func (s *Service) cachedWorker(ctx context.Context, id string) (models.Worker, bool) {
	for _, w := range s.cache.LoadWorkers(ctx) {
		if w.ID == id {
			return w, true
		}
	}
	return models.Worker{}, false
}

func (s *Service) cacheUpsertWorker(ctx context.Context, w models.Worker) {
	rows := s.cache.LoadWorkers(ctx)
	replaced := false
	for i := range rows {
		if rows[i].ID == w.ID {
			rows[i] = w
			replaced = true
			break
		}
	}
	if !replaced {
		rows = append(rows, w)
	}
	if err := s.cache.SaveWorkers(ctx, rows); err != nil {
		logging.Error("Failed to update workers cache", err, nil)
	}
}

func (s *Service) cacheRemoveWorker(ctx context.Context, id string) {
	rows := s.cache.LoadWorkers(ctx)
	out := rows[:0]
	for _, w := range rows {
		if w.ID != id {
			out = append(out, w)
		}
	}
	if err := s.cache.SaveWorkers(ctx, out); err != nil {
		logging.Error("Failed to update workers cache", err, nil)
	}
}

func (s *Service) cacheApplyWorkerUpdates(ctx context.Context, id string, updates map[string]any) {
	rows := s.cache.LoadWorkers(ctx)
	for i := range rows {
		if rows[i].ID != id {
			continue
		}
		applyWorkerUpdates(&rows[i], updates)
		break
	}
	if err := s.cache.SaveWorkers(ctx, rows); err != nil {
		logging.Error("Failed to update workers cache", err, nil)
	}
}

func (s *Service) cacheUpsertPayment(ctx context.Context, p models.Payment) {
	rows := s.cache.LoadPayments(ctx)
	replaced := false
	for i := range rows {
		if rows[i].ID == p.ID {
			rows[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		rows = append(rows, p)
	}
	if err := s.cache.SavePayments(ctx, rows); err != nil {
		logging.Error("Failed to update payments cache", err, nil)
	}
}

func (s *Service) cacheRemovePayment(ctx context.Context, id string) {
	rows := s.cache.LoadPayments(ctx)
	out := rows[:0]
	for _, p := range rows {
		if p.ID != id {
			out = append(out, p)
		}
	}
	if err := s.cache.SavePayments(ctx, out); err != nil {
		logging.Error("Failed to update payments cache", err, nil)
	}
}

func (s *Service) cacheApplyPaymentUpdates(ctx context.Context, id string, updates map[string]any) {
	rows := s.cache.LoadPayments(ctx)
	for i := range rows {
		if rows[i].ID != id {
			continue
		}
		applyPaymentUpdates(&rows[i], updates)
		break
	}
	if err := s.cache.SavePayments(ctx, rows); err != nil {
		logging.Error("Failed to update payments cache", err, nil)
	}
}

// applyWorkerUpdates mirrors a remote $set patch onto a cached worker.
// Unknown keys are ignored.
func applyWorkerUpdates(w *models.Worker, updates map[string]any) {
	for k, v := range updates {
		switch k {
		case "name":
			if s, ok := v.(string); ok {
				w.Name = s
			}
		case "role":
			if s, ok := v.(string); ok {
				w.Role = s
			}
		case "monthly_salary_aed":
			if f, ok := toFloat(v); ok {
				w.MonthlySalaryAED = f
			}
		case "status":
			if s, ok := v.(string); ok {
				w.Status = models.WorkerStatus(s)
			}
		case "next_due_at":
			if f, ok := toFloat(v); ok {
				w.NextDueAt = int64(f)
			}
		}
	}
}

func applyPaymentUpdates(p *models.Payment, updates map[string]any) {
	for k, v := range updates {
		switch k {
		case "amount":
			if f, ok := toFloat(v); ok {
				p.Amount = f
			}
		case "bonus":
			if f, ok := toFloat(v); ok {
				p.Bonus = f
			}
		case "method":
			if s, ok := v.(string); ok {
				p.Method = s
			}
		case "month":
			if s, ok := v.(string); ok {
				p.Month = s
			}
		}
	}
}

// toFloat accepts the numeric types a patch map may carry after JSON
// round-trips.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
