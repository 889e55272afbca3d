package approval

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/repository"
	"github.com/fastygo/greenbite/usecase"
)

// Metric labels.
const (
	resultApproved   = "approved"
	resultReconciled = "reconciled"
	resultFailed     = "failed"
	resultSent       = "sent"
	resultDeferred   = "deferred"
	resultDeleted    = "deleted"
	resultDenied     = "denied"
)

type Config struct {
	// ConfirmSecret must be supplied verbatim to reject an NGO. Empty disables rejection.
	ConfirmSecret string
	// NotificationGrace is how long the relay leaves a fresh message to the inline send.
	NotificationGrace time.Duration
}

type UseCase struct {
	dir      repository.Directory
	outbox   repository.Outbox
	notifier usecase.Notifier
	metrics  usecase.WorkflowMetrics
	secret   []byte
	grace    time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func New(
	dir repository.Directory,
	outbox repository.Outbox,
	notifier usecase.Notifier,
	metrics usecase.WorkflowMetrics,
	cfg Config,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = usecase.NopMetrics{}
	}
	if cfg.NotificationGrace <= 0 {
		cfg.NotificationGrace = time.Minute
	}
	return &UseCase{
		dir:      dir,
		outbox:   outbox,
		notifier: notifier,
		metrics:  metrics,
		secret:   []byte(cfg.ConfirmSecret),
		grace:    cfg.NotificationGrace,
		logger:   logger,
		now:      time.Now,
	}
}

// Result describes a completed approval.
type Result struct {
	NgoID            string `json:"ngoId"`
	AlreadyApproved  bool   `json:"alreadyApproved"`
	NotificationSent bool   `json:"notificationSent"`
	Warning          string `json:"warning,omitempty"`
}

func (uc *UseCase) ListPending(ctx context.Context, actor domain.Profile) ([]domain.NgoProfile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return listNgos(ctx, uc.dir, domain.CollectionPendingNgos)
}

func (uc *UseCase) ListApproved(ctx context.Context, actor domain.Profile) ([]domain.NgoProfile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return listNgos(ctx, uc.dir, domain.CollectionNgos)
}

func (uc *UseCase) ListUsers(ctx context.Context, actor domain.Profile) ([]domain.UserProfile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	docs, err := uc.dir.List(ctx, domain.CollectionUsers)
	if err != nil {
		return nil, err
	}
	users := make([]domain.UserProfile, 0, len(docs))
	for i := range docs {
		var user domain.UserProfile
		if err := docs[i].Decode(&user); err != nil {
			uc.logger.Warn("skipping malformed user", zap.String("path", docs[i].Path), zap.Error(err))
			continue
		}
		if user.ID == "" {
			user.ID = docs[i].ID()
		}
		users = append(users, user)
	}
	return users, nil
}

// Approve moves pendingNgos/{id} to ngos/{id} and queues the welcome email in
// one transaction. An NGO that is already approved is reported as success
// without a second email. A failed send leaves the message to the relay and
// is returned as a warning, not an error.
func (uc *UseCase) Approve(ctx context.Context, actor domain.Profile, id string) (*Result, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, domain.Invalid("ngo id is required")
	}

	now := uc.now().UTC()
	result := &Result{NgoID: id}
	var (
		msg  *domain.OutboxMessage
		mail domain.ApprovalEmail
	)

	err := uc.dir.RunTx(ctx, func(tx repository.Tx) error {
		msg = nil
		result.AlreadyApproved = false

		doc, err := tx.Get(ctx, domain.PendingNgoPath(id))
		if errors.Is(err, domain.ErrDocumentNotFound) {
			approved, err := isApproved(ctx, tx, id)
			if err != nil {
				return err
			}
			if !approved {
				return domain.ErrNgoNotFound
			}
			result.AlreadyApproved = true
			return nil
		}
		if err != nil {
			return err
		}

		fields := map[string]interface{}{}
		if err := doc.Decode(&fields); err != nil {
			return domain.WrapError(domain.ErrCodeInternal, "decode pending ngo", err)
		}
		fields["id"] = id
		fields["approved"] = true
		fields["approvedAt"] = now
		if _, ok := fields["role"]; !ok {
			fields["role"] = domain.RoleNgo
		}

		if err := tx.Set(ctx, domain.NgoPath(id), fields); err != nil {
			return err
		}
		if err := tx.Delete(ctx, domain.PendingNgoPath(id)); err != nil {
			return err
		}

		mail = domain.ApprovalEmail{Email: stringField(fields, "email"), NgoName: stringField(fields, "name")}
		if mail.Email == "" {
			return nil
		}
		payload, err := json.Marshal(mail)
		if err != nil {
			return domain.WrapError(domain.ErrCodeInternal, "encode approval email", err)
		}
		msg = &domain.OutboxMessage{
			ID:            uuid.NewString(),
			Kind:          domain.OutboxApprovalEmail,
			Payload:       payload,
			NextAttemptAt: now.Add(uc.grace),
		}
		return tx.Enqueue(ctx, msg)
	})
	if err != nil {
		uc.metrics.Approval(resultFailed)
		return nil, err
	}

	log := uc.logger.With(zap.String("ngo_id", id))
	if result.AlreadyApproved {
		uc.metrics.Approval(resultReconciled)
		log.Info("ngo already approved")
		return result, nil
	}
	uc.metrics.Approval(resultApproved)

	if msg == nil {
		log.Warn("approved ngo has no email address")
		result.Warning = domain.ErrNotificationFailed.Message
		return result, nil
	}

	if err := uc.deliver(ctx, msg.ID, mail); err != nil {
		log.Warn("approval email deferred to relay", zap.String("message_id", msg.ID), zap.Error(err))
		result.Warning = domain.ErrNotificationFailed.Message
		return result, nil
	}
	result.NotificationSent = true
	log.Info("ngo approved")
	return result, nil
}

func (uc *UseCase) deliver(ctx context.Context, messageID string, mail domain.ApprovalEmail) error {
	now := uc.now().UTC()
	if uc.notifier == nil {
		uc.metrics.Notification(resultDeferred)
		return domain.Unavailable("notifier not configured", nil)
	}
	if err := uc.notifier.SendApprovalEmail(ctx, mail); err != nil {
		uc.metrics.Notification(resultDeferred)
		if markErr := uc.outbox.MarkFailed(ctx, messageID, err.Error(), now.Add(uc.grace), false); markErr != nil {
			uc.logger.Warn("outbox failure not recorded", zap.String("message_id", messageID), zap.Error(markErr))
		}
		return err
	}
	uc.metrics.Notification(resultSent)
	if err := uc.outbox.MarkDelivered(ctx, messageID, now); err != nil {
		uc.logger.Error("outbox delivery not recorded", zap.String("message_id", messageID), zap.Error(err))
	}
	return nil
}

// Reject deletes a pending or approved NGO record. The confirmation must match
// the configured secret; nothing is touched otherwise. Donations stored under
// the NGO are left in place.
func (uc *UseCase) Reject(ctx context.Context, actor domain.Profile, id string, pending bool, confirmation string) error {
	if err := requireAdmin(actor); err != nil {
		uc.metrics.Rejection(resultDenied)
		return err
	}
	if !uc.confirmed(confirmation) {
		uc.metrics.Rejection(resultDenied)
		return domain.ErrBadConfirmation
	}

	path := domain.NgoPath(id)
	if pending {
		path = domain.PendingNgoPath(id)
	}
	if err := uc.dir.Delete(ctx, path); err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return domain.ErrNgoNotFound
		}
		return err
	}
	uc.metrics.Rejection(resultDeleted)
	uc.logger.Info("ngo rejected", zap.String("ngo_id", id), zap.Bool("pending", pending))
	return nil
}

// Reconcile removes pending records whose NGO is already approved and returns
// how many were removed.
func (uc *UseCase) Reconcile(ctx context.Context) (int, error) {
	docs, err := uc.dir.List(ctx, domain.CollectionPendingNgos)
	if err != nil {
		return 0, err
	}

	removed := 0
	for i := range docs {
		id := docs[i].ID()
		err := uc.dir.RunTx(ctx, func(tx repository.Tx) error {
			approved, err := isApproved(ctx, tx, id)
			if err != nil || !approved {
				return err
			}
			if err := tx.Delete(ctx, domain.PendingNgoPath(id)); err != nil {
				if errors.Is(err, domain.ErrDocumentNotFound) {
					return nil
				}
				return err
			}
			removed++
			return nil
		})
		if err != nil {
			uc.logger.Warn("reconcile failed", zap.String("ngo_id", id), zap.Error(err))
		}
	}
	if removed > 0 {
		uc.logger.Info("stale pending ngos removed", zap.Int("count", removed))
	}
	return removed, nil
}

func (uc *UseCase) confirmed(confirmation string) bool {
	if len(uc.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(confirmation), uc.secret) == 1
}

// NotificationCommand replays a queued approval email through notifier.
func NotificationCommand(notifier usecase.Notifier) usecase.CommandHandler {
	return func(ctx context.Context, payload json.RawMessage) error {
		var mail domain.ApprovalEmail
		if err := json.Unmarshal(payload, &mail); err != nil {
			return domain.WrapError(domain.ErrCodeInvalid, "decode approval email", err)
		}
		if mail.Email == "" {
			return domain.Invalid("approval email has no recipient")
		}
		return notifier.SendApprovalEmail(ctx, mail)
	}
}

func requireAdmin(actor domain.Profile) error {
	if actor.Kind != domain.KindAdmin || actor.Role() != domain.RoleAdmin {
		return domain.ErrForbidden
	}
	return nil
}

func isApproved(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	doc, err := tx.Get(ctx, domain.NgoPath(id))
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return false, nil
		}
		return false, err
	}
	var ngo domain.NgoProfile
	if err := doc.Decode(&ngo); err != nil {
		return false, domain.WrapError(domain.ErrCodeInternal, "decode ngo", err)
	}
	return ngo.Approved, nil
}

func listNgos(ctx context.Context, dir repository.Directory, collection string) ([]domain.NgoProfile, error) {
	docs, err := dir.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	ngos := make([]domain.NgoProfile, 0, len(docs))
	for i := range docs {
		var ngo domain.NgoProfile
		if err := docs[i].Decode(&ngo); err != nil {
			continue
		}
		if ngo.ID == "" {
			ngo.ID = docs[i].ID()
		}
		ngos = append(ngos, ngo)
	}
	return ngos, nil
}

func stringField(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}
