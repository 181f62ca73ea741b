package notify

import (
	"context"

	"storefront/internal/logger"
	"storefront/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	KindOrderConfirmation = "order_confirmation"
	KindStatusPrefix      = "status_"
)

// Notifier records customer notifications. Each (order, kind) pair is recorded at
// most once, so redelivered events are harmless.
type Notifier struct {
	db     *gorm.DB
	logger *logger.Logger
}

func New(db *gorm.DB, logger *logger.Logger) *Notifier {
	return &Notifier{
		db:     db,
		logger: logger,
	}
}

// Notify stores the notification and reports whether it was new.
func (n *Notifier) Notify(ctx context.Context, orderID, kind, recipient string) (bool, error) {
	record := models.OrderNotification{
		OrderID:   orderID,
		Kind:      kind,
		Recipient: recipient,
	}
	res := n.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "kind"}},
			DoNothing: true,
		}).
		Create(&record)
	if res.Error != nil {
		return false, errors.Wrapf(res.Error, "record %s notification for order %s", kind, orderID)
	}
	if res.RowsAffected == 0 {
		n.logger.Debug("Notification %s for order %s already sent", kind, orderID)
		return false, nil
	}

	n.logger.Info("Sending %s for order %s to %s", kind, orderID, recipient)
	return true, nil
}
