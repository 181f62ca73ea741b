package database

import (
	"context"
	"fmt"
	"testing"

	"storefront/internal/logger"
	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func observed(t *testing.T) (*Database, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	url := fmt.Sprintf("sqlite://file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := New(url, false, logger.FromZap(zap.New(core)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, logs
}

func TestRecordNotFoundIsNotLogged(t *testing.T) {
	db, logs := observed(t)

	var order models.Order
	err := db.DB.WithContext(context.Background()).First(&order, "payment_ref = ?", "pi_missing").Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assert.Zero(t, logs.FilterMessageSnippet("record not found").Len())
}

func TestQueryErrorsGoThroughLogger(t *testing.T) {
	db, logs := observed(t)

	err := db.DB.Exec("SELECT * FROM no_such_table").Error
	require.Error(t, err)

	matched := logs.FilterMessageSnippet("no_such_table").All()
	require.Len(t, matched, 1)
	assert.Equal(t, zapcore.WarnLevel, matched[0].Level)
}
