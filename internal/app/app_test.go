package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legal-ai/legal-assistant/internal/config"
	"github.com/legal-ai/legal-assistant/internal/model"
	"github.com/legal-ai/legal-assistant/pkg/logger"
)

func testConfig(driver string, dir string) *config.Config {
	return &config.Config{
		Provider:       config.ProviderGateway,
		GatewayURL:     "http://127.0.0.1:1/v1/chat-messages",
		GatewayAPIKey:  "test",
		GatewayTimeout: time.Second,
		StorageDriver:  driver,
		DatabasePath:   filepath.Join(dir, "conversations.db"),
		AnalyticsPath:  filepath.Join(dir, "analytics.bolt"),
	}
}

func TestNew_Memory(t *testing.T) {
	a, err := New(context.Background(), testConfig(config.StorageMemory, t.TempDir()), logger.NewNop(), Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Chat)
	assert.Nil(t, a.NATS)

	results, err := a.Search.Search(context.Background(), "alice", "adulteration", model.LanguageEnglish, model.DefaultSearchFilters())
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestNew_SQLitePersistsAnalytics(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(config.StorageSQLite, dir)

	a, err := New(context.Background(), cfg, logger.NewNop(), Options{WithoutChat: true})
	require.NoError(t, err)
	assert.Nil(t, a.Chat)

	_, err = a.Search.Search(context.Background(), "alice", "refund", model.LanguageEnglish, model.DefaultSearchFilters())
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b, err := New(context.Background(), cfg, logger.NewNop(), Options{WithoutChat: true})
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, 1, b.Analytics.Snapshot().PopularQueries["refund"])
}

func TestNew_UnknownProvider(t *testing.T) {
	cfg := testConfig(config.StorageMemory, t.TempDir())
	cfg.Provider = "carrier-pigeon"

	_, err := New(context.Background(), cfg, logger.NewNop(), Options{})
	assert.Error(t, err)
}
