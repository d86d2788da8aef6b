package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
database:
  url: "postgres://postgres@localhost:5432/finsight"
embed_llm:
  model: "text-embedding-3-small"
inference_llm:
  model: "gpt-4o-mini"
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "8001", cfg.Server.Port)
	assert.Equal(t, 1500, cfg.RAG.ChunkSize)
	assert.Equal(t, 200, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.Equal(t, 1536, cfg.RAG.VectorSize)
	assert.Equal(t, "0 */6 * * *", cfg.Scout.CronSchedule)
	assert.Contains(t, cfg.Scout.UserAgent, "@")
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://ci@dbhost:5432/finsight_test")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "postgres://ci@dbhost:5432/finsight_test", cfg.Database.URL)
	assert.Equal(t, "sk-test", cfg.EmbedLLM.Key)
	assert.Equal(t, "sk-test", cfg.InferenceLLM.Key)
}

func TestLoadConfigInvalidOverlap(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, minimalConfig+`
rag:
  chunk_size: 100
  chunk_overlap: 150
`))
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigMissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := LoadConfig(writeConfig(t, `
embed_llm:
  model: "m"
inference_llm:
  model: "m"
`))
	assert.Error(t, err)
}
