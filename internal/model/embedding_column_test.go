package model

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestAnswerAfterFindLogsCorruptEmbedding(t *testing.T) {
	buf := captureLog(t)

	a := &Answer{ID: 7, Embedding: "not-json"}
	require.NoError(t, a.AfterFind(nil))
	assert.Nil(t, a.Vector())
	assert.Contains(t, buf.String(), "corrupt embedding on raw-answer record 7")
}

func TestAnswerAfterFindSilentOnAbsentEmbedding(t *testing.T) {
	buf := captureLog(t)

	a := &Answer{ID: 8}
	require.NoError(t, a.AfterFind(nil))
	assert.Nil(t, a.Vector())
	assert.Empty(t, buf.String())
}

func TestAnswerAfterFindParsesValidEmbedding(t *testing.T) {
	buf := captureLog(t)

	a := &Answer{ID: 9}
	a.SetVector([]float32{0.1, 0.2})
	a.vec = nil

	require.NoError(t, a.AfterFind(nil))
	assert.Equal(t, []float32{0.1, 0.2}, a.Vector())
	assert.Empty(t, buf.String())
}

func TestProcessedManualAfterFindLogsCorruptEmbedding(t *testing.T) {
	buf := captureLog(t)

	m := &ProcessedManual{ID: 12, Embedding: "[0.1,"}
	require.NoError(t, m.AfterFind(nil))
	assert.Nil(t, m.Vector())
	assert.Contains(t, buf.String(), "corrupt embedding on processed-manual record 12")
}

func TestSetVectorClearsInvalidInput(t *testing.T) {
	a := &Answer{}
	a.SetVector([]float32{0.5})
	require.NotEmpty(t, a.Embedding)

	a.SetVector(nil)
	assert.Empty(t, a.Embedding)
	assert.Nil(t, a.Vector())
}
