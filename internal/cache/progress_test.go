package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProgressKey(t *testing.T) {
	require.Equal(t, "run_12_progress", progressKey(12))
}

func TestDecodeProgressSortsByWorker(t *testing.T) {
	progress, err := decodeProgress(map[string]string{
		"2": `{"runID":1,"workerID":2,"era":3,"generation":30,"weightedScore":50}`,
		"0": `{"runID":1,"workerID":0,"era":3,"generation":31,"weightedScore":75.5}`,
		"1": `{"runID":1,"workerID":1,"era":3,"generation":29,"weightedScore":60}`,
	})
	require.NoError(t, err)
	require.Len(t, progress, 3)

	for i, p := range progress {
		require.Equal(t, i, p.WorkerID)
	}
	require.Equal(t, 75.5, progress[0].WeightedScore)
	require.Equal(t, 31, progress[0].Generation)
}

func TestDecodeProgressEmpty(t *testing.T) {
	progress, err := decodeProgress(map[string]string{})
	require.NoError(t, err)
	require.Empty(t, progress)
}

func TestDecodeProgressRejectsMalformedValue(t *testing.T) {
	_, err := decodeProgress(map[string]string{"0": "{"})
	require.ErrorContains(t, err, "岛屿 0")
}
