package thermalcore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunBatch(t *testing.T) {
	specs := mustResolve(t, PowerTransformer, ONAF, defaultUser())
	n := 16
	ts := timestamps(n, 15*time.Minute)

	var jobs []BatchJob
	for i := 0; i < 12; i++ {
		load := constant(n, float64(100*i))
		jobs = append(jobs, BatchJob{
			ID:      fmt.Sprintf("job-%d", i),
			Specs:   specs,
			Profile: NewProfile(ts, load, constant(n, 20)),
		})
	}
	// A broken profile in the middle does not stop the others.
	jobs[5].Profile.Ambient = constant(n-1, 20)

	results, err := RunBatch(context.Background(), jobs, 3)
	require.NoError(t, err)
	require.Len(t, results, len(jobs))

	for i, res := range results {
		assert.Equal(t, jobs[i].ID, res.ID)
		if i == 5 {
			assert.ErrorIs(t, res.Err, ErrInvalidInput)
			continue
		}
		require.NoError(t, res.Err)

		want := mustRun(t, specs, ModelOptions{}, jobs[i].Profile)
		assert.Equal(t, want.TopOil, res.Output.TopOil, "job %d", i)
		assert.Equal(t, want.HotSpot, res.Output.HotSpot, "job %d", i)
	}

	// Heavier load, hotter oil.
	assert.Greater(t, results[11].Output.TopOil[n-1], results[1].Output.TopOil[n-1])
}

func TestRunBatchCancelled(t *testing.T) {
	specs := mustResolve(t, PowerTransformer, ONAF, defaultUser())
	n := 4
	p := NewProfile(timestamps(n, time.Hour), constant(n, 500), constant(n, 20))
	jobs := []BatchJob{{ID: "a", Specs: specs, Profile: p}, {ID: "b", Specs: specs, Profile: p}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := RunBatch(ctx, jobs, 1)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.ErrorIs(t, res.Err, context.Canceled)
		assert.NotEmpty(t, res.ID)
	}
}

// Jobs waiting for a slot do not start once the context is cancelled.
func TestRunBatchCancelledWhileWaiting(t *testing.T) {
	specs := mustResolve(t, PowerTransformer, ONAF, defaultUser())
	n := 4
	p := NewProfile(timestamps(n, time.Hour), constant(n, 500), constant(n, 20))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	core, _ := observer.New(zapcore.DebugLevel)
	cancelling := zap.New(core, zap.Hooks(func(zapcore.Entry) error {
		cancel()
		return nil
	}))

	jobs := []BatchJob{
		{ID: "first", Specs: specs, Profile: p, Options: ModelOptions{Logger: cancelling}},
		{ID: "second", Specs: specs, Profile: p},
		{ID: "third", Specs: specs, Profile: p},
	}
	results, err := RunBatch(ctx, jobs, 1)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 3)

	require.NoError(t, results[0].Err)
	assert.Len(t, results[0].Output.TopOil, n)
	for _, res := range results[1:] {
		assert.ErrorIs(t, res.Err, context.Canceled, res.ID)
		assert.Empty(t, res.Output.TopOil, res.ID)
	}
}

func TestRunBatchEmpty(t *testing.T) {
	results, err := RunBatch(context.Background(), nil, 4)
	require.NoError(t, err)
	assert.Empty(t, results)
}
