package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ClippingsImporter/internal/domain"
)

type onceDriver struct{ stopped bool }

func (d *onceDriver) Start(_ context.Context, job func(time.Time)) error {
	job(published)
	return nil
}

func (d *onceDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerRunsPipeline(t *testing.T) {
	t.Parallel()

	p := NewPipeline(PipelineDeps{
		Source:   &fakeSource{articles: []domain.Article{article("Prof. X on climate", "https://x/a", "NRC", "Jane Doe")}},
		Resolver: fakeResolver{"Jane Doe": jane},
	})
	driver := &onceDriver{}
	s := NewScheduler(driver, p, nil)

	var runs []Summary
	require.NoError(t, s.Start(context.Background(), func(summary Summary) { runs = append(runs, summary) }))
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Accepted)

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, driver.stopped)
}

func TestSchedulerSkipsFailedRuns(t *testing.T) {
	t.Parallel()

	p := NewPipeline(PipelineDeps{Source: &fakeSource{}})
	s := NewScheduler(&onceDriver{}, p, nil)

	called := false
	require.NoError(t, s.Start(context.Background(), func(Summary) { called = true }))
	assert.False(t, called)
}

func TestSchedulerWithoutDriver(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil, nil, nil)
	assert.NoError(t, s.Start(context.Background(), nil))
	assert.NoError(t, s.Stop(context.Background()))
}
