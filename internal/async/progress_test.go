package async

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/classcache/pkg/classindex"
)

var _ classindex.Progress = (*Progress)(nil)

func TestNewProgress(t *testing.T) {
	// Given/When: a new tracker
	p := NewProgress()

	// Then: it is initializing in the listing stage
	require.NotNil(t, p)
	snap := p.Snapshot()
	assert.Equal(t, string(StatusInitializing), snap.Status)
	assert.Equal(t, string(StageListing), snap.Stage)
	assert.Zero(t, snap.FilesTotal)
	assert.True(t, p.IsInitializing())
}

func TestProgress_BulkLifecycle(t *testing.T) {
	// Given: a tracker
	p := NewProgress()

	// When: four files are listed and three finish, one failing
	p.Listed(4)
	p.FileDone(true)
	p.FileDone(true)
	p.FileDone(false)

	// Then: reading progress reflects both outcomes
	snap := p.Snapshot()
	assert.Equal(t, string(StageReading), snap.Stage)
	assert.Equal(t, 4, snap.FilesTotal)
	assert.Equal(t, 2, snap.FilesRead)
	assert.Equal(t, 1, snap.ReadFailures)
	assert.InDelta(t, 75.0, snap.ProgressPct, 0.001)

	// When: open documents are applied and the cache becomes ready
	p.OpenDocumentsApplied(2)
	p.SetReady()

	// Then: the snapshot is complete
	snap = p.Snapshot()
	assert.Equal(t, string(StageOpenDocuments), snap.Stage)
	assert.Equal(t, 2, snap.OpenDocuments)
	assert.Equal(t, string(StatusReady), snap.Status)
	assert.InDelta(t, 100.0, snap.ProgressPct, 0.001)
	assert.False(t, p.IsInitializing())
}

func TestProgress_ProgressPct(t *testing.T) {
	tests := []struct {
		name  string
		total int
		done  int
		want  float64
	}{
		{"no files", 0, 0, 0},
		{"half", 10, 5, 50},
		{"all", 3, 3, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProgress()
			p.Listed(tt.total)
			for i := 0; i < tt.done; i++ {
				p.FileDone(true)
			}
			assert.InDelta(t, tt.want, p.Snapshot().ProgressPct, 0.001)
		})
	}
}

func TestProgress_SetError(t *testing.T) {
	p := NewProgress()
	p.SetError("listing failed")

	snap := p.Snapshot()
	assert.Equal(t, string(StatusError), snap.Status)
	assert.Equal(t, "listing failed", snap.ErrorMessage)
	assert.False(t, p.IsInitializing())
}

func TestProgress_ConcurrentUpdates(t *testing.T) {
	// Given: a tracker shared by many workers
	p := NewProgress()
	p.Listed(200)

	// When: workers report concurrently while readers snapshot
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(2)
		go func(ok bool) {
			defer wg.Done()
			p.FileDone(ok)
		}(i%4 != 0)
		go func() {
			defer wg.Done()
			_ = p.Snapshot()
		}()
	}
	wg.Wait()

	// Then: no update is lost
	snap := p.Snapshot()
	assert.Equal(t, 150, snap.FilesRead)
	assert.Equal(t, 50, snap.ReadFailures)
}
