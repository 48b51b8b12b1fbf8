package watcher

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInterval = 50 * time.Millisecond

func receiveBatch(t *testing.T, d *Debouncer, timeout time.Duration) []DebouncedEvent {
	t.Helper()
	select {
	case batch := <-d.Output():
		return batch
	case <-time.After(timeout):
		t.Fatal("timed out waiting for debouncer batch")
		return nil
	}
}

func TestDebouncer_SingleEvent(t *testing.T) {
	d := NewDebouncer(testInterval)
	defer d.Stop()

	d.Add("file.txt", OpWrite)

	batch := receiveBatch(t, d, 500*time.Millisecond)
	require.Len(t, batch, 1)
	assert.Equal(t, "file.txt", batch[0].Path)
	assert.Equal(t, OpWrite, batch[0].Op)
}

func TestDebouncer_EventCollapsing(t *testing.T) {
	d := NewDebouncer(testInterval)
	defer d.Stop()

	d.Add("file.txt", OpCreate)
	d.Add("file.txt", OpWrite)

	batch := receiveBatch(t, d, 500*time.Millisecond)
	require.Len(t, batch, 1)
	assert.Equal(t, OpWrite, batch[0].Op, "latest op wins")
}

func TestDebouncer_MultiplePaths(t *testing.T) {
	d := NewDebouncer(testInterval)
	defer d.Stop()

	d.Add("a.txt", OpWrite)
	d.Add("b.txt", OpCreate)
	d.Add("c.txt", OpRemove)

	batch := receiveBatch(t, d, 500*time.Millisecond)
	paths := make([]string, 0, len(batch))
	for _, e := range batch {
		paths = append(paths, e.Path)
	}
	sort.Strings(paths)
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, paths)
}

func TestDebouncer_StopClosesOutput(t *testing.T) {
	d := NewDebouncer(testInterval)
	d.Add("file.txt", OpWrite)
	d.Stop()
	d.Stop()

	_, ok := <-d.Output()
	assert.False(t, ok, "pending events are discarded")

	// Adding after stop is a no-op
	d.Add("late.txt", OpWrite)
}

func TestDebouncer_AddWhileOutputFull(t *testing.T) {
	d := NewDebouncer(time.Millisecond)

	// Nobody reads: fill the buffer and leave one more batch blocked on send
	for i := 0; i < cap(d.output)+1; i++ {
		d.Add(fmt.Sprintf("/file-%d", i), OpWrite)
		time.Sleep(10 * time.Millisecond)
	}

	added := make(chan struct{})
	go func() {
		d.Add("/requeued", OpWrite)
		close(added)
	}()
	select {
	case <-added:
	case <-time.After(2 * time.Second):
		t.Fatal("Add blocked while a batch was waiting on the output")
	}

	stopped := make(chan struct{})
	go func() {
		d.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked while a batch was waiting on the output")
	}

	for range d.Output() {
	}
}

func TestEventOp_String(t *testing.T) {
	tests := []struct {
		op   EventOp
		want string
	}{
		{OpCreate, "create"},
		{OpWrite, "write"},
		{OpRemove, "remove"},
		{OpRename, "rename"},
		{EventOp(42), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.op.String())
	}
}
