package transferprogress_test

import (
	"testing"

	"github.com/SpatiumPortae/tftcp/cmd/tftcp/tui"
	"github.com/SpatiumPortae/tftcp/cmd/tftcp/tui/transferprogress"
	"github.com/stretchr/testify/assert"
)

func update(m transferprogress.Model, n int) transferprogress.Model {
	updated, _ := m.Update(tui.ProgressMsg(n))
	return updated.(transferprogress.Model)
}

func TestProgress(t *testing.T) {
	t.Run("known payload size", func(t *testing.T) {
		m := transferprogress.New()
		m.PayloadSize = 100
		m = update(m, 30)
		m = update(m, 30)
		assert.Equal(t, int64(60), m.BytesTransferred())
		assert.False(t, m.TransferStartTime.IsZero())
	})

	t.Run("unknown payload size", func(t *testing.T) {
		m := transferprogress.New()
		m = update(m, 1500)
		assert.Equal(t, int64(1500), m.BytesTransferred())
		assert.Contains(t, m.View(), "1.5 kB")
	})
}
