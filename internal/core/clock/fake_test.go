package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFake_Advance_FiresInDeadlineOrder(t *testing.T) {
	f := NewFake(time.Unix(0, 0))

	var fired []string
	f.AfterFunc(300*time.Millisecond, func() { fired = append(fired, "late") })
	f.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "early") })
	f.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "early-second") })

	f.Advance(200 * time.Millisecond)
	assert.Equal(t, []string{"early", "early-second"}, fired)
	assert.Equal(t, 1, f.Pending())

	f.Advance(100 * time.Millisecond)
	assert.Equal(t, []string{"early", "early-second", "late"}, fired)
	assert.Equal(t, 0, f.Pending())
}

func TestFake_Advance_FiresTimersScheduledByCallbacks(t *testing.T) {
	f := NewFake(time.Unix(0, 0))

	var at []time.Duration
	start := f.Now()
	f.AfterFunc(time.Second, func() {
		at = append(at, f.Now().Sub(start))
		f.AfterFunc(time.Second, func() {
			at = append(at, f.Now().Sub(start))
		})
	})

	f.Advance(5 * time.Second)

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, at)
	assert.Equal(t, 5*time.Second, f.Now().Sub(start))
}

func TestFake_Stop(t *testing.T) {
	f := NewFake(time.Unix(0, 0))

	fired := false
	timer := f.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	f.Advance(2 * time.Second)
	assert.False(t, fired)
}

func TestFake_Stop_AfterFire(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	timer := f.AfterFunc(0, func() {})

	f.Advance(0)
	assert.False(t, timer.Stop())
}
