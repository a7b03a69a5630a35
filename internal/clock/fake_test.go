// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func TestFake_FiresInDeadlineOrder(t *testing.T) {
	clk := NewFake(epoch)
	var order []string

	clk.AfterFunc(3*time.Second, func() { order = append(order, "c") })
	clk.AfterFunc(1*time.Second, func() { order = append(order, "a") })
	clk.AfterFunc(2*time.Second, func() { order = append(order, "b") })

	clk.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, epoch.Add(2*time.Second), clk.Now())

	clk.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Zero(t, clk.Pending())
}

func TestFake_TiesFireInCreationOrder(t *testing.T) {
	clk := NewFake(epoch)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		clk.AfterFunc(time.Second, func() { order = append(order, i) })
	}
	clk.Advance(time.Second)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestFake_CallbackSeesDeadlineTime(t *testing.T) {
	clk := NewFake(epoch)
	var seen time.Time
	clk.AfterFunc(5*time.Second, func() { seen = clk.Now() })

	clk.Advance(time.Minute)
	assert.Equal(t, epoch.Add(5*time.Second), seen)
	assert.Equal(t, epoch.Add(time.Minute), clk.Now())
}

func TestFake_ChainedTimersWithinWindow(t *testing.T) {
	clk := NewFake(epoch)
	count := 0
	var tick func()
	tick = func() {
		count++
		clk.AfterFunc(time.Second, tick)
	}
	clk.AfterFunc(time.Second, tick)

	clk.Advance(10 * time.Second)
	assert.Equal(t, 10, count)
	assert.Equal(t, 1, clk.Pending())
}

func TestFake_ZeroDelayFiresOnAdvanceZero(t *testing.T) {
	clk := NewFake(epoch)
	fired := false
	clk.AfterFunc(-time.Second, func() { fired = true })

	require.False(t, fired)
	clk.Advance(0)
	assert.True(t, fired)
	assert.Equal(t, epoch, clk.Now())
}

func TestFake_Stop(t *testing.T) {
	clk := NewFake(epoch)
	fired := false
	timer := clk.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	clk.Advance(time.Hour)
	assert.False(t, fired)

	done := clk.AfterFunc(time.Second, func() {})
	clk.Advance(time.Second)
	assert.False(t, done.Stop())
}

func TestReal_AfterFunc(t *testing.T) {
	clk := New()
	ch := make(chan struct{})
	clk.AfterFunc(-time.Millisecond, func() { close(ch) })

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("real AfterFunc did not fire")
	}
	assert.WithinDuration(t, time.Now(), clk.Now(), time.Second)
	assert.InDelta(t, time.Now().UnixMilli(), UnixMilli(clk), 1000)
}
