package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/baharkarakas/deposit-relay/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifier(store *fakeStore, ch *fakeChannel) *Notifier {
	n := NewNotifier(ch, store, NewRuntimeStats(), testAdminChat, time.UTC)
	n.delay = time.Millisecond
	return n
}

func TestNotifierDispatchesFIFO(t *testing.T) {
	store := newFakeStore()
	store.putUser(models.User{Phone: "0911000000", Username: "abebe", Balance: dec("0")})
	ch := &fakeChannel{}
	n := newTestNotifier(store, ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 1; i <= 3; i++ {
		n.Enqueue(pendingDeposit(fmt.Sprintf("T%d", i), "0911000000", "10.00"))
	}
	n.Start(ctx)

	require.Eventually(t, func() bool { return ch.sendCount() == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Contains(t, ch.sent[0].text, "T1")
	assert.Contains(t, ch.sent[1].text, "T2")
	assert.Contains(t, ch.sent[2].text, "T3")
	assert.Equal(t, 0, n.QueueDepth())
}

func TestNotifierGivesUpAfterFourAttempts(t *testing.T) {
	store := newFakeStore()
	ch := &fakeChannel{sendErr: fmt.Errorf("telegram: 502")}
	n := newTestNotifier(store, ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n.Enqueue(pendingDeposit("T1", "0911000000", "10.00"))
	n.Start(ctx)

	require.Eventually(t, func() bool { return ch.sendCount() == 4 }, 2*time.Second, 5*time.Millisecond)
	// dropped, not retried forever
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 4, ch.sendCount())
	assert.Equal(t, 0, n.QueueDepth())
}

func TestNotifierStartIsIdempotent(t *testing.T) {
	store := newFakeStore()
	ch := &fakeChannel{}
	n := newTestNotifier(store, ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n.Start(ctx)
	n.Start(ctx)
	n.Enqueue(pendingDeposit("T1", "0911000000", "10.00"))

	require.Eventually(t, func() bool { return ch.sendCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	// a second consumer would have raced on the delay and sent duplicates
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, ch.sendCount())
}

func TestNotifierDropsWhenQueueFull(t *testing.T) {
	store := newFakeStore()
	ch := &fakeChannel{}
	n := newTestNotifier(store, ch)

	for i := 0; i < notifyQueueSize+10; i++ {
		n.Enqueue(pendingDeposit(fmt.Sprintf("T%d", i), "0911000000", "1.00"))
	}
	assert.Equal(t, notifyQueueSize, n.QueueDepth())
}
