package socketio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vk/loomgo/internal/driver"
)

func shutdownDriver() *Driver {
	return &Driver{
		results: make(chan *driver.Result),
		done:    make(chan struct{}),
	}
}

func TestDeliver_DropsAfterShutdown(t *testing.T) {
	d := shutdownDriver()
	close(d.done)

	delivered := make(chan struct{})
	go func() {
		d.deliver(&driver.Result{Key: wireKey()})
		close(delivered)
	}()

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("deliver blocked after shutdown")
	}
}

func TestDeliver_ShutdownReleasesParkedHandler(t *testing.T) {
	d := shutdownDriver()

	// No consumer reads results, so the handler parks on the send until
	// shutdown releases it.
	released := make(chan struct{})
	go func() {
		d.deliver(&driver.Result{Key: wireKey()})
		close(released)
	}()

	close(d.done)

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("shutdown left the handler parked on the results channel")
	}
}

func TestDeliver_ReachesConsumer(t *testing.T) {
	d := shutdownDriver()

	go d.deliver(&driver.Result{Key: wireKey()})

	select {
	case result := <-d.Results():
		assert.Equal(t, wireKey(), result.Key)
	case <-time.After(time.Second):
		t.Fatal("result never reached the consumer")
	}
}
