package indicator

import (
	"sync"
	"time"
)

// Morse element timing of the fault flasher.
const (
	dashOn  = 1000 * time.Millisecond
	dotOn   = 500 * time.Millisecond
	elemOff = 750 * time.Millisecond
)

// flashMorse plays pattern once. Characters other than '.' and '-' are
// gaps with the light off.
func flashMorse(pattern string, set func(on bool), sleep func(time.Duration)) {
	for _, c := range pattern {
		switch c {
		case '-':
			set(true)
			sleep(dashOn)
		case '.':
			set(true)
			sleep(dotOn)
		}
		set(false)
		sleep(elemOff)
	}
}

// blinker repeats a pattern on one output until stopped.
type blinker struct {
	mu    sync.Mutex
	stop  chan struct{}
	done  chan struct{}
	sleep func(time.Duration)
}

func (b *blinker) start(pattern string, set func(on bool)) {
	b.halt()

	b.mu.Lock()
	defer b.mu.Unlock()
	stop := make(chan struct{})
	done := make(chan struct{})
	b.stop, b.done = stop, done

	sleep := b.sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				set(false)
				return
			default:
			}
			flashMorse(pattern, set, sleep)
		}
	}()
}

// halt stops a running pattern and waits for the output to go dark.
func (b *blinker) halt() {
	b.mu.Lock()
	stop, done := b.stop, b.done
	b.stop, b.done = nil, nil
	b.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}
