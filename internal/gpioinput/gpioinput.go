// Package gpioinput provides a debounced, polled boolean GPIO input line,
// the shared primitive behind internal/powerbutton and internal/proximity.
// It is grounded on the polling-and-debounce loop in the teacher's
// buttondriver/gpio package, stripped down to a single line and a single
// bool channel instead of a named multi-pin driver.
package gpioinput

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Polarity selects which electrical level reads as logical true.
type Polarity int

const (
	ActiveHigh Polarity = iota
	ActiveLow
)

// ParseLineSpec parses a "name" or "name:activelow" line specification,
// the same convention internal/periphpin uses for output pins.
func ParseLineSpec(spec string) (name string, polarity Polarity) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) == 1 {
		return parts[0], ActiveHigh
	}
	if strings.EqualFold(parts[1], "activelow") {
		return parts[0], ActiveLow
	}
	return parts[0], ActiveHigh
}

func parseLineNumber(name string) (int, error) {
	if n, err := strconv.Atoi(name); err == nil {
		return n, nil
	}
	if strings.HasPrefix(strings.ToUpper(name), "GPIO") {
		if n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(name), "GPIO")); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("invalid GPIO line format: %s (expected GPIO<number> or <number>)", name)
}

// Line is a single debounced GPIO input line, polled at PollInterval and
// reported on Changes once its reading has been stable for DebounceDelay.
type Line struct {
	chip     *gpiocdev.Chip
	line     *gpiocdev.Line
	polarity Polarity
	name     string

	debounceDelay time.Duration
	pollInterval  time.Duration

	changes chan bool

	mu      sync.Mutex
	started bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// Open requests spec as an input line on the given gpiocdev chip path
// (e.g. "gpiochip0"), with pull resistors chosen to match polarity.
func Open(chipPath, spec string, debounceDelay time.Duration) (*Line, error) {
	name, polarity := ParseLineSpec(spec)
	lineNum, err := parseLineNumber(name)
	if err != nil {
		return nil, err
	}

	chip, err := gpiocdev.NewChip(chipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPIO chip %s: %w", chipPath, err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput}
	if polarity == ActiveHigh {
		opts = append(opts, gpiocdev.WithPullDown)
	} else {
		opts = append(opts, gpiocdev.WithPullUp)
	}

	line, err := chip.RequestLine(lineNum, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("failed to configure line %s as input: %w", name, err)
	}

	return &Line{
		chip:          chip,
		line:          line,
		polarity:      polarity,
		name:          name,
		debounceDelay: debounceDelay,
		pollInterval:  time.Millisecond,
		changes:       make(chan bool, 8),
	}, nil
}

// Changes returns the channel on which debounced state changes are
// delivered: true means the line reads at its active polarity.
func (l *Line) Changes() <-chan bool {
	return l.changes
}

// Read returns the line's current logical state without debouncing.
func (l *Line) Read() (bool, error) {
	level, err := l.line.Value()
	if err != nil {
		return false, fmt.Errorf("failed to read line %s: %w", l.name, err)
	}
	return (level == 1) == (l.polarity == ActiveHigh), nil
}

// Start begins the polling goroutine. It is a no-op if already started.
func (l *Line) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return
	}
	l.started = true
	l.stop = make(chan struct{})
	l.wg.Add(1)
	go l.poll(l.stop)
}

// Close stops polling, closes the Changes channel, and releases the
// underlying GPIO resources.
func (l *Line) Close() error {
	l.mu.Lock()
	if l.started {
		close(l.stop)
		l.started = false
	}
	l.mu.Unlock()
	l.wg.Wait()
	close(l.changes)

	if err := l.line.Close(); err != nil {
		log.Printf("gpioinput: error closing line %s: %v", l.name, err)
	}
	return l.chip.Close()
}

func (l *Line) poll(stop chan struct{}) {
	defer l.wg.Done()

	current, err := l.Read()
	if err != nil {
		log.Printf("gpioinput: initial read of %s failed: %v", l.name, err)
	}
	reported := current
	var lastChange time.Time
	pending := false

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			state, err := l.Read()
			if err != nil {
				continue
			}
			if state != current {
				current = state
				lastChange = now
				pending = true
				continue
			}
			if pending && now.Sub(lastChange) >= l.debounceDelay {
				pending = false
				if current != reported {
					reported = current
					select {
					case l.changes <- reported:
					default:
						log.Printf("gpioinput: changes channel full for %s, dropping event", l.name)
					}
				}
			}
		}
	}
}
