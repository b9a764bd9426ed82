package state

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// SkipCounter is the index of the next record to process in the validation queue. Records
// that were uploaded leave the queue, records that were skipped stay and are stepped over
// by advancing the counter.
type SkipCounter struct {
	mu    sync.Mutex
	path  string
	value int
}

// OpenSkipCounter loads the counter stored at path, a missing file is created holding 0.
func OpenSkipCounter(path string) (*SkipCounter, error) {
	c := &SkipCounter{path: path}

	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, c.store()
	}
	if err != nil {
		return nil, fmt.Errorf("read skip counter: %w", err)
	}

	value, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil {
		return nil, fmt.Errorf("parse skip counter %s: %w", path, err)
	}
	if value < 0 {
		return nil, fmt.Errorf("parse skip counter %s: negative value %d", path, value)
	}
	c.value = value
	return c, nil
}

func (c *SkipCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Advance increments the counter and persists it.
func (c *SkipCounter) Advance() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value++
	return c.store()
}

// Set overwrites the counter, used to rewind a queue by hand.
func (c *SkipCounter) Set(value int) error {
	if value < 0 {
		return fmt.Errorf("skip counter cannot be negative: %d", value)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
	return c.store()
}

func (c *SkipCounter) store() error {
	err := os.WriteFile(c.path, []byte(strconv.Itoa(c.value)), 0644)
	if err != nil {
		return fmt.Errorf("write skip counter: %w", err)
	}
	return nil
}
