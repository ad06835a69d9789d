package cache

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Instrumented counts the operations of a Cache in prometheus.
type Instrumented struct {
	next Cache
	ops  *prometheus.CounterVec
}

// NewInstrumented wraps next and registers its counter at reg.
// Registering twice at the same registry reuses the first counter.
func NewInstrumented(next Cache, backend string, reg prometheus.Registerer) (*Instrumented, error) {
	ops := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "confetti_cache_operations_total",
			Help:        "Number of cache operations, differentiated by operation and result.",
			ConstLabels: prometheus.Labels{"backend": backend},
		},
		[]string{"op", "result"},
	)

	if reg != nil {
		if err := reg.Register(ops); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, err
			}

			existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				return nil, err
			}

			ops = existing
		}
	}

	return &Instrumented{next: next, ops: ops}, nil
}

func (c *Instrumented) count(op, result string) {
	c.ops.WithLabelValues(op, result).Inc()
}

// Get implements Cache.
func (c *Instrumented) Get(key string) ([]byte, bool, error) {
	val, ok, err := c.next.Get(key)

	switch {
	case err != nil:
		c.count("get", "error")
	case ok:
		c.count("get", "hit")
	default:
		c.count("get", "miss")
	}

	return val, ok, err
}

// Set implements Cache.
func (c *Instrumented) Set(key string, val []byte, ttl time.Duration) error {
	err := c.next.Set(key, val, ttl)
	c.count("set", result(err))

	return err
}

// Delete implements Cache.
func (c *Instrumented) Delete(key string) (bool, error) {
	present, err := c.next.Delete(key)

	switch {
	case err != nil:
		c.count("delete", "error")
	case present:
		c.count("delete", "present")
	default:
		c.count("delete", "absent")
	}

	return present, err
}

// Reset implements Cache.
func (c *Instrumented) Reset() error {
	err := c.next.Reset()
	c.count("reset", result(err))

	return err
}

// Close implements Cache.
func (c *Instrumented) Close() error {
	return c.next.Close()
}

// Unwrap returns the wrapped cache.
func (c *Instrumented) Unwrap() Cache {
	return c.next
}

func result(err error) string {
	if err != nil {
		return "error"
	}

	return "ok"
}
