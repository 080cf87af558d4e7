package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCollector(t *testing.T) {
	asserts := assert.New(t)
	m := NewMemoryCollector()

	m.RecordMethod("GET")
	m.RecordMethod("GET")
	m.RecordMethod("PROPFIND")
	m.RecordRequest("GET", 200, 5*time.Millisecond)
	m.RecordRequest("GET", 404, 2*time.Millisecond)
	m.RecordRequest("PROPFIND", 500, time.Millisecond)

	s := m.Snapshot()
	asserts.Equal(int64(2), s.Methods["GET"])
	asserts.Equal(int64(1), s.Methods["PROPFIND"])
	asserts.Equal(int64(1), s.Statuses[404])
	asserts.Equal(int64(3), s.Requests)
	asserts.Equal(int64(1), s.Errors)
	asserts.Equal(8*time.Millisecond, s.Elapsed)

	// The snapshot is a copy.
	s.Methods["GET"] = 99
	asserts.Equal(int64(2), m.Snapshot().Methods["GET"])
}
