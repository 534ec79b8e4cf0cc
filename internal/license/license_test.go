package license

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type CacheSuite struct {
	suite.Suite
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) TestLazyLoadAndCache() {
	reads := 0
	c := New("/etc/planbridge/machine-id",
		WithReader(func(string) ([]byte, error) {
			reads++
			return []byte("machine-7\n"), nil
		}),
	)

	s.Equal(0, reads, "nothing is read before first use")
	s.Equal("machine-7", c.Get())
	s.Equal("machine-7", c.Get())
	s.Equal(1, reads, "a loaded value is never re-read")
}

func (s *CacheSuite) TestFailedLoadRetriesAfterMinInterval() {
	base := time.Now()
	now := base
	reads := 0
	c := New("/etc/planbridge/machine-id",
		WithMinInterval(time.Minute),
		WithClock(func() time.Time { return now }),
		WithReader(func(string) ([]byte, error) {
			reads++
			if reads < 2 {
				return nil, errors.New("no such file")
			}
			return []byte("machine-9"), nil
		}),
	)

	s.Equal("", c.Get())
	s.Equal(1, reads)

	// Within the interval nothing is retried.
	now = base.Add(30 * time.Second)
	s.Equal("", c.Get())
	s.Equal(1, reads)

	// After the interval the load is attempted again.
	now = base.Add(2 * time.Minute)
	s.Equal("machine-9", c.Get())
	s.Equal(2, reads)
}

func (s *CacheSuite) TestEmptyPathNeverReads() {
	reads := 0
	c := New("", WithReader(func(string) ([]byte, error) {
		reads++
		return []byte("x"), nil
	}))

	c.EnsureLoaded()
	s.Equal("", c.Get())
	s.Equal(0, reads)
}
