package httperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// NormalizeSuite tests the error normalizer.
//
// Justification: every route translates failures through this chain; a wrong
// precedence rule would leak raw upstream payloads or empty messages to users.
type NormalizeSuite struct {
	suite.Suite
}

func TestNormalizeSuite(t *testing.T) {
	suite.Run(t, new(NormalizeSuite))
}

func (s *NormalizeSuite) TestDataDetailWinsOverEverything() {
	v := map[string]any{
		"data": map[string]any{
			"detail":        "X",
			"statusMessage": "shadowed",
			"message":       "shadowed too",
		},
		"statusMessage": "also shadowed",
		"message":       "and this",
	}
	s.Equal("X", Normalize(v, "fallback").StatusMessage)
}

func (s *NormalizeSuite) TestEmptyDetailFallsThrough() {
	s.Run("to data.statusMessage", func() {
		v := map[string]any{
			"data": map[string]any{"detail": "", "statusMessage": "next rule"},
		}
		s.Equal("next rule", Normalize(v, "fallback").StatusMessage)
	})

	s.Run("to data.message", func() {
		v := map[string]any{
			"data": map[string]any{"detail": "", "message": "generic"},
		}
		s.Equal("generic", Normalize(v, "fallback").StatusMessage)
	})

	s.Run("all the way to the fallback", func() {
		v := map[string]any{
			"data": map[string]any{"detail": ""},
		}
		s.Equal("fallback", Normalize(v, "fallback").StatusMessage)
	})
}

func (s *NormalizeSuite) TestTopLevelFields() {
	s.Run("statusMessage over message", func() {
		v := map[string]any{"statusMessage": "top", "message": "lower"}
		s.Equal("top", Normalize(v, "fallback").StatusMessage)
	})

	s.Run("message when statusMessage absent", func() {
		v := map[string]any{"message": "lower"}
		s.Equal("lower", Normalize(v, "fallback").StatusMessage)
	})

	s.Run("empty statusMessage is not present", func() {
		v := map[string]any{"statusMessage": "", "message": "lower"}
		s.Equal("lower", Normalize(v, "fallback").StatusMessage)
	})
}

func (s *NormalizeSuite) TestNativeError() {
	err := errors.New("connection refused")
	got := Normalize(err, "fallback")
	s.Equal("connection refused", got.StatusMessage)
	s.Equal(500, got.StatusCode)
	s.Equal(err, got.Err)
}

func (s *NormalizeSuite) TestPlainString() {
	s.Run("non-empty string used directly", func() {
		s.Equal("boom", Normalize("boom", "fallback").StatusMessage)
	})

	s.Run("empty string falls back", func() {
		s.Equal("fallback", Normalize("", "fallback").StatusMessage)
	})
}

func (s *NormalizeSuite) TestNilValue() {
	got := Normalize(nil, "something went wrong")
	s.Equal("something went wrong", got.StatusMessage)
	s.Equal(500, got.StatusCode)
}

func (s *NormalizeSuite) TestStatusPrecedence() {
	s.Run("statusCode wins", func() {
		v := map[string]any{"statusCode": float64(404), "status": float64(418)}
		s.Equal(404, Normalize(v, "f").StatusCode)
	})

	s.Run("status when statusCode absent", func() {
		v := map[string]any{"status": float64(503)}
		s.Equal(503, Normalize(v, "f").StatusCode)
	})

	s.Run("defaults to 500", func() {
		s.Equal(500, Normalize(map[string]any{}, "f").StatusCode)
	})

	s.Run("sub-100 codes are ignored", func() {
		v := map[string]any{"statusCode": float64(42)}
		s.Equal(500, Normalize(v, "f").StatusCode)
	})
}

func (s *NormalizeSuite) TestAlreadyNormalized() {
	s.Run("kept verbatim when message present", func() {
		e := New(404, "Not found")
		s.Same(e, Normalize(e, "fallback"))
	})

	s.Run("message re-derived from payload when empty", func() {
		e := &Error{StatusCode: 404, Data: map[string]any{"detail": "Not found"}}
		got := Normalize(e, "fallback")
		s.Equal(404, got.StatusCode)
		s.Equal("Not found", got.StatusMessage)
	})
}

func (s *NormalizeSuite) TestDataPreserved() {
	payload := map[string]any{"detail": "Not found", "code": "missing"}
	got := Normalize(map[string]any{"data": payload, "statusCode": float64(404)}, "f")
	s.Equal(payload, got.Data)
}

func (s *NormalizeSuite) TestFromPayload() {
	s.Run("detail first", func() {
		s.Equal("d", FromPayload(map[string]any{"detail": "d", "message": "m"}, "f"))
	})

	s.Run("fallback on empty payload", func() {
		s.Equal("f", FromPayload(nil, "f"))
	})
}
