package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfResolvesThroughWrapping(t *testing.T) {
	base := errors.New("dial tcp: timeout")
	err := fmt.Errorf("exchange: %w", Wrap(KindGeneration, "ai.Reply", "generation failed", base))

	assert.Equal(t, KindGeneration, KindOf(err))
	assert.True(t, Is(err, KindGeneration))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "generation failed", MessageOf(err))
	assert.Equal(t, "dial tcp: timeout", CauseOf(err))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, KindInternal))
	assert.Equal(t, "internal error", MessageOf(errors.New("boom")))
}

func TestEnsureKeepsExistingKind(t *testing.T) {
	inner := Wrap(KindSynthesis, "speech.Synthesize", "synthesis failed", errors.New("503"))
	got := Ensure(KindGeneration, "interview.Advance", "exchange failed", inner)

	assert.Equal(t, KindSynthesis, KindOf(got))
	assert.Nil(t, Ensure(KindGeneration, "op", "msg", nil))
	assert.Nil(t, Wrap(KindGeneration, "op", "msg", nil))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:      http.StatusNotFound,
		KindValidation:    http.StatusBadRequest,
		KindTranscription: http.StatusBadGateway,
		KindGeneration:    http.StatusBadGateway,
		KindSynthesis:     http.StatusBadGateway,
		KindInternal:      http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), "kind %s", kind)
	}
}

func TestErrorString(t *testing.T) {
	err := New(KindNotFound, "session.Get", "session not found")
	assert.Equal(t, "session.Get: session not found", err.Error())

	wrapped := Wrap(KindTranscription, "", "", errors.New("eof"))
	assert.Equal(t, "transcription_failure (eof)", wrapped.Error())
}
