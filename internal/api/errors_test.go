package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsColdStart(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", &RequestError{Message: "Network error: unable to reach server", Status: 0}, true},
		{"503", &RequestError{Message: "HTTP error! status: 503", Status: 503}, true},
		{"504", &RequestError{Message: "HTTP error! status: 504", Status: 504}, true},
		{"500", &RequestError{Message: "HTTP error! status: 500", Status: 500}, false},
		{"timeout message", &RequestError{Message: "upstream Timeout", Status: 502}, true},
		{"refused", errors.New("dial tcp: ECONNREFUSED"), true},
		{"fetch failed", errors.New("fetch failed"), true},
		{"wrapped", fmt.Errorf("load: %w", &RequestError{Status: 503}), true},
		{"plain", errors.New("bad input"), false},
		{"404", &RequestError{Message: "Not Found", Status: 404}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsColdStart(tt.err))
		})
	}
}

func TestRequestErrorHelpers(t *testing.T) {
	err := fmt.Errorf("wrap: %w", &RequestError{Message: "gone", Status: 404})
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "gone", MessageOf(err))
	assert.Equal(t, -1, StatusOf(errors.New("x")))
	assert.Equal(t, "x", MessageOf(errors.New("x")))
	assert.Equal(t, "", MessageOf(nil))
	assert.Equal(t, "gone (status 404)", (&RequestError{Message: "gone", Status: 404}).Error())
	assert.Equal(t, "Network error: down", (&RequestError{Message: "Network error: down"}).Error())
}
