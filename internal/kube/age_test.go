package kube

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatAge(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		created time.Time
		want    string
	}{
		{"seconds", now.Add(-45 * time.Second), "45s"},
		{"minutes", now.Add(-12 * time.Minute), "12m"},
		{"hours", now.Add(-7 * time.Hour), "7h"},
		{"days", now.Add(-72 * time.Hour), "3d"},
		{"future timestamps clamp to zero", now.Add(10 * time.Second), "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAge(tt.created))
		})
	}
}
