package gitsemver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDescribe(t *testing.T) {
	tests := []struct {
		in     string
		want   Description
		onTag  bool
		format string
	}{
		{
			in:     "v1.2.0-0-gabc1234",
			want:   Description{Tag: "v1.2.0", Distance: 0, Hash: "abc1234"},
			onTag:  true,
			format: "v1.2.0-0-gabc1234",
		},
		{
			in:     "v1.2.0-3-gabc1234\n",
			want:   Description{Tag: "v1.2.0", Distance: 3, Hash: "abc1234"},
			format: "v1.2.0-3-gabc1234",
		},
		{
			in:     "v1.2.0-0-gabc1234-dirty",
			want:   Description{Tag: "v1.2.0", Hash: "abc1234", Dirty: true},
			format: "v1.2.0-0-gabc1234-dirty",
		},
		{
			in:     "v1.3.0-rc.1-12-g0123456789abcdef",
			want:   Description{Tag: "v1.3.0-rc.1", Distance: 12, Hash: "0123456789abcdef"},
			format: "v1.3.0-rc.1-12-g0123456789abcdef",
		},
		{
			in:     "v1.3.0-rc.1",
			want:   Description{Tag: "v1.3.0-rc.1"},
			onTag:  true,
			format: "v1.3.0-rc.1",
		},
		{
			in:     "v2.0.0-dirty",
			want:   Description{Tag: "v2.0.0", Dirty: true},
			format: "v2.0.0-dirty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseDescribe(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.onTag, got.OnTag())
			assert.Equal(t, tt.format, got.String())
		})
	}
}
