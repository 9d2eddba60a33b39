package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{name: "bare domain", raw: "dealroom.co", expected: "dealroom.co"},
		{name: "uppercase", raw: "DealRoom.CO", expected: "dealroom.co"},
		{name: "scheme stripped", raw: "https://dealroom.co", expected: "dealroom.co"},
		{name: "www stripped", raw: "http://www.dealroom.co", expected: "dealroom.co"},
		{name: "trailing slash stripped", raw: "dealroom.co/", expected: "dealroom.co"},
		{name: "path preserved", raw: "dealroom.co/companies", expected: "dealroom.co/companies"},
		{name: "surrounding whitespace", raw: "  dealroom.co ", expected: "dealroom.co"},
		{name: "unknown tld still a domain", raw: "foo7.bar", expected: "foo7.bar"},
		{name: "example tld", raw: "newcompany.example", expected: "newcompany.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalizeURL_Invalid(t *testing.T) {
	for _, raw := range []string{"", "asddsadsdsd", "localhost"} {
		_, err := NormalizeURL(raw)
		require.Error(t, err, "expected %q to fail normalization", raw)
		assert.True(t, IsNormalizationError(err))
	}
}

func TestApplyChain(t *testing.T) {
	got := ApplyChain(" HTTPS://WWW.Example.com/ ", "trim", "lowercase", "strip_scheme", "strip_www", "strip_trailing_slash")
	assert.Equal(t, "example.com", got)
}

func TestApply_UnknownNormalizerIsNoop(t *testing.T) {
	assert.Equal(t, "value", Apply("value", "does_not_exist"))
}
