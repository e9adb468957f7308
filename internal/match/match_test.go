package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"RAI 1", "rai1"},
		{"Rai.1", "rai1"},
		{"rai_1", "rai1"},
		{"  Canale 5  ", "canale5"},
		{"Radio 102.5", "radio1025"},
		{"Radio 102 5", "radio1025"},
		{"Sky-Sport (HD)", "skysporthd"},
		{"", ""},
		{"   ", ""},
		{"!!!", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "Normalize(%q)", tc.in)
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("RAI 1", "rai_1"))
	assert.True(t, Equal("Rai.1", "RAI 1"))
	assert.False(t, Equal("Rete 4", "Rete 44"))
	assert.False(t, Equal("Rai 1", "Rai 2"))
}

func TestContainsQuery(t *testing.T) {
	assert.True(t, ContainsQuery("Sky Sport F1 HD", "sport"))
	assert.True(t, ContainsQuery("Sky Sport F1 HD", "SKY.SPORT"))
	assert.False(t, ContainsQuery("Rai 1", "sport"))

	// empty query matches everything
	assert.True(t, ContainsQuery("anything", ""))
	assert.True(t, ContainsQuery("anything", "  . "))
}
