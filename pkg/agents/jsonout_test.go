package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeModelJSON(t *testing.T) {
	type payload struct {
		Answer string `json:"answer"`
	}

	cases := map[string]string{
		"bare":        `{"answer":"yes"}`,
		"fenced":      "```json\n{\"answer\":\"yes\"}\n```",
		"plain fence": "```\n{\"answer\":\"yes\"}\n```",
		"prose wrap":  `Here is the result: {"answer":"yes"} Hope that helps!`,
		"whitespace":  "  \n {\"answer\":\"yes\"} \n",
	}
	for name, text := range cases {
		var p payload
		require.NoError(t, decodeModelJSON(text, &p), name)
		assert.Equal(t, "yes", p.Answer, name)
	}

	var p payload
	assert.Error(t, decodeModelJSON("no json here at all", &p))
	assert.Error(t, decodeModelJSON("{broken", &p))
}
