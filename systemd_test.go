package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderServiceFile(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderServiceFile(&buf, FiresideServiceParams{
		BinaryPath: "/usr/local/bin/fireside",
		User:       "pi",
		ConfigPath: "/etc/fireside/config.toml",
	}))

	out := buf.String()
	assert.Contains(t, out, "User=pi\n")
	assert.Contains(t, out, "ExecStart=/usr/local/bin/fireside -config /etc/fireside/config.toml\n")

	buf.Reset()
	require.NoError(t, renderServiceFile(&buf, FiresideServiceParams{
		BinaryPath: "/usr/local/bin/fireside",
		User:       "pi",
	}))
	assert.Contains(t, buf.String(), "ExecStart=/usr/local/bin/fireside\n")
}
