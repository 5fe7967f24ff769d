package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_BuildAndDecodeTagged(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-bank", "bakai", "-amount", "750", "-base-hash", "base123", "-json"}, &out))

	var link struct {
		URL        string `json:"url"`
		Hash       string `json:"hash"`
		Codec      string `json:"codec"`
		Invertible bool   `json:"invertible"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &link))
	assert.Equal(t, "tagged", link.Codec)
	assert.True(t, link.Invertible)
	assert.True(t, strings.HasPrefix(link.URL, "https://pay.example/"))

	out.Reset()
	require.NoError(t, run([]string{"-bank", "bakai", "-decode", link.Hash}, &out))
	assert.Equal(t, "Amount: 750.00\n", out.String())
}

func TestRun_GenericFallback(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-bank", "kicb", "-amount", "10.5", "-base-hash", "anything", "-template", "https://kicb.kg/p?h={hash}"}, &out))
	text := out.String()
	assert.Contains(t, text, "URL:   https://kicb.kg/p?h=")
	assert.Contains(t, text, "Codec: generic (invertible=false fallback=true)")

	err := run([]string{"-bank", "kicb", "-decode", "abc"}, &out)
	assert.ErrorContains(t, err, "cannot be decoded")
}

func TestRun_Errors(t *testing.T) {
	var out bytes.Buffer
	cases := [][]string{
		{},
		{"-bank", "bakai"},
		{"-bank", "bakai", "-amount", "abc", "-base-hash", "base123"},
		{"-bank", "bakai", "-amount", "0", "-base-hash", "base123"},
		{"-bank", "bakai", "-amount", "1", "-base-hash", "has space"},
		{"-bank", "bakai", "-amount", "1", "-base-hash", "base123", "-template", "https://no-placeholder"},
		{"-bank", "bakai", "-amount", "1", "-codec", "morse"},
		{"-nope"},
	}
	for _, args := range cases {
		assert.Error(t, run(args, &out), strings.Join(args, " "))
	}
}

func TestMain_FailsThroughFatalf(t *testing.T) {
	origArgs, origFatal := os.Args, fatalfFn
	defer func() { os.Args, fatalfFn = origArgs, origFatal }()

	var msg string
	fatalfFn = func(format string, v ...interface{}) { msg = fmt.Sprintf(format, v...) }
	os.Args = []string{"paylink"}
	main()
	assert.Contains(t, msg, "-bank is required")
}
