package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hunterjsb/mtbot/internal/i18n"
	"github.com/hunterjsb/mtbot/internal/motortown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/player/list":
			_, _ = w.Write([]byte(`{"succeeded":true,"data":{"0":{"name":"Alice","unique_id":"p1","ping":40}}}`))
		case "/player/count":
			_, _ = w.Write([]byte(`{"succeeded":true,"data":{"num_players":1}}`))
		case "/player/banlist":
			_, _ = w.Write([]byte(`{"succeeded":true,"data":{}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	var out bytes.Buffer
	client := motortown.NewClient(srv.URL, "pw", time.Second)
	require.NoError(t, runStatus(context.Background(), client, i18n.MustLoad("en"), &out))

	assert.Equal(t, "Motor Town Server Status\n"+
		"Server Status: Online\n"+
		"Players Online: 1\n"+
		"Average Ping: 40 ms\n"+
		"Player Names:\n"+
		"  Alice (p1)\n"+
		"Banned Players: 0\n", out.String())
}

func TestRunStatus_Offline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	var out bytes.Buffer
	client := motortown.NewClient(srv.URL, "pw", time.Second)
	err := runStatus(context.Background(), client, i18n.MustLoad("de"), &out)

	require.Error(t, err)
	assert.True(t, motortown.IsTransport(err))
	assert.Contains(t, out.String(), i18n.MustLoad("de").T("server_offline"))
}
