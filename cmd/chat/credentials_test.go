package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCredentials_Save_And_Load(t *testing.T) {
	req := require.New(t)
	t.Setenv("HOME", t.TempDir())

	empty, err := loadCredentials()
	req.NoError(err)
	req.Empty(empty.Auth.Token)

	_, err = requireLogin()
	req.Error(err)

	creds := &Credentials{
		Server: CredentialsServer{BaseURL: "http://chat.local:8080", SocketURL: "ws://chat.local:8081/ws"},
		Auth:   CredentialsAuth{Token: "tok", UserID: "u-1", Username: "alice"},
	}
	req.NoError(saveCredentials(creds))

	loaded, err := requireLogin()
	req.NoError(err)
	req.Equal(creds, loaded)
}

func TestCredentials_Endpoints(t *testing.T) {
	req := require.New(t)
	t.Cleanup(func() { serverURL, socketURL = "", "" })

	base, socket := (&Credentials{}).endpoints()
	req.Equal(defaultServerURL, base)
	req.Equal(defaultSocketURL, socket)

	stored := &Credentials{Server: CredentialsServer{BaseURL: "http://stored", SocketURL: "ws://stored/ws"}}
	base, socket = stored.endpoints()
	req.Equal("http://stored", base)
	req.Equal("ws://stored/ws", socket)

	serverURL = "http://flag"
	base, socket = stored.endpoints()
	req.Equal("http://flag", base)
	req.Equal("ws://stored/ws", socket)
}
