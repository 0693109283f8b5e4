package launcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSystemLauncher(found map[string]bool, openErr error) (*SystemLauncher, *[]string) {
	var opened []string
	l := &SystemLauncher{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		lookPath: func(name string) (string, error) {
			if found[name] {
				return "/usr/bin/" + name, nil
			}
			return "", exec.ErrNotFound
		},
		open: func(u string) error {
			opened = append(opened, u)
			return openErr
		},
		goos: "linux",
	}
	return l, &opened
}

func TestSystemLauncher_CanOpenURL(t *testing.T) {
	ctx := context.Background()

	l, _ := newTestSystemLauncher(map[string]bool{"xdg-open": true}, nil)
	ok, err := l.CanOpenURL(ctx, "https://www.facebook.com/v19.0/dialog/oauth?client_id=x")
	require.NoError(t, err)
	assert.True(t, ok)

	l, _ = newTestSystemLauncher(map[string]bool{"www-browser": true}, nil)
	ok, err = l.CanOpenURL(ctx, "https://example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	l, _ = newTestSystemLauncher(nil, nil)
	ok, err = l.CanOpenURL(ctx, "https://example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSystemLauncher_CanOpenURL_RejectsBadURLs(t *testing.T) {
	l, _ := newTestSystemLauncher(map[string]bool{"xdg-open": true}, nil)
	ctx := context.Background()

	_, err := l.CanOpenURL(ctx, "file:///etc/passwd")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)

	_, err = l.CanOpenURL(ctx, "https://")
	assert.Error(t, err)

	_, err = l.CanOpenURL(ctx, "://bad")
	assert.Error(t, err)
}

func TestSystemLauncher_CanceledContext(t *testing.T) {
	l, opened := newTestSystemLauncher(map[string]bool{"xdg-open": true}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.CanOpenURL(ctx, "https://example.com")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, l.OpenURL(ctx, "https://example.com"), context.Canceled)
	assert.Empty(t, *opened)
}

func TestSystemLauncher_OpenURL(t *testing.T) {
	l, opened := newTestSystemLauncher(nil, nil)
	require.NoError(t, l.OpenURL(context.Background(), "https://example.com/auth"))
	assert.Equal(t, []string{"https://example.com/auth"}, *opened)

	boom := errors.New("exec failed")
	l, _ = newTestSystemLauncher(nil, boom)
	assert.ErrorIs(t, l.OpenURL(context.Background(), "https://example.com/auth"), boom)
}

func TestOpenerCommands(t *testing.T) {
	assert.Equal(t, []string{"open"}, openerCommands("darwin"))
	assert.Equal(t, []string{"rundll32"}, openerCommands("windows"))
	assert.Contains(t, openerCommands("linux"), "xdg-open")
}

func TestPrintLauncher(t *testing.T) {
	var buf bytes.Buffer
	l := NewPrintLauncher(&buf)
	ctx := context.Background()

	ok, err := l.CanOpenURL(ctx, "https://example.com/auth")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l.OpenURL(ctx, "https://example.com/auth"))
	assert.Contains(t, buf.String(), "https://example.com/auth")

	_, err = l.CanOpenURL(ctx, "mailto:someone@example.com")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestNew(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	l, err := New("print", logger, io.Discard)
	require.NoError(t, err)
	assert.IsType(t, &PrintLauncher{}, l)

	l, err = New("", logger, io.Discard)
	require.NoError(t, err)
	assert.IsType(t, &SystemLauncher{}, l)

	_, err = New("carrier-pigeon", logger, io.Discard)
	assert.Error(t, err)
}
