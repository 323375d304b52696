// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package main

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soothill/roku-ecp/pkg/logger"
	"github.com/soothill/roku-ecp/wol"
)

const deviceInfoXML = `<?xml version="1.0" encoding="UTF-8" ?>
<device-info>
	<friendly-device-name>Den TV</friendly-device-name>
	<network-type>wifi</network-type>
	<wifi-mac>aa:bb:cc:dd:ee:ff</wifi-mac>
	<supports-ethernet>false</supports-ethernet>
	<power-mode>PowerOn</power-mode>
</device-info>`

const appsXML = `<apps>
	<app id="12" type="appl" version="5.1.0">Netflix</app>
	<app id="837" type="appl" version="2.2.1">YouTube</app>
</apps>`

// fakeDevice is an ECP endpoint that records every POST path
type fakeDevice struct {
	*httptest.Server

	mu    sync.Mutex
	posts []string
}

func newFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()
	f := &fakeDevice{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			f.mu.Lock()
			f.posts = append(f.posts, strings.TrimPrefix(r.URL.EscapedPath(), "/"))
			f.mu.Unlock()
			return
		}
		switch r.URL.Path {
		case "/query/device-info":
			_, _ = w.Write([]byte(deviceInfoXML))
		case "/query/apps":
			_, _ = w.Write([]byte(appsXML))
		case "/query/active-app":
			_, _ = w.Write([]byte(`<active-app><app id="837" type="appl" version="2.2.1">YouTube</app></active-app>`))
		case "/query/icon/12":
			_, _ = w.Write([]byte("PNGDATA"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeDevice) target() string {
	return f.Listener.Addr().String()
}

func (f *fakeDevice) postPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.posts...)
}

// sleepingDevice stalls every request until a magic packet reaches its
// Wake-on-LAN listener, then answers like fakeDevice.
type sleepingDevice struct {
	*httptest.Server
	wake *net.UDPConn

	mu      sync.Mutex
	posts   []string
	packets [][]byte
	woke    chan struct{}
	once    sync.Once
}

func newSleepingDevice(t *testing.T) *sleepingDevice {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)

	s := &sleepingDevice{wake: conn, woke: make(chan struct{})}
	go s.listen()

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-s.woke:
		case <-r.Context().Done():
			return
		case <-time.After(10 * time.Second):
			return
		}
		if r.Method == http.MethodPost {
			s.mu.Lock()
			s.posts = append(s.posts, strings.TrimPrefix(r.URL.EscapedPath(), "/"))
			s.mu.Unlock()
			return
		}
		if r.URL.Path == "/query/device-info" {
			_, _ = w.Write([]byte(deviceInfoXML))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(func() {
		s.Close()
		_ = conn.Close()
	})
	return s
}

func (s *sleepingDevice) listen() {
	buf := make([]byte, 512)
	for {
		n, _, err := s.wake.ReadFromUDP(buf)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.packets = append(s.packets, append([]byte(nil), buf[:n]...))
		s.mu.Unlock()
		s.once.Do(func() { close(s.woke) })
	}
}

func (s *sleepingDevice) target() string {
	return s.Listener.Addr().String()
}

func (s *sleepingDevice) wakeAddr() string {
	return s.wake.LocalAddr().String()
}

func (s *sleepingDevice) received() ([]string, [][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.posts...), append([][]byte(nil), s.packets...)
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Cleanup(logger.Disable)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestNoCommandPrintsUsage(t *testing.T) {
	code, _, stderr := execute(t)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "usage: ecpctl")
	assert.Contains(t, stderr, "validate-config")
}

func TestUnknownCommand(t *testing.T) {
	code, _, stderr := execute(t, "reboot")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, `unknown command "reboot"`)
}

func TestMissingArguments(t *testing.T) {
	code, _, stderr := execute(t, "launch", "10.0.0.1")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "usage: ecpctl launch <ip> <app-id>")
}

func TestInfo(t *testing.T) {
	dev := newFakeDevice(t)

	code, stdout, stderr := execute(t, "info", dev.target())
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "friendly-device-name")
	assert.Contains(t, stdout, "Den TV")
	assert.Contains(t, stdout, "aa:bb:cc:dd:ee:ff")
}

func TestApps(t *testing.T) {
	dev := newFakeDevice(t)

	code, stdout, stderr := execute(t, "apps", dev.target())
	require.Equal(t, 0, code, stderr)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "Netflix")
	assert.Contains(t, lines[2], "YouTube")
}

func TestState(t *testing.T) {
	dev := newFakeDevice(t)

	code, stdout, stderr := execute(t, "state", dev.target())
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "On\n", stdout)
}

func TestPowerOffPressesPowerOff(t *testing.T) {
	dev := newFakeDevice(t)

	code, stdout, stderr := execute(t, "power", dev.target(), "off")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "power Off")
	assert.Equal(t, []string{"keypress/PowerOff"}, dev.postPaths())
}

func TestPowerRejectsUnknownCommand(t *testing.T) {
	dev := newFakeDevice(t)

	code, _, stderr := execute(t, "power", dev.target(), "sleep")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown power command")
	assert.Empty(t, dev.postPaths())
}

func TestLaunch(t *testing.T) {
	dev := newFakeDevice(t)

	code, _, stderr := execute(t, "launch", dev.target(), "12")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, []string{"launch/12"}, dev.postPaths())
}

func TestLaunchInvalidID(t *testing.T) {
	code, _, stderr := execute(t, "launch", "10.0.0.1", "netflix")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid app id")
}

func TestPress(t *testing.T) {
	dev := newFakeDevice(t)

	code, _, stderr := execute(t, "press", dev.target(), "home", "Down", "SELECT")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, []string{"keypress/Home", "keypress/Down", "keypress/Select"}, dev.postPaths())
}

func TestPressUnknownButton(t *testing.T) {
	dev := newFakeDevice(t)

	code, _, stderr := execute(t, "press", dev.target(), "Home", "Eject")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, `unknown button "Eject"`)
	assert.Empty(t, dev.postPaths())
}

func TestType(t *testing.T) {
	dev := newFakeDevice(t)

	code, _, stderr := execute(t, "type", dev.target(), "a", "b")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, []string{"keypress/Lit_a", "keypress/Lit_%20", "keypress/Lit_b"}, dev.postPaths())
}

func TestIcon(t *testing.T) {
	dev := newFakeDevice(t)
	out := filepath.Join(t.TempDir(), "netflix.png")

	code, _, stderr := execute(t, "icon", dev.target(), "12", out)
	require.Equal(t, 0, code, stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "PNGDATA", string(data))
}

func TestActive(t *testing.T) {
	dev := newFakeDevice(t)

	code, stdout, stderr := execute(t, "active", dev.target())
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "837\tYouTube\n", stdout)
}

func TestUnreachableDevice(t *testing.T) {
	dev := newFakeDevice(t)
	target := dev.target()
	dev.Close()

	// A refused connection is not a timeout, so the state is not known
	code, stdout, stderr := execute(t, "state", target)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "Unknown\n", stdout)

	code, _, stderr = execute(t, "info", target)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "ecpctl info:")

	code, _, stderr = execute(t, "-mac", "aa:bb:cc:dd:ee:ff", "power", target, "on")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "ecpctl power:")
}

func TestStateOfSleepingDeviceIsOff(t *testing.T) {
	dev := newSleepingDevice(t)

	code, stdout, stderr := execute(t, "state", dev.target())
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "Off\n", stdout)
}

func TestPowerOnWakesSleepingDevice(t *testing.T) {
	dev := newSleepingDevice(t)
	mac := wol.MAC{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0x01}

	code, stdout, stderr := execute(t, "-mac", mac.String(), "-wol-addr", dev.wakeAddr(), "power", dev.target(), "on")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "power On")

	assert.Eventually(t, func() bool {
		_, packets := dev.received()
		return len(packets) == 1
	}, 2*time.Second, 10*time.Millisecond)
	_, packets := dev.received()
	require.Len(t, packets, 1)
	assert.Equal(t, wol.MagicPacket(mac), packets[0])
}

func TestPowerOnSleepingDeviceNeedsMAC(t *testing.T) {
	dev := newSleepingDevice(t)

	code, _, stderr := execute(t, "-wol-addr", dev.wakeAddr(), "power", dev.target(), "on")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "pass -mac")

	_, packets := dev.received()
	assert.Empty(t, packets)
}

func TestLaunchWakesSleepingDevice(t *testing.T) {
	dev := newSleepingDevice(t)
	mac := wol.MAC{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0x02}

	code, stdout, stderr := execute(t, "-mac", mac.String(), "-wol-addr", dev.wakeAddr(), "launch", dev.target(), "12")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "launched 12")

	posts, packets := dev.received()
	assert.Contains(t, posts, "launch/12")
	require.Len(t, packets, 1)
	assert.Equal(t, wol.MagicPacket(mac), packets[0])
}

func TestInvalidWakeFlags(t *testing.T) {
	code, _, stderr := execute(t, "-mac", "not-a-mac", "state", "10.0.0.1")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid -mac")

	code, _, stderr = execute(t, "-wol-addr", "nowhere", "state", "10.0.0.1")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid -wol-addr")
}

func TestValidateConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecpctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("monitor:\n  poll_interval: 15s\nlogging:\n  level: warn\n"), 0600))

	code, stdout, stderr := execute(t, "-config", path, "validate-config")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Configuration validation PASSED")
	assert.Contains(t, stdout, "15s")
}

func TestValidateConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecpctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  url: http://localhost:5432\n"), 0600))

	code, _, _ := execute(t, "-config", path, "validate-config")
	assert.Equal(t, 1, code)
}

func TestValidateConfigNeedsPath(t *testing.T) {
	code, _, stderr := execute(t, "validate-config")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "-config")
}

func TestBadConfigFileFailsEveryCommand(t *testing.T) {
	code, _, _ := execute(t, "-config", filepath.Join(t.TempDir(), "missing.yaml"), "state", "10.0.0.1")
	assert.Equal(t, 1, code)
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in      string
		ip      string
		port    int
		wantErr bool
	}{
		{"192.168.1.20", "192.168.1.20", 8060, false},
		{"192.168.1.20:18060", "192.168.1.20", 18060, false},
		{"::1", "", 0, true},
		{"roku.local", "", 0, true},
		{"192.168.1.20:0", "", 0, true},
		{"192.168.1.20:http", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ip, port, err := parseTarget(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ip, ip)
			assert.Equal(t, tt.port, port)
		})
	}
}
