// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package discovery finds ECP devices on the local network via SSDP.
//
// A single M-SEARCH for the "roku:ecp" search target is multicast to
// 239.255.255.250:1900, and unicast replies are collected until the
// discovery window closes. Each distinct responder becomes a device.Device,
// which is then enriched with UpdateSelf.
//
// # Deduplication
//
// Devices often answer more than once. A reply is dropped when either its
// USN or its ipv4:port has already been seen in the same scan, so the result
// keeps first-seen order and never lists an endpoint twice.
//
// # Thread Safety
//
// A Scanner may be shared between goroutines. The devices found by the most
// recent scan are kept behind a read-write lock and can be read with
// GetDevices while another scan runs.
//
// # Example Usage
//
//	scanner := discovery.NewScanner()
//
//	devices, err := scanner.Discover(ctx, 5*time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, dev := range devices {
//	    fmt.Printf("%s at %s\n", dev.Name, dev.IPv4)
//	}
package discovery

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/soothill/roku-ecp/device"
	"github.com/soothill/roku-ecp/pkg/errors"
	"github.com/soothill/roku-ecp/pkg/logger"
	"github.com/soothill/roku-ecp/pkg/metrics"
)

const (
	// SearchTarget is the SSDP ST value ECP devices answer to
	SearchTarget = "roku:ecp"

	// MulticastAddr is the SSDP multicast group and port
	MulticastAddr = "239.255.255.250:1900"

	maxDatagram = 2048
)

// responder is one unique SSDP reply
type responder struct {
	ipv4 string
	port int
	usn  string
}

func (r responder) addr() string {
	return net.JoinHostPort(r.ipv4, strconv.Itoa(r.port))
}

// Scanner runs SSDP discovery scans
type Scanner struct {
	target      *net.UDPAddr
	deviceOpts  []device.Option
	mdnsService string
	mdnsDomain  string

	devices map[string]*device.Device
	mu      sync.RWMutex // Protects devices map
}

// Option configures a Scanner
type Option func(*Scanner)

// WithTarget sends the M-SEARCH to addr instead of the SSDP multicast group
func WithTarget(addr *net.UDPAddr) Option {
	return func(s *Scanner) {
		s.target = addr
	}
}

// WithDeviceOptions applies opts to every device the scanner creates
func WithDeviceOptions(opts ...device.Option) Option {
	return func(s *Scanner) {
		s.deviceOpts = append(s.deviceOpts, opts...)
	}
}

// WithMDNS also browses for service in domain during the discovery window.
// Every IPv4 address found is treated as an ECP endpoint on port 8060.
func WithMDNS(service, domain string) Option {
	return func(s *Scanner) {
		s.mdnsService = service
		s.mdnsDomain = domain
	}
}

// NewScanner creates a new device scanner
func NewScanner(opts ...Option) *Scanner {
	target, _ := net.ResolveUDPAddr("udp4", MulticastAddr)
	s := &Scanner{
		target:  target,
		devices: make(map[string]*device.Device),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Discover performs one scan. timeout bounds how long replies are collected
// (ctx's deadline wins if it is earlier); enrichment of the responders then
// runs concurrently and completes before Discover returns.
//
// Devices whose enrichment fails are still returned with whatever fields
// were filled in. An empty slice with a nil error means nobody answered.
// Failing to bind the socket or send the search is a *errors.DiscoveryError.
func (s *Scanner) Discover(ctx context.Context, timeout time.Duration) ([]*device.Device, error) {
	start := time.Now()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero})
	if err != nil {
		return nil, errors.NewDiscoveryError("bind", err)
	}
	defer func() { _ = conn.Close() }()

	deadline := start.Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	windowCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	var (
		mdnsHits []responder
		mdnsWG   sync.WaitGroup
	)
	if s.mdnsService != "" {
		mdnsWG.Add(1)
		go func() {
			defer mdnsWG.Done()
			mdnsHits = s.browseMDNS(windowCtx)
		}()
	}

	if _, err := conn.WriteToUDP(searchRequest(timeout), s.target); err != nil {
		cancel()
		mdnsWG.Wait()
		return nil, errors.NewDiscoveryError("send M-SEARCH", err)
	}

	if err := conn.SetReadDeadline(deadline); err != nil {
		cancel()
		mdnsWG.Wait()
		return nil, errors.NewDiscoveryError("set deadline", err)
	}

	// Cancelling ctx ends the window early
	stop := context.AfterFunc(windowCtx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	seen := make(map[string]bool)
	var found []responder
	add := func(r responder) {
		if (r.usn != "" && seen["usn:"+r.usn]) || seen["addr:"+r.addr()] {
			return
		}
		if r.usn != "" {
			seen["usn:"+r.usn] = true
		}
		seen["addr:"+r.addr()] = true
		found = append(found, r)
	}

	buf := make([]byte, maxDatagram)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if !errors.As(err, &ne) || !ne.Timeout() {
				logger.Debug().Err(err).Msg("SSDP read failed")
			}
			break
		}

		r, ok := parseResponse(buf[:n])
		if !ok {
			logger.Debug().Str("from", from.String()).Msg("Ignoring malformed SSDP datagram")
			continue
		}
		metrics.SSDPResponsesTotal.Inc()
		add(r)
	}

	cancel()
	mdnsWG.Wait()
	for _, r := range mdnsHits {
		add(r)
	}

	devices := s.enrich(ctx, found)

	s.mu.Lock()
	s.devices = make(map[string]*device.Device, len(devices))
	for _, d := range devices {
		s.devices[d.IPv4] = d
	}
	s.mu.Unlock()

	metrics.DiscoveryDuration.Observe(time.Since(start).Seconds())
	metrics.DevicesDiscovered.Set(float64(len(devices)))

	logger.Debug().
		Int("devices", len(devices)).
		Dur("elapsed", time.Since(start)).
		Msg("Discovery scan complete")

	return devices, nil
}

// enrich builds and enriches one device per responder, preserving order
func (s *Scanner) enrich(ctx context.Context, found []responder) []*device.Device {
	devices := make([]*device.Device, len(found))
	var wg sync.WaitGroup

	for i, r := range found {
		wg.Add(1)
		go func(i int, r responder) {
			defer wg.Done()
			d := device.FromIPv4(r.ipv4, r.port, s.deviceOpts...)
			if err := d.UpdateSelf(ctx); err != nil {
				logger.Debug().Err(err).Str("device_ip", r.ipv4).Msg("Keeping partially enriched device")
			}
			devices[i] = d
		}(i, r)
	}

	wg.Wait()
	return devices
}

// GetDevices returns the devices found by the most recent scan
func (s *Scanner) GetDevices() []*device.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()

	devices := make([]*device.Device, 0, len(s.devices))
	for _, d := range s.devices {
		devices = append(devices, d)
	}
	return devices
}

// GetDeviceByIP returns a device from the most recent scan, or nil
func (s *Scanner) GetDeviceByIP(ipv4 string) *device.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.devices[ipv4]
}

// searchRequest builds the M-SEARCH datagram. MX is the window in whole
// seconds, at least 1.
func searchRequest(timeout time.Duration) []byte {
	mx := int(timeout / time.Second)
	if mx < 1 {
		mx = 1
	}
	return []byte(fmt.Sprintf("M-SEARCH * HTTP/1.1\r\n"+
		"HOST: %s\r\n"+
		"MAN: \"ssdp:discover\"\r\n"+
		"ST: %s\r\n"+
		"MX: %d\r\n"+
		"\r\n", MulticastAddr, SearchTarget, mx))
}

// parseResponse reads LOCATION and USN from an SSDP reply. Replies without
// an IPv4 LOCATION are rejected.
func parseResponse(data []byte) (responder, bool) {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(data)), nil)
	if err != nil {
		return responder{}, false
	}
	_ = resp.Body.Close()

	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil || loc.Host == "" {
		return responder{}, false
	}

	ip := net.ParseIP(loc.Hostname()).To4()
	if ip == nil {
		return responder{}, false
	}

	port := device.DefaultPort
	if p := loc.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return responder{}, false
		}
	}

	return responder{
		ipv4: ip.String(),
		port: port,
		usn:  resp.Header.Get("Usn"),
	}, true
}
