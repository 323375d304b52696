// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package discovery

import (
	"context"
	"net"

	"github.com/grandcat/zeroconf"

	"github.com/soothill/roku-ecp/device"
	"github.com/soothill/roku-ecp/pkg/logger"
)

// browseMDNS collects IPv4 endpoints advertising s.mdnsService until ctx
// ends. Failures are logged and yield no hits; SSDP remains authoritative.
func (s *Scanner) browseMDNS(ctx context.Context) []responder {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		logger.Debug().Err(err).Msg("mDNS resolver unavailable")
		return nil
	}

	// Buffered so the resolver is not blocked while entries are parsed
	entries := make(chan *zeroconf.ServiceEntry, 10)
	done := make(chan []responder, 1)

	go collectEntries(ctx, entries, done)

	if err := resolver.Browse(ctx, s.mdnsService, s.mdnsDomain, entries); err != nil {
		logger.Debug().Err(err).Str("service", s.mdnsService).Msg("mDNS browse failed")
		return nil
	}

	return <-done
}

// collectEntries gathers hits from entries until ctx ends or entries is
// closed and reports them on done. After ctx ends it keeps draining entries
// until the resolver closes it, since the resolver sends without watching ctx.
func collectEntries(ctx context.Context, entries <-chan *zeroconf.ServiceEntry, done chan<- []responder) {
	var hits []responder
	for {
		select {
		case <-ctx.Done():
			done <- hits
			for range entries {
			}
			return
		case entry, ok := <-entries:
			if !ok {
				done <- hits
				return
			}
			if r, ok := entryResponder(entry); ok {
				logger.Debug().
					Str("instance", entry.Instance).
					Str("device_ip", r.ipv4).
					Msg("mDNS hit")
				hits = append(hits, r)
			}
		}
	}
}

// entryResponder maps a service entry to an ECP endpoint on the default port
func entryResponder(entry *zeroconf.ServiceEntry) (responder, bool) {
	if entry == nil {
		return responder{}, false
	}
	for _, ip := range entry.AddrIPv4 {
		if v4 := ip.To4(); v4 != nil && !v4.Equal(net.IPv4zero) {
			return responder{ipv4: v4.String(), port: device.DefaultPort}, true
		}
	}
	return responder{}, false
}
