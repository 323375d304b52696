// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package wol builds and broadcasts Wake-on-LAN magic packets.
//
// A magic packet is six 0xFF bytes followed by sixteen copies of the target
// MAC address (102 bytes). Delivery is fire-and-forget: a nil error means
// the datagram left this host, not that the device woke up.
package wol

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/soothill/roku-ecp/pkg/errors"
	"github.com/soothill/roku-ecp/pkg/logger"
	"github.com/soothill/roku-ecp/pkg/metrics"
)

const (
	// DefaultPort is the conventional discard port used for magic packets
	DefaultPort = 9

	// PacketSize is the length of a magic packet payload
	PacketSize = 6 + 16*6
)

// MAC is a 6-byte hardware address. The zero value means "unknown".
type MAC [6]byte

// ParseMAC parses colon-separated hex octets such as "AA:BB:CC:DD:EE:FF" or
// "0:1:2:3:4:5". Exactly six octets of one or two hex digits are required.
func ParseMAC(s string) (MAC, error) {
	var mac MAC

	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != len(mac) {
		return MAC{}, errors.NewParseError("mac", s,
			fmt.Errorf("%w: want 6 octets, got %d", errors.ErrInvalidMAC, len(parts)))
	}

	for i, part := range parts {
		if len(part) == 0 || len(part) > 2 {
			return MAC{}, errors.NewParseError("mac", s,
				fmt.Errorf("%w: octet %d is %q", errors.ErrInvalidMAC, i, part))
		}
		b, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return MAC{}, errors.NewParseError("mac", s,
				fmt.Errorf("%w: octet %d: %v", errors.ErrInvalidMAC, i, err))
		}
		mac[i] = byte(b)
	}

	return mac, nil
}

// String formats the address as lowercase xx:xx:xx:xx:xx:xx
func (m MAC) String() string {
	return net.HardwareAddr(m[:]).String()
}

// IsZero reports whether the address is unknown
func (m MAC) IsZero() bool {
	return m == MAC{}
}

// MagicPacket returns the 102-byte payload that wakes mac
func MagicPacket(mac MAC) []byte {
	packet := make([]byte, 0, PacketSize)
	for i := 0; i < 6; i++ {
		packet = append(packet, 0xFF)
	}
	for i := 0; i < 16; i++ {
		packet = append(packet, mac[:]...)
	}
	return packet
}

// Sender broadcasts magic packets over UDP.
type Sender struct {
	addr *net.UDPAddr
}

// NewSender creates a sender targeting the IPv4 limited broadcast address on
// the default port.
func NewSender() *Sender {
	return NewSenderTo(&net.UDPAddr{IP: net.IPv4bcast, Port: DefaultPort})
}

// NewSenderTo creates a sender targeting addr
func NewSenderTo(addr *net.UDPAddr) *Sender {
	return &Sender{addr: addr}
}

// Wake emits one magic packet for mac.
func (s *Sender) Wake(ctx context.Context, mac MAC) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp4", s.addr.String())
	if err != nil {
		metrics.WakeOnLANErrors.Inc()
		return errors.NewNetworkError("wol dial", s.addr.String(), err)
	}
	defer func() { _ = conn.Close() }()

	n, err := conn.Write(MagicPacket(mac))
	if err != nil {
		metrics.WakeOnLANErrors.Inc()
		return errors.NewNetworkError("wol send", s.addr.String(), err)
	}

	metrics.WakeOnLANPacketsTotal.Inc()
	logger.Debug().
		Str("mac", mac.String()).
		Str("addr", s.addr.String()).
		Int("bytes", n).
		Msg("Magic packet sent")
	return nil
}
