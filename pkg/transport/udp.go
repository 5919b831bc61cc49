package transport

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/net/ipv4"
)

// UDPMulticast is the production Transport: IPv4 UDP multicast on a fixed
// group and port (e.g. 224.1.1.1:5007), with TTL set to at least 2 so
// heartbeats cross a router hop between cars.
type UDPMulticast struct {
	group *net.UDPAddr
	send  *net.UDPConn
	recv  *net.UDPConn
}

// DialUDPMulticast joins the given multicast group/port on iface (nil picks
// the default interface) and returns a ready Transport.
func DialUDPMulticast(groupAddr string, port int, ttl int, iface *net.Interface) (*UDPMulticast, error) {
	group := &net.UDPAddr{IP: net.ParseIP(groupAddr), Port: port}

	send, err := net.DialUDP("udp4", nil, group)
	if err != nil {
		return nil, fmt.Errorf("transport: dial send socket: %w", err)
	}
	if err := ipv4.NewPacketConn(send).SetMulticastTTL(ttl); err != nil {
		send.Close()
		return nil, fmt.Errorf("transport: set ttl: %w", err)
	}

	recv, err := net.ListenMulticastUDP("udp4", iface, group)
	if err != nil {
		send.Close()
		return nil, fmt.Errorf("transport: listen multicast: %w", err)
	}
	_ = recv.SetReadBuffer(MaxPayloadBytes * 64)

	return &UDPMulticast{group: group, send: send, recv: recv}, nil
}

func (t *UDPMulticast) Send(payload []byte) error {
	if len(payload) > MaxPayloadBytes {
		return fmt.Errorf("transport: payload %d bytes exceeds %d byte limit", len(payload), MaxPayloadBytes)
	}
	_, err := t.send.Write(payload)
	return err
}

func (t *UDPMulticast) Receive(timeout time.Duration) ([]byte, string, error) {
	buf := make([]byte, MaxPayloadBytes)
	if err := t.recv.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, "", err
	}
	n, addr, err := t.recv.ReadFromUDP(buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, "", ErrTimeout
		}
		return nil, "", err
	}
	return buf[:n], addr.IP.String(), nil
}

// LocalID returns the source IP the send socket is bound to, which is the
// identity ReadFromUDP reports to every peer (including this node, since
// multicast loops back to the sender by default).
func (t *UDPMulticast) LocalID() string {
	if addr, ok := t.send.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return t.send.LocalAddr().String()
}

func (t *UDPMulticast) Close() error {
	err1 := t.send.Close()
	err2 := t.recv.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
