package syncworker

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"
)

// Device is a registered biometric device as the worker sees it.
type Device struct {
	DeviceID               string
	IPAddress              string
	Port                   int
	PunchDirection         string
	ClearFromDeviceOnFetch bool
}

// Address returns host:port for dialing.
func (d Device) Address() string {
	port := d.Port
	if port <= 0 {
		port = DefaultDevicePort
	}
	return net.JoinHostPort(d.IPAddress, strconv.Itoa(port))
}

// DefaultDevicePort is the TCP port biometric terminals listen on.
const DefaultDevicePort = 4370

var errNoAddress = errors.New("no IP address configured")

// Puller fetches attendance records from one device. A nil error means the
// device was read successfully and its last sync time may advance.
type Puller interface {
	Pull(ctx context.Context, dev Device) error
}

// PullerFunc adapts a function to Puller.
type PullerFunc func(ctx context.Context, dev Device) error

func (f PullerFunc) Pull(ctx context.Context, dev Device) error { return f(ctx, dev) }

// TCPProbe treats a completed TCP handshake with the device as a successful
// pull. It is the shipped Puller until a terminal protocol client is wired in.
type TCPProbe struct {
	Dialer *net.Dialer
}

func (p TCPProbe) Pull(ctx context.Context, dev Device) error {
	if dev.IPAddress == "" {
		return errNoAddress
	}
	d := p.Dialer
	if d == nil {
		d = &net.Dialer{Timeout: 30 * time.Second}
	}
	conn, err := d.DialContext(ctx, "tcp", dev.Address())
	if err != nil {
		return err
	}
	return conn.Close()
}
