//go:build linux

package source

import (
	"github.com/godbus/dbus/v5"
)

// DBusClient is the seam between the MPRIS adapter and the session bus,
// kept narrow so tests can substitute a fake.
type DBusClient interface {
	// Close closes the bus connection.
	Close() error

	// ListNames returns all names currently on the bus.
	ListNames() ([]string, error)

	// GetProperty reads a property from a bus object.
	GetProperty(dest, path, prop string) (dbus.Variant, error)
}

// StdDBusClient is the real client on godbus.
type StdDBusClient struct {
	conn *dbus.Conn
}

// NewStdDBusClient connects to the session bus.
func NewStdDBusClient() (*StdDBusClient, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, err
	}
	return &StdDBusClient{conn: conn}, nil
}

// Close closes the bus connection.
func (c *StdDBusClient) Close() error {
	return c.conn.Close()
}

// ListNames returns all names currently on the bus.
func (c *StdDBusClient) ListNames() ([]string, error) {
	var names []string
	err := c.conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names)
	return names, err
}

// GetProperty reads a property from a bus object.
func (c *StdDBusClient) GetProperty(dest, path, prop string) (dbus.Variant, error) {
	obj := c.conn.Object(dest, dbus.ObjectPath(path))
	return obj.GetProperty(prop)
}
