package discovery

import (
	"errors"
	"net"
	"strconv"
	"time"
)

// Service type constants for mDNS.
const (
	// ServiceType is the DNS-SD service type of a registry.
	ServiceType = "_hatrpc._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// InstancePrefix starts default instance names.
	InstancePrefix = "hatrpc-"
)

// TXT record keys.
const (
	TXTKeyVersion  = "version"
	TXTKeyServices = "services"
)

// Timing constants.
const (
	// BrowseTimeout is the default timeout for Find.
	BrowseTimeout = 5 * time.Second

	// DefaultTTL is the DNS record TTL.
	DefaultTTL = 120 * time.Second
)

// MaxInstanceNameLen is the DNS label limit.
const MaxInstanceNameLen = 63

// Discovery errors.
var (
	ErrMissingRequired     = errors.New("missing required field")
	ErrInvalidTXTRecord    = errors.New("invalid TXT record")
	ErrInstanceNameTooLong = errors.New("invalid instance name")
	ErrNotFound            = errors.New("registry not found")
	ErrInvalidPort         = errors.New("invalid port")
)

// RegistryInfo is what a server announces.
type RegistryInfo struct {
	// Instance is the DNS-SD instance name.
	Instance string

	// Port is the registry port.
	Port int

	// Version is the protocol version of the server.
	Version string

	// Services lists the capability names in port order.
	Services []string
}

// RegistryService is a registry found on the network.
type RegistryService struct {
	RegistryInfo

	// Host is the announced host name.
	Host string

	// Addresses are the IP addresses, IPv4 first.
	Addresses []string
}

// Address returns host:port for the first known address, falling back to
// the announced host name.
func (s *RegistryService) Address() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	return net.JoinHostPort(host, strconv.Itoa(s.Port))
}
