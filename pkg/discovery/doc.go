// Package discovery advertises and finds hatrpc registries on the local
// network with mDNS/DNS-SD.
//
// # Service
//
// A server advertises one instance of _hatrpc._tcp per registry. The SRV
// port is the registry port; capability ports follow from it. Instance
// names default to "hatrpc-<hostname>".
//
// TXT records:
//
//	version=1.0                      protocol version of the server
//	services=GpioBus,Sensor,Panel    capability names in port order
//
// # Browsing
//
// Browse yields every registry seen, merging the addresses announced on
// several interfaces into one entry. Find returns the first registry, or
// the one with a given instance name.
package discovery
